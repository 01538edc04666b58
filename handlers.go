package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

type guessRequest struct {
	Note string `json:"note" binding:"required"`
}

type difficultyRequest struct {
	Difficulty string `json:"difficulty" binding:"required"`
}

// keyView is the keyboard layout entry the renderer draws a key from.
// Frequencies are deliberately absent: the active target must stay unreadable.
type keyView struct {
	ID    string `json:"id"`
	Class string `json:"class"`
	Rank  int    `json:"rank"`
}

// homeHandler returns service info plus the session's current snapshot.
func (app *App) homeHandler(c *gin.Context) {
	sessionID := app.getOrCreateSession(c)
	eng := app.getEngine(sessionID)
	c.JSON(http.StatusOK, gin.H{
		"name":    "Orelludo",
		"message": "Listen to the note, then press the key you heard.",
		"game":    eng.Snapshot(),
	})
}

// startRoundHandler starts (or restarts) a round for the session.
func (app *App) startRoundHandler(c *gin.Context) {
	sessionID := app.getOrCreateSession(c)
	eng := app.getEngine(sessionID)
	if err := eng.StartRound(); err != nil {
		app.renderEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"game": eng.Snapshot()})
}

// guessHandler forwards a key press into the engine as a guess.
func (app *App) guessHandler(c *gin.Context) {
	sessionID := app.getOrCreateSession(c)
	eng := app.getEngine(sessionID)

	var req guessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing note"})
		return
	}

	logInfo("session %s guessed: %s", sessionID, req.Note)
	if err := eng.SubmitGuess(req.Note); err != nil {
		app.renderEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"game": eng.Snapshot()})
}

// replayHandler re-requests the current round's tone.
func (app *App) replayHandler(c *gin.Context) {
	sessionID := app.getOrCreateSession(c)
	eng := app.getEngine(sessionID)
	if err := eng.ReplayTarget(); err != nil {
		app.renderEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"game": eng.Snapshot()})
}

// difficultyHandler changes the tier future rounds draw from.
func (app *App) difficultyHandler(c *gin.Context) {
	sessionID := app.getOrCreateSession(c)
	eng := app.getEngine(sessionID)

	var req difficultyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing difficulty"})
		return
	}

	if err := eng.SetDifficulty(req.Difficulty); err != nil {
		app.renderEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"game": eng.Snapshot()})
}

// gameStateHandler returns the session's current snapshot.
func (app *App) gameStateHandler(c *gin.Context) {
	sessionID := app.getOrCreateSession(c)
	eng := app.getEngine(sessionID)
	c.JSON(http.StatusOK, gin.H{"game": eng.Snapshot()})
}

// notesHandler returns the keyboard layout for the session's active difficulty.
func (app *App) notesHandler(c *gin.Context) {
	sessionID := app.getOrCreateSession(c)
	eng := app.getEngine(sessionID)
	snap := eng.Snapshot()

	notes, err := app.Catalog.NotesForDifficulty(snap.Difficulty)
	if err != nil {
		app.renderEngineError(c, err)
		return
	}
	keys := lo.Map(notes, func(n Note, _ int) keyView {
		return keyView{ID: n.ID, Class: n.Class, Rank: n.Rank}
	})
	c.JSON(http.StatusOK, gin.H{
		"difficulty": snap.Difficulty,
		"keys":       keys,
	})
}

// healthHandler reports service health and basic counters.
func (app *App) healthHandler(c *gin.Context) {
	uptime := time.Since(app.StartTime)
	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"env":          map[bool]string{true: "production", false: "development"}[app.IsProduction],
		"notes_loaded": len(app.Catalog.Notes),
		"sessions":     app.engineCount(),
		"uptime":       formatUptime(uptime),
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
	})
}

// renderEngineError maps engine sentinels to HTTP statuses. Invalid
// transitions are expected UI races, reported as conflicts, never 5xx.
func (app *App) renderEngineError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrUnknownNote), errors.Is(err, ErrUnknownDifficulty):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		logWarn("Unexpected engine error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
