package main

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"
	"time"
)

// Engine is one session's game state machine. All state behind the mutex;
// every operation and every timer callback takes it, so event handling is
// serialized exactly as the UI delivers events one at a time.
//
// Timers are generation-tagged: each scheduled callback captures the round
// generation at schedule time and aborts if the generation has advanced,
// so a timer belonging to a superseded round can never touch the new one.
type Engine struct {
	mu sync.Mutex

	catalog *Catalog
	tone    ToneEmitter

	phase      string
	difficulty string
	target     string // current round's target note id, "" outside a round
	score      int
	streak     int
	generation uint64
	dead       bool

	outcome        string
	feedback       string
	pressedNote    string
	correctNote    string
	wrongNote      string
	revealedTarget string
	tonePlays      int

	lastAccess time.Time
	timers     []*time.Timer

	// onChange receives a snapshot after every transition. Called with the
	// engine lock held; receivers must not call back into the engine.
	onChange func(Snapshot)

	// randIndex draws a uniform index in [0, n). Swapped in tests.
	randIndex func(n int) int

	revealDelay       time.Duration
	pressedClearDelay time.Duration
	nextRoundDelay    time.Duration
}

// newEngine creates an idle engine on the easy tier.
func (app *App) newEngine(onChange func(Snapshot)) *Engine {
	return &Engine{
		catalog:           app.Catalog,
		tone:              app.Tone,
		phase:             PhaseIdle,
		difficulty:        DifficultyEasy,
		lastAccess:        time.Now(),
		onChange:          onChange,
		randIndex:         cryptoRandIndex,
		revealDelay:       app.RevealDelay,
		pressedClearDelay: app.PressedClearDelay,
		nextRoundDelay:    app.NextRoundDelay,
	}
}

// cryptoRandIndex draws a uniform index in [0, n) from crypto/rand,
// falling back to 0 if the source fails.
func cryptoRandIndex(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		logWarn("Error generating random number: %v, using fallback", err)
		return 0
	}
	return int(v.Int64())
}

// StartRound begins a new round: picks a uniform random target from the
// active difficulty, clears all transient state from the previous round and
// requests the target tone once. Valid in any phase; starting mid-round
// supersedes the old round (the generation bump kills its pending timers).
func (e *Engine) StartRound() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.dead {
		return ErrInvalidTransition
	}
	e.startRoundLocked()
	return nil
}

func (e *Engine) startRoundLocked() {
	notes, err := e.catalog.NotesForDifficulty(e.difficulty)
	if err != nil || len(notes) == 0 {
		// Startup validation guarantees non-empty tiers; reaching this
		// means the process is misconfigured beyond recovery.
		logFatal("No notes for difficulty %q: %v", e.difficulty, err)
	}

	e.bumpGenerationLocked()
	target := notes[e.randIndex(len(notes))]
	e.target = target.ID
	e.phase = PhasePlaying
	e.outcome = ""
	e.feedback = ""
	e.pressedNote = ""
	e.correctNote = ""
	e.wrongNote = ""
	e.revealedTarget = ""
	e.playToneLocked()

	gen := e.generation
	e.scheduleLocked(e.revealDelay, func() {
		if e.generation != gen || e.dead {
			return
		}
		e.phase = PhaseWaiting
		e.notifyLocked()
	})
	e.notifyLocked()
}

// SubmitGuess resolves the current round against a guessed note id. Exactly
// one guess is accepted per round; anything outside the waiting phase is
// rejected without mutating score or streak.
func (e *Engine) SubmitGuess(noteID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.dead {
		return ErrInvalidTransition
	}
	if !e.catalog.HasNote(noteID) {
		return ErrUnknownNote
	}
	if e.phase != PhaseWaiting {
		return ErrInvalidTransition
	}

	e.pressedNote = noteID
	if noteID == e.target {
		e.score += ScoreBase * (e.streak + 1)
		e.streak++
		e.outcome = OutcomeCorrect
		e.correctNote = noteID
		e.feedback = FeedbackCorrect
		logInfo("Correct guess %s, score now %d (streak %d)", noteID, e.score, e.streak)
	} else {
		e.streak = 0
		e.outcome = OutcomeIncorrect
		e.wrongNote = noteID
		e.revealedTarget = e.target
		e.feedback = fmt.Sprintf(FeedbackIncorrectFmt, e.target)
		logInfo("Incorrect guess %s, target was %s", noteID, e.target)
	}
	e.phase = PhaseIdle
	e.target = ""

	// The round is resolved: advance the generation so the pending
	// playing→waiting timer cannot re-open it.
	e.bumpGenerationLocked()
	gen := e.generation
	e.scheduleLocked(e.pressedClearDelay, func() {
		if e.generation != gen || e.dead {
			return
		}
		e.pressedNote = ""
		e.notifyLocked()
	})
	e.scheduleLocked(e.nextRoundDelay, func() {
		if e.generation != gen || e.dead {
			return
		}
		e.startRoundLocked()
	})
	e.notifyLocked()
	return nil
}

// ReplayTarget re-requests the current round's tone. No state change; a
// no-op outside an active round.
func (e *Engine) ReplayTarget() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.dead || e.target == "" {
		return ErrInvalidTransition
	}
	if e.phase != PhasePlaying && e.phase != PhaseWaiting {
		return ErrInvalidTransition
	}
	e.playToneLocked()
	e.notifyLocked()
	return nil
}

// SetDifficulty switches the tier future rounds draw from. Rejected outside
// the idle phase so an in-flight round keeps a consistent note set.
func (e *Engine) SetDifficulty(d string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.dead {
		return ErrInvalidTransition
	}
	if !e.catalog.HasDifficulty(d) {
		return ErrUnknownDifficulty
	}
	if e.phase != PhaseIdle {
		return ErrInvalidTransition
	}
	e.difficulty = d
	logInfo("Difficulty set to %s", d)
	e.notifyLocked()
	return nil
}

// Snapshot returns an immutable view of the current state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Touch records activity for idle-session sweeping.
func (e *Engine) Touch() {
	e.mu.Lock()
	e.lastAccess = time.Now()
	e.mu.Unlock()
}

// LastAccess returns the time of the most recent Touch.
func (e *Engine) LastAccess() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastAccess
}

// Teardown stops all pending timers and marks the engine dead. Every
// operation afterwards returns ErrInvalidTransition.
func (e *Engine) Teardown() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dead = true
	e.bumpGenerationLocked()
}

func (e *Engine) snapshotLocked() Snapshot {
	var toneFreq float64
	if e.target != "" {
		toneFreq, _ = e.catalog.FrequencyOf(e.target)
	}
	return Snapshot{
		Phase:          e.phase,
		Difficulty:     e.difficulty,
		Score:          e.score,
		Streak:         e.streak,
		Round:          e.generation,
		Outcome:        e.outcome,
		Feedback:       e.feedback,
		PressedNote:    e.pressedNote,
		CorrectNote:    e.correctNote,
		WrongNote:      e.wrongNote,
		RevealedTarget: e.revealedTarget,
		ToneFrequency:  toneFreq,
		TonePlays:      e.tonePlays,
	}
}

func (e *Engine) notifyLocked() {
	if e.onChange != nil {
		e.onChange(e.snapshotLocked())
	}
}

func (e *Engine) playToneLocked() {
	freq, err := e.catalog.FrequencyOf(e.target)
	if err != nil {
		logWarn("Tone requested for unknown note %q: %v", e.target, err)
		return
	}
	e.tonePlays++
	e.tone.Play(freq)
}

// bumpGenerationLocked advances the round generation and stops pending
// timers. Callbacks that already fired still re-check the generation under
// the lock, so stopping here is hygiene, not the correctness mechanism.
func (e *Engine) bumpGenerationLocked() {
	e.generation++
	for _, t := range e.timers {
		t.Stop()
	}
	e.timers = e.timers[:0]
}

func (e *Engine) scheduleLocked(d time.Duration, fn func()) {
	t := time.AfterFunc(d, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		fn()
	})
	e.timers = append(e.timers, t)
}
