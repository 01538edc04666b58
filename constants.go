package main

// Game phase constants
const (
	PhaseIdle    = "idle"
	PhasePlaying = "playing"
	PhaseWaiting = "waiting"
)

// Guess outcome constants
const (
	OutcomeCorrect   = "correct"
	OutcomeIncorrect = "incorrect"
)

// Difficulty constants
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// Note classification constants
const (
	NoteClassWhite = "white"
	NoteClassBlack = "black"
)

// Scoring constants
const (
	ScoreBase = 10 // points for a correct guess before the streak multiplier
)

// Session configuration constants
const (
	SessionCookieName = "session_id"
)

// Route constants
const (
	RouteHome       = "/"
	RouteStartRound = "/start-round"
	RouteGuess      = "/guess"
	RouteReplay     = "/replay"
	RouteDifficulty = "/difficulty"
	RouteGameState  = "/game-state"
	RouteNotes      = "/notes"
	RouteWS         = "/ws"
)

// Error message constants
const (
	ErrorUnknownNote       = "note not in catalog"
	ErrorUnknownDifficulty = "unknown difficulty"
	ErrorRoundInProgress   = "round in progress"
	ErrorNotAcceptingGuess = "not accepting guesses"
	ErrorSessionClosed     = "session closed"
)

// Feedback message constants. FeedbackCorrect deliberately names no note so
// the player cannot learn the answer from the affirmative message alone.
const (
	FeedbackCorrect      = "Bone! That's the one."
	FeedbackIncorrectFmt = "Not quite. The note was %s."
)

// Context key constants
const (
	requestIDKey contextKey = "request_id"
)

type contextKey string
