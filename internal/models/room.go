package models

// Room statuses. The happy path is waiting -> active -> completed;
// abandoned is only ever set by the lifecycle sweeper.
const (
	StatusWaiting   = "waiting"
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusAbandoned = "abandoned"
)

const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// Room is the shared record for one two-player match. The whole record
// lives under rooms/<code> in the remote store; both players read all of
// it, but each only writes its own player/results subtree.
type Room struct {
	Code      string       `json:"code"`
	Host      string       `json:"host"`
	Status    string       `json:"status"`
	CreatedAt int64        `json:"createdAt"` // unix millis
	Settings  RoomSettings `json:"settings"`
	Players   RoomPlayers  `json:"players"`
	// Questions is nil until both players are ready; the host then writes
	// it exactly once and it is immutable afterwards.
	Questions []Question `json:"questions,omitempty"`
	// Results maps player slot ("player1"/"player2") to a sparse mapping
	// from question index to answer record. Each player appends to its
	// own slot only.
	Results map[string]map[string]AnswerRecord `json:"results,omitempty"`
}

// RoomPlayers holds the two fixed slots. Player2 is nil before a guest
// joins and never goes back to nil.
type RoomPlayers struct {
	Player1 *PlayerState `json:"player1"`
	Player2 *PlayerState `json:"player2"`
}

type PlayerState struct {
	Name            string `json:"name"`
	Score           int    `json:"score"`
	Streak          int    `json:"streak"`
	Ready           bool   `json:"ready"`
	CurrentQuestion int    `json:"currentQuestion"`
}

// RoomSettings are fixed at room creation.
type RoomSettings struct {
	Difficulty   string `json:"difficulty"`
	NumQuestions int    `json:"numQuestions"`
	TimeLimit    int    `json:"timeLimit"` // seconds per question
}

// AnswerRecord is one entry in a player's results subtree.
type AnswerRecord struct {
	QuestionIndex int   `json:"questionIndex"`
	Correct       bool  `json:"correct"`
	TimeTaken     int   `json:"timeTaken"` // millis
	Timestamp     int64 `json:"timestamp"` // unix millis
}

// RoomInfo is what createRoom hands back to the UI.
type RoomInfo struct {
	RoomCode string `json:"roomCode"`
	ShareURL string `json:"shareUrl"`
}
