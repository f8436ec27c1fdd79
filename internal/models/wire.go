package models

// Intent is one command from a connected client to its room session.
type Intent struct {
	Action        string        `json:"action"` // create|join|ready|answer|complete|leave|state
	Name          string        `json:"name,omitempty"`
	RoomCode      string        `json:"roomCode,omitempty"`
	Settings      *RoomSettings `json:"settings,omitempty"`
	QuestionIndex int           `json:"questionIndex,omitempty"`
	Correct       bool          `json:"correct,omitempty"`
	TimeTaken     int           `json:"timeTaken,omitempty"`
}

// Event is one notification pushed back over the websocket.
type Event struct {
	Type      string       `json:"type"` // deeplink|created|joined|status|opponent|questions|state|left|error
	RoomCode  string       `json:"roomCode,omitempty"`
	ShareURL  string       `json:"shareUrl,omitempty"`
	Status    string       `json:"status,omitempty"`
	Opponent  *PlayerState `json:"opponent,omitempty"`
	Questions []Question   `json:"questions,omitempty"`
	Room      *Room        `json:"room,omitempty"`
	Error     string       `json:"error,omitempty"`
}
