package websocket

import "github.com/lotuseval/placement-backend/internal/model"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionState  Action = "state"
	ActionAnswer Action = "answer"
	ActionNext   Action = "next"
	ActionBack   Action = "back"
	ActionSubmit Action = "submit"
	ActionPing   Action = "ping"
)

// RequestPayload is any client message. Question and Option are only read
// for ActionAnswer.
type RequestPayload struct {
	Action   Action `json:"action"`
	Question *int   `json:"question,omitempty"`
	Option   *int   `json:"option,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventState    Event = "state"
	EventFinished Event = "finished"
	EventError    Event = "error"
	EventPong     Event = "pong"
)

// StateResponse carries the session as the candidate sees it.
type StateResponse struct {
	Event   Event             `json:"event"`
	Session model.SessionView `json:"session"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Code  string `json:"code"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
