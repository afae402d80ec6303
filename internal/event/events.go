package event

import "time"

// Routing keys on the placement exchange.
const (
	RouteApprovalRequested = "approval.requested"
	RouteApprovalDecided   = "approval.decided"
	RouteExamFinished      = "exam.finished"
)

// ApprovalEvent is published when a request is created or decided.
type ApprovalEvent struct {
	EventType  string    `json:"event_type"`
	RequestID  string    `json:"request_id"`
	ExamType   string    `json:"exam_type"`
	Candidate  string    `json:"candidate"`
	Phone      string    `json:"phone"`
	Status     string    `json:"status"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ExamFinishedEvent is published when a session is scored.
type ExamFinishedEvent struct {
	EventType  string    `json:"event_type"`
	ResultID   string    `json:"result_id"`
	SessionID  string    `json:"session_id"`
	ExamType   string    `json:"exam_type"`
	Candidate  string    `json:"candidate"`
	Score      float64   `json:"score"`
	Correct    int       `json:"correct"`
	Total      int       `json:"total"`
	OccurredAt time.Time `json:"occurred_at"`
}
