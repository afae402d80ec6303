package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/lotuseval/placement-backend/internal/exam"
)

// ExamSession is the server-side record of a candidate's attempt.
type ExamSession struct {
	exam.Session
	Candidate  Candidate    `json:"candidate"`
	TokenID    *uuid.UUID   `json:"token_id,omitempty"`
	ApprovalID *uuid.UUID   `json:"approval_id,omitempty"`
	ResultID   uuid.UUID    `json:"result_id"`
	Result     *exam.Result `json:"result,omitempty"`
}

// StartSessionRequest is the payload for starting an exam. Token is required
// in token mode, ApprovalID in approval mode. In token mode the exam type
// comes from the token.
type StartSessionRequest struct {
	ExamType   string    `json:"exam_type" binding:"omitempty,max=100"`
	Candidate  Candidate `json:"candidate" binding:"required"`
	Token      string    `json:"token" binding:"omitempty,uuid"`
	ApprovalID string    `json:"approval_id" binding:"omitempty,uuid"`
}

// AnswerRequest records an option for a question index.
type AnswerRequest struct {
	Question *int `json:"question" binding:"required,min=0"`
	Option   *int `json:"option" binding:"required,min=0"`
}

// QuestionView is a question as shown to the candidate, without the key.
type QuestionView struct {
	Index    int           `json:"index"`
	Prompt   string        `json:"prompt"`
	Options  []exam.Option `json:"options"`
	Selected *int          `json:"selected,omitempty"`
	TimedOut bool          `json:"timed_out"`
}

// SlotState is the candidate-facing state of one answer slot.
type SlotState string

const (
	SlotUnanswered SlotState = "unanswered"
	SlotAnswered   SlotState = "answered"
	SlotTimedOut   SlotState = "timed_out"
)

// SessionView is the observable state of a session.
type SessionView struct {
	ID               string        `json:"id"`
	ExamType         string        `json:"exam_type"`
	Status           exam.Status   `json:"status"`
	Current          int           `json:"current"`
	Total            int           `json:"total"`
	Question         *QuestionView `json:"question,omitempty"`
	RemainingSeconds int           `json:"remaining_seconds"`
	Slots            []SlotState   `json:"slots"`
	Resolved         int           `json:"resolved"`
	AllowBack        bool          `json:"allow_back"`
	IsLast           bool          `json:"is_last"`
	StartedAt        time.Time     `json:"started_at"`
	FinishedAt       *time.Time    `json:"finished_at,omitempty"`
	Score            *float64      `json:"score,omitempty"`
}

// NewSessionView projects a session at the given instant.
func NewSessionView(s ExamSession, now time.Time) SessionView {
	v := SessionView{
		ID:               s.ID,
		ExamType:         s.ExamType,
		Status:           s.Status,
		Current:          s.Current,
		Total:            len(s.Questions),
		RemainingSeconds: int(s.Remaining(now).Seconds()),
		Slots:            make([]SlotState, len(s.Answers)),
		Resolved:         s.Resolved(),
		AllowBack:        s.Flags.AllowBackNavigation,
		IsLast:           s.IsLast(),
		StartedAt:        s.StartedAt,
		FinishedAt:       s.FinishedAt,
	}
	for i, a := range s.Answers {
		switch {
		case a == exam.SlotTimedOut:
			v.Slots[i] = SlotTimedOut
		case a >= 0:
			v.Slots[i] = SlotAnswered
		default:
			v.Slots[i] = SlotUnanswered
		}
	}

	if s.Status == exam.StatusInProgress && s.Current < len(s.Questions) {
		q := s.Questions[s.Current]
		qv := &QuestionView{
			Index:    s.Current,
			Prompt:   q.Prompt,
			Options:  q.Options,
			TimedOut: s.Answers[s.Current] == exam.SlotTimedOut,
		}
		if a := s.Answers[s.Current]; a >= 0 {
			selected := a
			qv.Selected = &selected
		}
		v.Question = qv
	}
	if s.Result != nil {
		score := s.Result.Score
		v.Score = &score
	}
	return v
}
