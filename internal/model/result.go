package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/lotuseval/placement-backend/internal/exam"
)

// ExamResult is a persisted, scored attempt.
type ExamResult struct {
	ID               uuid.UUID     `json:"id"`
	SessionID        string        `json:"session_id"`
	Candidate        Candidate     `json:"candidate"`
	ExamType         string        `json:"exam_type"`
	Score            float64       `json:"score"`
	Correct          int           `json:"correct"`
	Incorrect        int           `json:"incorrect"`
	TimedOut         int           `json:"timed_out"`
	Total            int           `json:"total"`
	TimeTakenSeconds int           `json:"time_taken_seconds"`
	StartedAt        time.Time     `json:"started_at"`
	FinishedAt       time.Time     `json:"finished_at"`
	CreatedAt        time.Time     `json:"created_at"`
	Details          []exam.Detail `json:"details,omitempty"`
}

// NewExamResult builds the result record of a finished session.
func NewExamResult(s ExamSession) ExamResult {
	r := ExamResult{
		ID:        s.ResultID,
		SessionID: s.ID,
		Candidate: s.Candidate,
		ExamType:  s.ExamType,
		StartedAt: s.StartedAt,
	}
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if s.FinishedAt != nil {
		r.FinishedAt = *s.FinishedAt
	}
	r.TimeTakenSeconds = int(s.TimeTaken().Seconds())
	if s.Result != nil {
		r.Score = s.Result.Score
		r.Correct = s.Result.Correct
		r.Incorrect = s.Result.Incorrect
		r.TimedOut = s.Result.TimedOut
		r.Total = s.Result.Total
		r.Details = s.Result.Details
	}
	return r
}

// ResultFilter selects results for listing.
type ResultFilter struct {
	ExamType string
	Page     int
	PerPage  int
}

// ResultSummary aggregates scores per exam type.
type ResultSummary struct {
	ExamType string  `json:"exam_type"`
	Count    int     `json:"count"`
	Average  float64 `json:"average"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
}
