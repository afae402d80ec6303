package model

import (
	"time"

	"github.com/google/uuid"
)

// ApprovalStatus enumerates approval request states.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// ApprovalRequest is a candidate's request to be admitted to an exam.
type ApprovalRequest struct {
	ID        uuid.UUID      `json:"id"`
	ExamType  string         `json:"exam_type"`
	Candidate Candidate      `json:"candidate"`
	Status    ApprovalStatus `json:"status"`
	DecidedBy *string        `json:"decided_by,omitempty"`
	DecidedAt *time.Time     `json:"decided_at,omitempty"`
	Used      bool           `json:"used"`
	UsedAt    *time.Time     `json:"used_at,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// CreateApprovalRequest is the candidate's submission in approval mode.
type CreateApprovalRequest struct {
	ExamType  string    `json:"exam_type" binding:"required,max=100"`
	Candidate Candidate `json:"candidate" binding:"required"`
}
