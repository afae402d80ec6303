package model

import (
	"time"

	"github.com/google/uuid"
)

// AccessToken is a single-use exam link credential.
type AccessToken struct {
	ID        uuid.UUID  `json:"id"`
	ExamType  string     `json:"exam_type"`
	IssuedBy  string     `json:"issued_by"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt time.Time  `json:"expires_at"`
	Used      bool       `json:"used"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
}

// IssueTokenRequest is the payload for issuing an exam link.
type IssueTokenRequest struct {
	ExamType string `json:"exam_type" binding:"required,max=100"`
	TTLHours int    `json:"ttl_hours" binding:"omitempty,min=1,max=720"`
}

// IssuedToken is returned after issuing a token.
type IssuedToken struct {
	Token     AccessToken `json:"token"`
	Link      string      `json:"link"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// TokenStatus is the public, non-consuming view of a token.
type TokenStatus struct {
	ExamType  string    `json:"exam_type"`
	Valid     bool      `json:"valid"`
	Reason    string    `json:"reason,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TokenStats aggregates issued tokens.
type TokenStats struct {
	Total      int            `json:"total"`
	Used       int            `json:"used"`
	Unused     int            `json:"unused"`
	Expired    int            `json:"expired"`
	ByExamType map[string]int `json:"by_exam_type"`
}
