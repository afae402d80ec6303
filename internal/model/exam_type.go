package model

import "github.com/lotuseval/placement-backend/internal/exam"

// ExamTypeInfo describes a configured exam type to clients.
type ExamTypeInfo struct {
	Name       string       `json:"name"`
	Total      int          `json:"total"`
	Categories []exam.Quota `json:"categories"`
}

// ExamCatalog lists exam types with the deployment's access settings.
type ExamCatalog struct {
	AccessMode          string         `json:"access_mode"`
	QuestionTimeSeconds int            `json:"question_time_seconds"`
	AllowBackNavigation bool           `json:"allow_back_navigation"`
	ExamTypes           []ExamTypeInfo `json:"exam_types"`
}
