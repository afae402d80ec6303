package model

// Candidate holds the identity fields collected before an exam.
type Candidate struct {
	Name           string `json:"name" binding:"required,max=100,person_name"`
	Phone          string `json:"phone" binding:"required,mobile_phone"`
	GraduationYear string `json:"graduation_year" binding:"required,grad_year"`
	University     string `json:"university" binding:"required,max=150,institution"`
}
