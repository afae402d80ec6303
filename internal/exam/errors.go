package exam

import (
	"errors"
	"fmt"
)

// Session and scoring errors.
var (
	ErrInputLengthMismatch = errors.New("question and answer sequences differ in length")
	ErrNoQuestions         = errors.New("session has no questions")
	ErrSessionNotStarted   = errors.New("session has not started")
	ErrSessionFinished     = errors.New("session is already finished")
	ErrSessionStarted      = errors.New("session is already started")
	ErrStaleQuestion       = errors.New("answer is not for the current question")
	ErrInvalidOption       = errors.New("option index out of range")
	ErrAnswerLocked        = errors.New("question timed out and can no longer be answered")
	ErrBackNotAllowed      = errors.New("backward navigation is disabled")
	ErrAtFirstQuestion     = errors.New("already at the first question")
	ErrAtLastQuestion      = errors.New("already at the last question")
	ErrCurrentUnanswered   = errors.New("current question must be answered before moving on")
	ErrNotLastQuestion     = errors.New("submission is only allowed on the last question")
	ErrUnansweredQuestions = errors.New("all questions must be answered before submitting")
	ErrUnknownEvent        = errors.New("unknown session event")
)

// ErrInsufficientPool is matched by every *InsufficientPoolError.
var ErrInsufficientPool = errors.New("insufficient question pool")

// InsufficientPoolError reports a category (and optionally a difficulty)
// whose bank pool cannot satisfy the exam rules.
type InsufficientPoolError struct {
	ExamType   string
	Category   string
	Difficulty string
	Need       int
	Have       int
}

func (e *InsufficientPoolError) Error() string {
	if e.Difficulty != "" {
		return fmt.Sprintf("not enough %s questions in category %q for %q: need %d, have %d",
			e.Difficulty, e.Category, e.ExamType, e.Need, e.Have)
	}
	return fmt.Sprintf("not enough questions in category %q for %q: need %d, have %d",
		e.Category, e.ExamType, e.Need, e.Have)
}

func (e *InsufficientPoolError) Is(target error) bool {
	return target == ErrInsufficientPool
}

// UnknownExamTypeError is returned when no rules exist for an exam type.
type UnknownExamTypeError struct {
	ExamType string
}

func (e *UnknownExamTypeError) Error() string {
	return fmt.Sprintf("no rules defined for exam type %q", e.ExamType)
}
