package exam

import (
	"time"
)

// Answer slot sentinels. Non-negative values are chosen option indexes.
const (
	SlotUnanswered = -1
	SlotTimedOut   = -2
)

// Status is the lifecycle state of a session.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusFinished   Status = "finished"
)

// Flags are the capability switches of a deployment.
type Flags struct {
	RequireToken            bool `json:"require_token"`
	RequireApproval         bool `json:"require_approval"`
	AllowBackNavigation     bool `json:"allow_back_navigation"`
	AutoAdvanceOnTimeout    bool `json:"auto_advance_on_timeout"`
	AutoFinishOnLastTimeout bool `json:"auto_finish_on_last_timeout"`
}

// Session is the exam state of a single candidate. It is a value: transitions
// return a new Session and never mutate their input.
type Session struct {
	ID                string        `json:"id"`
	ExamType          string        `json:"exam_type"`
	Questions         []Question    `json:"questions"`
	Answers           []int         `json:"answers"`
	Current           int           `json:"current"`
	Status            Status        `json:"status"`
	StartedAt         time.Time     `json:"started_at"`
	QuestionStartedAt time.Time     `json:"question_started_at"`
	FinishedAt        *time.Time    `json:"finished_at,omitempty"`
	Budget            time.Duration `json:"budget"`
	Flags             Flags         `json:"flags"`
}

// NewSession returns a NotStarted session over the given questions.
func NewSession(id, examType string, questions []Question, budget time.Duration, flags Flags) Session {
	return Session{
		ID:        id,
		ExamType:  examType,
		Questions: questions,
		Status:    StatusNotStarted,
		Budget:    budget,
		Flags:     flags,
	}
}

// EventKind names a session event.
type EventKind string

const (
	EventStart   EventKind = "start"
	EventObserve EventKind = "observe"
	EventAnswer  EventKind = "answer"
	EventAdvance EventKind = "advance"
	EventBack    EventKind = "back"
	EventSubmit  EventKind = "submit"
)

// Event is an input to the state machine. Question and Option are only read
// by answer events.
type Event struct {
	Kind     EventKind
	At       time.Time
	Question int
	Option   int
}

func Start(at time.Time) Event   { return Event{Kind: EventStart, At: at} }
func Observe(at time.Time) Event { return Event{Kind: EventObserve, At: at} }
func Advance(at time.Time) Event { return Event{Kind: EventAdvance, At: at} }
func Back(at time.Time) Event    { return Event{Kind: EventBack, At: at} }
func Submit(at time.Time) Event  { return Event{Kind: EventSubmit, At: at} }

func Answer(at time.Time, question, option int) Event {
	return Event{Kind: EventAnswer, At: at, Question: question, Option: option}
}

// Apply runs ev against s. Every event except Start first applies elapsed
// timeouts at ev.At. On error the input session is returned unchanged, so a
// caller that wants to keep elapsed timeouts should Apply an Observe first.
func Apply(s Session, ev Event) (Session, error) {
	switch s.Status {
	case StatusNotStarted:
		if ev.Kind != EventStart {
			return s, ErrSessionNotStarted
		}
		return start(s, ev.At)
	case StatusFinished:
		return s, ErrSessionFinished
	}

	if ev.Kind == EventStart {
		return s, ErrSessionStarted
	}

	next := observe(s.clone(), ev.At)
	if ev.Kind == EventObserve {
		return next, nil
	}
	if next.Status == StatusFinished {
		return s, ErrSessionFinished
	}

	last := len(next.Questions) - 1
	switch ev.Kind {
	case EventAnswer:
		if ev.Question < 0 || ev.Question > last {
			return s, ErrStaleQuestion
		}
		if next.Answers[ev.Question] == SlotTimedOut {
			return s, ErrAnswerLocked
		}
		if ev.Question != next.Current {
			return s, ErrStaleQuestion
		}
		if ev.Option < 0 || ev.Option >= len(next.Questions[ev.Question].Options) {
			return s, ErrInvalidOption
		}
		next.Answers[ev.Question] = ev.Option

	case EventAdvance:
		if next.Current >= last {
			return s, ErrAtLastQuestion
		}
		// Without back navigation a skipped slot could never be reached again.
		if !next.Flags.AllowBackNavigation && next.Answers[next.Current] == SlotUnanswered {
			return s, ErrCurrentUnanswered
		}
		next.Current++
		next.QuestionStartedAt = ev.At

	case EventBack:
		if !next.Flags.AllowBackNavigation {
			return s, ErrBackNotAllowed
		}
		if next.Current == 0 {
			return s, ErrAtFirstQuestion
		}
		next.Current--
		next.QuestionStartedAt = ev.At

	case EventSubmit:
		if next.Current != last {
			return s, ErrNotLastQuestion
		}
		if next.Unanswered() > 0 {
			return s, ErrUnansweredQuestions
		}
		next.finish(ev.At)

	default:
		return s, ErrUnknownEvent
	}
	return next, nil
}

func start(s Session, at time.Time) (Session, error) {
	if len(s.Questions) == 0 {
		return s, ErrNoQuestions
	}
	s.Answers = make([]int, len(s.Questions))
	for i := range s.Answers {
		s.Answers[i] = SlotUnanswered
	}
	s.Current = 0
	s.Status = StatusInProgress
	s.StartedAt = at
	s.QuestionStartedAt = at
	s.FinishedAt = nil
	return s, nil
}

// observe applies every budget that elapsed before now. Each following
// question starts exactly one budget after the previous one, so a long gap
// cascades through several questions without drift.
func observe(s Session, now time.Time) Session {
	if !s.Flags.AutoAdvanceOnTimeout || s.Budget <= 0 {
		return s
	}
	last := len(s.Questions) - 1
	for s.Status == StatusInProgress {
		deadline := s.QuestionStartedAt.Add(s.Budget)
		if now.Before(deadline) {
			break
		}
		if s.Answers[s.Current] == SlotUnanswered {
			s.Answers[s.Current] = SlotTimedOut
		}
		if s.Current >= last {
			if s.Flags.AutoFinishOnLastTimeout {
				s.finish(deadline)
			}
			break
		}
		s.Current++
		s.QuestionStartedAt = deadline
	}
	return s
}

func (s *Session) finish(at time.Time) {
	s.Status = StatusFinished
	s.FinishedAt = &at
}

func (s Session) clone() Session {
	s.Answers = append([]int(nil), s.Answers...)
	if s.FinishedAt != nil {
		at := *s.FinishedAt
		s.FinishedAt = &at
	}
	return s
}

// Remaining is the time left on the current question, clamped at zero.
func (s Session) Remaining(now time.Time) time.Duration {
	if s.Status != StatusInProgress || s.Budget <= 0 {
		return 0
	}
	left := s.Budget - now.Sub(s.QuestionStartedAt)
	if left < 0 {
		return 0
	}
	return left
}

// Unanswered counts slots that are neither answered nor timed out.
func (s Session) Unanswered() int {
	n := 0
	for _, a := range s.Answers {
		if a == SlotUnanswered {
			n++
		}
	}
	return n
}

// Resolved counts answered and timed-out slots.
func (s Session) Resolved() int {
	return len(s.Answers) - s.Unanswered()
}

// TimeTaken is the wall time from start to finish, zero while unfinished.
func (s Session) TimeTaken() time.Duration {
	if s.FinishedAt == nil {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// IsLast reports whether the pointer is on the final question.
func (s Session) IsLast() bool {
	return s.Current == len(s.Questions)-1
}
