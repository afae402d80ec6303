package exam

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

const budget = 20 * time.Second

func at(d time.Duration) time.Time { return t0.Add(d) }

func startedSession(t *testing.T, n int, flags Flags) Session {
	t.Helper()
	qs := bankOf("drug", map[string]int{DifficultyMedium: n})
	s, err := Apply(NewSession("s-1", "Pharmacist (New Hire)", qs, budget, flags), Start(t0))
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	return s
}

func mustApply(t *testing.T, s Session, ev Event) Session {
	t.Helper()
	next, err := Apply(s, ev)
	if err != nil {
		t.Fatalf("Apply(%s) error = %v", ev.Kind, err)
	}
	return next
}

var timed = Flags{AutoAdvanceOnTimeout: true, AutoFinishOnLastTimeout: true}

func TestStart(t *testing.T) {
	_, err := Apply(NewSession("s", "x", nil, budget, timed), Start(t0))
	if !errors.Is(err, ErrNoQuestions) {
		t.Fatalf("expected ErrNoQuestions, got %v", err)
	}

	s := startedSession(t, 3, timed)
	if s.Status != StatusInProgress || s.Current != 0 {
		t.Errorf("unexpected state: status=%s current=%d", s.Status, s.Current)
	}
	for i, a := range s.Answers {
		if a != SlotUnanswered {
			t.Errorf("slot %d = %d, want unanswered", i, a)
		}
	}
	if !s.StartedAt.Equal(t0) || !s.QuestionStartedAt.Equal(t0) {
		t.Error("start times not recorded")
	}

	if _, err := Apply(s, Start(at(time.Second))); !errors.Is(err, ErrSessionStarted) {
		t.Errorf("second start: expected ErrSessionStarted, got %v", err)
	}
}

func TestEventsBeforeStart(t *testing.T) {
	s := NewSession("s", "x", bankOf("drug", even(1)), budget, timed)
	for _, ev := range []Event{Observe(t0), Answer(t0, 0, 0), Advance(t0), Back(t0), Submit(t0)} {
		if _, err := Apply(s, ev); !errors.Is(err, ErrSessionNotStarted) {
			t.Errorf("%s: expected ErrSessionNotStarted, got %v", ev.Kind, err)
		}
	}
}

func TestAnswerRules(t *testing.T) {
	s := startedSession(t, 3, Flags{})

	tests := []struct {
		name string
		ev   Event
		want error
	}{
		{"stale index", Answer(at(time.Second), 1, 0), ErrStaleQuestion},
		{"negative index", Answer(at(time.Second), -1, 0), ErrStaleQuestion},
		{"index past end", Answer(at(time.Second), 3, 0), ErrStaleQuestion},
		{"option out of range", Answer(at(time.Second), 0, 3), ErrInvalidOption},
		{"negative option", Answer(at(time.Second), 0, -1), ErrInvalidOption},
		{"valid", Answer(at(time.Second), 0, 2), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := Apply(s, tt.ev)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if tt.want == nil && next.Answers[0] != 2 {
				t.Errorf("answer not recorded: %v", next.Answers)
			}
			if tt.want == nil && next.Current != 0 {
				t.Error("answering must not advance")
			}
		})
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	s := startedSession(t, 2, Flags{})
	before := append([]int(nil), s.Answers...)

	_ = mustApply(t, s, Answer(at(time.Second), 0, 1))
	if !reflect.DeepEqual(s.Answers, before) {
		t.Errorf("input answers mutated: %v", s.Answers)
	}
}

func TestNavigation(t *testing.T) {
	s := startedSession(t, 3, Flags{})
	s = mustApply(t, s, Answer(at(4*time.Second), 0, 0))
	s = mustApply(t, s, Advance(at(5*time.Second)))
	if s.Current != 1 || !s.QuestionStartedAt.Equal(at(5*time.Second)) {
		t.Fatalf("advance: current=%d start=%v", s.Current, s.QuestionStartedAt)
	}

	if _, err := Apply(s, Back(at(6*time.Second))); !errors.Is(err, ErrBackNotAllowed) {
		t.Errorf("expected ErrBackNotAllowed, got %v", err)
	}

	s = mustApply(t, s, Answer(at(7*time.Second), 1, 0))
	s = mustApply(t, s, Advance(at(7*time.Second)))
	if _, err := Apply(s, Advance(at(8*time.Second))); !errors.Is(err, ErrAtLastQuestion) {
		t.Errorf("expected ErrAtLastQuestion, got %v", err)
	}

	back := startedSession(t, 3, Flags{AllowBackNavigation: true})
	if _, err := Apply(back, Back(at(time.Second))); !errors.Is(err, ErrAtFirstQuestion) {
		t.Errorf("expected ErrAtFirstQuestion, got %v", err)
	}
	back = mustApply(t, back, Answer(at(time.Second), 0, 1))
	back = mustApply(t, back, Advance(at(2*time.Second)))
	back = mustApply(t, back, Back(at(3*time.Second)))
	if back.Current != 0 || back.Answers[0] != 1 || !back.QuestionStartedAt.Equal(at(3*time.Second)) {
		t.Errorf("back: current=%d answers=%v", back.Current, back.Answers)
	}
}

func TestObserveCascadesTimeouts(t *testing.T) {
	s := startedSession(t, 5, timed)

	s = mustApply(t, s, Observe(at(65*time.Second)))
	if s.Current != 3 {
		t.Fatalf("current = %d, want 3", s.Current)
	}
	if !s.QuestionStartedAt.Equal(at(60 * time.Second)) {
		t.Errorf("question start = %v, want t0+60s", s.QuestionStartedAt)
	}
	for i := 0; i < 3; i++ {
		if s.Answers[i] != SlotTimedOut {
			t.Errorf("slot %d = %d, want timed out", i, s.Answers[i])
		}
	}
	if got := s.Remaining(at(65 * time.Second)); got != 15*time.Second {
		t.Errorf("Remaining() = %v, want 15s", got)
	}

	again := mustApply(t, s, Observe(at(65*time.Second)))
	if !reflect.DeepEqual(again, s) {
		t.Error("observing the same instant twice changed the session")
	}
}

func TestObserveKeepsAnsweredSlot(t *testing.T) {
	s := startedSession(t, 3, timed)
	s = mustApply(t, s, Answer(at(5*time.Second), 0, 2))
	s = mustApply(t, s, Observe(at(20*time.Second)))

	if s.Current != 1 || s.Answers[0] != 2 {
		t.Errorf("current=%d answers=%v", s.Current, s.Answers)
	}
}

func TestObserveWithoutAutoAdvance(t *testing.T) {
	s := startedSession(t, 3, Flags{})
	s = mustApply(t, s, Observe(at(time.Hour)))
	if s.Current != 0 || s.Answers[0] != SlotUnanswered {
		t.Errorf("timeouts applied without auto-advance: %+v", s.Answers)
	}
	if s.Remaining(at(time.Hour)) != 0 {
		t.Error("remaining should clamp at zero")
	}
}

func TestTimedOutSlotIsLocked(t *testing.T) {
	s := startedSession(t, 3, Flags{AllowBackNavigation: true, AutoAdvanceOnTimeout: true})
	s = mustApply(t, s, Observe(at(21*time.Second)))
	s = mustApply(t, s, Back(at(22*time.Second)))

	_, err := Apply(s, Answer(at(23*time.Second), 0, 0))
	if !errors.Is(err, ErrAnswerLocked) {
		t.Fatalf("expected ErrAnswerLocked, got %v", err)
	}
}

func TestLastQuestionTimeout(t *testing.T) {
	t.Run("auto finish", func(t *testing.T) {
		s := startedSession(t, 2, timed)
		s = mustApply(t, s, Observe(at(time.Minute)))
		if s.Status != StatusFinished {
			t.Fatalf("status = %s, want finished", s.Status)
		}
		if s.FinishedAt == nil || !s.FinishedAt.Equal(at(40*time.Second)) {
			t.Errorf("finished at %v, want t0+40s", s.FinishedAt)
		}
		if s.TimeTaken() != 40*time.Second {
			t.Errorf("TimeTaken() = %v", s.TimeTaken())
		}
		if _, err := Apply(s, Observe(at(2*time.Minute))); !errors.Is(err, ErrSessionFinished) {
			t.Errorf("expected ErrSessionFinished, got %v", err)
		}
	})

	t.Run("wait for submit", func(t *testing.T) {
		s := startedSession(t, 2, Flags{AutoAdvanceOnTimeout: true})
		s = mustApply(t, s, Observe(at(time.Minute)))
		if s.Status != StatusInProgress || s.Current != 1 || s.Answers[1] != SlotTimedOut {
			t.Fatalf("unexpected state: %s current=%d answers=%v", s.Status, s.Current, s.Answers)
		}
		s = mustApply(t, s, Submit(at(61*time.Second)))
		if s.Status != StatusFinished {
			t.Errorf("status = %s after submit", s.Status)
		}
	})
}

func TestSubmitRules(t *testing.T) {
	s := startedSession(t, 2, Flags{AllowBackNavigation: true})
	if _, err := Apply(s, Submit(at(time.Second))); !errors.Is(err, ErrNotLastQuestion) {
		t.Errorf("expected ErrNotLastQuestion, got %v", err)
	}

	s = mustApply(t, s, Advance(at(2*time.Second)))
	s = mustApply(t, s, Answer(at(3*time.Second), 1, 0))
	if _, err := Apply(s, Submit(at(4*time.Second))); !errors.Is(err, ErrUnansweredQuestions) {
		t.Errorf("expected ErrUnansweredQuestions, got %v", err)
	}

	full := startedSession(t, 2, Flags{})
	full = mustApply(t, full, Answer(at(time.Second), 0, 0))
	full = mustApply(t, full, Advance(at(2*time.Second)))
	full = mustApply(t, full, Answer(at(3*time.Second), 1, 1))
	full = mustApply(t, full, Submit(at(4*time.Second)))
	if full.Status != StatusFinished || full.TimeTaken() != 4*time.Second {
		t.Errorf("status=%s taken=%v", full.Status, full.TimeTaken())
	}

	for _, ev := range []Event{Answer(at(5*time.Second), 1, 0), Advance(at(5 * time.Second)), Submit(at(5 * time.Second))} {
		if _, err := Apply(full, ev); !errors.Is(err, ErrSessionFinished) {
			t.Errorf("%s after finish: expected ErrSessionFinished, got %v", ev.Kind, err)
		}
	}
}

func TestSkipWithoutBackNavigation(t *testing.T) {
	tests := []struct {
		name    string
		flags   Flags
		timeout bool
		want    []int
	}{
		{"no timeouts", Flags{}, false, []int{0, 0, 0}},
		{"auto advance without auto finish", Flags{AutoAdvanceOnTimeout: true}, false, []int{0, 0, 0}},
		{"first slot times out", Flags{AutoAdvanceOnTimeout: true}, true, []int{SlotTimedOut, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := startedSession(t, 3, tt.flags)
			blocked, err := Apply(s, Advance(at(time.Second)))
			if !errors.Is(err, ErrCurrentUnanswered) {
				t.Fatalf("expected ErrCurrentUnanswered, got %v", err)
			}
			if blocked.Current != 0 {
				t.Fatalf("rejected advance moved to %d", blocked.Current)
			}

			clock := at(time.Second)
			if tt.timeout {
				clock = at(budget + time.Second)
				s = mustApply(t, s, Observe(clock))
			}
			for i := s.Current; i < 3; i++ {
				s = mustApply(t, s, Answer(clock, i, 0))
				if i < 2 {
					s = mustApply(t, s, Advance(clock))
				}
			}

			s = mustApply(t, s, Observe(at(time.Hour)))
			if s.Status != StatusInProgress {
				t.Fatalf("status = %s before submit", s.Status)
			}
			s = mustApply(t, s, Submit(at(time.Hour)))
			if s.Status != StatusFinished || !reflect.DeepEqual(s.Answers, tt.want) {
				t.Errorf("status=%s answers=%v, want finished %v", s.Status, s.Answers, tt.want)
			}
		})
	}
}

// Question 5 is left unanswered past its budget; the rest are answered correctly.
func TestTimedOutQuestionExcludedFromTallies(t *testing.T) {
	s := startedSession(t, 10, timed)
	clock := t0

	for i := 0; i < 10; i++ {
		clock = clock.Add(5 * time.Second)
		if i == 4 {
			clock = s.QuestionStartedAt.Add(budget)
			s = mustApply(t, s, Observe(clock))
			if s.Answers[4] != SlotTimedOut || s.Current != 5 {
				t.Fatalf("question 5 not timed out: current=%d answers=%v", s.Current, s.Answers)
			}
			continue
		}
		s = mustApply(t, s, Answer(clock, i, 0))
		if i < 9 {
			s = mustApply(t, s, Advance(clock))
		}
	}
	s = mustApply(t, s, Submit(clock))

	res, err := Score(s.Questions, s.Answers)
	if err != nil {
		t.Fatal(err)
	}
	if res.Correct != 9 || res.Incorrect != 0 || res.TimedOut != 1 || res.Score != 90 {
		t.Errorf("unexpected result: %+v", res)
	}
}
