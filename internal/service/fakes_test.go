package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lotuseval/placement-backend/internal/config"
	"github.com/lotuseval/placement-backend/internal/exam"
	"github.com/lotuseval/placement-backend/internal/model"
	"github.com/lotuseval/placement-backend/internal/repository"
	"github.com/rs/zerolog"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Add(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fakeTokens struct {
	mu   sync.Mutex
	byID map[uuid.UUID]model.AccessToken
}

func newFakeTokens() *fakeTokens {
	return &fakeTokens{byID: make(map[uuid.UUID]model.AccessToken)}
}

func (f *fakeTokens) Create(_ context.Context, t *model.AccessToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[t.ID] = *t
	return nil
}

func (f *fakeTokens) GetByID(_ context.Context, id uuid.UUID) (*model.AccessToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func (f *fakeTokens) Consume(_ context.Context, id uuid.UUID, now time.Time) (*model.AccessToken, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.byID[id]
	if !ok || t.Used || !t.ExpiresAt.After(now) {
		return nil, false, nil
	}
	t.Used = true
	t.UsedAt = &now
	f.byID[id] = t
	return &t, true, nil
}

func (f *fakeTokens) Stats(_ context.Context, now time.Time) (*model.TokenStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := &model.TokenStats{ByExamType: map[string]int{}}
	for _, t := range f.byID {
		s.Total++
		s.ByExamType[t.ExamType]++
		switch {
		case t.Used:
			s.Used++
		case !t.ExpiresAt.After(now):
			s.Expired++
		default:
			s.Unused++
		}
	}
	return s, nil
}

type fakeApprovals struct {
	mu   sync.Mutex
	byID map[uuid.UUID]model.ApprovalRequest
}

func newFakeApprovals() *fakeApprovals {
	return &fakeApprovals{byID: make(map[uuid.UUID]model.ApprovalRequest)}
}

func (f *fakeApprovals) Create(_ context.Context, a *model.ApprovalRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[a.ID] = *a
	return nil
}

func (f *fakeApprovals) GetByID(_ context.Context, id uuid.UUID) (*model.ApprovalRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

func (f *fakeApprovals) List(_ context.Context, status model.ApprovalStatus, _ int) ([]model.ApprovalRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.ApprovalRequest
	for _, a := range f.byID {
		if status == "" || a.Status == status {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeApprovals) Decide(_ context.Context, id uuid.UUID, status model.ApprovalStatus, by string, at time.Time) (*model.ApprovalRequest, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok || a.Status != model.ApprovalPending {
		return nil, false, nil
	}
	a.Status = status
	a.DecidedBy = &by
	a.DecidedAt = &at
	f.byID[id] = a
	return &a, true, nil
}

func (f *fakeApprovals) Consume(_ context.Context, id uuid.UUID, at time.Time) (*model.ApprovalRequest, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok || a.Status != model.ApprovalApproved || a.Used {
		return nil, false, nil
	}
	a.Used = true
	a.UsedAt = &at
	f.byID[id] = a
	return &a, true, nil
}

type fakeNotifier struct {
	mu        sync.Mutex
	requested int
	decided   int
	finished  []model.ExamResult
}

func (f *fakeNotifier) ApprovalRequested(context.Context, *model.ApprovalRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requested++
	return nil
}

func (f *fakeNotifier) ApprovalDecided(context.Context, *model.ApprovalRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.decided++
	return nil
}

func (f *fakeNotifier) ExamFinished(_ context.Context, r model.ExamResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finished = append(f.finished, r)
	return errors.New("broker unavailable")
}

type fakeBank struct {
	questions   []exam.Question
	err         error
	invalidated []string
}

func (f *fakeBank) Load(context.Context, string) ([]exam.Question, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.questions, nil
}

func (f *fakeBank) Invalidate(_ context.Context, sheet string) error {
	f.invalidated = append(f.invalidated, sheet)
	return nil
}

// fakeSessions round-trips through JSON like the Redis store does.
type fakeSessions struct {
	byID map[string][]byte
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{byID: make(map[string][]byte)}
}

func (f *fakeSessions) Get(_ context.Context, id string) (*model.ExamSession, error) {
	raw, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	var s model.ExamSession
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (f *fakeSessions) Save(_ context.Context, s *model.ExamSession) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	f.byID[s.ID] = raw
	return nil
}

type fakeSink struct {
	results []model.ExamResult
}

func (f *fakeSink) Push(_ context.Context, r model.ExamResult) error {
	f.results = append(f.results, r)
	return nil
}

// ─── Fixture ────────────────────────────────────────────────────────

const miniExam = "Mini Exam"

type fixture struct {
	cfg       *config.Config
	clock     *clock
	tokens    *fakeTokens
	approvals *fakeApprovals
	notifier  *fakeNotifier
	bank      *fakeBank
	sessions  *fakeSessions
	sink      *fakeSink
	gate      *AccessGate
	svc       *ExamService
}

func miniBank() []exam.Question {
	var out []exam.Question
	for i := 0; i < 4; i++ {
		prompt := fmt.Sprintf("Mini question %d", i)
		out = append(out, exam.Question{
			Prompt: prompt,
			Key:    exam.NormalizeText(prompt),
			Options: []exam.Option{
				{Letter: "a", Text: "right"},
				{Letter: "b", Text: "wrong"},
				{Letter: "c", Text: "also wrong"},
			},
			CorrectLetter: "a",
			Category:      "drug",
			Difficulty:    exam.DifficultyMedium,
		})
	}
	return out
}

func newFixture(t *testing.T, mode string) *fixture {
	t.Helper()

	rules, err := exam.NewRuleset(exam.Rules{
		ExamType:   miniExam,
		Sheet:      "Mini",
		Total:      3,
		Categories: []exam.Quota{{Name: "drug", Count: 3}},
		Difficulty: []exam.Quota{{Name: exam.DifficultyMedium, Count: 3}},
	})
	if err != nil {
		t.Fatal(err)
	}

	f := &fixture{
		cfg: &config.Config{
			AccessMode:              mode,
			QuestionTimeLimit:       20 * time.Second,
			AutoAdvanceOnTimeout:    true,
			AutoFinishOnLastTimeout: true,
			TokenTTL:                time.Hour,
			PublicBaseURL:           "http://exam.local",
			ApprovalPollInterval:    time.Millisecond,
			ApprovalMaxWait:         50 * time.Millisecond,
		},
		clock:     &clock{t: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)},
		tokens:    newFakeTokens(),
		approvals: newFakeApprovals(),
		notifier:  &fakeNotifier{},
		bank:      &fakeBank{questions: miniBank()},
		sessions:  newFakeSessions(),
		sink:      &fakeSink{},
	}

	f.gate = NewAccessGate(f.cfg, f.tokens, f.approvals, f.notifier, zerolog.Nop())
	f.gate.now = f.clock.Now
	f.svc = NewExamService(
		f.cfg, rules, exam.NewSelector(rules, rand.NewSource(7), true),
		f.bank, f.gate, f.sessions, f.sink, f.notifier, zerolog.Nop(),
	)
	f.svc.now = f.clock.Now
	return f
}

func testCandidate() model.Candidate {
	return model.Candidate{Name: "Omar Hassan", Phone: "01098765432", GraduationYear: "2020", University: "Alexandria University"}
}
