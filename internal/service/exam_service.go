package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lotuseval/placement-backend/internal/config"
	"github.com/lotuseval/placement-backend/internal/exam"
	"github.com/lotuseval/placement-backend/internal/metrics"
	"github.com/lotuseval/placement-backend/internal/model"
	"github.com/lotuseval/placement-backend/internal/repository"
	"github.com/rs/zerolog"
)

// Session lookup errors.
var (
	ErrSessionNotFound    = errors.New("exam session not found")
	ErrSessionNotFinished = errors.New("exam session is not finished")
)

// QuestionBank loads and invalidates parsed question banks.
type QuestionBank interface {
	Load(ctx context.Context, sheet string) ([]exam.Question, error)
	Invalidate(ctx context.Context, sheet string) error
}

// SessionRepository stores in-flight sessions.
type SessionRepository interface {
	Get(ctx context.Context, id string) (*model.ExamSession, error)
	Save(ctx context.Context, s *model.ExamSession) error
}

// ResultSink receives finished results for asynchronous persistence.
type ResultSink interface {
	Push(ctx context.Context, r model.ExamResult) error
}

// FinishNotifier announces finished exams.
type FinishNotifier interface {
	ExamFinished(ctx context.Context, r model.ExamResult) error
}

// ExamService drives a candidate's attempt from start to scored result.
type ExamService struct {
	cfg      *config.Config
	rules    *exam.Ruleset
	selector *exam.Selector
	bank     QuestionBank
	gate     *AccessGate
	sessions SessionRepository
	results  ResultSink
	notifier FinishNotifier
	log      zerolog.Logger
	now      func() time.Time
}

// NewExamService creates a new ExamService.
func NewExamService(
	cfg *config.Config,
	rules *exam.Ruleset,
	selector *exam.Selector,
	bank QuestionBank,
	gate *AccessGate,
	sessions SessionRepository,
	results ResultSink,
	notifier FinishNotifier,
	log zerolog.Logger,
) *ExamService {
	return &ExamService{
		cfg:      cfg,
		rules:    rules,
		selector: selector,
		bank:     bank,
		gate:     gate,
		sessions: sessions,
		results:  results,
		notifier: notifier,
		log:      log.With().Str("component", "exam_service").Logger(),
		now:      time.Now,
	}
}

// Catalog lists the configured exam types and the deployment's access settings.
func (s *ExamService) Catalog() model.ExamCatalog {
	c := model.ExamCatalog{
		AccessMode:          s.cfg.AccessMode,
		QuestionTimeSeconds: int(s.cfg.QuestionTimeLimit.Seconds()),
		AllowBackNavigation: s.cfg.AllowBackNavigation,
	}
	for _, r := range s.rules.All() {
		c.ExamTypes = append(c.ExamTypes, model.ExamTypeInfo{
			Name:       r.ExamType,
			Total:      r.Total,
			Categories: r.Categories,
		})
	}
	return c
}

// ExamRules returns the rules of a configured exam type.
func (s *ExamService) ExamRules(examType string) (exam.Rules, error) {
	return s.rules.Get(examType)
}

// RequestApproval files an approval request for a configured exam type.
func (s *ExamService) RequestApproval(ctx context.Context, req model.CreateApprovalRequest) (*model.ApprovalRequest, error) {
	if _, err := s.rules.Get(req.ExamType); err != nil {
		return nil, err
	}
	return s.gate.CreateRequest(ctx, req)
}

// RefreshBank drops the cached bank of an exam type.
func (s *ExamService) RefreshBank(ctx context.Context, examType string) error {
	rules, err := s.rules.Get(examType)
	if err != nil {
		return err
	}
	return s.bank.Invalidate(ctx, rules.Sheet)
}

// credential is the access reference resolved for a start request.
type credential struct {
	examType   string
	candidate  model.Candidate
	tokenID    *uuid.UUID
	approvalID *uuid.UUID
}

// Start authorizes the request, builds the question set and starts a session.
// The credential is consumed only after the questions were selected, so a
// bank failure leaves a token or approval usable.
func (s *ExamService) Start(ctx context.Context, req model.StartSessionRequest) (*model.ExamSession, error) {
	cred, err := s.resolveCredential(ctx, req)
	if err != nil {
		return nil, err
	}

	rules, err := s.rules.Get(cred.examType)
	if err != nil {
		return nil, err
	}
	bank, err := s.bank.Load(ctx, rules.Sheet)
	if err != nil {
		return nil, fmt.Errorf("load question bank: %w", err)
	}
	questions, err := s.selector.Select(rules.ExamType, bank)
	if err != nil {
		return nil, err
	}

	if cred.tokenID != nil {
		if _, err := s.gate.ConsumeToken(ctx, *cred.tokenID); err != nil {
			return nil, err
		}
	}
	if cred.approvalID != nil {
		if _, err := s.gate.ConsumeApproval(ctx, *cred.approvalID); err != nil {
			return nil, err
		}
	}

	flags := exam.Flags{
		RequireToken:            s.cfg.RequireToken(),
		RequireApproval:         s.cfg.RequireApproval(),
		AllowBackNavigation:     s.cfg.AllowBackNavigation,
		AutoAdvanceOnTimeout:    s.cfg.AutoAdvanceOnTimeout,
		AutoFinishOnLastTimeout: s.cfg.AutoFinishOnLastTimeout,
	}
	started, err := exam.Apply(
		exam.NewSession(uuid.NewString(), rules.ExamType, questions, s.cfg.QuestionTimeLimit, flags),
		exam.Start(s.now()),
	)
	if err != nil {
		return nil, err
	}

	sess := &model.ExamSession{
		Session:    started,
		Candidate:  cred.candidate,
		TokenID:    cred.tokenID,
		ApprovalID: cred.approvalID,
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	metrics.ExamsStarted.WithLabelValues(sess.ExamType).Inc()
	s.log.Info().
		Str("session_id", sess.ID).
		Str("exam_type", sess.ExamType).
		Int("questions", len(sess.Questions)).
		Msg("Exam session started")
	return sess, nil
}

func (s *ExamService) resolveCredential(ctx context.Context, req model.StartSessionRequest) (*credential, error) {
	cred := &credential{examType: req.ExamType, candidate: req.Candidate}

	switch s.cfg.AccessMode {
	case config.AccessModeToken:
		if req.Token == "" {
			return nil, ErrAccessRequired
		}
		id, err := uuid.Parse(req.Token)
		if err != nil {
			return nil, ErrInvalidToken
		}
		t, err := s.gate.CheckToken(ctx, id)
		if err != nil {
			return nil, err
		}
		cred.examType = t.ExamType
		cred.tokenID = &id

	case config.AccessModeApproval:
		if req.ApprovalID == "" {
			return nil, ErrAccessRequired
		}
		id, err := uuid.Parse(req.ApprovalID)
		if err != nil {
			return nil, ErrRequestNotFound
		}
		a, err := s.gate.CheckApproval(ctx, id)
		if err != nil {
			return nil, err
		}
		cred.examType = a.ExamType
		cred.candidate = a.Candidate
		cred.approvalID = &id
	}

	if cred.examType == "" {
		return nil, &exam.UnknownExamTypeError{}
	}
	return cred, nil
}

// State observes elapsed time on a session and returns it.
func (s *ExamService) State(ctx context.Context, id string) (*model.ExamSession, error) {
	sess, err := s.apply(ctx, id, nil)
	if errors.Is(err, exam.ErrSessionFinished) {
		return sess, nil
	}
	return sess, err
}

// Answer records an option for the current question.
func (s *ExamService) Answer(ctx context.Context, id string, question, option int) (*model.ExamSession, error) {
	return s.apply(ctx, id, func(now time.Time) exam.Event { return exam.Answer(now, question, option) })
}

// Next moves to the following question.
func (s *ExamService) Next(ctx context.Context, id string) (*model.ExamSession, error) {
	return s.apply(ctx, id, exam.Advance)
}

// Back moves to the previous question when the deployment allows it.
func (s *ExamService) Back(ctx context.Context, id string) (*model.ExamSession, error) {
	return s.apply(ctx, id, exam.Back)
}

// Submit finishes the session from the last question.
func (s *ExamService) Submit(ctx context.Context, id string) (*model.ExamSession, error) {
	return s.apply(ctx, id, exam.Submit)
}

// Result returns the scored outcome of a finished session.
func (s *ExamService) Result(ctx context.Context, id string) (*model.ExamResult, error) {
	sess, err := s.State(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Status != exam.StatusFinished || sess.Result == nil {
		return nil, ErrSessionNotFinished
	}
	r := model.NewExamResult(*sess)
	return &r, nil
}

// apply loads a session, applies elapsed timeouts and then the event built
// by ev (if any). Elapsed timeouts are persisted even when ev is rejected.
// A session finished by the timeout cascade is scored and reported as
// exam.ErrSessionFinished to callers that tried to act on it.
func (s *ExamService) apply(ctx context.Context, id string, ev func(time.Time) exam.Event) (*model.ExamSession, error) {
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	if sess.Status == exam.StatusFinished {
		return sess, exam.ErrSessionFinished
	}

	now := s.now()
	observed, err := exam.Apply(sess.Session, exam.Observe(now))
	if err != nil {
		return sess, err
	}
	sess.Session = observed

	var actionErr error
	if observed.Status == exam.StatusFinished {
		actionErr = exam.ErrSessionFinished
	} else if ev != nil {
		next, err := exam.Apply(observed, ev(now))
		if err != nil {
			actionErr = err
		} else {
			sess.Session = next
		}
	}

	if sess.Status == exam.StatusFinished {
		if err := s.finalize(ctx, sess); err != nil {
			return nil, err
		}
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return sess, actionErr
}

// finalize scores a finished session and hands the result to the sink and
// notifier. Sink and notifier failures are logged; the score stands.
func (s *ExamService) finalize(ctx context.Context, sess *model.ExamSession) error {
	result, err := exam.Score(sess.Questions, sess.Answers)
	if err != nil {
		return fmt.Errorf("score session: %w", err)
	}
	sess.Result = &result
	if sess.ResultID == uuid.Nil {
		sess.ResultID = uuid.New()
	}

	record := model.NewExamResult(*sess)
	log := s.log.With().Str("session_id", sess.ID).Str("result_id", record.ID.String()).Logger()

	if err := s.results.Push(ctx, record); err != nil {
		log.Error().Err(err).Msg("Failed to queue exam result")
	}
	if err := s.notifier.ExamFinished(ctx, record); err != nil {
		log.Warn().Err(err).Msg("Failed to publish exam finished event")
	}

	metrics.ExamsFinished.WithLabelValues(sess.ExamType).Inc()
	metrics.ExamScores.WithLabelValues(sess.ExamType).Observe(result.Score)
	log.Info().
		Float64("score", result.Score).
		Int("correct", result.Correct).
		Int("timed_out", result.TimedOut).
		Msg("Exam session finished")
	return nil
}
