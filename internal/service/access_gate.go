package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lotuseval/placement-backend/internal/config"
	"github.com/lotuseval/placement-backend/internal/metrics"
	"github.com/lotuseval/placement-backend/internal/model"
	"github.com/lotuseval/placement-backend/internal/repository"
	"github.com/rs/zerolog"
)

// Access gate errors.
var (
	ErrAccessRequired        = errors.New("exam access credential is required")
	ErrInvalidToken          = errors.New("access token does not exist")
	ErrTokenExpired          = errors.New("access token has expired")
	ErrTokenAlreadyUsed      = errors.New("access token has already been used")
	ErrRequestNotFound       = errors.New("approval request does not exist")
	ErrRequestRejected       = errors.New("approval request was rejected")
	ErrRequestNotApproved    = errors.New("approval request is still pending")
	ErrRequestAlreadyUsed    = errors.New("approval request has already been used")
	ErrRequestAlreadyDecided = errors.New("approval request has already been decided")
	ErrApprovalTimeout       = errors.New("timed out waiting for approval")
)

// TokenStore persists access tokens.
type TokenStore interface {
	Create(ctx context.Context, t *model.AccessToken) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.AccessToken, error)
	Consume(ctx context.Context, id uuid.UUID, now time.Time) (*model.AccessToken, bool, error)
	Stats(ctx context.Context, now time.Time) (*model.TokenStats, error)
}

// ApprovalStore persists approval requests.
type ApprovalStore interface {
	Create(ctx context.Context, a *model.ApprovalRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.ApprovalRequest, error)
	List(ctx context.Context, status model.ApprovalStatus, limit int) ([]model.ApprovalRequest, error)
	Decide(ctx context.Context, id uuid.UUID, status model.ApprovalStatus, by string, at time.Time) (*model.ApprovalRequest, bool, error)
	Consume(ctx context.Context, id uuid.UUID, at time.Time) (*model.ApprovalRequest, bool, error)
}

// ApprovalNotifier announces approval lifecycle changes.
type ApprovalNotifier interface {
	ApprovalRequested(ctx context.Context, a *model.ApprovalRequest) error
	ApprovalDecided(ctx context.Context, a *model.ApprovalRequest) error
}

// AccessGate authorizes exam starts by single-use token or admin approval.
type AccessGate struct {
	cfg       *config.Config
	tokens    TokenStore
	approvals ApprovalStore
	notifier  ApprovalNotifier
	log       zerolog.Logger
	now       func() time.Time
}

// NewAccessGate creates a new AccessGate.
func NewAccessGate(cfg *config.Config, tokens TokenStore, approvals ApprovalStore, notifier ApprovalNotifier, log zerolog.Logger) *AccessGate {
	return &AccessGate{
		cfg:       cfg,
		tokens:    tokens,
		approvals: approvals,
		notifier:  notifier,
		log:       log.With().Str("component", "access_gate").Logger(),
		now:       time.Now,
	}
}

// Mode returns the configured access mode.
func (g *AccessGate) Mode() string {
	return g.cfg.AccessMode
}

// ─── Tokens ─────────────────────────────────────────────────────────

// IssueToken creates a token for an exam type and returns it with its link.
// A zero ttl uses the configured default.
func (g *AccessGate) IssueToken(ctx context.Context, examType, issuer string, ttl time.Duration) (*model.IssuedToken, error) {
	if ttl <= 0 {
		ttl = g.cfg.TokenTTL
	}
	now := g.now()
	t := &model.AccessToken{
		ID:        uuid.New(),
		ExamType:  examType,
		IssuedBy:  issuer,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := g.tokens.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("create token: %w", err)
	}

	g.log.Info().Str("token_id", t.ID.String()).Str("exam_type", examType).Msg("Access token issued")
	return &model.IssuedToken{
		Token:     *t,
		Link:      g.cfg.PublicBaseURL + "/exam?token=" + t.ID.String(),
		ExpiresAt: t.ExpiresAt,
	}, nil
}

// PeekToken reports whether a token could start an exam, without consuming it.
func (g *AccessGate) PeekToken(ctx context.Context, id uuid.UUID) (*model.TokenStatus, error) {
	t, err := g.getToken(ctx, id)
	if err != nil {
		return nil, err
	}

	status := &model.TokenStatus{ExamType: t.ExamType, Valid: true, ExpiresAt: t.ExpiresAt}
	if err := tokenState(t, g.now()); err != nil {
		status.Valid = false
		status.Reason = err.Error()
	}
	return status, nil
}

// CheckToken returns a token that could start an exam now, or the reason it cannot.
func (g *AccessGate) CheckToken(ctx context.Context, id uuid.UUID) (*model.AccessToken, error) {
	t, err := g.getToken(ctx, id)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) {
			g.outcome("invalid")
		}
		return nil, err
	}
	if err := tokenState(t, g.now()); err != nil {
		g.outcome(outcomeLabel(err))
		return nil, err
	}
	return t, nil
}

func (g *AccessGate) getToken(ctx context.Context, id uuid.UUID) (*model.AccessToken, error) {
	t, err := g.tokens.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("get token: %w", err)
	}
	return t, nil
}

// ConsumeToken atomically marks a token used and returns it. On failure it
// classifies why the token was refused.
func (g *AccessGate) ConsumeToken(ctx context.Context, id uuid.UUID) (*model.AccessToken, error) {
	now := g.now()
	t, ok, err := g.tokens.Consume(ctx, id, now)
	if err != nil {
		return nil, fmt.Errorf("consume token: %w", err)
	}
	if ok {
		g.outcome("consumed")
		return t, nil
	}

	existing, err := g.tokens.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			g.outcome("invalid")
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("get token: %w", err)
	}
	reason := tokenState(existing, now)
	if reason == nil {
		// Lost a race with a concurrent consumer between the two queries.
		reason = ErrTokenAlreadyUsed
	}
	g.outcome(outcomeLabel(reason))
	return nil, reason
}

// TokenStats aggregates issued tokens.
func (g *AccessGate) TokenStats(ctx context.Context) (*model.TokenStats, error) {
	return g.tokens.Stats(ctx, g.now())
}

func tokenState(t *model.AccessToken, now time.Time) error {
	switch {
	case t.Used:
		return ErrTokenAlreadyUsed
	case now.After(t.ExpiresAt):
		return ErrTokenExpired
	}
	return nil
}

// ─── Approvals ──────────────────────────────────────────────────────

// CreateRequest records a pending approval request and notifies admins.
func (g *AccessGate) CreateRequest(ctx context.Context, req model.CreateApprovalRequest) (*model.ApprovalRequest, error) {
	a := &model.ApprovalRequest{
		ID:        uuid.New(),
		ExamType:  req.ExamType,
		Candidate: req.Candidate,
		Status:    model.ApprovalPending,
		CreatedAt: g.now(),
	}
	if err := g.approvals.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("create approval request: %w", err)
	}

	if err := g.notifier.ApprovalRequested(ctx, a); err != nil {
		g.log.Warn().Err(err).Str("request_id", a.ID.String()).Msg("Failed to publish approval request")
	}
	g.log.Info().Str("request_id", a.ID.String()).Str("exam_type", a.ExamType).Msg("Approval requested")
	return a, nil
}

// GetRequest returns an approval request.
func (g *AccessGate) GetRequest(ctx context.Context, id uuid.UUID) (*model.ApprovalRequest, error) {
	a, err := g.approvals.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, fmt.Errorf("get approval request: %w", err)
	}
	return a, nil
}

// ListRequests returns requests, optionally filtered by status.
func (g *AccessGate) ListRequests(ctx context.Context, status model.ApprovalStatus, limit int) ([]model.ApprovalRequest, error) {
	return g.approvals.List(ctx, status, limit)
}

// Decide approves or rejects a pending request exactly once.
func (g *AccessGate) Decide(ctx context.Context, id uuid.UUID, approve bool, by string) (*model.ApprovalRequest, error) {
	status := model.ApprovalRejected
	if approve {
		status = model.ApprovalApproved
	}

	a, ok, err := g.approvals.Decide(ctx, id, status, by, g.now())
	if err != nil {
		return nil, fmt.Errorf("decide approval request: %w", err)
	}
	if !ok {
		if _, err := g.GetRequest(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrRequestAlreadyDecided
	}

	if err := g.notifier.ApprovalDecided(ctx, a); err != nil {
		g.log.Warn().Err(err).Str("request_id", a.ID.String()).Msg("Failed to publish approval decision")
	}
	g.log.Info().Str("request_id", a.ID.String()).Str("status", string(a.Status)).Msg("Approval decided")
	return a, nil
}

// Await polls a request until it is decided, the maximum wait elapses or the
// context is cancelled. A rejected request fails with ErrRequestRejected.
func (g *AccessGate) Await(ctx context.Context, id uuid.UUID) (*model.ApprovalRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.ApprovalMaxWait)
	defer cancel()

	ticker := time.NewTicker(g.cfg.ApprovalPollInterval)
	defer ticker.Stop()

	for {
		a, err := g.GetRequest(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ErrApprovalTimeout
			}
			return nil, err
		}
		switch a.Status {
		case model.ApprovalApproved:
			return a, nil
		case model.ApprovalRejected:
			return nil, ErrRequestRejected
		}

		select {
		case <-ctx.Done():
			return nil, ErrApprovalTimeout
		case <-ticker.C:
		}
	}
}

// ConsumeApproval atomically marks an approved request used and returns it.
func (g *AccessGate) ConsumeApproval(ctx context.Context, id uuid.UUID) (*model.ApprovalRequest, error) {
	a, ok, err := g.approvals.Consume(ctx, id, g.now())
	if err != nil {
		return nil, fmt.Errorf("consume approval request: %w", err)
	}
	if ok {
		g.outcome("consumed")
		return a, nil
	}

	existing, err := g.GetRequest(ctx, id)
	if err != nil {
		g.outcome("invalid")
		return nil, err
	}
	err = approvalState(existing)
	if err == nil {
		// Lost a race with a concurrent consumer between the two queries.
		err = ErrRequestAlreadyUsed
	}
	g.outcome(outcomeLabel(err))
	return nil, err
}

// CheckApproval returns a request that could start an exam now, or the reason it cannot.
func (g *AccessGate) CheckApproval(ctx context.Context, id uuid.UUID) (*model.ApprovalRequest, error) {
	a, err := g.GetRequest(ctx, id)
	if err != nil {
		if errors.Is(err, ErrRequestNotFound) {
			g.outcome("invalid")
		}
		return nil, err
	}
	if err := approvalState(a); err != nil {
		g.outcome(outcomeLabel(err))
		return nil, err
	}
	return a, nil
}

func approvalState(a *model.ApprovalRequest) error {
	switch {
	case a.Status == model.ApprovalRejected:
		return ErrRequestRejected
	case a.Status == model.ApprovalPending:
		return ErrRequestNotApproved
	case a.Used:
		return ErrRequestAlreadyUsed
	}
	return nil
}

func (g *AccessGate) outcome(label string) {
	metrics.GateOutcomes.WithLabelValues(g.cfg.AccessMode, label).Inc()
}

func outcomeLabel(err error) string {
	switch {
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	case errors.Is(err, ErrTokenAlreadyUsed), errors.Is(err, ErrRequestAlreadyUsed):
		return "reused"
	case errors.Is(err, ErrRequestRejected):
		return "rejected"
	case errors.Is(err, ErrRequestNotApproved):
		return "pending"
	}
	return "invalid"
}
