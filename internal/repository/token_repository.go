package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lotuseval/placement-backend/internal/model"
)

// TokenRepository handles exam access token data access.
type TokenRepository struct {
	pool *pgxpool.Pool
}

// NewTokenRepository creates a new TokenRepository.
func NewTokenRepository(pool *pgxpool.Pool) *TokenRepository {
	return &TokenRepository{pool: pool}
}

// Create inserts a new token.
func (r *TokenRepository) Create(ctx context.Context, t *model.AccessToken) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO exam_tokens (id, exam_type, issued_by, expires_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at`,
		t.ID, t.ExamType, t.IssuedBy, t.ExpiresAt,
	).Scan(&t.CreatedAt)
}

// GetByID retrieves a token by id.
func (r *TokenRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.AccessToken, error) {
	t := &model.AccessToken{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, exam_type, issued_by, created_at, expires_at, used, used_at
		 FROM exam_tokens WHERE id = $1`, id,
	).Scan(&t.ID, &t.ExamType, &t.IssuedBy, &t.CreatedAt, &t.ExpiresAt, &t.Used, &t.UsedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Consume marks an unused, unexpired token as used. It reports false when no
// row qualified, leaving the caller to classify why.
func (r *TokenRepository) Consume(ctx context.Context, id uuid.UUID, now time.Time) (*model.AccessToken, bool, error) {
	t := &model.AccessToken{}
	err := r.pool.QueryRow(ctx,
		`UPDATE exam_tokens
		 SET used = TRUE, used_at = $2
		 WHERE id = $1 AND used = FALSE AND expires_at > $2
		 RETURNING id, exam_type, issued_by, created_at, expires_at, used, used_at`,
		id, now,
	).Scan(&t.ID, &t.ExamType, &t.IssuedBy, &t.CreatedAt, &t.ExpiresAt, &t.Used, &t.UsedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return t, true, nil
}

// Stats aggregates token usage as of now.
func (r *TokenRepository) Stats(ctx context.Context, now time.Time) (*model.TokenStats, error) {
	stats := &model.TokenStats{ByExamType: make(map[string]int)}
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE used),
		        COUNT(*) FILTER (WHERE NOT used AND expires_at > $1),
		        COUNT(*) FILTER (WHERE NOT used AND expires_at <= $1)
		 FROM exam_tokens`, now,
	).Scan(&stats.Total, &stats.Used, &stats.Unused, &stats.Expired)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT exam_type, COUNT(*) FROM exam_tokens GROUP BY exam_type ORDER BY exam_type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var examType string
		var n int
		if err := rows.Scan(&examType, &n); err != nil {
			return nil, err
		}
		stats.ByExamType[examType] = n
	}
	return stats, rows.Err()
}
