package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lotuseval/placement-backend/internal/model"
)

const approvalColumns = `id, exam_type, candidate_name, phone, graduation_year, university,
	status, decided_by, decided_at, used, used_at, created_at`

// ApprovalRepository handles approval request data access.
type ApprovalRepository struct {
	pool *pgxpool.Pool
}

// NewApprovalRepository creates a new ApprovalRepository.
func NewApprovalRepository(pool *pgxpool.Pool) *ApprovalRepository {
	return &ApprovalRepository{pool: pool}
}

func scanApproval(row pgx.Row) (*model.ApprovalRequest, error) {
	a := &model.ApprovalRequest{}
	err := row.Scan(
		&a.ID, &a.ExamType, &a.Candidate.Name, &a.Candidate.Phone,
		&a.Candidate.GraduationYear, &a.Candidate.University,
		&a.Status, &a.DecidedBy, &a.DecidedAt, &a.Used, &a.UsedAt, &a.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Create inserts a pending request.
func (r *ApprovalRepository) Create(ctx context.Context, a *model.ApprovalRequest) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO approval_requests (id, exam_type, candidate_name, phone, graduation_year, university, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING created_at`,
		a.ID, a.ExamType, a.Candidate.Name, a.Candidate.Phone,
		a.Candidate.GraduationYear, a.Candidate.University, a.Status,
	).Scan(&a.CreatedAt)
}

// GetByID retrieves a request by id.
func (r *ApprovalRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ApprovalRequest, error) {
	return scanApproval(r.pool.QueryRow(ctx,
		`SELECT `+approvalColumns+` FROM approval_requests WHERE id = $1`, id))
}

// List returns requests, newest first, optionally filtered by status.
func (r *ApprovalRepository) List(ctx context.Context, status model.ApprovalStatus, limit int) ([]model.ApprovalRequest, error) {
	query := `SELECT ` + approvalColumns + ` FROM approval_requests`
	args := []any{}
	if status != "" {
		args = append(args, status)
		query += ` WHERE status = $1`
	}
	args = append(args, limit)
	query += ` ORDER BY created_at DESC LIMIT $` + fmt.Sprintf("%d", len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	requests := make([]model.ApprovalRequest, 0)
	for rows.Next() {
		a, err := scanApproval(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *a)
	}
	return requests, rows.Err()
}

// Decide moves a pending request to status. It reports false when the
// request was no longer pending.
func (r *ApprovalRepository) Decide(ctx context.Context, id uuid.UUID, status model.ApprovalStatus, by string, at time.Time) (*model.ApprovalRequest, bool, error) {
	a, err := scanApproval(r.pool.QueryRow(ctx,
		`UPDATE approval_requests
		 SET status = $2, decided_by = $3, decided_at = $4
		 WHERE id = $1 AND status = 'pending'
		 RETURNING `+approvalColumns,
		id, status, by, at))
	if errors.Is(err, ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return a, true, nil
}

// Consume marks an approved, unused request as used.
func (r *ApprovalRepository) Consume(ctx context.Context, id uuid.UUID, at time.Time) (*model.ApprovalRequest, bool, error) {
	a, err := scanApproval(r.pool.QueryRow(ctx,
		`UPDATE approval_requests
		 SET used = TRUE, used_at = $2
		 WHERE id = $1 AND status = 'approved' AND used = FALSE
		 RETURNING `+approvalColumns,
		id, at))
	if errors.Is(err, ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return a, true, nil
}
