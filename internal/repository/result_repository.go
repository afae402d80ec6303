package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lotuseval/placement-backend/internal/exam"
	"github.com/lotuseval/placement-backend/internal/model"
)

const resultColumns = `id, session_id, candidate_name, phone, graduation_year, university, exam_type,
	score::float8, correct, incorrect, timed_out, total, time_taken_seconds, started_at, finished_at, created_at`

// ResultRepository handles exam result data access.
type ResultRepository struct {
	pool *pgxpool.Pool
}

// NewResultRepository creates a new ResultRepository.
func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

// InsertBatch stores results and their detail rows in one transaction.
// Results whose session was already stored are skipped.
func (r *ResultRepository) InsertBatch(ctx context.Context, results []model.ExamResult) error {
	if len(results) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for i := range results {
		queueInsert(batch, &results[i])
	}

	br := tx.SendBatch(ctx, batch)
	inserted := make([]*model.ExamResult, 0, len(results))
	for i := range results {
		var id uuid.UUID
		err := br.QueryRow().Scan(&id)
		if errors.Is(err, pgx.ErrNoRows) {
			continue
		}
		if err != nil {
			br.Close()
			return fmt.Errorf("insert result %s: %w", results[i].SessionID, err)
		}
		inserted = append(inserted, &results[i])
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	if err := copyDetails(ctx, tx, inserted); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Insert stores a single result. It is the fallback when a batch fails.
func (r *ResultRepository) Insert(ctx context.Context, res model.ExamResult) error {
	return r.InsertBatch(ctx, []model.ExamResult{res})
}

func queueInsert(b *pgx.Batch, res *model.ExamResult) {
	b.Queue(
		`INSERT INTO exam_results (id, session_id, candidate_name, phone, graduation_year, university,
		     exam_type, score, correct, incorrect, timed_out, total, time_taken_seconds, started_at, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		 ON CONFLICT (session_id) DO NOTHING
		 RETURNING id`,
		res.ID, res.SessionID, res.Candidate.Name, res.Candidate.Phone,
		res.Candidate.GraduationYear, res.Candidate.University, res.ExamType,
		res.Score, res.Correct, res.Incorrect, res.TimedOut, res.Total,
		res.TimeTakenSeconds, res.StartedAt, res.FinishedAt,
	)
}

func copyDetails(ctx context.Context, tx pgx.Tx, results []*model.ExamResult) error {
	var rows [][]any
	for _, res := range results {
		for _, d := range res.Details {
			rows = append(rows, []any{
				res.ID, d.Position, d.Question, d.ChosenAnswer, d.CorrectAnswer,
				string(d.Outcome), d.Category, d.Difficulty,
			})
		}
	}
	if len(rows) == 0 {
		return nil
	}

	_, err := tx.CopyFrom(ctx,
		pgx.Identifier{"exam_result_details"},
		[]string{"result_id", "position", "question", "chosen_answer", "correct_answer", "outcome", "category", "difficulty"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("copy result details: %w", err)
	}
	return nil
}

func scanResult(row pgx.Row) (*model.ExamResult, error) {
	res := &model.ExamResult{}
	err := row.Scan(
		&res.ID, &res.SessionID, &res.Candidate.Name, &res.Candidate.Phone,
		&res.Candidate.GraduationYear, &res.Candidate.University, &res.ExamType,
		&res.Score, &res.Correct, &res.Incorrect, &res.TimedOut, &res.Total,
		&res.TimeTakenSeconds, &res.StartedAt, &res.FinishedAt, &res.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

// List returns results newest first, with the total count for pagination.
func (r *ResultRepository) List(ctx context.Context, f model.ResultFilter) ([]model.ExamResult, int, error) {
	offset := (f.Page - 1) * f.PerPage

	baseQuery := ` FROM exam_results WHERE 1=1`
	args := []any{}
	if f.ExamType != "" {
		args = append(args, f.ExamType)
		baseQuery += fmt.Sprintf(" AND exam_type = $%d", len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*)"+baseQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + resultColumns + baseQuery +
		fmt.Sprintf(" ORDER BY finished_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, f.PerPage, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	results := make([]model.ExamResult, 0, f.PerPage)
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, 0, err
		}
		results = append(results, *res)
	}
	return results, total, rows.Err()
}

// GetByID retrieves a result with its detail rows.
func (r *ResultRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ExamResult, error) {
	res, err := scanResult(r.pool.QueryRow(ctx,
		`SELECT `+resultColumns+` FROM exam_results WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT position, question, chosen_answer, correct_answer, outcome, category, difficulty
		 FROM exam_result_details
		 WHERE result_id = $1
		 ORDER BY position`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var d exam.Detail
		var outcome string
		if err := rows.Scan(&d.Position, &d.Question, &d.ChosenAnswer, &d.CorrectAnswer, &outcome, &d.Category, &d.Difficulty); err != nil {
			return nil, err
		}
		d.Outcome = exam.Outcome(outcome)
		res.Details = append(res.Details, d)
	}
	return res, rows.Err()
}

// Summary aggregates scores per exam type.
func (r *ResultRepository) Summary(ctx context.Context) ([]model.ResultSummary, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT exam_type, COUNT(*), AVG(score)::float8, MIN(score)::float8, MAX(score)::float8
		 FROM exam_results
		 GROUP BY exam_type
		 ORDER BY exam_type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := make([]model.ResultSummary, 0)
	for rows.Next() {
		var s model.ResultSummary
		if err := rows.Scan(&s.ExamType, &s.Count, &s.Average, &s.Min, &s.Max); err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}
