package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lotuseval/placement-backend/internal/export"
	"github.com/lotuseval/placement-backend/internal/model"
	"github.com/lotuseval/placement-backend/internal/repository"
)

// ErrResultNotFound is returned when a persisted result does not exist.
var ErrResultNotFound = errors.New("result not found")

// ResultStore reads persisted results.
type ResultStore interface {
	List(ctx context.Context, f model.ResultFilter) ([]model.ExamResult, int, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.ExamResult, error)
	Summary(ctx context.Context) ([]model.ResultSummary, error)
}

// ResultService serves persisted results to admins.
type ResultService struct {
	store ResultStore
}

// NewResultService creates a new ResultService.
func NewResultService(store ResultStore) *ResultService {
	return &ResultService{store: store}
}

// List returns a page of results, newest first.
func (s *ResultService) List(ctx context.Context, f model.ResultFilter) ([]model.ExamResult, int, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 || f.PerPage > 100 {
		f.PerPage = 20
	}
	return s.store.List(ctx, f)
}

// Summary aggregates scores per exam type.
func (s *ResultService) Summary(ctx context.Context) ([]model.ResultSummary, error) {
	return s.store.Summary(ctx)
}

// Get returns a result with its per-question details.
func (s *ResultService) Get(ctx context.Context, id uuid.UUID) (*model.ExamResult, error) {
	r, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrResultNotFound
		}
		return nil, fmt.Errorf("get result: %w", err)
	}
	return r, nil
}

// Workbook renders a result as an .xlsx file and returns it with a file name.
func (s *ResultService) Workbook(ctx context.Context, id uuid.UUID) ([]byte, string, error) {
	r, err := s.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	raw, err := export.ResultWorkbook(*r)
	if err != nil {
		return nil, "", fmt.Errorf("render workbook: %w", err)
	}
	return raw, fmt.Sprintf("result-%s.xlsx", r.ID), nil
}
