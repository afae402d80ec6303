package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lotuseval/placement-backend/internal/export"
	"github.com/lotuseval/placement-backend/internal/metrics"
	"github.com/lotuseval/placement-backend/internal/model"
	"github.com/lotuseval/placement-backend/internal/storage"
	"github.com/rs/zerolog"
)

const (
	ResultPollTimeout = 1 * time.Second

	// ResultPopBackoff is the pause after a failed Pop, so an unreachable
	// Redis does not spin the loop.
	ResultPopBackoff = 1 * time.Second

	// ResultMaxAttempts bounds per-row inserts before a result is dead-lettered.
	ResultMaxAttempts = 3
)

// ResultQueue is the list finished results wait on. PushDead parks results
// that keep failing to insert.
type ResultQueue interface {
	Pop(ctx context.Context, timeout time.Duration) (*model.ExamResult, error)
	Push(ctx context.Context, r model.ExamResult) error
	PushDead(ctx context.Context, r model.ExamResult) error
}

// ResultWriter persists results.
type ResultWriter interface {
	InsertBatch(ctx context.Context, results []model.ExamResult) error
	Insert(ctx context.Context, r model.ExamResult) error
}

// ResultWorker drains the result queue into PostgreSQL in batches and
// archives a workbook per persisted result.
type ResultWorker struct {
	queue         ResultQueue
	writer        ResultWriter
	archiver      storage.Archiver
	batchSize     int
	flushInterval time.Duration
	popBackoff    time.Duration
	maxAttempts   int
	log           zerolog.Logger

	// failures counts failed inserts per result. Only the Start goroutine
	// touches it, and it resets on restart.
	failures map[uuid.UUID]int
}

// NewResultWorker creates a ResultWorker. archiver may be nil.
func NewResultWorker(queue ResultQueue, writer ResultWriter, archiver storage.Archiver, batchSize int, flushInterval time.Duration, log zerolog.Logger) *ResultWorker {
	if batchSize <= 0 {
		batchSize = 50
	}
	if flushInterval <= 0 {
		flushInterval = 2 * time.Second
	}
	return &ResultWorker{
		queue:         queue,
		writer:        writer,
		archiver:      archiver,
		batchSize:     batchSize,
		flushInterval: flushInterval,
		popBackoff:    ResultPopBackoff,
		maxAttempts:   ResultMaxAttempts,
		log:           log.With().Str("component", "result_worker").Logger(),
		failures:      make(map[uuid.UUID]int),
	}
}

// ----------------------------------------------------------------
// Worker loop with batching
// ----------------------------------------------------------------

// Start runs until ctx is cancelled, then flushes what it holds. Call in a goroutine.
func (w *ResultWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ResultWorker started")

	batch := make([]model.ExamResult, 0, w.batchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= w.batchSize || time.Since(lastFlush) >= w.flushInterval) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Int("pending", len(batch)).Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			r, err := w.queue.Pop(ctx, ResultPollTimeout)
			if err != nil {
				if ctx.Err() == nil {
					w.log.Error().Err(err).Msg("Pop error")
				}
				select {
				case <-ctx.Done():
				case <-time.After(w.popBackoff):
				}
				continue
			}
			if r == nil {
				continue
			}
			batch = append(batch, *r)
		}
	}
}

// ----------------------------------------------------------------
// Batch insert with per-row fallback
// ----------------------------------------------------------------

func (w *ResultWorker) flushSafe(ctx context.Context, batch []model.ExamResult) {
	if len(batch) == 0 {
		return
	}

	err := w.writer.InsertBatch(ctx, batch)
	if err == nil {
		metrics.ResultsPersisted.Add(float64(len(batch)))
		for _, r := range batch {
			delete(w.failures, r.ID)
		}
		w.archiveAll(ctx, batch)
		return
	}
	w.log.Warn().Err(err).Int("size", len(batch)).Msg("batch insert failed, using fallback")

	for _, r := range batch {
		if err := w.writer.Insert(ctx, r); err != nil {
			w.retryOrBury(ctx, r, err)
			continue
		}
		delete(w.failures, r.ID)
		metrics.ResultsPersisted.Inc()
		w.archiveAll(ctx, []model.ExamResult{r})
	}
}

func (w *ResultWorker) retryOrBury(ctx context.Context, r model.ExamResult, insertErr error) {
	w.failures[r.ID]++
	attempts := w.failures[r.ID]

	if attempts < w.maxAttempts {
		w.log.Error().Err(insertErr).Str("result_id", r.ID.String()).Int("attempt", attempts).Msg("Insert failed, requeueing")
		if err := w.queue.Push(ctx, r); err != nil {
			w.log.Error().Err(err).Str("result_id", r.ID.String()).Msg("Requeue failed, result dropped")
			delete(w.failures, r.ID)
		}
		return
	}

	delete(w.failures, r.ID)
	w.log.Error().Err(insertErr).Str("result_id", r.ID.String()).Int("attempt", attempts).Msg("Insert keeps failing, moving to dead-letter list")
	if err := w.queue.PushDead(ctx, r); err != nil {
		w.log.Error().Err(err).Str("result_id", r.ID.String()).Msg("Dead-letter push failed, result dropped")
		return
	}
	metrics.ResultsDeadLettered.Inc()
}

// ----------------------------------------------------------------
// Workbook archive
// ----------------------------------------------------------------

func (w *ResultWorker) archiveAll(ctx context.Context, results []model.ExamResult) {
	if w.archiver == nil {
		return
	}
	for _, r := range results {
		raw, err := export.ResultWorkbook(r)
		if err != nil {
			w.log.Warn().Err(err).Str("result_id", r.ID.String()).Msg("Render workbook failed")
			continue
		}
		name := storage.ObjectName(r.ExamType, r.ID.String())
		if _, err := w.archiver.Put(ctx, name, raw, storage.XLSXContentType); err != nil {
			w.log.Warn().Err(err).Str("object", name).Msg("Archive workbook failed")
		}
	}
}
