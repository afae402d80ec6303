package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lotuseval/placement-backend/internal/model"
	"github.com/rs/zerolog"
)

type memQueue struct {
	mu    sync.Mutex
	items []model.ExamResult
	dead  []model.ExamResult
}

func (q *memQueue) Pop(ctx context.Context, timeout time.Duration) (*model.ExamResult, error) {
	q.mu.Lock()
	if len(q.items) > 0 {
		r := q.items[0]
		q.items = q.items[1:]
		q.mu.Unlock()
		return &r, nil
	}
	q.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(time.Millisecond):
		return nil, nil
	}
}

func (q *memQueue) Push(_ context.Context, r model.ExamResult) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, r)
	return nil
}

func (q *memQueue) PushDead(_ context.Context, r model.ExamResult) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.dead = append(q.dead, r)
	return nil
}

func (q *memQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// downQueue fails every Pop immediately, like BLPOP against a dead Redis.
type downQueue struct {
	pops atomic.Int32
}

func (q *downQueue) Pop(context.Context, time.Duration) (*model.ExamResult, error) {
	q.pops.Add(1)
	return nil, errors.New("dial tcp 127.0.0.1:6379: connect: connection refused")
}

func (q *downQueue) Push(context.Context, model.ExamResult) error     { return nil }
func (q *downQueue) PushDead(context.Context, model.ExamResult) error { return nil }

type fakeWriter struct {
	mu        sync.Mutex
	batchErr  error
	rejectIDs map[uuid.UUID]bool
	stored    []model.ExamResult
	batches   int
}

func (w *fakeWriter) InsertBatch(_ context.Context, results []model.ExamResult) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.batches++
	if w.batchErr != nil {
		return w.batchErr
	}
	w.stored = append(w.stored, results...)
	return nil
}

func (w *fakeWriter) Insert(_ context.Context, r model.ExamResult) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.rejectIDs[r.ID] {
		return errors.New("constraint violation")
	}
	w.stored = append(w.stored, r)
	return nil
}

func (w *fakeWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.stored)
}

type memArchiver struct {
	mu    sync.Mutex
	names []string
}

func (a *memArchiver) Put(_ context.Context, name string, _ []byte, _ string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.names = append(a.names, name)
	return name, nil
}

func result(examType string) model.ExamResult {
	now := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	return model.ExamResult{
		ID:         uuid.New(),
		SessionID:  uuid.NewString(),
		ExamType:   examType,
		Total:      20,
		StartedAt:  now,
		FinishedAt: now.Add(5 * time.Minute),
	}
}

func TestFlushSafeBatch(t *testing.T) {
	q := &memQueue{}
	w := &fakeWriter{}
	a := &memArchiver{}
	rw := NewResultWorker(q, w, a, 10, time.Second, zerolog.Nop())

	batch := []model.ExamResult{result("Pharmacist (New Hire)"), result("Assistant (New Hire)")}
	rw.flushSafe(context.Background(), batch)

	if w.count() != 2 || w.batches != 1 {
		t.Errorf("stored %d in %d batches, want 2 in 1", w.count(), w.batches)
	}
	if len(a.names) != 2 || a.names[0] != "Pharmacist__New_Hire_/"+batch[0].ID.String()+".xlsx" {
		t.Errorf("archived %v", a.names)
	}
}

func TestFlushSafeFallbackRequeues(t *testing.T) {
	bad := result("Pharmacist (New Hire)")
	good := result("Pharmacist (New Hire)")

	q := &memQueue{}
	w := &fakeWriter{batchErr: errors.New("deadlock detected"), rejectIDs: map[uuid.UUID]bool{bad.ID: true}}
	rw := NewResultWorker(q, w, nil, 10, time.Second, zerolog.Nop())

	rw.flushSafe(context.Background(), []model.ExamResult{bad, good})

	if w.count() != 1 || w.stored[0].ID != good.ID {
		t.Errorf("stored %+v, want only the good result", w.stored)
	}
	if q.len() != 1 || q.items[0].ID != bad.ID {
		t.Errorf("queue %+v, want the rejected result requeued", q.items)
	}
}

func TestStartDrainsOnShutdown(t *testing.T) {
	q := &memQueue{}
	for i := 0; i < 3; i++ {
		_ = q.Push(context.Background(), result("Assistant (New Hire)"))
	}
	w := &fakeWriter{}
	rw := NewResultWorker(q, w, nil, 100, time.Hour, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		rw.Start(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for q.len() > 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
	if w.count() != 3 {
		t.Errorf("stored %d results on shutdown, want 3", w.count())
	}
}

func TestFlushSafeDeadLettersPoisonResult(t *testing.T) {
	tests := []struct {
		name        string
		maxAttempts int
	}{
		{"default limit", ResultMaxAttempts},
		{"single attempt", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bad := result("Pharmacist (New Hire)")
			q := &memQueue{}
			w := &fakeWriter{batchErr: errors.New("deadlock detected"), rejectIDs: map[uuid.UUID]bool{bad.ID: true}}
			rw := NewResultWorker(q, w, nil, 10, time.Second, zerolog.Nop())
			rw.maxAttempts = tt.maxAttempts

			for attempt := 1; attempt < tt.maxAttempts; attempt++ {
				rw.flushSafe(context.Background(), []model.ExamResult{bad})
				if q.len() != 1 || len(q.dead) != 0 {
					t.Fatalf("attempt %d: queue=%d dead=%d, want requeued", attempt, q.len(), len(q.dead))
				}
				q.items = nil
			}

			rw.flushSafe(context.Background(), []model.ExamResult{bad})
			if q.len() != 0 {
				t.Errorf("queue holds %d results after the last attempt, want 0", q.len())
			}
			if len(q.dead) != 1 || q.dead[0].ID != bad.ID {
				t.Errorf("dead list = %+v, want the rejected result", q.dead)
			}
			if len(rw.failures) != 0 {
				t.Errorf("failure counts not cleared: %v", rw.failures)
			}
		})
	}
}

func TestFlushSafeClearsFailuresOnSuccess(t *testing.T) {
	r := result("Assistant (New Hire)")
	q := &memQueue{}
	w := &fakeWriter{batchErr: errors.New("deadlock detected"), rejectIDs: map[uuid.UUID]bool{r.ID: true}}
	rw := NewResultWorker(q, w, nil, 10, time.Second, zerolog.Nop())

	rw.flushSafe(context.Background(), []model.ExamResult{r})
	if rw.failures[r.ID] != 1 {
		t.Fatalf("failures = %d, want 1", rw.failures[r.ID])
	}

	w.batchErr = nil
	rw.flushSafe(context.Background(), []model.ExamResult{r})
	if _, ok := rw.failures[r.ID]; ok || w.count() != 1 {
		t.Errorf("failures=%v stored=%d, want cleared and stored", rw.failures, w.count())
	}
}

func TestStartBacksOffAfterPopError(t *testing.T) {
	tests := []struct {
		name    string
		backoff time.Duration
		run     time.Duration
		maxPops int32
	}{
		{"short backoff", 20 * time.Millisecond, 100 * time.Millisecond, 10},
		{"cancel during backoff", time.Hour, 50 * time.Millisecond, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &downQueue{}
			rw := NewResultWorker(q, &fakeWriter{}, nil, 10, time.Second, zerolog.Nop())
			rw.popBackoff = tt.backoff

			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan struct{})
			go func() {
				rw.Start(ctx)
				close(done)
			}()

			time.Sleep(tt.run)
			cancel()

			select {
			case <-done:
			case <-time.After(2 * time.Second):
				t.Fatal("worker did not stop")
			}
			if got := q.pops.Load(); got < 1 || got > tt.maxPops {
				t.Errorf("Pop called %d times, want between 1 and %d", got, tt.maxPops)
			}
		})
	}
}
