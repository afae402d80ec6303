package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lotuseval/placement-backend/internal/config"
	"github.com/lotuseval/placement-backend/internal/model"
	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// SessionStore keeps exam sessions in Redis as JSON, keyed by session id.
type SessionStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewSessionStore creates a new SessionStore.
func NewSessionStore(rdb *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{rdb: rdb, ttl: ttl}
}

// Get loads a session. Expired or unknown ids yield ErrNotFound.
func (s *SessionStore) Get(ctx context.Context, id string) (*model.ExamSession, error) {
	raw, err := s.rdb.Get(ctx, config.CacheKey.ExamSessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	var sess model.ExamSession
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &sess, nil
}

// Save writes a session and refreshes its TTL. Last write wins.
func (s *SessionStore) Save(ctx context.Context, sess *model.ExamSession) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return s.rdb.Set(ctx, config.CacheKey.ExamSessionKey(sess.ID), raw, s.ttl).Err()
}

// ResultQueue is the Redis list feeding the result worker.
type ResultQueue struct {
	rdb     *redis.Client
	key     string
	deadKey string
}

// NewResultQueue creates a ResultQueue on the configured list keys.
func NewResultQueue(rdb *redis.Client) *ResultQueue {
	return &ResultQueue{
		rdb:     rdb,
		key:     config.WorkerKey.PersistResultsQueue,
		deadKey: config.WorkerKey.DeadResultsQueue,
	}
}

// Push appends a result to the queue.
func (q *ResultQueue) Push(ctx context.Context, r model.ExamResult) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return q.rdb.RPush(ctx, q.key, raw).Err()
}

// PushDead parks a result the worker gave up on. Nothing pops the dead list;
// an operator replays it by moving entries back onto the main queue.
func (q *ResultQueue) PushDead(ctx context.Context, r model.ExamResult) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return q.rdb.RPush(ctx, q.deadKey, raw).Err()
}

// Pop blocks up to timeout for the next result. It returns (nil, nil) when
// the wait elapses with nothing queued.
func (q *ResultQueue) Pop(ctx context.Context, timeout time.Duration) (*model.ExamResult, error) {
	item, err := q.rdb.BLPop(ctx, timeout, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(item) < 2 {
		return nil, nil
	}

	var r model.ExamResult
	if err := json.Unmarshal([]byte(item[1]), &r); err != nil {
		return nil, fmt.Errorf("decode queued result: %w", err)
	}
	return &r, nil
}
