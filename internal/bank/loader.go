package bank

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/lotuseval/placement-backend/internal/config"
	"github.com/lotuseval/placement-backend/internal/exam"
	"github.com/lotuseval/placement-backend/internal/metrics"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Cache stores parsed sheets between loads.
type Cache interface {
	Get(ctx context.Context, sheet string) ([]exam.Question, bool, error)
	Set(ctx context.Context, sheet string, questions []exam.Question) error
	Delete(ctx context.Context, sheet string) error
}

// Loader reads question banks through an optional cache.
type Loader struct {
	source Source
	cache  Cache
	log    zerolog.Logger
}

// NewLoader creates a Loader. cache may be nil.
func NewLoader(source Source, cache Cache, log zerolog.Logger) *Loader {
	return &Loader{
		source: source,
		cache:  cache,
		log:    log.With().Str("component", "bank_loader").Logger(),
	}
}

// Load returns the deduplicated questions of sheet. Cache failures are
// logged and fall through to the source.
func (l *Loader) Load(ctx context.Context, sheet string) ([]exam.Question, error) {
	if l.cache != nil {
		qs, ok, err := l.cache.Get(ctx, sheet)
		if err != nil {
			l.log.Warn().Err(err).Str("sheet", sheet).Msg("Bank cache read failed")
		} else if ok {
			return qs, nil
		}
	}

	rows, err := l.source.Rows(ctx, sheet)
	if err != nil {
		metrics.BankLoadFailures.WithLabelValues(sheet).Inc()
		l.log.Error().Err(err).Str("sheet", sheet).Msg("Failed to load question bank")
		return nil, err
	}

	qs := ParseRows(rows)
	l.log.Debug().Str("sheet", sheet).Int("questions", len(qs)).Msg("Question bank loaded")

	if l.cache != nil {
		if err := l.cache.Set(ctx, sheet, qs); err != nil {
			l.log.Warn().Err(err).Str("sheet", sheet).Msg("Bank cache write failed")
		}
	}
	return qs, nil
}

// Invalidate drops the cached copy of sheet.
func (l *Loader) Invalidate(ctx context.Context, sheet string) error {
	if l.cache == nil {
		return nil
	}
	return l.cache.Delete(ctx, sheet)
}

// RedisCache keeps parsed sheets as JSON with a TTL.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, sheet string) ([]exam.Question, bool, error) {
	raw, err := c.rdb.Get(ctx, config.CacheKey.BankSheetKey(sheet)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var qs []exam.Question
	if err := json.Unmarshal(raw, &qs); err != nil {
		return nil, false, err
	}
	return qs, true, nil
}

func (c *RedisCache) Set(ctx context.Context, sheet string, questions []exam.Question) error {
	raw, err := json.Marshal(questions)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, config.CacheKey.BankSheetKey(sheet), raw, c.ttl).Err()
}

func (c *RedisCache) Delete(ctx context.Context, sheet string) error {
	return c.rdb.Del(ctx, config.CacheKey.BankSheetKey(sheet)).Err()
}
