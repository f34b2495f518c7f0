// Package cache keeps rendered allocation lists in Redis so repeated reads
// of a finished seating plan do not hit MySQL.  Every successful replace of
// an exam's allocations moves its listings to a fresh generation.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/exam-seating/internal/model"
)

// AllocationCache is a read-through JSON cache of allocation views.  A nil
// Redis client or a disabled config turns every call into a miss.
type AllocationCache struct {
	rdb     *redis.Client
	prefix  string
	ttl     time.Duration
	enabled bool
}

// New builds an AllocationCache.  ttl <= 0 defaults to five minutes.
func New(rdb *redis.Client, prefix string, ttl time.Duration, enabled bool) *AllocationCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if prefix == "" {
		prefix = "cache"
	}
	return &AllocationCache{rdb: rdb, prefix: prefix, ttl: ttl, enabled: enabled && rdb != nil}
}

// Entries are stored under a per-exam generation.  Invalidate bumps the
// generation, so a reader that loaded rows before a replace can only write
// them to a key nobody reads any more.
func (c *AllocationCache) examGenKey(examID uint64) string {
	return fmt.Sprintf("%s:seating:gen:exam:%d", c.prefix, examID)
}

func (c *AllocationCache) allGenKey() string {
	return c.prefix + ":seating:gen:all"
}

func (c *AllocationCache) examKey(examID, gen uint64) string {
	return fmt.Sprintf("%s:seating:exam:%d:v%d", c.prefix, examID, gen)
}

func (c *AllocationCache) allKey(gen uint64) string {
	return fmt.Sprintf("%s:seating:all:v%d", c.prefix, gen)
}

// generation reads a counter; a missing counter is generation 0.
func (c *AllocationCache) generation(ctx context.Context, key string) (uint64, bool) {
	gen, err := c.rdb.Get(ctx, key).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, true
	}
	return gen, err == nil
}

// Exam returns the cached allocations of one exam together with the
// generation they were looked up under.  On a miss the caller loads the
// rows and hands the same generation back to SetExam.
func (c *AllocationCache) Exam(ctx context.Context, examID uint64) ([]model.AllocationView, uint64, bool) {
	if !c.enabled {
		return nil, 0, false
	}
	gen, ok := c.generation(ctx, c.examGenKey(examID))
	if !ok {
		return nil, 0, false
	}
	rows, hit := c.get(ctx, c.examKey(examID, gen))
	return rows, gen, hit
}

// SetExam stores the allocations of one exam under gen.
func (c *AllocationCache) SetExam(ctx context.Context, examID, gen uint64, rows []model.AllocationView) {
	c.set(ctx, c.examKey(examID, gen), rows)
}

// All returns the cached allocations of every exam and their generation.
func (c *AllocationCache) All(ctx context.Context) ([]model.AllocationView, uint64, bool) {
	if !c.enabled {
		return nil, 0, false
	}
	gen, ok := c.generation(ctx, c.allGenKey())
	if !ok {
		return nil, 0, false
	}
	rows, hit := c.get(ctx, c.allKey(gen))
	return rows, gen, hit
}

// SetAll stores the allocations of every exam under gen.
func (c *AllocationCache) SetAll(ctx context.Context, gen uint64, rows []model.AllocationView) {
	c.set(ctx, c.allKey(gen), rows)
}

// Invalidate moves the exam and the global listing to a new generation.
// Entries of older generations are left to expire.
func (c *AllocationCache) Invalidate(ctx context.Context, examID uint64) error {
	if !c.enabled {
		return nil
	}
	_, err := c.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Incr(ctx, c.examGenKey(examID))
		p.Incr(ctx, c.allGenKey())
		return nil
	})
	return err
}

func (c *AllocationCache) get(ctx context.Context, key string) ([]model.AllocationView, bool) {
	if !c.enabled {
		return nil, false
	}
	bs, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var rows []model.AllocationView
	if err := json.Unmarshal(bs, &rows); err != nil {
		return nil, false
	}
	return rows, true
}

// set is best effort; a failed write only costs a future miss.
func (c *AllocationCache) set(ctx context.Context, key string, rows []model.AllocationView) {
	if !c.enabled {
		return
	}
	if rows == nil {
		rows = []model.AllocationView{}
	}
	bs, err := json.Marshal(rows)
	if err != nil {
		return
	}
	_ = c.rdb.Set(ctx, key, bs, c.ttl).Err()
}
