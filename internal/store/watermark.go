package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Watermarks persists the high-water updated_at per sync target.
type Watermarks struct {
	rdb    redis.Cmdable
	prefix string
}

func NewWatermarks(rdb redis.Cmdable, prefix string) *Watermarks {
	if prefix == "" {
		prefix = "er-sync:watermark:"
	}
	return &Watermarks{rdb: rdb, prefix: prefix}
}

// Get returns ok=false when no watermark has been recorded yet.
func (w *Watermarks) Get(ctx context.Context, name string) (time.Time, bool, error) {
	raw, err := w.rdb.Get(ctx, w.prefix+name).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("watermark %s: %w", name, err)
	}
	return t, true, nil
}

// Advance stores t unless an equal or later watermark is already recorded.
func (w *Watermarks) Advance(ctx context.Context, name string, t time.Time) error {
	cur, ok, err := w.Get(ctx, name)
	if err != nil {
		return err
	}
	if ok && !t.After(cur) {
		return nil
	}
	return w.rdb.Set(ctx, w.prefix+name, t.UTC().Format(time.RFC3339Nano), 0).Err()
}

// Reset forgets the watermark so the next run does a full pull.
func (w *Watermarks) Reset(ctx context.Context, name string) error {
	return w.rdb.Del(ctx, w.prefix+name).Err()
}
