package store

import (
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/Checker-Finance/erclient/pkg/erclient"
)

// RedisTokenCache shares one profile's OAuth token between processes.
// The key outlives the access token so the refresh token stays usable.
type RedisTokenCache struct {
	rdb redis.Cmdable
	key string
	ttl time.Duration
}

var _ erclient.TokenCache = (*RedisTokenCache)(nil)

// NewRedisTokenCache stores under "erclient:token:{profile}". ttl <= 0 means 24h.
func NewRedisTokenCache(rdb redis.Cmdable, profile string, ttl time.Duration) *RedisTokenCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisTokenCache{rdb: rdb, key: "erclient:token:" + profile, ttl: ttl}
}

func (c *RedisTokenCache) Load(ctx context.Context) (erclient.Token, bool, error) {
	data, err := c.rdb.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return erclient.Token{}, false, nil
	}
	if err != nil {
		return erclient.Token{}, false, err
	}
	var tok erclient.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		// a corrupt entry is treated as empty; the next grant overwrites it
		return erclient.Token{}, false, nil
	}
	return tok, true, nil
}

func (c *RedisTokenCache) Store(ctx context.Context, tok erclient.Token) error {
	data, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.key, data, c.ttl).Err()
}

func (c *RedisTokenCache) Clear(ctx context.Context) error {
	return c.rdb.Del(ctx, c.key).Err()
}
