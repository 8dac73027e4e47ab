package utils

import (
	"beautyhub-backend/apperrors"
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Limit allows Max requests per Window for a key.
type Limit struct {
	Max    int
	Window time.Duration
}

var (
	CardTokenLimit      = Limit{Max: 3, Window: 5 * time.Minute}
	PaymentLimit        = Limit{Max: 5, Window: time.Minute}
	DirectPurchaseLimit = Limit{Max: 3, Window: 5 * time.Minute}
)

// RateLimiter decides whether a keyed request may proceed. When it may not,
// the returned duration tells the caller when to retry.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit Limit) (bool, time.Duration, error)
}

type visitor struct {
	hits     []time.Time
	lastSeen time.Time
}

// MemoryRateLimiter keeps a sliding window of request times per key in
// process memory.
type MemoryRateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	idleTTL  time.Duration
	now      func() time.Time
}

func NewMemoryRateLimiter() *MemoryRateLimiter {
	return &MemoryRateLimiter{
		visitors: make(map[string]*visitor),
		idleTTL:  10 * time.Minute,
		now:      time.Now,
	}
}

func (rl *MemoryRateLimiter) Allow(_ context.Context, key string, limit Limit) (bool, time.Duration, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for k, v := range rl.visitors {
		if now.Sub(v.lastSeen) > rl.idleTTL && k != key {
			delete(rl.visitors, k)
		}
	}

	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{}
		rl.visitors[key] = v
	}
	v.lastSeen = now

	cutoff := now.Add(-limit.Window)
	kept := v.hits[:0]
	for _, t := range v.hits {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	v.hits = kept

	if len(v.hits) >= limit.Max {
		retry := v.hits[0].Add(limit.Window).Sub(now)
		if retry < time.Second {
			retry = time.Second
		}
		return false, retry, nil
	}
	v.hits = append(v.hits, now)
	return true, 0, nil
}

// RedisRateLimiter is a sliding-window limiter shared by every instance.
type RedisRateLimiter struct {
	client *redis.Client
	prefix string
}

func NewRedisRateLimiter(client *redis.Client) *RedisRateLimiter {
	return &RedisRateLimiter{client: client, prefix: "ratelimit:"}
}

func (rl *RedisRateLimiter) Allow(ctx context.Context, key string, limit Limit) (bool, time.Duration, error) {
	redisKey := rl.prefix + key
	now := time.Now()
	member := strconv.FormatInt(now.UnixNano(), 10) + ":" + uuid.NewString()

	var card *redis.IntCmd
	_, err := rl.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, redisKey, "0", strconv.FormatInt(now.Add(-limit.Window).UnixNano(), 10))
		pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixNano()), Member: member})
		card = pipe.ZCard(ctx, redisKey)
		pipe.PExpire(ctx, redisKey, limit.Window)
		return nil
	})
	if err != nil {
		return false, 0, err
	}
	if card.Val() <= int64(limit.Max) {
		return true, 0, nil
	}

	rl.client.ZRem(ctx, redisKey, member)
	oldest, err := rl.client.ZRangeWithScores(ctx, redisKey, 0, 0).Result()
	if err != nil || len(oldest) == 0 {
		return false, limit.Window, nil
	}
	retry := time.Unix(0, int64(oldest[0].Score)).Add(limit.Window).Sub(now)
	if retry < time.Second {
		retry = time.Second
	}
	return false, retry, nil
}

// RateLimit keys requests by client IP and route.
func RateLimit(rl RateLimiter, limit Limit) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP() + ":" + c.FullPath()
		ok, retry, err := rl.Allow(c.Request.Context(), key, limit)
		if err != nil {
			// fail open
			log.Warn().Err(err).Str("key", key).Msg("rate limiter unavailable")
			c.Next()
			return
		}
		if !ok {
			RespondWithAppError(c, apperrors.RateLimited(retry))
			c.Abort()
			return
		}
		c.Next()
	}
}
