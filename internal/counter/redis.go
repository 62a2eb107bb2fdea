package counter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"webcore/internal/models"
)

// incrementLua refuses to count past ARGV[1] and sets the window expiry
// (ARGV[2] milliseconds) when the record is created. Returns {admitted, count}.
const incrementLua = `
	local current = tonumber(redis.call("GET", KEYS[1]) or "0")
	if current >= tonumber(ARGV[1]) then
		return {0, current}
	end
	current = redis.call("INCR", KEYS[1])
	if current == 1 or redis.call("PTTL", KEYS[1]) < 0 then
		redis.call("PEXPIRE", KEYS[1], ARGV[2])
	end
	return {1, current}
`

// RedisCounter keeps request counters in Redis so every instance of the
// service shares one quota per application. The check-and-increment runs
// as a Lua script, which Redis executes atomically.
type RedisCounter struct {
	client          *redis.Client
	prefix          string
	incrementScript *redis.Script
}

// NewRedisCounter connects to Redis using cfg and verifies the connection.
func NewRedisCounter(cfg models.RedisConfig, prefix string) (*RedisCounter, error) {
	opts, err := redisOptions(cfg)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisCounter{
		client:          client,
		prefix:          prefix,
		incrementScript: redis.NewScript(incrementLua),
	}, nil
}

func redisOptions(cfg models.RedisConfig) (*redis.Options, error) {
	if cfg.URL != "" {
		opts, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		if cfg.PoolSize > 0 {
			opts.PoolSize = cfg.PoolSize
		}
		return opts, nil
	}
	if cfg.Addr == "" {
		return nil, errors.New("redis address required")
	}
	return &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}, nil
}

func (r *RedisCounter) key(appID uuid.UUID) string {
	return r.prefix + appID.String()
}

// Count returns the live count for appID, 0 when the key has expired.
func (r *RedisCounter) Count(ctx context.Context, appID uuid.UUID) (int64, error) {
	n, err := r.client.Get(ctx, r.key(appID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("get request count: %w", err)
	}
	return n, nil
}

// IncrementWithExpiry runs the conditional increment script.
func (r *RedisCounter) IncrementWithExpiry(ctx context.Context, appID uuid.UUID, limit int64, ttl time.Duration) (int64, error) {
	// PEXPIRE with 0 deletes the key, so sub-millisecond windows round up.
	ms := max(ttl.Milliseconds(), 1)
	res, err := r.incrementScript.Run(ctx, r.client, []string{r.key(appID)}, limit, ms).Int64Slice()
	if err != nil {
		return 0, fmt.Errorf("increment request count: %w", err)
	}
	if len(res) != 2 {
		return 0, fmt.Errorf("increment request count: unexpected script reply %v", res)
	}
	if res[0] == 0 {
		return res[1], ErrLimitReached
	}
	return res[1], nil
}

// Ping checks the Redis connection.
func (r *RedisCounter) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (r *RedisCounter) Close() error {
	return r.client.Close()
}
