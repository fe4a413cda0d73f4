package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/xraph/sentinel"
)

// Compile-time interface check.
var _ sentinel.RuleCache = (*Redis)(nil)

// Redis is a RuleCache shared between processes. Entries are JSON encoded
// and expire after the TTL. Each tenant has a generation counter that is
// part of every key of every app under it; invalidating a tenant bumps the
// counter so older entries are never read again and age out on their own.
type Redis struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

// RedisOption configures the Redis cache.
type RedisOption func(*Redis)

// WithRedisTTL sets the entry time-to-live.
func WithRedisTTL(ttl time.Duration) RedisOption {
	return func(r *Redis) { r.ttl = ttl }
}

// WithKeyPrefix sets the key namespace. Defaults to "sentinel:rules".
func WithKeyPrefix(prefix string) RedisOption {
	return func(r *Redis) { r.prefix = prefix }
}

// WithRedisLogger sets the logger used for swallowed Redis errors.
func WithRedisLogger(l *slog.Logger) RedisOption {
	return func(r *Redis) { r.logger = l }
}

// NewRedis returns a Redis cache using client.
func NewRedis(client redis.Cmdable, opts ...RedisOption) *Redis {
	r := &Redis{
		client: client,
		prefix: "sentinel:rules",
		ttl:    5 * time.Minute,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewRedisFromAddr connects to a single Redis server.
func NewRedisFromAddr(addr, password string, db int, opts ...RedisOption) (*Redis, error) {
	if addr == "" {
		return nil, errors.New("sentinel: redis addr is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewRedis(client, opts...), nil
}

// Get returns the cached rules for an operation. Redis errors count as a
// miss.
func (r *Redis) Get(ctx context.Context, key sentinel.RuleKey) ([]sentinel.AccessRule, bool) {
	tenantID := key.TenantID
	gen, err := r.generation(ctx, tenantID)
	if err != nil {
		r.warn("get generation", tenantID, err)
		return nil, false
	}
	data, err := r.client.Get(ctx, r.entryKey(key, gen)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		r.warn("get", tenantID, err)
		return nil, false
	}
	rules, err := decodeRules(data)
	if err != nil {
		r.warn("decode", tenantID, err)
		return nil, false
	}
	return rules, true
}

// Set stores the rules resolved for an operation.
func (r *Redis) Set(ctx context.Context, key sentinel.RuleKey, rules []sentinel.AccessRule) {
	tenantID := key.TenantID
	gen, err := r.generation(ctx, tenantID)
	if err != nil {
		r.warn("get generation", tenantID, err)
		return
	}
	data, err := encodeRules(rules)
	if err != nil {
		r.warn("encode", tenantID, err)
		return
	}
	if err := r.client.Set(ctx, r.entryKey(key, gen), data, r.ttl).Err(); err != nil {
		r.warn("set", tenantID, err)
	}
}

// InvalidateTenant makes every cached entry of a tenant unreachable.
func (r *Redis) InvalidateTenant(ctx context.Context, tenantID string) {
	if err := r.client.Incr(ctx, r.generationKey(tenantID)).Err(); err != nil {
		r.warn("invalidate", tenantID, err)
	}
}

func (r *Redis) generation(ctx context.Context, tenantID string) (int64, error) {
	gen, err := r.client.Get(ctx, r.generationKey(tenantID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (r *Redis) generationKey(tenantID string) string {
	return r.prefix + ":gen:" + tenantID
}

// entryKey quotes the app ID so app and operation values cannot run into
// each other.
func (r *Redis) entryKey(key sentinel.RuleKey, gen int64) string {
	return r.prefix + ":" + key.TenantID + ":" + strconv.FormatInt(gen, 10) + ":" +
		strconv.Quote(key.AppID) + ":" + key.Operation
}

func (r *Redis) warn(op, tenantID string, err error) {
	r.logger.Warn("sentinel: redis rule cache",
		slog.String("op", op),
		slog.String("tenant_id", tenantID),
		slog.String("error", err.Error()),
	)
}

// cachedRules distinguishes a cached "no rules" from a cached empty list.
type cachedRules struct {
	Rules []sentinel.AccessRule `json:"rules"`
}

func encodeRules(rules []sentinel.AccessRule) ([]byte, error) {
	return json.Marshal(cachedRules{Rules: rules})
}

func decodeRules(data []byte) ([]sentinel.AccessRule, error) {
	var c cachedRules
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	return c.Rules, nil
}
