package flag

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// raiseScript sets KEYS[1] to ARGV[1] only when it is higher than the stored value.
var raiseScript = redis.NewScript(`
local current = tonumber(redis.call("GET", KEYS[1]) or "0")
local wanted = tonumber(ARGV[1])
if wanted > current then
	redis.call("SET", KEYS[1], wanted)
	return wanted
end
return current
`)

// RedisStore keeps one key per scope, shared by every node pointing at the same Redis.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "sqm"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (r *RedisStore) key(scope string) string {
	return fmt.Sprintf("%s:%s:queueFlag", r.prefix, scope)
}

func (r *RedisStore) Raise(ctx context.Context, scope string, severity Severity) error {
	if severity <= NothingNew {
		return nil
	}
	if err := raiseScript.Run(ctx, r.client, []string{r.key(scope)}, int(severity)).Err(); err != nil {
		return fmt.Errorf("raise queue flag: %w", err)
	}
	return nil
}

func (r *RedisStore) Peek(ctx context.Context, scope string) (Severity, error) {
	v, err := r.client.Get(ctx, r.key(scope)).Int()
	if errors.Is(err, redis.Nil) {
		return NothingNew, nil
	}
	if err != nil {
		return NothingNew, fmt.Errorf("peek queue flag: %w", err)
	}
	return Severity(v), nil
}

func (r *RedisStore) ReadAndClear(ctx context.Context, scope string) (Severity, error) {
	v, err := r.client.GetDel(ctx, r.key(scope)).Int()
	if errors.Is(err, redis.Nil) {
		return NothingNew, nil
	}
	if err != nil {
		return NothingNew, fmt.Errorf("consume queue flag: %w", err)
	}
	return Severity(v), nil
}

var _ Store = (*RedisStore)(nil)
