package sharedhash

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Redis backs SharedHash with a native Redis hash: one HSET per hash name,
// one field per identifier.
type Redis struct {
	client *redis.Client
}

// NewRedis wraps an existing *redis.Client.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// DialRedis connects to addr and pings it, returning an error if the
// server is unreachable.
func DialRedis(ctx context.Context, addr string) (*Redis, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return NewRedis(client), nil
}

func (r *Redis) GetField(ctx context.Context, hashName, field string) (string, bool, error) {
	v, err := r.client.HGet(ctx, hashName, field).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (r *Redis) SetField(ctx context.Context, hashName, field, value string) error {
	return r.client.HSet(ctx, hashName, field, value).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}
