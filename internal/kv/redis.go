package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "wedding:"

	maxUpdateAttempts = 10
)

// Redis is a Store backed by Redis strings. A zero ttl keeps values forever.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis creates a Redis-backed store.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := r.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	return v, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, keyPrefix+key, value, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Update runs fn inside WATCH/MULTI and retries when another client changed key first.
func (r *Redis) Update(ctx context.Context, key string, fn UpdateFunc) error {
	k := keyPrefix + key
	txf := func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, k).Bytes()
		ok := true
		if errors.Is(err, redis.Nil) {
			ok = false
		} else if err != nil {
			return fmt.Errorf("redis get: %w", err)
		}
		next, err := fn(cur, ok)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, k, next, r.ttl)
			return nil
		})
		return err
	}
	for i := 0; i < maxUpdateAttempts; i++ {
		err := r.client.Watch(ctx, txf, k)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return fmt.Errorf("redis update: %w", err)
		}
		return nil
	}
	return fmt.Errorf("redis update %s: %w", key, redis.TxFailedErr)
}
