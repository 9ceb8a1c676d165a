package mykv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "storefront:"

type redisKV struct {
	client *redis.Client
}

func NewRedisBacked(c context.Context, addr string, password string, db int) (KeyValuer, func(), error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(c, 5*time.Second)
	defer cancel()

	err := client.Ping(ctx).Err()
	if err != nil {
		client.Close()
		return nil, func() {}, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	return &redisKV{
			client: client,
		}, func() {
			client.Close()
		}, nil
}

func (r *redisKV) Get(c context.Context, key string) (string, bool, error) {
	value, err := r.client.Get(c, redisKeyPrefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("error fetching key %s: %w", key, err)
	}
	return value, true, nil
}

func (r *redisKV) Set(c context.Context, key string, value string) error {
	err := r.client.Set(c, redisKeyPrefix+key, value, 0).Err()
	if err != nil {
		return fmt.Errorf("error storing key %s: %w", key, err)
	}
	return nil
}
