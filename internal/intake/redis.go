package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"clipturbo/internal/config"
	"clipturbo/internal/content"
)

const defaultPopTimeout = 5 * time.Second

// RedisQueue pops submissions from a Redis list.
type RedisQueue struct {
	rdb        *redis.Client
	list       string
	popTimeout time.Duration
}

// NewRedisQueue wraps an existing client.
func NewRedisQueue(rdb *redis.Client, list string) *RedisQueue {
	return &RedisQueue{rdb: rdb, list: list, popTimeout: defaultPopTimeout}
}

// NewClient builds a Redis client from the intake configuration.
func NewClient(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Intake.RedisAddr,
		Password: cfg.Intake.RedisPassword,
		DB:       cfg.Intake.RedisDB,
	})
}

// Pop blocks until an element exists or the pop timeout passes. An empty
// string with a nil error means the wait timed out.
func (q *RedisQueue) Pop(ctx context.Context) (string, error) {
	res, err := q.rdb.BRPop(ctx, q.popTimeout, q.list).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if len(res) < 2 {
		return "", nil
	}
	return res[1], nil
}

// Push enqueues a submission for a consumer to pick up.
func (q *RedisQueue) Push(ctx context.Context, sub content.Submission) error {
	if err := sub.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("encode submission: %w", err)
	}
	if err := q.rdb.LPush(ctx, q.list, data).Err(); err != nil {
		return fmt.Errorf("push submission: %w", err)
	}
	return nil
}

// Depth reports how many submissions are waiting.
func (q *RedisQueue) Depth(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, q.list).Result()
}

// Ping checks connectivity.
func (q *RedisQueue) Ping(ctx context.Context) error {
	return q.rdb.Ping(ctx).Err()
}
