package service

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// queue is a minimal redis-list work queue. Producers LPUSH run IDs, workers
// BRPOP them, mirroring the original deployment's queue semantics.
type queue struct {
	client *redis.Client
	key    string
}

func newQueue(client *redis.Client, key string) *queue {
	return &queue{client: client, key: key}
}

func (q *queue) Enqueue(ctx context.Context, runID string) error {
	return q.client.LPush(ctx, q.key, runID).Err()
}

// Dequeue blocks up to timeout. Returns ("", nil) on timeout.
func (q *queue) Dequeue(ctx context.Context, timeout time.Duration) (string, error) {
	res, err := q.client.BRPop(ctx, timeout, q.key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil
		}
		return "", err
	}
	// BRPOP returns [key, value].
	if len(res) != 2 {
		return "", nil
	}
	return res[1], nil
}
