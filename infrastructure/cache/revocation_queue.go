package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"story-syndication/domain/model"

	"github.com/redis/go-redis/v9"
)

var ErrQueueClosed = errors.New("revocation queue closed")

// RedisRevocationQueue is a FIFO of revocation events on a Redis list. Queued
// events survive a process restart. Delivery is at most once: Dequeue removes
// the event, so a notice in flight when the process dies is lost.
type RedisRevocationQueue struct {
	client      redis.Cmdable
	key         string
	pollTimeout time.Duration
}

func NewRedisRevocationQueue(client redis.Cmdable, key string) *RedisRevocationQueue {
	return &RedisRevocationQueue{client: client, key: key, pollTimeout: 5 * time.Second}
}

func (q *RedisRevocationQueue) Enqueue(ctx context.Context, evt *model.RevocationEvent) error {
	payload, err := encodeEvent(evt)
	if err != nil {
		return err
	}
	return q.client.LPush(ctx, q.key, payload).Err()
}

// Dequeue polls with BRPOP so a cancelled ctx is noticed within pollTimeout.
func (q *RedisRevocationQueue) Dequeue(ctx context.Context) (*model.RevocationEvent, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := q.client.BRPop(ctx, q.pollTimeout, q.key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, err
		}
		// BRPOP returns [key, value]
		if len(res) != 2 {
			return nil, fmt.Errorf("unexpected BRPOP reply of length %d", len(res))
		}
		return decodeEvent([]byte(res[1]))
	}
}

func encodeEvent(evt *model.RevocationEvent) ([]byte, error) {
	if evt == nil || evt.DistributionID == "" {
		return nil, errors.New("revocation event requires a distribution id")
	}
	return json.Marshal(evt)
}

func decodeEvent(raw []byte) (*model.RevocationEvent, error) {
	evt := &model.RevocationEvent{}
	if err := json.Unmarshal(raw, evt); err != nil {
		return nil, fmt.Errorf("decode revocation event: %w", err)
	}
	return evt, nil
}

// MemoryRevocationQueue is the in-process fallback when Redis is not configured.
// Pending events are lost on restart.
type MemoryRevocationQueue struct {
	ch     chan *model.RevocationEvent
	closed chan struct{}
}

func NewMemoryRevocationQueue(size int) *MemoryRevocationQueue {
	if size <= 0 {
		size = 256
	}
	return &MemoryRevocationQueue{ch: make(chan *model.RevocationEvent, size), closed: make(chan struct{})}
}

func (q *MemoryRevocationQueue) Enqueue(ctx context.Context, evt *model.RevocationEvent) error {
	if evt == nil || evt.DistributionID == "" {
		return errors.New("revocation event requires a distribution id")
	}
	select {
	case <-q.closed:
		return ErrQueueClosed
	default:
	}
	select {
	case q.ch <- evt:
		return nil
	case <-q.closed:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *MemoryRevocationQueue) Dequeue(ctx context.Context) (*model.RevocationEvent, error) {
	select {
	case evt := <-q.ch:
		return evt, nil
	case <-q.closed:
		return nil, ErrQueueClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops accepting events. Safe to call once.
func (q *MemoryRevocationQueue) Close() {
	close(q.closed)
}

func (q *MemoryRevocationQueue) Len() int { return len(q.ch) }
