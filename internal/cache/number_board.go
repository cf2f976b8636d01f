package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"raffle-service/internal/model"

	"github.com/redis/go-redis/v9"
)

// NumberBoardCache keeps the public number-board snapshot in Redis for the
// polling raffle page. Entries live only a few seconds: the reserve path
// always checks the pool itself, so brief staleness here is harmless.
type NumberBoardCache interface {
	// Get returns nil without error on a cache miss.
	Get(ctx context.Context, raffleID int) (*model.NumberSnapshot, error)
	Set(ctx context.Context, raffleID int, snapshot *model.NumberSnapshot) error
}

type RedisNumberBoardCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisNumberBoardCache(client *redis.Client, ttl time.Duration) *RedisNumberBoardCache {
	return &RedisNumberBoardCache{
		client: client,
		ttl:    ttl,
	}
}

// 看板 key
func (c *RedisNumberBoardCache) getBoardKey(raffleID int) string {
	return fmt.Sprintf("raffle:%d:board", raffleID)
}

func (c *RedisNumberBoardCache) Get(ctx context.Context, raffleID int) (*model.NumberSnapshot, error) {
	key := c.getBoardKey(raffleID)

	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var snapshot model.NumberSnapshot
	if err := json.Unmarshal([]byte(val), &snapshot); err != nil {
		return nil, fmt.Errorf("invalid board payload: %w", err)
	}

	return &snapshot, nil
}

func (c *RedisNumberBoardCache) Set(ctx context.Context, raffleID int, snapshot *model.NumberSnapshot) error {
	key := c.getBoardKey(raffleID)

	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal board: %w", err)
	}

	return c.client.Set(ctx, key, payload, c.ttl).Err()
}
