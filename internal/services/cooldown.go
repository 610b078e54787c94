package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Cooldown rate-limits notifications per (channel, incident) pair so a
// noisy incident does not spam a channel.
type Cooldown interface {
	// Allow reports whether a notification may be sent now. A true result
	// starts the cooldown window for the pair.
	Allow(ctx context.Context, channelID, incidentID uuid.UUID) (bool, error)
}

// RedisCooldown shares the cooldown state across instances using SET NX
// with a TTL.
type RedisCooldown struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCooldown(redisURL string, ttl time.Duration) (*RedisCooldown, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	return &RedisCooldown{client: redis.NewClient(opts), ttl: ttl}, nil
}

func (c *RedisCooldown) Allow(ctx context.Context, channelID, incidentID uuid.UUID) (bool, error) {
	key := fmt.Sprintf("solace:cooldown:%s:%s", channelID, incidentID)
	return c.client.SetNX(ctx, key, 1, c.ttl).Result()
}

func (c *RedisCooldown) Close() error {
	return c.client.Close()
}

// MemoryCooldown is the single-instance fallback when Redis is not
// configured.
type MemoryCooldown struct {
	mu       sync.Mutex
	ttl      time.Duration
	lastSent map[string]time.Time
}

func NewMemoryCooldown(ttl time.Duration) *MemoryCooldown {
	return &MemoryCooldown{ttl: ttl, lastSent: map[string]time.Time{}}
}

func (c *MemoryCooldown) Allow(_ context.Context, channelID, incidentID uuid.UUID) (bool, error) {
	key := channelID.String() + ":" + incidentID.String()
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()
	if last, ok := c.lastSent[key]; ok && now.Sub(last) < c.ttl {
		return false, nil
	}
	c.lastSent[key] = now
	return true, nil
}
