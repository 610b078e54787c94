package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
)

func TestMemoryCooldown(t *testing.T) {
	ctx := context.Background()
	cooldown := NewMemoryCooldown(time.Hour)

	channel := uuid.New()
	incident := uuid.New()

	allowed, err := cooldown.Allow(ctx, channel, incident)
	if err != nil {
		t.Fatal(err)
	}
	if !allowed {
		t.Fatal("first send should be allowed")
	}

	allowed, err = cooldown.Allow(ctx, channel, incident)
	if err != nil {
		t.Fatal(err)
	}
	if allowed {
		t.Fatal("second send within the window should be blocked")
	}

	// A different pair has its own window.
	allowed, err = cooldown.Allow(ctx, channel, uuid.New())
	if err != nil {
		t.Fatal(err)
	}
	if !allowed {
		t.Fatal("different incident should be allowed")
	}
}

func TestMemoryCooldownExpiry(t *testing.T) {
	ctx := context.Background()
	cooldown := NewMemoryCooldown(10 * time.Millisecond)

	channel := uuid.New()
	incident := uuid.New()

	if allowed, _ := cooldown.Allow(ctx, channel, incident); !allowed {
		t.Fatal("first send should be allowed")
	}
	time.Sleep(20 * time.Millisecond)
	if allowed, _ := cooldown.Allow(ctx, channel, incident); !allowed {
		t.Fatal("send after the window expired should be allowed")
	}
}

func TestRedisCooldown(t *testing.T) {
	srv := miniredis.RunT(t)

	cooldown, err := NewRedisCooldown("redis://"+srv.Addr(), time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	defer cooldown.Close()

	ctx := context.Background()
	channel := uuid.New()
	incident := uuid.New()

	allowed, err := cooldown.Allow(ctx, channel, incident)
	if err != nil {
		t.Fatal(err)
	}
	if !allowed {
		t.Fatal("first send should be allowed")
	}

	allowed, err = cooldown.Allow(ctx, channel, incident)
	if err != nil {
		t.Fatal(err)
	}
	if allowed {
		t.Fatal("second send within the window should be blocked")
	}

	// TTL expiry releases the pair.
	srv.FastForward(2 * time.Hour)
	allowed, err = cooldown.Allow(ctx, channel, incident)
	if err != nil {
		t.Fatal(err)
	}
	if !allowed {
		t.Fatal("send after TTL expiry should be allowed")
	}
}

func TestNewRedisCooldownBadURL(t *testing.T) {
	if _, err := NewRedisCooldown("not a url", time.Hour); err == nil {
		t.Fatal("expected error for invalid redis url")
	}
}
