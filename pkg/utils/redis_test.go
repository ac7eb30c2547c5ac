package utils

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestClaimOnce_OnlyFirstCallerWins(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	ctx := context.Background()
	ok, err := ClaimOnce(ctx, rdb, "k", time.Minute)
	if err != nil || !ok {
		t.Fatalf("expected first claim to win, got ok=%v err=%v", ok, err)
	}
	ok, err = ClaimOnce(ctx, rdb, "k", time.Minute)
	if err != nil || ok {
		t.Fatalf("expected second claim to lose, got ok=%v err=%v", ok, err)
	}

	mr.FastForward(2 * time.Minute)
	ok, err = ClaimOnce(ctx, rdb, "k", time.Minute)
	if err != nil || !ok {
		t.Fatalf("expected claim after expiry to win, got ok=%v err=%v", ok, err)
	}
}

func TestClaimOnce_RejectsBadArgs(t *testing.T) {
	if _, err := ClaimOnce(context.Background(), nil, "k", time.Second); err == nil {
		t.Fatalf("expected error for nil client")
	}
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer rdb.Close()
	if _, err := ClaimOnce(context.Background(), rdb, "", time.Second); err == nil {
		t.Fatalf("expected error for empty key")
	}
	if _, err := ClaimOnce(context.Background(), rdb, "k", 0); err == nil {
		t.Fatalf("expected error for zero ttl")
	}
}
