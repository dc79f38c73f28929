package utils

import (
	"context"
	"testing"
	"time"
)

func TestPostgresPoolDefaults(t *testing.T) {
	cfg := PostgresPoolConfig{}.withDefaults()
	if cfg.MaxOpenConns != 25 || cfg.MaxIdleConns != 25 {
		t.Fatalf("unexpected pool defaults: %+v", cfg)
	}
	if cfg.PingTimeout != 5*time.Second {
		t.Fatalf("unexpected ping timeout: %v", cfg.PingTimeout)
	}

	// Explicit values survive.
	cfg = PostgresPoolConfig{MaxOpenConns: 3}.withDefaults()
	if cfg.MaxOpenConns != 3 {
		t.Fatalf("explicit value overridden: %+v", cfg)
	}
}

func TestRedisDefaults(t *testing.T) {
	cfg := RedisConfig{Addr: "localhost:6379"}.withDefaults()
	if cfg.DialTimeout != 3*time.Second || cfg.PoolSize != 20 {
		t.Fatalf("unexpected redis defaults: %+v", cfg)
	}
}

func TestOpenRedisRequiresAddr(t *testing.T) {
	if _, err := OpenRedis(context.Background(), RedisConfig{}); err == nil {
		t.Fatalf("expected error for missing addr")
	}
}

func TestSlotHelpersValidateArgs(t *testing.T) {
	ctx := context.Background()
	if _, err := AcquireConcurrencyCap(ctx, nil, "k", 1, time.Second); err == nil {
		t.Fatalf("expected error for nil client")
	}
	if err := ReleaseConcurrencyCap(ctx, nil, "k"); err == nil {
		t.Fatalf("expected error for nil client")
	}
}
