package cache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestOpenRedis_SelectsDBWithShortTimeouts(t *testing.T) {
	s := miniredis.RunT(t)

	c, err := OpenRedis(s.Addr(), 2)
	if err != nil {
		t.Fatalf("OpenRedis: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	opts := c.Options()
	if opts.DB != 2 {
		t.Fatalf("client DB = %d, want 2", opts.DB)
	}
	if opts.DialTimeout > 2*time.Second || opts.ReadTimeout > time.Second {
		t.Fatalf("timeouts too long for an optional cache: dial=%v read=%v", opts.DialTimeout, opts.ReadTimeout)
	}

	// idempotency records are written with a TTL
	ctx := context.Background()
	if err := c.Set(ctx, "idemp:k", "v", time.Minute).Err(); err != nil {
		t.Fatalf("SET: %v", err)
	}
	if ttl := s.DB(2).TTL("idemp:k"); ttl != time.Minute {
		t.Fatalf("ttl in db 2 = %v, want 1m", ttl)
	}
}

func TestOpenRedis_ServerGone(t *testing.T) {
	s := miniredis.RunT(t)
	addr := s.Addr()
	s.Close()

	_, err := OpenRedis(addr, 0)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), addr) {
		t.Fatalf("error should name the address: %v", err)
	}
}
