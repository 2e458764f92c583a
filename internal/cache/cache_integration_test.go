package cache

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/mohammad-safakhou/deepsearch/config"
)

func startRedis(t *testing.T, ctx context.Context) (testcontainers.Container, config.RedisConfig) {
	t.Helper()
	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
	}
	rc, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Fatalf("failed to start redis: %v", err)
	}
	port, err := rc.MappedPort(ctx, "6379")
	if err != nil {
		_ = rc.Terminate(ctx)
		t.Fatalf("failed to get mapped port: %v", err)
	}
	host, err := rc.Host(ctx)
	if err != nil {
		_ = rc.Terminate(ctx)
		t.Fatalf("failed to get host: %v", err)
	}
	return rc, config.RedisConfig{Host: host, Port: port.Port(), Timeout: 5 * time.Second}
}

func TestRedisCacheRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()
	rc, cfg := startRedis(t, ctx)
	defer func() { _ = rc.Terminate(ctx) }()

	c, err := NewRedisCache(ctx, cfg)
	if err != nil {
		t.Fatalf("NewRedisCache: %v", err)
	}
	defer c.Close()

	key := SummaryKey("https://example.com/a", "test query", ContextHash("User: hi"))
	if _, ok, err := c.Get(ctx, key); err != nil || ok {
		t.Fatalf("expected clean miss, ok=%v err=%v", ok, err)
	}
	if err := c.Set(ctx, key, "a summary", time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	val, ok, err := c.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok || val != "a summary" {
		t.Fatalf("expected hit with stored value, got ok=%v val=%q", ok, val)
	}
}
