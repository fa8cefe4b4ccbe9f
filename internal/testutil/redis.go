package testutil

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisCandidates lists addresses tried when TEST_REDIS_ADDR is unset:
// the CI service name first, then the local docker-compose test port.
var redisCandidates = []string{"redis:6379", "localhost:6379", "localhost:56379"}

// SetupTestRedis returns a client on a flushed test DB. Concurrent packages
// reserve distinct DB indexes through a lock key in DB 0.
func SetupTestRedis(t TestingTB) *redis.Client {
	t.Helper()

	addr, ok := findRedis(t)
	if !ok {
		skipOrFail(t, requireRedis(), "Redis not available for testing")
	}

	client := redis.NewClient(&redis.Options{Addr: addr, DB: reserveRedisDB(t, addr)})
	t.Cleanup(func() { closeAndLog(t, "redis client", client) })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.FlushDB(ctx).Err(); err != nil {
		skipOrFail(t, requireRedis(), "Redis not usable for testing:", err)
	}
	return client
}

func findRedis(t TestingTB) (string, bool) {
	candidates := redisCandidates
	if addr := os.Getenv("TEST_REDIS_ADDR"); addr != "" {
		candidates = []string{addr}
	}
	for _, addr := range candidates {
		if pingRedis(addr) == nil {
			return addr, true
		}
		t.Logf("Redis not available at %s", addr)
	}
	return "", false
}

func pingRedis(addr string) error {
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return client.Ping(ctx).Err()
}

func reserveRedisDB(t TestingTB, addr string) int {
	if v := os.Getenv("TEST_REDIS_DB"); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i >= 0 {
			return i
		}
	}

	meta := redis.NewClient(&redis.Options{Addr: addr, DB: 0})
	for i := 1; i <= 15; i++ {
		key := fmt.Sprintf("docqueue:testutil:db_lock:%d", i)
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		ok, err := meta.SetNX(ctx, key, os.Getpid(), 30*time.Minute).Result()
		cancel()
		if err != nil || !ok {
			continue
		}
		t.Cleanup(func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := meta.Del(ctx, key).Err(); err != nil {
				t.Logf("warning: failed to release redis db lock %s: %v", key, err)
			}
			closeAndLog(t, "redis meta client", meta)
		})
		return i
	}
	closeAndLog(t, "redis meta client", meta)
	return 1
}
