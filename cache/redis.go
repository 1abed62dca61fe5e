package cache

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	once    sync.Once
	client  *redis.Client
	initErr error
)

// Client returns a singleton redis client configured from REDIS_ADDR,
// REDIS_PASSWORD and REDIS_DB. The service runs fine without redis; callers
// treat an error here as "no cache" rather than a startup failure.
func Client() (*redis.Client, error) {
	once.Do(func() {
		addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
		if addr == "" {
			addr = "localhost:6379"
		}
		db := 0
		if raw := strings.TrimSpace(os.Getenv("REDIS_DB")); raw != "" {
			if parsed, err := strconv.Atoi(raw); err == nil {
				db = parsed
			}
		}

		c := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       db,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if err := c.Ping(ctx).Err(); err != nil {
			initErr = fmt.Errorf("cache: ping redis %s: %w", addr, err)
			_ = c.Close()
			return
		}

		client = c
	})

	return client, initErr
}

// Close releases the shared connection. Mainly useful for tests.
func Close() error {
	if client == nil {
		return nil
	}
	return client.Close()
}
