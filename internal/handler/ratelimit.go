package handler

import (
	"database/sql"
	"sync"
	"time"

	"github.com/balkarbucket/backend/internal/service"
	"github.com/balkarbucket/backend/pkg/response"
	"github.com/gofiber/fiber/v2"
)

// RateLimiter enforces per-API-key request limits with counters stored in
// the shared database, so limits survive restarts and hold across replicas
// that share the DB. When the database is unavailable it falls back to an
// in-memory window so requests are not waved through unlimited.
type RateLimiter struct {
	db       *sql.DB
	requests map[string]*clientInfo
	mu       sync.Mutex
	stopCh   chan struct{}
	stopOnce sync.Once
}

type clientInfo struct {
	count     int
	windowEnd time.Time
}

func NewRateLimiter(db *sql.DB) *RateLimiter {
	rl := &RateLimiter{
		db:       db,
		requests: make(map[string]*clientInfo),
		stopCh:   make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

// Middleware reads the limit configuration off the authenticated key.
// Keys without rate limiting enabled pass through untouched, as do user
// sessions.
func (rl *RateLimiter) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal := CurrentPrincipal(c)
		if principal == nil || principal.Kind != service.PrincipalAPIKey {
			return c.Next()
		}
		key := principal.APIKey
		if !key.RateLimitEnabled || key.RateLimitMax <= 0 {
			return c.Next()
		}

		window := time.Duration(key.RateLimitWindow) * time.Millisecond
		now := time.Now()

		allowed, err := rl.allowPersistent("apikey:"+key.ID, key.RateLimitMax, window, now)
		if err != nil {
			allowed = rl.allowInMemory("apikey:"+key.ID, key.RateLimitMax, window, now)
		}
		if !allowed {
			return response.TooManyRequests(c, "rate limit exceeded, please slow down")
		}
		return c.Next()
	}
}

func (rl *RateLimiter) allowPersistent(scopedKey string, limit int, window time.Duration, now time.Time) (bool, error) {
	windowEnd := now.Add(window)

	_, err := rl.db.Exec(`
		INSERT INTO rate_limit_counters (scope_key, count, window_end, updated_at)
		VALUES (?, 1, ?, ?)
		ON CONFLICT(scope_key) DO UPDATE SET
			count = CASE
				WHEN rate_limit_counters.window_end <= excluded.updated_at THEN 1
				ELSE rate_limit_counters.count + 1
			END,
			window_end = CASE
				WHEN rate_limit_counters.window_end <= excluded.updated_at THEN excluded.window_end
				ELSE rate_limit_counters.window_end
			END,
			updated_at = excluded.updated_at
	`, scopedKey, windowEnd, now)
	if err != nil {
		return false, err
	}

	var count int
	if err := rl.db.QueryRow(`SELECT count FROM rate_limit_counters WHERE scope_key = ?`, scopedKey).Scan(&count); err != nil {
		return false, err
	}
	return count <= limit, nil
}

func (rl *RateLimiter) allowInMemory(key string, limit int, window time.Duration, now time.Time) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	info, exists := rl.requests[key]
	if !exists || now.After(info.windowEnd) {
		rl.requests[key] = &clientInfo{count: 1, windowEnd: now.Add(window)}
		return true
	}
	if info.count >= limit {
		return false
	}
	info.count++
	return true
}

// cleanup periodically removes expired entries
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := time.Now()
			rl.mu.Lock()
			for key, info := range rl.requests {
				if now.After(info.windowEnd) {
					delete(rl.requests, key)
				}
			}
			rl.mu.Unlock()
			if rl.db != nil {
				_, _ = rl.db.Exec(`DELETE FROM rate_limit_counters WHERE window_end <= ?`, now)
			}
		case <-rl.stopCh:
			return
		}
	}
}

// Stop gracefully stops the cleanup goroutine
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stopCh)
	})
}
