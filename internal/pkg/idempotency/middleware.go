// internal/pkg/idempotency/middleware.go
package idempotency

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"stockledger/internal/pkg/logger"
)

// Store 基于 Redis SETNX 的重复请求探测。
// 尽力而为：Redis 故障时探测直接放行（记日志），
// 不提供任何恰好一次的投递保证。
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

// Seen 返回该幂等键是否已被占用。
func (s *Store) Seen(ctx context.Context, key string) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, "idem:"+key, "1", s.ttl).Result()
	if err != nil {
		return false, err
	}
	return !ok, nil
}

// Middleware 拦截带 Idempotency-Key 头的写请求，重复的键返回 409。
func (s *Store) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch:
		default:
			next.ServeHTTP(w, r)
			return
		}

		key := r.Header.Get("Idempotency-Key")
		if key == "" {
			next.ServeHTTP(w, r)
			return
		}

		seen, err := s.Seen(r.Context(), key)
		if err != nil {
			logger.Ctx(r.Context()).Warn().Err(err).Msg("idempotency check degraded, passing request through")
			next.ServeHTTP(w, r)
			return
		}
		if seen {
			http.Error(w, "duplicate request", http.StatusConflict)
			return
		}
		next.ServeHTTP(w, r)
	})
}
