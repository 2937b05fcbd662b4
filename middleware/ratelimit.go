package middleware

import (
	"encoding/json"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimit 以 Redis 計數器限制每個 IP 每秒的請求次數
// client 為 nil 時（未配置 Redis）直接放行
func RateLimit(client *redis.Client, maxRequests int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if client == nil {
				next.ServeHTTP(w, r)
				return
			}

			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}
			key := "ratelimit:" + ip

			count, err := client.Get(r.Context(), key).Int()
			if err != nil && err != redis.Nil {
				// Redis 故障時放行，速率限制只是保護措施不是功能
				log.Printf("Rate limit check failed for %s: %v", ip, err)
				next.ServeHTTP(w, r)
				return
			}

			if count >= maxRequests {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]interface{}{
					"success": false,
					"message": "Too many requests",
				})
				return
			}

			pipe := client.Pipeline()
			pipe.Incr(r.Context(), key)
			pipe.Expire(r.Context(), key, time.Second)
			if _, err := pipe.Exec(r.Context()); err != nil {
				log.Printf("Rate limit update failed for %s: %v", ip, err)
			}

			next.ServeHTTP(w, r)
		})
	}
}
