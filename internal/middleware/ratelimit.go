package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"signature-service/pkg/cache"
	"signature-service/pkg/response"
)

// RateLimit caps requests per client within a rolling window, keyed on the
// forwarded IP. It guards the public pairing endpoint, where the short code
// is the only proof and brute forcing must stay impractical within the TTL.
func RateLimit(c *cache.Cache, limit int64, window time.Duration, keyPrefix string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := r.Header.Get("X-Forwarded-For")
			if ip == "" {
				ip = r.RemoteAddr
			}
			clientID := "ip:" + strings.TrimSpace(strings.Split(ip, ",")[0])

			count, err := c.IncrWithExpire(r.Context(), "ratelimit:"+keyPrefix, clientID, window)
			if err != nil {
				// Redis trouble must not take the endpoint down.
				next.ServeHTTP(w, r)
				return
			}
			if count > limit {
				w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
				response.Error(w, http.StatusTooManyRequests, "Too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
