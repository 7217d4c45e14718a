package middleware

import (
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RateLimiter provides sliding window rate limiting per client IP
type RateLimiter struct {
	redis       redis.Cmdable
	maxRequests int
	window      time.Duration
	enabled     bool
	trusted     []netip.Prefix
	logger      *log.Logger
}

// NewRateLimiter creates a new rate limiter. A disabled limiter lets every
// request through without touching Redis. X-Forwarded-For is only read when
// the peer is one of the trusted proxies.
func NewRateLimiter(client redis.Cmdable, maxRequests int, window time.Duration, enabled bool, trusted []netip.Prefix, logger *log.Logger) *RateLimiter {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &RateLimiter{
		redis:       client,
		maxRequests: maxRequests,
		window:      window,
		enabled:     enabled,
		trusted:     trusted,
		logger:      logger,
	}
}

// Limit returns a middleware that rate limits requests
func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.enabled {
			next.ServeHTTP(w, r)
			return
		}

		allowed, err := rl.checkRateLimit(r.Context(), clientIP(r, rl.trusted))
		if err != nil {
			// Redis trouble must not take the API down
			rl.logger.Printf("Rate limit check failed: %v", err)
			next.ServeHTTP(w, r)
			return
		}

		if !allowed {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", strconv.Itoa(int(rl.window.Seconds())))
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, `{"error":"Too many requests. Please try again later."}`)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientIP returns the peer address. Behind a trusted proxy it walks
// X-Forwarded-For from the right and returns the first untrusted hop.
func clientIP(r *http.Request, trusted []netip.Prefix) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	peer, err := netip.ParseAddr(host)
	if err != nil || !isTrusted(peer, trusted) {
		return host
	}

	hops := strings.Split(strings.Join(r.Header.Values("X-Forwarded-For"), ","), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		addr, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
		if err != nil {
			// a malformed hop was written by someone we do not trust
			break
		}
		if !isTrusted(addr, trusted) {
			return addr.Unmap().String()
		}
	}
	return host
}

func isTrusted(addr netip.Addr, trusted []netip.Prefix) bool {
	addr = addr.Unmap()
	for _, p := range trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// checkRateLimit records the request and reports whether it is within the limit
func (rl *RateLimiter) checkRateLimit(ctx context.Context, ip string) (bool, error) {
	key := fmt.Sprintf("ratelimit:ip:%s", ip)
	now := time.Now()
	windowStart := now.Add(-rl.window).UnixMilli()

	// Sorted set of request timestamps as a sliding window
	pipe := rl.redis.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart, 10))
	countCmd := pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(now.UnixMilli()),
		Member: uuid.NewString(),
	})
	pipe.Expire(ctx, key, rl.window)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}

	return countCmd.Val() < int64(rl.maxRequests), nil
}
