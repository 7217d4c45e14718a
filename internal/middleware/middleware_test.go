package middleware

import (
	"bytes"
	"context"
	"log"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_AssignsRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf, "", 0)

	var seen string
	handler := Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := GetRequestIDFromContext(r.Context())
		require.True(t, ok)
		seen = id
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/movies", nil))

	_, err := uuid.Parse(seen)
	require.NoError(t, err)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))
	assert.Contains(t, buf.String(), "GET /api/movies 418")
	assert.Contains(t, buf.String(), seen)
}

func TestLogger_KeepsIncomingRequestID(t *testing.T) {
	logger := log.New(&bytes.Buffer{}, "", 0)
	incoming := uuid.NewString()

	handler := Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, incoming)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, incoming, rec.Header().Get(RequestIDHeader))

	// anything that is not a uuid is replaced
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "<script>")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.NotEqual(t, "<script>", rec.Header().Get(RequestIDHeader))
}

func TestClientIP(t *testing.T) {
	trusted := []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")}

	tests := []struct {
		name       string
		remoteAddr string
		forwarded  string
		trusted    []netip.Prefix
		want       string
	}{
		{"peer address", "10.0.0.1:5555", "", trusted, "10.0.0.1"},
		{"no port", "10.0.0.9", "", nil, "10.0.0.9"},
		{"forwarded ignored without trusted proxies", "203.0.113.9:5555", "198.51.100.1", nil, "203.0.113.9"},
		{"forwarded ignored from untrusted peer", "203.0.113.9:5555", "198.51.100.1", trusted, "203.0.113.9"},
		{"forwarded from trusted proxy", "10.0.0.1:5555", "203.0.113.7", trusted, "203.0.113.7"},
		{"spoofed left entries skipped", "10.0.0.1:5555", "1.2.3.4, 203.0.113.7, 10.0.0.2", trusted, "203.0.113.7"},
		{"all hops trusted", "10.0.0.1:5555", "10.0.0.3, 10.0.0.2", trusted, "10.0.0.1"},
		{"malformed hop", "10.0.0.1:5555", "203.0.113.7, bogus", trusted, "10.0.0.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			assert.Equal(t, tt.want, clientIP(req, tt.trusted))
		})
	}
}

func TestRateLimiter_DisabledPassesThrough(t *testing.T) {
	rl := NewRateLimiter(nil, 1, time.Minute, false, nil, nil)
	calls := 0
	handler := rl.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { calls++ }))

	for range 5 {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	}
	assert.Equal(t, 5, calls)
}

func TestRateLimiter_Redis(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { client.Close() })

	ip := netip.MustParseAddr("2001:db8::" + uuid.NewString()[:4]).String()
	t.Cleanup(func() { client.Del(context.Background(), "ratelimit:ip:"+ip) })

	// httptest requests come from 192.0.2.1
	trusted := []netip.Prefix{netip.MustParsePrefix("192.0.2.1/32")}
	rl := NewRateLimiter(client, 2, time.Minute, true, trusted, nil)
	handler := rl.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	codes := make([]int, 0, 3)
	for range 3 {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Forwarded-For", ip)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{200, 200, 429}, codes)
}
