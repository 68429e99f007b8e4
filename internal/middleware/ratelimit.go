package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

type window struct {
	count   int
	resetAt time.Time
}

// RateLimit bounds each client IP to limit requests per window. Counters are
// fixed-window and process-local; it protects the public submission endpoints
// from bursts, not from a distributed flood.
func RateLimit(limit int, per time.Duration) func(http.Handler) http.Handler {
	var (
		mu      sync.Mutex
		windows = make(map[string]*window)
	)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			now := time.Now()

			mu.Lock()
			win := windows[ip]
			if win == nil || now.After(win.resetAt) {
				win = &window{resetAt: now.Add(per)}
				windows[ip] = win
				if len(windows) > 10000 {
					for k, v := range windows {
						if now.After(v.resetAt) {
							delete(windows, k)
						}
					}
				}
			}
			win.count++
			over := win.count > limit
			mu.Unlock()

			if over {
				w.Header().Set("Retry-After", "60")
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP picks the first valid forwarded address, falling back to the
// connection's remote address.
func clientIP(r *http.Request) string {
	if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
		for _, part := range strings.Split(xf, ",") {
			if ip := strings.TrimSpace(part); net.ParseIP(ip) != nil {
				return ip
			}
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && net.ParseIP(host) != nil {
		return host
	}
	return r.RemoteAddr
}
