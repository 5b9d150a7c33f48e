package middleware

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"
)

// ThrottleConfig holds configuration for the credential throttle.
type ThrottleConfig struct {
	Logger        *slog.Logger
	RatePerMinute int
	Burst         int
	Check         CheckFunc
}

// CheckFunc performs the rate limit check for an IP. allowed=false means
// the attempt is rejected; retryAfter hints when to try again.
type CheckFunc func(r *http.Request, ip string, ratePerMinute, burst int) (allowed bool, retryAfter time.Duration, err error)

// ThrottleLogin returns middleware that limits credential attempts per
// client IP. It fails open when the limiter backend errors.
func ThrottleLogin(cfg ThrottleConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.RatePerMinute <= 0 || cfg.Check == nil {
				next.ServeHTTP(w, r)
				return
			}

			ip := clientIP(r)
			allowed, retryAfter, err := cfg.Check(r, ip, cfg.RatePerMinute, cfg.Burst)
			if err != nil {
				cfg.Logger.Error("login throttle check failed",
					slog.String("error", err.Error()),
					slog.String("ip", ip),
				)
				next.ServeHTTP(w, r)
				return
			}

			if !allowed {
				cfg.Logger.Warn("login throttled",
					slog.String("ip", ip),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.Int64("retry_after_seconds", int64(retryAfter.Seconds())),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				msg := fmt.Sprintf(`{"error":{"code":"RATE_LIMITED","message":"Too many attempts. Retry after %d seconds."}}`,
					int(retryAfter.Seconds()))
				_, _ = w.Write([]byte(msg))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP extracts the client IP, stripping any port from RemoteAddr.
// chi's RealIP middleware has already resolved forwarding headers.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
