package room

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"
)

type KeyFunc func(r *http.Request) string

// DefaultKeyFunc identifica o cliente por header, X-Forwarded-For (se confiável)
// ou RemoteAddr, nessa ordem.
func DefaultKeyFunc(keyHeader string, trustXFF bool) KeyFunc {
	return func(r *http.Request) string {
		if keyHeader != "" {
			if v := strings.TrimSpace(r.Header.Get(keyHeader)); v != "" {
				return v
			}
		}

		if trustXFF {
			// pega o primeiro IP do X-Forwarded-For (cliente original)
			if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
				ip, _, _ := strings.Cut(xff, ",")
				if ip = strings.TrimSpace(ip); ip != "" {
					return ip
				}
			}
		}

		host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
		if err == nil && host != "" {
			return host
		}
		if r.RemoteAddr != "" {
			return r.RemoteAddr
		}
		return "unknown"
	}
}

// Limiter decide se a chave ainda tem crédito (ex: infra.LimiterStore).
type Limiter interface {
	Allow(key string) bool
}

type ThrottleOptions struct {
	Limiter    Limiter
	KeyFn      KeyFunc
	RetryAfter time.Duration
}

// Throttle segura rajadas por cliente (usado na criação de salas).
// Bloqueado: 429 com Retry-After em segundos.
func Throttle(opts ThrottleOptions) func(next http.Handler) http.Handler {
	if opts.Limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	if opts.RetryAfter <= 0 {
		opts.RetryAfter = 1 * time.Second
	}
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc("", false)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !opts.Limiter.Allow(opts.KeyFn(r)) {
				w.Header().Set("Retry-After", formatInt(int(opts.RetryAfter.Seconds())))
				writeError(w, http.StatusTooManyRequests, "too many rooms created, try again later")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func withTimeout(r *http.Request, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), d)
}
