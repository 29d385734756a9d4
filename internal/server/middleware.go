package server

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type ctxKey int

const ctxKeyAdmin ctxKey = iota

const (
	roleAdmin = "admin"
	roleStaff = "staff"
)

const adminCookieName = "admin_session"

// adminAuthMiddleware requires a valid admin session whose role is one of
// roles. Admins always pass a staff check; staff never pass an admin check.
func adminAuthMiddleware(store Store, roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(adminCookieName)
			if err != nil || cookie.Value == "" {
				writeError(w, http.StatusUnauthorized, "not authenticated")
				return
			}

			sess, err := store.AdminFromSession(r.Context(), cookie.Value)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "not authenticated")
				return
			}

			if !allowed[sess.Role] {
				writeError(w, http.StatusForbidden, "insufficient role")
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyAdmin, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func adminFrom(r *http.Request) adminSession {
	return r.Context().Value(ctxKeyAdmin).(adminSession)
}

// rateLimitMiddleware applies a per-IP token bucket to the public check-in
// endpoints. Entries idle for an hour are evicted on the next lookup sweep.
func rateLimitMiddleware(rps float64, burst int) func(http.Handler) http.Handler {
	type entry struct {
		lim  *rate.Limiter
		seen time.Time
	}

	var mu sync.Mutex
	limiters := make(map[string]*entry)

	lookup := func(ip string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()

		if len(limiters) > 1000 {
			cutoff := time.Now().Add(-time.Hour)
			for k, e := range limiters {
				if e.seen.Before(cutoff) {
					delete(limiters, k)
				}
			}
		}

		e, ok := limiters[ip]
		if !ok {
			e = &entry{lim: rate.NewLimiter(rate.Limit(rps), burst)}
			limiters[ip] = e
		}
		e.seen = time.Now()
		return e.lim
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}
			if !lookup(ip).Allow() {
				writeError(w, http.StatusTooManyRequests, "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
