package handler

import (
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/museum-staffing/shift-manager/backend/internal/cache"
)

// Rate limit scopes. Each has its own counter per caller.
const (
	scopeLogin       = "login"
	scopeAssign      = "assign"
	scopeCancel      = "cancel"
	scopeBulkCancel  = "bulk_cancel"
	scopeSwapRequest = "swap_request"
	scopeAcceptSwap  = "accept_swap"
)

type rateLimit struct {
	limit  int
	window time.Duration
}

func (h *Handler) rateLimits() map[string]rateLimit {
	rl := h.config.RateLimit
	sec := func(n int) time.Duration { return time.Duration(n) * time.Second }
	return map[string]rateLimit{
		scopeLogin:       {rl.Login, sec(rl.LoginWindow)},
		scopeAssign:      {rl.Assign, sec(rl.AssignWindow)},
		scopeCancel:      {rl.Cancel, sec(rl.CancelWindow)},
		scopeBulkCancel:  {rl.BulkCancel, sec(rl.BulkCancelWindow)},
		scopeSwapRequest: {rl.SwapRequest, sec(rl.SwapRequestWindow)},
		scopeAcceptSwap:  {rl.AcceptSwap, sec(rl.AcceptSwapWindow)},
	}
}

// rateSubject keys the counter by the authenticated user, falling back to the
// client address for anonymous requests.
func rateSubject(r *http.Request) string {
	if me := currentUser(r.Context()); me != nil {
		return "user:" + strconv.FormatInt(me.ID, 10)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

// throttle rejects a caller with 429 once it used up the scope's budget for
// the current window. Cache failures let the request through.
func (h *Handler) throttle(scope string) func(http.Handler) http.Handler {
	limit := h.rateLimits()[scope]

	return func(next http.Handler) http.Handler {
		if !h.config.RateLimit.Enabled || limit.limit <= 0 || limit.window <= 0 || h.cache == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			n, left, err := h.cache.Incr(r.Context(), cache.RateLimitKey(scope, rateSubject(r)), limit.window)
			if err != nil {
				slog.Warn("rate limit counter unavailable", "scope", scope, "error", err)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit.limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(max(int64(limit.limit)-n, 0), 10))

			if n > int64(limit.limit) {
				retry := int(math.Ceil(left.Seconds()))
				w.Header().Set("Retry-After", strconv.Itoa(max(retry, 1)))
				slog.Warn("rate limit exceeded", "scope", scope, "subject", rateSubject(r), "count", n)
				h.errorResponse(w, r, http.StatusTooManyRequests, fmt.Sprintf("request was throttled, expected available in %d seconds", max(retry, 1)))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
