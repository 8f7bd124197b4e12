package authapi

import (
	"net/http"
	"strconv"
	"time"

	"careerquest/cmd/internal/auth/ratelimit"
)

func writeRateLimited(w http.ResponseWriter, d ratelimit.Decision, now time.Time) {
	retryAfter := d.RetryAfter(now)
	if retryAfter > 0 {
		w.Header().Set("Retry-After", strconv.FormatInt(int64(retryAfter/time.Second), 10))
	}
	resp := errorResponse{
		Code:    "RATE_LIMITED",
		Message: "too many failed login attempts, try again later",
	}
	if !d.UnlockAt.IsZero() {
		unlock := d.UnlockAt.UTC()
		resp.UnlockTime = &unlock
	}
	writeJSON(w, http.StatusTooManyRequests, resp)
}
