package imageapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

type attemptKind int

const (
	kindCreated attemptKind = iota
	kindRateLimited
	kindRejected
	kindTransport
)

// attemptResult is one HTTP attempt, already classified.
type attemptResult struct {
	kind       attemptKind
	statusCode int
	imageURL   string
	// retryAfter is only meaningful when hasRetryAfter is set.
	retryAfter    time.Duration
	hasRetryAfter bool
	detail        string
}

func (r attemptResult) outcomeLabel() string {
	switch r.kind {
	case kindCreated:
		if r.imageURL == "" {
			return "missing_url"
		}
		return "created"
	case kindRateLimited:
		return "rate_limited"
	case kindTransport:
		return "transport_error"
	default:
		return "rejected"
	}
}

type action int

const (
	actionSucceed action = iota
	actionFail
	actionRetry
)

type decision struct {
	action action
	wait   time.Duration
	reason string
}

// retryState counts the retries already spent on one record.
type retryState struct {
	retries int
}

// retryPolicy decides what follows an attempt. Rate limiting and transport
// failures share one budget of maxRetries retries after the first attempt.
type retryPolicy struct {
	maxRetries int
	retryDelay time.Duration
}

func (p retryPolicy) next(state retryState, res attemptResult) (decision, retryState) {
	switch res.kind {
	case kindCreated:
		if res.imageURL == "" {
			return decision{action: actionFail, reason: "response missing imageUrl"}, state
		}
		return decision{action: actionSucceed}, state
	case kindRateLimited:
		wait := p.retryDelay
		if res.hasRetryAfter {
			wait = res.retryAfter
		}
		return p.retryOrFail(state, wait, "rate limited")
	case kindTransport:
		return p.retryOrFail(state, p.retryDelay, "request failed: "+res.detail)
	default:
		reason := fmt.Sprintf("unexpected status %d", res.statusCode)
		if res.detail != "" {
			reason += ": " + res.detail
		}
		return decision{action: actionFail, reason: reason}, state
	}
}

func (p retryPolicy) retryOrFail(state retryState, wait time.Duration, reason string) (decision, retryState) {
	if state.retries >= p.maxRetries {
		return decision{action: actionFail, reason: reason + " (retry budget exhausted)"}, state
	}
	return decision{action: actionRetry, wait: wait, reason: reason}, retryState{retries: state.retries + 1}
}

// parseRetryAfter reads a Retry-After header given in seconds or as an HTTP date.
func parseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		if secs < 0 {
			return 0, false
		}
		return time.Duration(secs * float64(time.Second)), true
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d, true
		}
		return 0, true
	}
	return 0, false
}
