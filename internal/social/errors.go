package social

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Operation names the kind of API call that produced an error.
type Operation string

const (
	OpRead   Operation = "read"
	OpWrite  Operation = "write"
	OpLookup Operation = "lookup"
)

// RateLimitError reports an HTTP 429 from the X API. Reset is zero when the
// response carried no usable reset header.
type RateLimitError struct {
	Op     Operation
	Status int
	Reset  time.Time
	Err    error
}

func (e *RateLimitError) Error() string {
	if !e.Reset.IsZero() {
		return fmt.Sprintf("%s rate limited: %v (resets at %s)", e.Op, e.Err, e.Reset.UTC().Format(time.RFC3339))
	}
	return fmt.Sprintf("%s rate limited: %v", e.Op, e.Err)
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}

// Outcome is the classification of an API call result.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeRateLimited
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeRateLimited:
		return "rate_limited"
	default:
		return "failed"
	}
}

// Classify maps an error returned by the client onto an Outcome.
func Classify(err error) Outcome {
	if err == nil {
		return OutcomeOK
	}
	if IsRateLimited(err) {
		return OutcomeRateLimited
	}
	return OutcomeFailed
}

// IsRateLimited checks whether err wraps a RateLimitError.
func IsRateLimited(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}

// ResetHint extracts the reset time from a rate limit error, if any.
func ResetHint(err error) (time.Time, bool) {
	var rl *RateLimitError
	if errors.As(err, &rl) && !rl.Reset.IsZero() {
		return rl.Reset, true
	}
	return time.Time{}, false
}

// newRateLimitError builds a RateLimitError from a 429 response. When the
// 24h user cap is exhausted its reset wins over the per-window reset.
func newRateLimitError(op Operation, resp *http.Response, body []byte) *RateLimitError {
	rl := &RateLimitError{
		Op:     op,
		Status: resp.StatusCode,
		Err:    fmt.Errorf("twitter API error: %d - %s", resp.StatusCode, string(body)),
	}

	headers := []string{"x-rate-limit-reset", "x-user-limit-24hour-reset"}
	if resp.Header.Get("x-user-limit-24hour-remaining") == "0" {
		headers = []string{"x-user-limit-24hour-reset", "x-rate-limit-reset"}
	}
	for _, header := range headers {
		if reset, ok := parseEpochHeader(resp.Header.Get(header)); ok {
			rl.Reset = reset
			break
		}
	}
	return rl
}

func parseEpochHeader(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	secs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || secs <= 0 {
		return time.Time{}, false
	}
	return time.Unix(secs, 0), true
}
