package zendesk

import (
	"errors"
	"fmt"
	"time"
)

// ErrAuthentication means the credential was rejected (HTTP 401). Fatal:
// callers must surface it to the operator and never retry silently.
var ErrAuthentication = errors.New("zendesk: authentication failed")

// ErrNotFound means the requested record does not exist.
var ErrNotFound = errors.New("zendesk: not found")

// RateLimitError is returned on HTTP 429. Callers should back off for
// RetryAfter and may skip further per-ticket calls for the cycle.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("zendesk: rate limited, retry after %s", e.RetryAfter)
}

// IsRateLimited reports whether err is a rate-limit response.
func IsRateLimited(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}
