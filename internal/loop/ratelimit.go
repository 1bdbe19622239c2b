package loop

import (
	"strings"
	"time"
)

// DefaultBackoff is the cooldown window applied after a detected rate-limit
// error.
const DefaultBackoff = 5 * time.Minute

// Guard tracks the process-wide rate-limit cooldown. It is owned by the
// daemon instance and shared by pointer, so daemons in tests never interfere
// with each other. All access happens on the single loop goroutine.
type Guard struct {
	// Clock is injectable for tests; defaults to time.Now.
	Clock func() time.Time

	cooldownUntil time.Time
}

// NewGuard returns a Guard using the real clock.
func NewGuard() *Guard {
	return &Guard{Clock: time.Now}
}

func (g *Guard) now() time.Time {
	if g.Clock != nil {
		return g.Clock()
	}
	return time.Now()
}

// IsRateLimited reports whether the cooldown window is still open.
func (g *Guard) IsRateLimited() bool {
	return g.now().Before(g.cooldownUntil)
}

// Remaining returns how much of the cooldown window is left.
func (g *Guard) Remaining() time.Duration {
	d := g.cooldownUntil.Sub(g.now())
	if d < 0 {
		return 0
	}
	return d
}

// Trip opens a cooldown window of the given length.
func (g *Guard) Trip(backoff time.Duration) {
	g.cooldownUntil = g.now().Add(backoff)
}

// rateLimitIndicators are matched case-insensitively against error text.
var rateLimitIndicators = []string{
	"rate limit",
	"rate_limit",
	"ratelimit",
	"too many requests",
	"429",
	"overloaded",
	"capacity",
}

// IsRateLimitError reports whether err looks like a provider rate limit or
// overload, which is transient and must not fail the request.
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, ind := range rateLimitIndicators {
		if strings.Contains(msg, ind) {
			return true
		}
	}
	return false
}

// Category is a user-facing error classification. It only changes the
// recorded message text, never control flow.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryCredentials
	CategoryAuth
	CategoryCLI
)

// Classify buckets an execution error for message friendliness.
func Classify(err error) Category {
	if err == nil {
		return CategoryUnknown
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "credit balance"),
		strings.Contains(msg, "billing"),
		strings.Contains(msg, "api key"),
		strings.Contains(msg, "x-api-key"):
		return CategoryCredentials
	case strings.Contains(msg, "authentication"),
		strings.Contains(msg, "unauthorized"),
		strings.Contains(msg, "401"),
		strings.Contains(msg, "please run /login"):
		return CategoryAuth
	case strings.Contains(msg, "executable file not found"),
		strings.Contains(msg, "exit status"),
		strings.Contains(msg, "signal:"):
		return CategoryCLI
	default:
		return CategoryUnknown
	}
}

// FriendlyMessage renders a classified error for the request's error column.
func FriendlyMessage(cat Category, phase string, err error) string {
	switch cat {
	case CategoryCredentials:
		return "missing credentials or insufficient billing balance in " + phase + " phase: " + err.Error()
	case CategoryAuth:
		return "authentication failed in " + phase + " phase: " + err.Error()
	case CategoryCLI:
		return "agent CLI failure in " + phase + " phase: " + err.Error()
	default:
		return "error in " + phase + " phase: " + err.Error()
	}
}
