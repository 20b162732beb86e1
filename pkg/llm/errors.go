package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"

	"github.com/xhad/mediassist/internal/types"
)

var statusRe = regexp.MustCompile(`(?i)status(?: code)?:?\s*(\d{3})`)

var (
	authHints    = []string{"api key", "unauthorized", "authentication", "forbidden", "permission denied"}
	contentHints = []string{"content policy", "content_filter", "safety", "flagged", "moderation", "context length"}
	rateHints    = []string{"rate limit", "too many requests", "overloaded", "unavailable", "timeout", "connection refused"}
)

// classify tags a provider error with ErrAuth, ErrContent or ErrTransient.
// Errors that cannot be attributed are treated as transient.
func classify(err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{types.ErrAuth, types.ErrContent, types.ErrTransient} {
		if errors.Is(err, known) {
			return err
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %w", types.ErrTransient, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %w", types.ErrTransient, err)
	}

	if m := statusRe.FindStringSubmatch(err.Error()); m != nil {
		code, _ := strconv.Atoi(m[1])
		switch {
		case code == 401 || code == 403:
			return fmt.Errorf("%w: %w", types.ErrAuth, err)
		case code == 429 || code >= 500:
			return fmt.Errorf("%w: %w", types.ErrTransient, err)
		case code == 400 || code == 422:
			return fmt.Errorf("%w: %w", types.ErrContent, err)
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, authHints):
		return fmt.Errorf("%w: %w", types.ErrAuth, err)
	case containsAny(msg, contentHints):
		return fmt.Errorf("%w: %w", types.ErrContent, err)
	case containsAny(msg, rateHints):
		return fmt.Errorf("%w: %w", types.ErrTransient, err)
	}

	return fmt.Errorf("%w: %w", types.ErrTransient, err)
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
