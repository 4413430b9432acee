package monitor

import (
	"strings"

	"github.com/scenicworks/renderqa/internal/events"
)

// APIErrorKind buckets API failures for the alert details payload.
type APIErrorKind string

const (
	APIErrorRateLimit     APIErrorKind = "rate_limit"
	APIErrorAuth          APIErrorKind = "auth_error"
	APIErrorQuotaExceeded APIErrorKind = "quota_exceeded"
	APIErrorUnknown       APIErrorKind = "unknown"
)

// ClassifyError maps a free-text render error message onto a failure
// category. The render pipeline does not yet attach structured error kinds,
// so this matches on substrings; all matching lives here so a structured
// scheme can replace it in one place.
func ClassifyError(message string) events.FailureCategory {
	m := strings.ToLower(message)

	switch {
	case containsAny(m, "timeout", "timed out", "deadline exceeded"):
		return events.FailureCategoryTimeout
	case containsAny(m, "rate limit", "too many requests", "429",
		"unauthorized", "forbidden", "invalid api key", "401", "403",
		"quota", "insufficient credits",
		"api error", "bad gateway", "service unavailable", "502", "503"):
		return events.FailureCategoryAPIError
	default:
		return events.FailureCategoryQuality
	}
}

// ClassifyAPIError buckets an API failure message. Only meaningful for
// messages already classified as api_error.
func ClassifyAPIError(message string) APIErrorKind {
	m := strings.ToLower(message)

	switch {
	case containsAny(m, "rate limit", "too many requests", "429"):
		return APIErrorRateLimit
	case containsAny(m, "unauthorized", "forbidden", "invalid api key", "401", "403"):
		return APIErrorAuth
	case containsAny(m, "quota", "insufficient credits"):
		return APIErrorQuotaExceeded
	default:
		return APIErrorUnknown
	}
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
