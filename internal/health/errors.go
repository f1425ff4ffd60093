package health

import (
	"net/http"
	"strings"
	"time"
)

// IsQuotaError detects if a response is related to quota exhaustion or rate limiting
func IsQuotaError(statusCode int, responseBody string) bool {
	if statusCode == http.StatusTooManyRequests {
		return true
	}

	lowerBody := strings.ToLower(responseBody)
	quotaPatterns := []string{
		"quota exceeded",
		"rate limit",
		"too many requests",
		"daily limit",
		"post limit",
		"comment limit",
		"slow down",
		"rate_limit_exceeded",
		"quota_exceeded",
	}

	for _, pattern := range quotaPatterns {
		if strings.Contains(lowerBody, pattern) {
			return true
		}
	}

	return false
}

// ParseCooldownDuration determines the appropriate cooldown based on the error type
func ParseCooldownDuration(statusCode int, responseBody string) time.Duration {
	lowerBody := strings.ToLower(responseBody)

	// Daily caps on the server side - sit out the rest of the day
	if strings.Contains(lowerBody, "daily limit") ||
		strings.Contains(lowerBody, "post limit") ||
		strings.Contains(lowerBody, "comment limit") {
		return 24 * time.Hour
	}

	// Plain rate limiting - short cooldown
	if statusCode == http.StatusTooManyRequests ||
		strings.Contains(lowerBody, "slow down") ||
		strings.Contains(lowerBody, "rate limit") {
		return 5 * time.Minute
	}

	// Default cooldown
	return 1 * time.Hour
}
