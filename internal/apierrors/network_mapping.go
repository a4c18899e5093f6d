package apierrors

import (
	"net/http"
	"strings"
)

// MapNetworkError maps a transport-level error (dial failure, timeout,
// context cancellation) into a standardized *APIError.
func MapNetworkError(err error) *APIError {
	if err == nil {
		return New(http.StatusInternalServerError, "unknown_error", "server_error", "unknown network error")
	}
	errMsg := err.Error()
	msg := "Network error: " + errMsg

	switch {
	case strings.Contains(errMsg, "timeout") || strings.Contains(errMsg, "deadline exceeded"):
		return New(http.StatusGatewayTimeout, "timeout", "timeout_error", "Request timeout: "+errMsg).
			WithKind(KindTimeout).WithRetryable(true)
	case strings.Contains(errMsg, "connection refused"):
		return New(http.StatusServiceUnavailable, "connection_error", "server_error", msg).WithRetryable(true)
	case strings.Contains(errMsg, "no such host") || strings.Contains(errMsg, "dns"):
		return New(http.StatusServiceUnavailable, "dns_error", "server_error", msg).WithRetryable(true)
	case strings.Contains(errMsg, "context canceled"):
		return New(http.StatusRequestTimeout, "request_canceled", "timeout_error", msg)
	default:
		return New(http.StatusBadGateway, "network_error", "server_error", msg).WithRetryable(true)
	}
}

func containsAnyFold(s string, needles ...string) bool {
	lower := strings.ToLower(s)
	for _, n := range needles {
		if strings.Contains(lower, strings.ToLower(n)) {
			return true
		}
	}
	return false
}
