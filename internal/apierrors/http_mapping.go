package apierrors

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// MapHTTPError maps an upstream HTTP status and body into a standardized
// *APIError. It does not itself decide retryability beyond what IsRetryable
// derives from HTTPStatus; callers that need finer triage (e.g. OAuth
// token-invalid detection) inspect the body separately.
func MapHTTPError(statusCode int, upstreamBody []byte) *APIError {
	msg := extractUpstreamMessage(upstreamBody)

	switch statusCode {
	case http.StatusBadRequest:
		if looksLikeContextLength(msg) {
			return New(statusCode, "context_length_exceeded", "invalid_request_error", firstNonEmpty(msg, "Context length exceeded")).
				WithKind(KindContextLengthExceeded)
		}
		return New(statusCode, "invalid_request_error", "invalid_request_error", firstNonEmpty(msg, "Invalid request")).
			WithKind(KindBadRequest)
	case http.StatusUnauthorized:
		return New(statusCode, "invalid_api_key", "authentication_error", firstNonEmpty(msg, "Invalid authentication")).
			WithKind(KindUnauthorized)
	case http.StatusForbidden:
		if looksLikeAccountVerification(msg) {
			return New(statusCode, "account_verification_required", "permission_error", msg).
				WithKind(KindForbiddenVerification)
		}
		if looksLikeServiceDisabled(msg) {
			return New(statusCode, "service_disabled", "permission_error", msg).
				WithKind(KindServiceDisabled)
		}
		return New(statusCode, "permission_denied", "permission_error", firstNonEmpty(msg, "Permission denied")).
			WithKind(KindForbiddenOther)
	case http.StatusNotFound:
		return New(statusCode, "not_found", "invalid_request_error", firstNonEmpty(msg, "Resource not found"))
	case http.StatusTooManyRequests:
		return New(statusCode, "rate_limit_exceeded", "rate_limit_error", firstNonEmpty(msg, "Rate limit exceeded")).
			WithKind(KindRateLimited).WithRetryable(true)
	case http.StatusInternalServerError:
		return New(statusCode, "server_error", "server_error", firstNonEmpty(msg, "Internal server error")).WithRetryable(true)
	case http.StatusBadGateway:
		return New(statusCode, "bad_gateway", "server_error", firstNonEmpty(msg, "Bad gateway")).WithRetryable(true)
	case http.StatusServiceUnavailable:
		return New(statusCode, "service_unavailable", "server_error", firstNonEmpty(msg, "Service temporarily unavailable")).WithRetryable(true)
	case http.StatusGatewayTimeout:
		return New(statusCode, "timeout", "timeout_error", firstNonEmpty(msg, "Request timeout")).
			WithKind(KindTimeout).WithRetryable(true)
	default:
		return New(statusCode, "unknown_error", "server_error", firstNonEmpty(msg, fmt.Sprintf("HTTP %d error", statusCode)))
	}
}

func looksLikeContextLength(msg string) bool {
	return containsAnyFold(msg, "context_length_exceeded", "context length exceeded", "maximum context length")
}

func looksLikeAccountVerification(msg string) bool {
	return containsAnyFold(msg, "account verification required", "verify your account", "has not completed verification")
}

func looksLikeServiceDisabled(msg string) bool {
	return containsAnyFold(msg, "service_disabled", "has not been used in project", "it is disabled")
}

func extractUpstreamMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err == nil {
		if errObj, ok := parsed["error"].(map[string]any); ok {
			if msg, ok := errObj["message"].(string); ok && msg != "" {
				return msg
			}
		}
	}
	msg := string(body)
	if len(msg) > 200 {
		return msg[:200] + "..."
	}
	return msg
}

func firstNonEmpty(strs ...string) string {
	for _, s := range strs {
		if s != "" {
			return s
		}
	}
	return ""
}
