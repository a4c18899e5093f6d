package apierrors

import (
	"encoding/json"
	"net/http"
)

// New constructs an APIError with the minimal required fields.
func New(httpStatus int, code, errType, message string) *APIError {
	return &APIError{HTTPStatus: httpStatus, Code: code, Type: errType, Message: message}
}

// WithKind tags the error with a taxonomy Kind (see spec §7).
func (e *APIError) WithKind(k Kind) *APIError {
	e.Kind = k
	return e
}

// WithOrigin tags the error with who caused it.
func (e *APIError) WithOrigin(o Origin) *APIError {
	e.Origin = o
	return e
}

// WithRetryable overrides the default retryability derived from HTTPStatus.
func (e *APIError) WithRetryable(v bool) *APIError {
	e.Retryable = v
	return e
}

// WithUpstreamCode records a provider-specific error code extracted from an
// SSE wrapper or response body, surfaced to the client for debugging.
func (e *APIError) WithUpstreamCode(code string) *APIError {
	e.UpstreamCode = code
	return e
}

// WithDetails attaches arbitrary structured detail.
func (e *APIError) WithDetails(details map[string]any) *APIError {
	e.Details = details
	return e
}

func (e *APIError) Error() string {
	return e.Message
}

// ToJSON renders the error in the given dialect's envelope shape.
func (e *APIError) ToJSON(format DialectFormat) ([]byte, error) {
	switch format {
	case FormatGemini:
		return e.toGeminiJSON()
	case FormatAnthropic:
		return e.toAnthropicJSON()
	default:
		return e.toOpenAIJSON()
	}
}

func (e *APIError) toOpenAIJSON() ([]byte, error) {
	var env OpenAIError
	env.Error.Message = e.Message
	env.Error.Type = e.Type
	env.Error.Code = e.Code
	if e.Details != nil {
		env.Error.Details = e.Details
	}
	return json.Marshal(env)
}

func (e *APIError) toGeminiJSON() ([]byte, error) {
	var env GeminiError
	env.Error.Code = e.HTTPStatus
	env.Error.Message = e.Message
	env.Error.Status = e.toGeminiStatus()
	if e.Details != nil {
		env.Error.Details = e.Details
	}
	return json.Marshal(env)
}

func (e *APIError) toAnthropicJSON() ([]byte, error) {
	var env AnthropicError
	env.Type = "error"
	env.Error.Type = e.anthropicErrorType()
	env.Error.Message = e.Message
	return json.Marshal(env)
}

func (e *APIError) anthropicErrorType() string {
	switch e.HTTPStatus {
	case http.StatusBadRequest:
		return "invalid_request_error"
	case http.StatusUnauthorized:
		return "authentication_error"
	case http.StatusForbidden:
		return "permission_error"
	case http.StatusNotFound:
		return "not_found_error"
	case http.StatusTooManyRequests:
		return "rate_limit_error"
	default:
		if e.HTTPStatus >= 500 {
			return "api_error"
		}
		return "invalid_request_error"
	}
}

func (e *APIError) toGeminiStatus() string {
	switch e.HTTPStatus {
	case http.StatusBadRequest:
		return "INVALID_ARGUMENT"
	case http.StatusUnauthorized:
		return "UNAUTHENTICATED"
	case http.StatusForbidden:
		return "PERMISSION_DENIED"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusTooManyRequests:
		return "RESOURCE_EXHAUSTED"
	case http.StatusInternalServerError:
		return "INTERNAL"
	case http.StatusServiceUnavailable:
		return "UNAVAILABLE"
	case http.StatusGatewayTimeout:
		return "DEADLINE_EXCEEDED"
	default:
		return "UNKNOWN"
	}
}

// IsRetryable reports whether the caller should rotate and retry.
func (e *APIError) IsRetryable() bool {
	if e.Retryable {
		return true
	}
	switch e.HTTPStatus {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout,
		http.StatusRequestTimeout:
		return true
	}
	switch e.Code {
	case "timeout", "connection_error", "network_error", "dns_error":
		return true
	}
	return false
}

// GetRetryAfter returns a suggested backoff in seconds.
func (e *APIError) GetRetryAfter() int {
	if e.Details != nil {
		if retryAfter, ok := e.Details["retry_after"].(int); ok {
			return retryAfter
		}
		if retryAfter, ok := e.Details["retry_after"].(float64); ok {
			return int(retryAfter)
		}
	}
	switch e.HTTPStatus {
	case http.StatusTooManyRequests:
		return 60
	case http.StatusServiceUnavailable:
		return 30
	case http.StatusBadGateway, http.StatusGatewayTimeout:
		return 15
	default:
		return 5
	}
}
