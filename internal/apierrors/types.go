// Package apierrors implements the error taxonomy shared by the request
// pipeline: a single *APIError travels from translators, provider clients,
// and the OAuth lifecycle manager up to the Executor, which renders it in
// the caller's dialect.
package apierrors

// DialectFormat is the target error envelope shape.
type DialectFormat string

const (
	FormatOpenAI    DialectFormat = "openai"
	FormatAnthropic DialectFormat = "anthropic"
	FormatGemini    DialectFormat = "gemini"
)

// Kind is a taxonomy code, independent of HTTP status, used by the Executor's
// retry policy and by OAuth repair triage.
type Kind string

const (
	KindBadRequest             Kind = "bad_request"
	KindUnauthorized           Kind = "unauthorized"
	KindForbiddenVerification  Kind = "forbidden_verification"
	KindForbiddenOther         Kind = "forbidden_other"
	KindRateLimited            Kind = "rate_limited"
	KindContextLengthExceeded  Kind = "context_length_exceeded"
	KindServiceDisabled        Kind = "service_disabled"
	KindUpstreamSSEError       Kind = "upstream_sse_error"
	KindTimeout                Kind = "timeout"
	KindNoTarget               Kind = "no_target"
	KindInternalConversion     Kind = "internal_conversion"
)

// Origin distinguishes client-caused from server/upstream-caused failures,
// used by the submit_tool_outputs path (spec: 422 on origin=client, no retry).
type Origin string

const (
	OriginClient   Origin = "client"
	OriginUpstream Origin = "upstream"
	OriginInternal Origin = "internal"
)

// APIError is a standardized error that can be rendered in any inbound
// dialect's error envelope.
type APIError struct {
	HTTPStatus int
	Code       string
	Type       string
	Message    string
	Kind       Kind
	Origin     Origin
	Retryable  bool
	UpstreamCode string
	Details    map[string]any
}

// OpenAIError mirrors OpenAI's `{error:{message,type,code}}` envelope.
type OpenAIError struct {
	Error struct {
		Message string         `json:"message"`
		Type    string         `json:"type"`
		Code    string         `json:"code,omitempty"`
		Param   string         `json:"param,omitempty"`
		Details map[string]any `json:"details,omitempty"`
	} `json:"error"`
}

// GeminiError mirrors Gemini's `{error:{code,message,status}}` envelope.
type GeminiError struct {
	Error struct {
		Code    int            `json:"code"`
		Message string         `json:"message"`
		Status  string         `json:"status"`
		Details map[string]any `json:"details,omitempty"`
	} `json:"error"`
}

// AnthropicError mirrors Anthropic's `{type:"error",error:{type,message}}` envelope.
type AnthropicError struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}
