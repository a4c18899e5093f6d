// Package providerruntime owns the lazily-constructed, per-credential HTTP
// clients that actually talk to upstream model providers. It sits below
// internal/llmswitch (which only translates request/response shapes) and
// above nothing: this package never sees a dialect, only already-native
// provider bytes.
package providerruntime

import (
	"context"
	"io"
	"net/http"
)

// ProviderKey identifies one (provider, model, credential-alias) triple. It
// is comparable so it can key a map directly without a string join.
type ProviderKey struct {
	ProviderID string
	ModelID    string
	KeyAlias   string
}

// Request is the fully-rewritten, provider-native request body the
// Executor hands to a Client after dialect translation and credential
// injection.
type Request struct {
	Ctx     context.Context
	Method  string
	URL     string
	Header  http.Header
	Body    []byte
	Stream  bool
}

// Response wraps the raw upstream HTTP response. For streaming calls, Body
// is the live response body the caller reads SSE frames from; the caller
// owns closing it.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       io.ReadCloser
}

// Client is the uniform per-provider-type contract every concrete client
// (openai, responses, anthropic, gemini, mock) implements.
type Client interface {
	// Initialize prepares the client for use (e.g. resolving endpoints,
	// warming a connection pool). Called once per constructed Client.
	Initialize(ctx context.Context) error
	// SendRequest issues one HTTP call and returns the raw response. The
	// caller is responsible for closing Response.Body.
	SendRequest(ctx context.Context, req Request) (*Response, error)
	// Cleanup releases any resources held by the client (idle
	// connections, background goroutines). Called when a key is evicted
	// from the registry.
	Cleanup()
}

// Factory builds a new Client for one ProviderKey. Registered per
// provider type (openai-standard, responses, anthropic-messages,
// gemini-chat, gemini-cli, antigravity, iflow, qwen, glm, mock).
type Factory func(key ProviderKey, cfg ClientConfig) (Client, error)

// ClientConfig carries the connection tunables a Client needs, independent
// of credentials (which arrive per-request via Request.Header).
type ClientConfig struct {
	BaseURL                  string
	DialTimeoutSeconds       int
	TLSHandshakeTimeoutSecs  int
	ResponseHeaderTimeoutSec int
	ExpectContinueTimeoutSec int
	ProxyURL                 string
	MaxIdleConns             int
	MaxIdleConnsPerHost      int
}
