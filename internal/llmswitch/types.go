// Package llmswitch translates requests, non-streaming responses, and SSE
// event streams between the dialects RouteCodex speaks at its edge
// (OpenAI Chat Completions, OpenAI Responses, Anthropic Messages, Gemini
// Chat) and the single dialect a given upstream actually understands.
package llmswitch

import (
	"context"
	"io"
)

// Format identifies one of the four dialects this switch translates
// between.
type Format string

const (
	FormatOpenAIChat      Format = "openai-chat"
	FormatOpenAIResponses Format = "openai-responses"
	FormatAnthropic       Format = "anthropic-messages"
	FormatGemini          Format = "gemini-chat"
)

// RequestTransform rewrites a request body from one dialect to another.
// model is the upstream-native model name already resolved by vrouter.
type RequestTransform func(model string, rawJSON []byte, stream bool) ([]byte, error)

// ResponseTransform rewrites one complete non-streaming response body.
type ResponseTransform func(ctx context.Context, model string, responseBody []byte) ([]byte, error)

// StreamTransform re-emits an upstream SSE byte stream as the caller's
// dialect's SSE byte stream. The returned reader is consumed until EOF by
// the HTTP handler writing the response to the client.
type StreamTransform func(ctx context.Context, model string, upstream io.Reader) (io.Reader, error)

// Pair groups the three transforms registered for one (from, to) dialect
// edge; any of the three may be nil, in which case the registry returns
// *ErrNoTranslator for that kind of payload on this edge.
type Pair struct {
	Request  RequestTransform
	Response ResponseTransform
	Stream   StreamTransform
}
