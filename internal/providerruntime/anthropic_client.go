package providerruntime

import (
	"context"
	"net/http"
)

const anthropicVersionHeader = "2023-06-01"

// anthropicClient talks to the Anthropic Messages API. Anthropic uses
// x-api-key + anthropic-version instead of a bearer token; the Executor
// sets x-api-key on Request.Header, this client only guarantees
// anthropic-version is present so callers never have to remember it.
type anthropicClient struct {
	baseClient
}

func newAnthropicClient(key ProviderKey, cfg ClientConfig) (Client, error) {
	return &anthropicClient{baseClient: newBaseClient(key, cfg)}, nil
}

func (c *anthropicClient) SendRequest(ctx context.Context, req Request) (*Response, error) {
	if req.Ctx == nil {
		req.Ctx = ctx
	}
	if req.Header == nil {
		req.Header = http.Header{}
	}
	if req.Header.Get("anthropic-version") == "" {
		req.Header.Set("anthropic-version", anthropicVersionHeader)
	}
	return c.do(req)
}
