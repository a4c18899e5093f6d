package providerruntime

import "context"

// openAIClient talks to an OpenAI-compatible Chat Completions endpoint. It
// adds nothing beyond baseClient: the bearer token, org header, and model
// name are already baked into Request by the Executor before SendRequest is
// called, mirroring how the teacher's gemini.Client only adds transport,
// not per-call auth decisions (those live in upstream callers).
type openAIClient struct {
	baseClient
}

func newOpenAIClient(key ProviderKey, cfg ClientConfig) (Client, error) {
	return &openAIClient{baseClient: newBaseClient(key, cfg)}, nil
}

func (c *openAIClient) SendRequest(ctx context.Context, req Request) (*Response, error) {
	if req.Ctx == nil {
		req.Ctx = ctx
	}
	return c.do(req)
}
