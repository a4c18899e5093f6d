package providerruntime

import (
	"context"
	"net/http"
)

// geminiClient talks to the Gemini Chat (generateContent /
// streamGenerateContent) surface. The Executor already picks the
// generateContent vs. streamGenerateContent path and sets req.URL
// accordingly; this client only guarantees Content-Type is set, matching
// how the teacher's gemini.Client leaves auth/path decisions to its
// caller and only owns transport.
type geminiClient struct {
	baseClient
}

func newGeminiClient(key ProviderKey, cfg ClientConfig) (Client, error) {
	return &geminiClient{baseClient: newBaseClient(key, cfg)}, nil
}

func (c *geminiClient) SendRequest(ctx context.Context, req Request) (*Response, error) {
	if req.Ctx == nil {
		req.Ctx = ctx
	}
	if req.Header == nil {
		req.Header = http.Header{}
	}
	if req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req)
}
