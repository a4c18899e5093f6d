package providerruntime

import (
	"bytes"
	"context"
	"io"
	"net/http"
)

// MockResponder lets tests script a canned response for a mock client
// without touching the network.
type MockResponder func(req Request) (*Response, error)

// mockClient never dials out; it is registered under the "mock" kind so
// tests can exercise the full request pipeline against a scripted
// upstream.
type mockClient struct {
	key      ProviderKey
	respond  MockResponder
	cleanups int
}

// DefaultMockResponder returns a 200 with a fixed JSON body, used when no
// test-specific responder is configured for a mock provider.
func DefaultMockResponder(req Request) (*Response, error) {
	body := []byte(`{"id":"mock-response","choices":[{"message":{"role":"assistant","content":"ok"}}]}`)
	return &Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewReader(body)),
	}, nil
}

func newMockClient(key ProviderKey, cfg ClientConfig) (Client, error) {
	return &mockClient{key: key, respond: DefaultMockResponder}, nil
}

func (c *mockClient) Initialize(ctx context.Context) error { return nil }

func (c *mockClient) SendRequest(ctx context.Context, req Request) (*Response, error) {
	return c.respond(req)
}

func (c *mockClient) Cleanup() { c.cleanups++ }
