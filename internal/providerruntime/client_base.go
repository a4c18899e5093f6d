package providerruntime

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("routecodex/providerruntime")

// baseClient is the shared HTTP plumbing every concrete Client embeds: a
// tuned transport, the configured base URL, and a uniform do() that wraps
// the call in a trace span. Grounded on the teacher's gemini.Client, which
// centralizes transport construction and per-call tracing the same way.
type baseClient struct {
	key     ProviderKey
	baseURL string
	http    *http.Client
}

func newBaseClient(key ProviderKey, cfg ClientConfig) baseClient {
	return baseClient{key: key, baseURL: cfg.BaseURL, http: newHTTPClient(cfg)}
}

func (b *baseClient) Initialize(ctx context.Context) error { return nil }

func (b *baseClient) Cleanup() {
	if b.http != nil {
		b.http.CloseIdleConnections()
	}
}

// do issues one HTTP request, wrapping it in a span tagged with the
// provider key and started from req.Ctx. The Executor starts no span of
// its own, so this span is the only one per upstream call.
func (b *baseClient) do(req Request) (*Response, error) {
	ctx, span := tracer.Start(req.Ctx, "providerruntime.send")
	defer span.End()
	span.SetAttributes(
		attribute.String("provider.id", b.key.ProviderID),
		attribute.String("provider.model", b.key.ModelID),
		attribute.String("provider.key_alias", b.key.KeyAlias),
		attribute.Bool("provider.stream", req.Stream),
	)

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, bytes.NewReader(req.Body))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("providerruntime: build request: %w", err)
	}
	for name, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(name, v)
		}
	}

	resp, err := b.http.Do(httpReq)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("providerruntime: do request: %w", err)
	}
	if resp.StatusCode >= 400 {
		span.SetStatus(codes.Error, fmt.Sprintf("upstream status %d", resp.StatusCode))
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: resp.Body}, nil
}
