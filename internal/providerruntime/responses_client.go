package providerruntime

import (
	"context"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// responsesClient talks to the OpenAI Responses API, which this runtime
// always invokes in streaming mode upstream — even when the inbound
// request was non-streaming — so the Executor can surface the first
// output-producing event as soon as it exists instead of waiting on a
// potentially very long non-streaming round trip. A non-streaming caller
// gets the response object from the response.completed frame as one JSON
// body, extracted by the Executor after SendRequest returns.
type responsesClient struct {
	baseClient
}

func newResponsesClient(key ProviderKey, cfg ClientConfig) (Client, error) {
	return &responsesClient{baseClient: newBaseClient(key, cfg)}, nil
}

func (c *responsesClient) SendRequest(ctx context.Context, req Request) (*Response, error) {
	if req.Ctx == nil {
		req.Ctx = ctx
	}
	if !gjson.GetBytes(req.Body, "stream").Bool() {
		rewritten, err := sjson.SetBytes(req.Body, "stream", true)
		if err != nil {
			return nil, fmt.Errorf("providerruntime(responses): force stream=true: %w", err)
		}
		req.Body = rewritten
	}
	req.Stream = true
	return c.do(req)
}
