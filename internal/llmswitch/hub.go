package llmswitch

import (
	"context"
	"io"
)

// Translate routes a request/response/stream conversion through the
// registry, hopping through FormatOpenAIChat as a hub when no direct (from,
// to) pair is registered (e.g. Anthropic Messages <-> Gemini Chat, which
// has no direct translator and goes Anthropic -> OpenAI Chat -> Gemini).
type Translate struct {
	reg *Registry
}

// NewTranslate wraps reg with hub-routing fallback.
func NewTranslate(reg *Registry) Translate { return Translate{reg: reg} }

func (t Translate) Request(model string, rawJSON []byte, stream bool, from, to Format) ([]byte, error) {
	if from == to {
		return rawJSON, nil
	}
	if body, err := t.reg.TranslateRequest(from, to, model, rawJSON, stream); err == nil {
		return body, nil
	}
	if from == FormatOpenAIChat || to == FormatOpenAIChat {
		return nil, &ErrNoTranslator{From: from, To: to, Kind: "request"}
	}
	hub, err := t.reg.TranslateRequest(from, FormatOpenAIChat, model, rawJSON, stream)
	if err != nil {
		return nil, err
	}
	return t.reg.TranslateRequest(FormatOpenAIChat, to, model, hub, stream)
}

func (t Translate) Response(ctx context.Context, model string, body []byte, from, to Format) ([]byte, error) {
	if from == to {
		return body, nil
	}
	if out, err := t.reg.TranslateResponse(ctx, from, to, model, body); err == nil {
		return out, nil
	}
	if from == FormatOpenAIChat || to == FormatOpenAIChat {
		return nil, &ErrNoTranslator{From: from, To: to, Kind: "response"}
	}
	hub, err := t.reg.TranslateResponse(ctx, from, FormatOpenAIChat, model, body)
	if err != nil {
		return nil, err
	}
	return t.reg.TranslateResponse(ctx, FormatOpenAIChat, to, model, hub)
}

func (t Translate) Stream(ctx context.Context, model string, upstream io.Reader, from, to Format) (io.Reader, error) {
	if from == to {
		return upstream, nil
	}
	if out, err := t.reg.TranslateStream(ctx, from, to, model, upstream); err == nil {
		return out, nil
	}
	if from == FormatOpenAIChat || to == FormatOpenAIChat {
		return nil, &ErrNoTranslator{From: from, To: to, Kind: "stream"}
	}
	hub, err := t.reg.TranslateStream(ctx, from, FormatOpenAIChat, model, upstream)
	if err != nil {
		return nil, err
	}
	return t.reg.TranslateStream(ctx, FormatOpenAIChat, to, model, hub)
}
