package llmswitch

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// Registry is a dispatch table keyed by (from, to) Format pair, generalized
// from the teacher's two-format translator.Registry to this switch's four
// dialects.
type Registry struct {
	mu    sync.RWMutex
	pairs map[Format]map[Format]Pair
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{pairs: make(map[Format]map[Format]Pair)}
}

// Register stores the transforms for one (from, to) edge, merging into
// any transforms already registered for that edge.
func (r *Registry) Register(from, to Format, pair Pair) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.pairs[from]; !ok {
		r.pairs[from] = make(map[Format]Pair)
	}
	existing := r.pairs[from][to]
	if pair.Request != nil {
		existing.Request = pair.Request
	}
	if pair.Response != nil {
		existing.Response = pair.Response
	}
	if pair.Stream != nil {
		existing.Stream = pair.Stream
	}
	r.pairs[from][to] = existing
}

func (r *Registry) lookup(from, to Format) (Pair, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	byTarget, ok := r.pairs[from]
	if !ok {
		return Pair{}, false
	}
	pair, ok := byTarget[to]
	return pair, ok
}

// TranslateRequest converts a request body from "from" to "to". If from ==
// to the body passes through unchanged; if no request transform is
// registered for the edge it returns *ErrNoTranslator.
func (r *Registry) TranslateRequest(from, to Format, model string, rawJSON []byte, stream bool) ([]byte, error) {
	if from == to {
		return rawJSON, nil
	}
	pair, ok := r.lookup(from, to)
	if !ok || pair.Request == nil {
		return nil, &ErrNoTranslator{From: from, To: to, Kind: "request"}
	}
	return pair.Request(model, rawJSON, stream)
}

// TranslateResponse converts a non-streaming response from "from" to "to".
func (r *Registry) TranslateResponse(ctx context.Context, from, to Format, model string, body []byte) ([]byte, error) {
	if from == to {
		return body, nil
	}
	pair, ok := r.lookup(from, to)
	if !ok || pair.Response == nil {
		return nil, &ErrNoTranslator{From: from, To: to, Kind: "response"}
	}
	return pair.Response(ctx, model, body)
}

// TranslateStream converts an SSE byte stream from "from" to "to".
func (r *Registry) TranslateStream(ctx context.Context, from, to Format, model string, upstream io.Reader) (io.Reader, error) {
	if from == to {
		return upstream, nil
	}
	pair, ok := r.lookup(from, to)
	if !ok || pair.Stream == nil {
		return nil, &ErrNoTranslator{From: from, To: to, Kind: "stream"}
	}
	return pair.Stream(ctx, model, upstream)
}

// HasStreamTransformer reports whether from->to has a registered stream
// transform (vrouter/executor use this to decide whether a dialect pair
// can be served at all).
func (r *Registry) HasStreamTransformer(from, to Format) bool {
	pair, ok := r.lookup(from, to)
	return ok && pair.Stream != nil
}

var defaultRegistry = NewRegistry()

// Default returns the process-wide registry that every translator file's
// init() registers itself into.
func Default() *Registry { return defaultRegistry }

// ErrNoTranslator is returned when a (from, to, kind) edge has no
// registered transform.
type ErrNoTranslator struct {
	From Format
	To   Format
	Kind string
}

func (e *ErrNoTranslator) Error() string {
	return fmt.Sprintf("llmswitch: no %s translator from %s to %s", e.Kind, e.From, e.To)
}
