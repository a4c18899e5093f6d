// Package executor orchestrates one inbound request end-to-end: classify
// and pick a target, ensure credentials, translate dialects, invoke the
// provider, translate the response back, and retry with alias rotation on
// the failure classes apierrors.APIError marks retryable.
package executor

import (
	"io"
	"time"

	"github.com/routecodex/routecodex/internal/llmswitch"
	"github.com/routecodex/routecodex/internal/oauth"
	"github.com/routecodex/routecodex/internal/providerruntime"
)

// InboundRequest is what an HTTP adapter hands the Executor, already
// parsed enough to know its own dialect and streaming intent but
// otherwise untouched.
type InboundRequest struct {
	RequestID string
	Dialect   llmswitch.Format
	Model     string
	Body      []byte
	Stream    bool
	RouteHint string // from inbound metadata; wins over classification
	Headers   map[string]string
}

// ExecutionResult is what the Executor hands back to the HTTP adapter.
// Exactly one of Body/Stream is populated, matching IsStream. IsStream is
// set only by a successful attempt for a request whose Stream flag is
// true; error results always carry a JSON Body. A non-streaming request
// served by a Responses upstream (which always streams) gets that SSE
// aggregated back into a JSON Body.
type ExecutionResult struct {
	StatusCode int
	Header     map[string]string
	Body       []byte
	Stream     io.Reader
	IsStream   bool

	RouteName   string
	ProviderKey providerruntime.ProviderKey

	// OriginalRequestBody is preserved for the submit_tool_outputs resume
	// path and for response-conversion stages that need the inbound
	// shape alongside the upstream one.
	OriginalRequestBody []byte
}

// ProviderProfile is the static configuration the Executor needs for a
// ProviderKey beyond what the runtime Client exposes: its native dialect,
// OAuth descriptor (zero value if statically keyed), and retry ceiling.
type ProviderProfile struct {
	Dialect      llmswitch.Format
	AuthType     string // "" for a static API key; else an oauth provider type
	Auth         oauth.AuthDescriptor
	MaxRotations int
}

// ProviderLookup resolves a ProviderKey to its ProviderProfile.
type ProviderLookup interface {
	Profile(key providerruntime.ProviderKey) (ProviderProfile, bool)
}

// Router is the subset of vrouter.Router the Executor depends on.
type Router interface {
	Route(body []byte, hint string) (RoutePick, error)
	RouteNext(routeName string) (RoutePick, error)
	OnResult(key providerruntime.ProviderKey, statusCode int, success bool)
}

// RoutePick mirrors vrouter.Pick's fields the Executor reads.
type RoutePick struct {
	Key   providerruntime.ProviderKey
	Route string
}

// Snapshotter records one stage observation; see internal/snapshot.Recorder.
type Snapshotter interface {
	Record(requestID string, stage string, data map[string]interface{})
}

// Deps bundles every collaborator the Executor needs, constructed once at
// startup and shared across requests.
type Deps struct {
	Router    Router
	Registry  *providerruntime.Registry
	Translate llmswitch.Translate
	OAuth     *oauth.Manager
	Snapshots Snapshotter
	Lookup    ProviderLookup

	MaxWait         time.Duration
	ToolExecTimeout time.Duration
}
