// Package routingconfig holds the minimal parsed configuration shapes the
// request pipeline consumes: route pools and per-provider-type client
// tuning. It is deliberately separate from the legacy internal/config tree
// (still carried for the admin/management surface) so the core pipeline's
// config contract stays small and easy to reason about.
package routingconfig

import (
	"github.com/routecodex/routecodex/internal/llmswitch"
	"github.com/routecodex/routecodex/internal/oauth"
	"github.com/routecodex/routecodex/internal/providerruntime"
)

// ProviderConfig describes one configured provider entry: its runtime
// kind (openai-standard, responses, anthropic-messages, ...), native
// dialect, OAuth descriptor (if any), and transport tuning.
type ProviderConfig struct {
	ProviderID   string
	Kind         string
	BaseURL      string
	Dialect      llmswitch.Format
	AuthType     string // "" for static API key, else an oauth provider type (qwen, iflow, gemini-cli, ...)
	Auth         oauth.AuthDescriptor
	MaxRotations int // 0 means fall back to the per-provider-type default
	Transport    providerruntime.ClientConfig
}

// RouteConfig is one named route's pool membership (rule evaluation
// order is fixed in code; this only supplies membership).
type RouteConfig struct {
	Name    string
	Members []providerruntime.ProviderKey
}

// RoutingConfig is the root parsed shape: every provider plus every
// route's pool.
type RoutingConfig struct {
	Providers         []ProviderConfig
	Routes            []RouteConfig
	DefaultRoute      string
	LongContextChars  int
	ServerExecTools   bool
	AutoBanThreshold  int
	AutoBanDurationSec int
}
