// Package vrouter classifies an inbound request into a logical route and
// picks the next concrete provider target from that route's pool. It never
// touches HTTP or dialect shapes — it only ever reads the raw JSON body for
// classification hints and advances a per-route round-robin cursor.
package vrouter

import "github.com/routecodex/routecodex/internal/providerruntime"

// RouteDecision is what the classifier hands back before a pool pick is
// made.
type RouteDecision struct {
	RouteName  string
	PipelineID string
}

// Pick is one round-robin selection result.
type Pick struct {
	Key   providerruntime.ProviderKey
	Route string
	Index int // position within the pool this pick came from, for snapshots
}

// Rule matches a parsed request body against a predicate and names the
// route it yields on a match. Rules are evaluated in order; the first
// match wins.
type Rule struct {
	Name  string
	Match func(body []byte) bool
}
