package vrouter

import (
	"errors"

	"github.com/tidwall/gjson"

	"github.com/routecodex/routecodex/internal/providerruntime"
)

// DefaultRoute is returned when no classification rule matches.
const DefaultRoute = "default"

// Router classifies inbound requests into a route name and advances that
// route's round-robin pool. Classification is a small ordered rule list
// over the raw JSON body (tool presence, message length, model family
// prefix) rather than a full schema decode, matching the gjson-surgery
// style used everywhere else bodies are inspected.
type Router struct {
	rules []Rule
	pools *PoolSet
	bans  *Banlist
}

// NewRouter builds a router with the given classification rules,
// evaluated in order; the first match wins. Pass nil for bans to disable
// auto-ban skipping.
func NewRouter(rules []Rule, pools *PoolSet, bans *Banlist) *Router {
	return &Router{rules: rules, pools: pools, bans: bans}
}

// DefaultRules implements the three rule families spec'd for this
// gateway: tool presence, long context, and a generic thinking-model
// family prefix. They run in this order because a request can carry
// tools AND be long-context; the more specific "tools" route is checked
// first.
func DefaultRules(longContextCharThreshold int) []Rule {
	if longContextCharThreshold <= 0 {
		longContextCharThreshold = 32000
	}
	return []Rule{
		{
			Name: "tools",
			Match: func(body []byte) bool {
				tools := gjson.GetBytes(body, "tools")
				return tools.Exists() && tools.IsArray() && len(tools.Array()) > 0
			},
		},
		{
			Name: "thinking",
			Match: func(body []byte) bool {
				model := gjson.GetBytes(body, "model").String()
				return hasThinkingPrefix(model)
			},
		},
		{
			Name: "longcontext",
			Match: func(body []byte) bool {
				return bodyContentLength(body) >= longContextCharThreshold
			},
		},
	}
}

func hasThinkingPrefix(model string) bool {
	for _, prefix := range []string{"o1", "o3", "o4", "deepseek-r1", "qwq"} {
		if len(model) >= len(prefix) && model[:len(prefix)] == prefix {
			return true
		}
	}
	return false
}

func bodyContentLength(body []byte) int {
	total := 0
	for _, m := range gjson.GetBytes(body, "messages").Array() {
		total += len(m.Get("content").Raw)
	}
	if total == 0 {
		total = len(gjson.GetBytes(body, "input").Raw)
	}
	return total
}

// Classify returns the route a body maps to, honoring a metadata route
// hint over the rule set: if the caller supplied a non-empty hint it is
// used as-is, current-behavior precedence per the decided open question.
func (r *Router) Classify(body []byte, hint string) RouteDecision {
	if hint != "" {
		return RouteDecision{RouteName: hint}
	}
	for _, rule := range r.rules {
		if rule.Match(body) {
			return RouteDecision{RouteName: rule.Name}
		}
	}
	return RouteDecision{RouteName: DefaultRoute}
}

// ErrNoRoute is returned when a route name has no configured pool at all.
var ErrNoRoute = errors.New("vrouter: no pool configured for route")

// Route classifies body (honoring hint) and returns the next round-robin
// pick from that route's pool, falling back to the default route's pool
// if the classified route has none configured.
func (r *Router) Route(body []byte, hint string) (Pick, error) {
	decision := r.Classify(body, hint)
	pool := r.pools.Pool(decision.RouteName)
	if pool == nil {
		pool = r.pools.Pool(DefaultRoute)
		decision.RouteName = DefaultRoute
	}
	if pool == nil {
		return Pick{}, ErrNoRoute
	}
	return pool.Next(r.bans)
}

// RouteNext re-asks for the next pool member on the same route, used by
// the Executor's retry policy to advance past a failing pick without
// reclassifying the body.
func (r *Router) RouteNext(routeName string) (Pick, error) {
	pool := r.pools.Pool(routeName)
	if pool == nil {
		return Pick{}, ErrNoRoute
	}
	return pool.Next(r.bans)
}

// OnResult feeds a pick's outcome back into the banlist.
func (r *Router) OnResult(key providerruntime.ProviderKey, statusCode int, success bool) {
	if r.bans == nil {
		return
	}
	if success {
		r.bans.RecordSuccess(key)
		return
	}
	r.bans.RecordFailure(key, statusCode)
}
