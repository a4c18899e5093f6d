package vrouter

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/routecodex/routecodex/internal/metrics"
	"github.com/routecodex/routecodex/internal/providerruntime"
)

// RoutePool is an ordered set of concrete provider targets for one route
// name, plus the round-robin cursor that advances across picks. The
// cursor lives on the pool (not the router) so that replacing a pool on
// reconfiguration resets the cursor, per the non-starvation invariant:
// every member of a freshly loaded pool should be reachable before any
// member repeats.
type RoutePool struct {
	name    string
	members []providerruntime.ProviderKey
	cursor  atomic.Uint64
}

// NewRoutePool builds a pool for routeName from members in priority/
// declaration order. The cursor always starts at zero.
func NewRoutePool(routeName string, members []providerruntime.ProviderKey) *RoutePool {
	cp := make([]providerruntime.ProviderKey, len(members))
	copy(cp, members)
	return &RoutePool{name: routeName, members: cp}
}

// ErrEmptyPool is returned when a route has no configured members, or
// every member is currently banned.
var ErrEmptyPool = fmt.Errorf("vrouter: route pool exhausted")

// Next advances the round-robin cursor and returns the next non-banned
// member. The increment itself needs no mutex — atomic.Uint64.Add is the
// single point of contention — but the banlist lookup happens after the
// increment so that a banned member still consumes its turn in the
// sequence (this keeps ⌊K/N⌋/⌈K/N⌉ fairness measured against the full
// pool, not the currently-healthy subset, which is what lets a recovered
// key catch back up instead of being perpetually skipped to the back).
func (p *RoutePool) Next(bans *Banlist) (Pick, error) {
	n := len(p.members)
	if n == 0 {
		return Pick{}, ErrEmptyPool
	}
	for attempts := 0; attempts < n; attempts++ {
		idx := int(p.cursor.Add(1)-1) % n
		key := p.members[idx]
		if bans == nil || !bans.IsBanned(key) {
			metrics.RoutePicks.WithLabelValues(p.name, key.ProviderID).Inc()
			return Pick{Key: key, Route: p.name, Index: idx}, nil
		}
	}
	return Pick{}, ErrEmptyPool
}

// Len reports the configured pool size (including currently banned
// members).
func (p *RoutePool) Len() int { return len(p.members) }

// Members returns a defensive copy of the pool's configured targets.
func (p *RoutePool) Members() []providerruntime.ProviderKey {
	cp := make([]providerruntime.ProviderKey, len(p.members))
	copy(cp, p.members)
	return cp
}

// CursorSnapshot returns the current raw cursor value, used to persist
// round-robin position across restarts.
func (p *RoutePool) CursorSnapshot() uint64 { return p.cursor.Load() }

// RestoreCursor sets the cursor to a previously persisted value.
func (p *RoutePool) RestoreCursor(v uint64) { p.cursor.Store(v) }

// PoolSet is a registry of named route pools, swappable atomically on
// reconfiguration.
type PoolSet struct {
	mu    sync.RWMutex
	pools map[string]*RoutePool
}

// NewPoolSet builds an empty set.
func NewPoolSet() *PoolSet {
	return &PoolSet{pools: make(map[string]*RoutePool)}
}

// SetPool installs or replaces the pool for routeName. Replacing a pool
// always resets its cursor (NewRoutePool starts at zero), matching the
// "on reconfiguration indices reset" contract.
func (s *PoolSet) SetPool(routeName string, members []providerruntime.ProviderKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pools[routeName] = NewRoutePool(routeName, members)
}

// Pool returns the named pool, or nil if unconfigured.
func (s *PoolSet) Pool(routeName string) *RoutePool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pools[routeName]
}
