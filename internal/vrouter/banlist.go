package vrouter

import (
	"sync"
	"time"

	"github.com/routecodex/routecodex/internal/metrics"
	"github.com/routecodex/routecodex/internal/providerruntime"
)

// banEntry mirrors the teacher's auto-ban bookkeeping fields
// (FailureWeight/ConsecutiveFails/BanUntil) at the granularity of a
// ProviderKey rather than a whole credential.
type banEntry struct {
	consecutiveFails int
	failureWeight    float64
	bannedUntil      time.Time
}

var failureSeverity = map[int]float64{
	429: 2.5,
	403: 1.8,
	401: 2.2,
	500: 1.2,
	502: 1.2,
	503: 1.2,
}

func severityFor(status int) float64 {
	if w, ok := failureSeverity[status]; ok {
		return w
	}
	switch {
	case status >= 500:
		return 1.0
	case status >= 400:
		return 0.8
	default:
		return 0.5
	}
}

// Banlist tracks keys temporarily skipped during round-robin scans
// because they have accumulated too many consecutive failures. It never
// removes a key from a pool's membership list — it only makes RoutePool.Next
// skip it until the ban expires, so the round-robin non-starvation
// invariant still holds for the remaining healthy members.
type Banlist struct {
	mu      sync.Mutex
	entries map[providerruntime.ProviderKey]*banEntry

	// consecutiveFailThreshold is how many failures in a row trip a ban.
	consecutiveFailThreshold int
	// banDuration is how long a tripped key is skipped before it is
	// eligible again.
	banDuration time.Duration
}

// NewBanlist builds a banlist with the given trip threshold and ban
// duration. A threshold <= 0 defaults to 5; a duration <= 0 defaults to
// 2 minutes.
func NewBanlist(consecutiveFailThreshold int, banDuration time.Duration) *Banlist {
	if consecutiveFailThreshold <= 0 {
		consecutiveFailThreshold = 5
	}
	if banDuration <= 0 {
		banDuration = 2 * time.Minute
	}
	return &Banlist{
		entries:                  make(map[providerruntime.ProviderKey]*banEntry),
		consecutiveFailThreshold: consecutiveFailThreshold,
		banDuration:              banDuration,
	}
}

// IsBanned reports whether key should currently be skipped.
func (b *Banlist) IsBanned(key providerruntime.ProviderKey) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.entries[key]
	if !ok {
		return false
	}
	if e.bannedUntil.IsZero() {
		return false
	}
	if time.Now().After(e.bannedUntil) {
		// expired: clear ban state but keep the entry for weight history
		e.bannedUntil = time.Time{}
		e.consecutiveFails = 0
		return false
	}
	return true
}

// RecordFailure accumulates a weighted failure for key and trips a ban
// once consecutiveFails crosses the threshold.
func (b *Banlist) RecordFailure(key providerruntime.ProviderKey, statusCode int) (banned bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.entries[key]
	if !ok {
		e = &banEntry{}
		b.entries[key] = e
	}
	e.consecutiveFails++
	e.failureWeight += severityFor(statusCode)
	if e.failureWeight > 10 {
		e.failureWeight = 10
	}
	if e.consecutiveFails >= b.consecutiveFailThreshold {
		e.bannedUntil = time.Now().Add(b.banDuration)
		metrics.RouteBans.WithLabelValues(key.ProviderID).Inc()
		return true
	}
	return false
}

// RecordSuccess clears consecutive-failure state for key, restoring it to
// the round-robin rotation immediately (a live ban already in effect is
// left to expire on its own timer rather than lifted early).
func (b *Banlist) RecordSuccess(key providerruntime.ProviderKey) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.entries[key]
	if !ok {
		return
	}
	e.consecutiveFails = 0
	e.failureWeight = 0
}

// Snapshot returns the current ban state for persistence across restarts.
type BanSnapshot struct {
	Key              providerruntime.ProviderKey
	ConsecutiveFails int
	FailureWeight    float64
	BannedUntil      time.Time
}

// Snapshot lists all tracked keys, banned or not.
func (b *Banlist) Snapshot() []BanSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]BanSnapshot, 0, len(b.entries))
	for k, e := range b.entries {
		out = append(out, BanSnapshot{
			Key:              k,
			ConsecutiveFails: e.consecutiveFails,
			FailureWeight:    e.failureWeight,
			BannedUntil:      e.bannedUntil,
		})
	}
	return out
}

// Restore installs previously persisted ban state, e.g. on process
// startup so a key mid-cooldown is not silently un-banned by a restart.
func (b *Banlist) Restore(snapshots []BanSnapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range snapshots {
		b.entries[s.Key] = &banEntry{
			consecutiveFails: s.ConsecutiveFails,
			failureWeight:    s.FailureWeight,
			bannedUntil:      s.BannedUntil,
		}
	}
}
