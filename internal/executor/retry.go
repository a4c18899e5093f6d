package executor

// RetryPolicy documents the alias-rotation retry rules Execute applies
// inline (kept here as named constants/helpers rather than inside
// executor.go so the policy itself is easy to audit independent of the
// state machine that invokes it).
//
// Rotation triggers are whatever APIError.IsRetryable reports: 429, 401
// (classified Unauthorized; OAuth repair runs before the next attempt),
// 408, 500/502/503/504, and network errors. Other 403s do not rotate.
// AccountVerificationRequired never rotates — it
// triggers background repair and fails the current request. A
// ServiceDisabled error never triggers OAuth repair (enforced inside
// internal/oauth, not here) and is not retried by this policy either: it
// is a project-configuration problem, not a transient one.
//
// The iFlow-specific 5-minute refresh cooldown and the interactive-lock
// staleness window are owned entirely by internal/oauth; the Executor
// only observes EnsureValidOAuthToken's error, it does not re-implement
// iFlow's own cooldown bookkeeping.

// MaxRotationsForProviderType returns the spec's per-provider-type retry
// ceiling override. Antigravity tolerates more account-verification
// bouncing than the default, per spec §7.
func MaxRotationsForProviderType(providerID string) int {
	switch providerID {
	case "antigravity":
		return 6
	default:
		return defaultMaxRotations
	}
}
