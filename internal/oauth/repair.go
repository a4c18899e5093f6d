package oauth

import (
	"context"
	"strings"

	log "github.com/sirupsen/logrus"
)

// serviceDisabledMarkers are substrings that indicate the upstream rejected
// the request because a Cloud API has not been enabled for the project, not
// because the credential itself is bad. Repair must never be triggered for
// these (spec §4.2/§8 testable property).
var serviceDisabledMarkers = []string{
	"service_disabled",
	"has not been used in project",
	"it is disabled",
	"api has not been enabled",
}

// genericInvalidTokenMarkers classify a 401/403 body as a credential
// problem worth repairing, independent of provider family.
var genericInvalidTokenMarkers = []string{
	"invalid_grant",
	"invalid token",
	"token has been expired or revoked",
	"unauthenticated",
	"invalid authentication credentials",
}

// ShouldTriggerInteractiveOAuthRepair decides whether an upstream error
// observed while sending a request should trigger interactive reacquisition
// of the credential (as opposed to being surfaced to the caller as-is).
//
// It must return false for service_disabled / project-not-enrolled errors:
// those mean the project lacks an API grant, and no amount of re-auth fixes
// that.
func (m *Manager) ShouldTriggerInteractiveOAuthRepair(providerType string, httpStatus int, upstreamCode, message string) bool {
	lower := strings.ToLower(message)
	for _, marker := range serviceDisabledMarkers {
		if strings.Contains(lower, marker) {
			return false
		}
	}

	if trigger, _ := m.rulesFor(providerType).ShouldTriggerRepair(httpStatus, upstreamCode, message); trigger {
		return true
	}

	if httpStatus != 401 && httpStatus != 403 {
		return false
	}
	for _, marker := range genericInvalidTokenMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// HandleUpstreamInvalidOAuthToken is called by the Executor after a provider
// invocation fails with an authentication error. It re-runs the lifecycle
// check with ForceReauthorize set, so a refresh (or, if OpenBrowser is also
// set by the caller, an interactive flow) is attempted before the caller
// retries the request.
func (m *Manager) HandleUpstreamInvalidOAuthToken(ctx context.Context, providerType string, auth AuthDescriptor, httpStatus int, upstreamCode, message string, openBrowser bool) error {
	if !m.ShouldTriggerInteractiveOAuthRepair(providerType, httpStatus, upstreamCode, message) {
		log.WithFields(log.Fields{
			"provider": providerType,
			"status":   httpStatus,
		}).Debug("oauth: upstream error does not warrant repair")
		return ErrUnsupported
	}

	// A repaired credential must not be short-circuited by the "still
	// within throttle window" rule from the last successful check.
	key := cacheKey(providerType, auth.TokenFile)
	m.throttle.mu.Lock()
	delete(m.throttle.lastSuccess, key)
	m.throttle.mu.Unlock()

	return m.EnsureValidOAuthToken(ctx, providerType, auth, Options{
		ForceReauthorize:             true,
		ForceReacquireIfRefreshFails: true,
		OpenBrowser:                  openBrowser,
	})
}
