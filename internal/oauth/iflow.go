package oauth

import (
	"context"
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/routecodex/routecodex/internal/tokenstore"
)

// errIFlowRefresh5xx signals that iFlow's token endpoint returned a server
// error on a refresh attempt. The manager treats this as a reason to
// suspend further refresh attempts for iflowCooldown rather than retrying
// immediately and spamming a degraded endpoint (referenced from refresh.go).
var errIFlowRefresh5xx = errors.New("oauth: iflow refresh endpoint error")

const iflowCooldown = 5 * time.Minute

// iflowAutoMaxAttemptsEnv caps how many consecutive 5xx refresh failures
// iFlow credentials get before the manager stops falling through to the
// interactive flow and surfaces ErrRefreshFailed to the caller instead.
const iflowAutoMaxAttemptsEnv = "ROUTECODEX_IFLOW_AUTO_MAX_ATTEMPTS"

func iflowAutoMaxAttempts() int {
	if v := os.Getenv(iflowAutoMaxAttemptsEnv); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return 3
}

// iflowRules implements iFlow's credential family: its portal issues
// authorization_code-flow tokens. Every 5xx refresh failure trips a
// cooldown instead of being retried per-request. There is no device_code
// fallback: deviceCodeFallback has no caller and returns ErrUnsupported.
type iflowRules struct{}

func (iflowRules) Enrich(ctx context.Context, m *Manager, auth AuthDescriptor, tok *tokenstore.StoredToken) error {
	key := cacheKey(auth.Type, auth.TokenFile)
	m.cooldown.Clear(key)
	return nil
}

func (iflowRules) ShouldTriggerRepair(httpStatus int, upstreamCode, message string) (bool, bool) {
	lower := strings.ToLower(message)
	if httpStatus == 401 || httpStatus == 403 {
		if strings.Contains(lower, "invalid_token") || strings.Contains(lower, "token expired") {
			return true, false
		}
	}
	return false, false
}

// tripIFlowCooldown records a refresh failure and reports whether the
// caller has exhausted ROUTECODEX_IFLOW_AUTO_MAX_ATTEMPTS consecutive
// attempts for this credential.
func (m *Manager) tripIFlowCooldown(auth AuthDescriptor, rerr error) (exhausted bool) {
	if !errors.Is(rerr, errIFlowRefresh5xx) {
		return false
	}
	key := cacheKey(auth.Type, auth.TokenFile)
	attempt := m.cooldown.Trip(key, iflowCooldown)
	log.WithFields(log.Fields{
		"provider": auth.Type,
		"attempt":  attempt,
		"cooldown": iflowCooldown,
	}).Warn("oauth(iflow): refresh endpoint degraded, cooldown applied")
	return attempt >= iflowAutoMaxAttempts()
}

// deviceCodeFallback performs no device_code exchange: it reports a
// missing Urls.DeviceCodeURL and otherwise returns ErrUnsupported.
func (m *Manager) deviceCodeFallback(ctx context.Context, auth AuthDescriptor) (*tokenstore.StoredToken, error) {
	if auth.Urls.DeviceCodeURL == "" {
		return nil, errors.New("oauth(iflow): no device_code endpoint configured")
	}
	// No device-code polling loop (request code, display user_code,
	// poll the token endpoint until authorization_pending clears) is
	// implemented here.
	return nil, ErrUnsupported
}
