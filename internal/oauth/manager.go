package oauth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/routecodex/routecodex/internal/metrics"
	"github.com/routecodex/routecodex/internal/tokenstore"
)

// providerRules are the provider-family-specific hooks invoked after a
// successful refresh/interactive acquisition, and for upstream-error triage.
// Implemented by qwen.go, iflow.go, geminicli.go.
type providerRules interface {
	// Enrich runs provider-specific post-processing (e.g. Qwen's api_key
	// derivation, Gemini-CLI's project/userinfo fetch + API enablement).
	Enrich(ctx context.Context, m *Manager, auth AuthDescriptor, tok *tokenstore.StoredToken) error
	// ShouldTriggerRepair classifies an upstream error message for this
	// provider family beyond the generic rules in repair.go.
	ShouldTriggerRepair(httpStatus int, upstreamCode, message string) (trigger bool, accountVerification bool)
}

// Manager is the OAuth Lifecycle Manager (spec §4.2).
type Manager struct {
	httpClient *http.Client
	now        func() time.Time

	sf       *singleflightGroup
	throttle *throttle

	interactive *interactiveCoordinator

	rules map[string]providerRules

	cooldown *cooldownStore

	// openBrowser launches the system browser at the given authorization
	// URL. Nil by default: the caller (Executor) always passes
	// Options.OpenBrowser=false, so the interactive flow is only ever
	// driven from an operator-facing entry point that sets this explicitly.
	openBrowser func(string) error
}

// NewManager constructs an OAuth Lifecycle Manager. cooldownPath is the JSON
// file persisting repair-cooldown attempt counts across restarts (spec §5).
func NewManager(cooldownPath string) *Manager {
	return &Manager{
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		now:         time.Now,
		sf:          newSingleflightGroup(),
		throttle:    newThrottle(throttleWindow),
		interactive: newInteractiveCoordinator(),
		rules:       defaultProviderRules(),
		cooldown:    newCooldownStore(cooldownPath),
	}
}

// WithHTTPClient overrides the HTTP client used for token/userinfo calls.
func (m *Manager) WithHTTPClient(c *http.Client) *Manager {
	if c != nil {
		m.httpClient = c
	}
	return m
}

// WithNowFunc overrides the clock (testing).
func (m *Manager) WithNowFunc(now func() time.Time) *Manager {
	if now != nil {
		m.now = now
	}
	return m
}

// WithBrowserOpener wires a browser-launching function (e.g.
// open-golang/open.Run) for the interactive flow's operator-facing entry
// point. When unset, the authorization URL is only logged.
func (m *Manager) WithBrowserOpener(fn func(string) error) *Manager {
	m.openBrowser = fn
	return m
}

func defaultProviderRules() map[string]providerRules {
	return map[string]providerRules{
		"qwen":        &qwenRules{},
		"iflow":       &iflowRules{},
		"gemini-cli":  &geminiCLIRules{},
		"antigravity": &geminiCLIRules{},
	}
}

func (m *Manager) rulesFor(providerType string) providerRules {
	if r, ok := m.rules[providerType]; ok {
		return r
	}
	return noopRules{}
}

// EnsureValidOAuthToken guarantees that, on success, the file at
// auth.TokenFile contains a token whose access is valid now. It implements
// the decision table of spec §4.2.
func (m *Manager) EnsureValidOAuthToken(ctx context.Context, providerType string, auth AuthDescriptor, opts Options) error {
	key := cacheKey(providerType, auth.TokenFile)
	return m.sf.Do(key, func() error {
		return m.ensureLocked(ctx, providerType, auth, opts)
	})
}

func (m *Manager) ensureLocked(ctx context.Context, providerType string, auth AuthDescriptor, opts Options) error {
	key := cacheKey(providerType, auth.TokenFile)

	tok, err := tokenstore.Load(auth.TokenFile)
	if err != nil {
		log.WithError(err).WithField("path", auth.TokenFile).Warn("oauth: failed to load token file")
	}

	// Static-alias short-circuit: user-provided fixed key, never touched.
	if tok != nil && tok.IsStaticAlias() {
		return nil
	}

	if !opts.ForceReauthorize && m.throttle.shouldSkip(key) {
		return nil
	}

	norefreshBlocked := tok != nil && tok.Norefresh && !opts.ForceReauthorize

	// 1) Token has valid access/API key and no force -> return.
	if tok.HasUsableCredential() && !tok.IsNearExpiry(m.now(), expirySkew) && !opts.ForceReauthorize {
		if err := m.rulesFor(providerType).Enrich(ctx, m, auth, tok); err != nil {
			log.WithError(err).Warn("oauth: post-validation enrich failed (non-fatal)")
		}
		m.throttle.markSuccess(key)
		return nil
	}

	// 2) Near/past expiry AND has refresh_token AND refresh allowed.
	cooldownKey := cacheKey(auth.Type, auth.TokenFile)
	if tok != nil && tok.RefreshToken != "" && !norefreshBlocked && !m.cooldown.InCooldown(cooldownKey) {
		refreshed, rerr := m.refresh(ctx, auth, tok)
		if rerr == nil {
			metrics.OAuthRefreshes.WithLabelValues(providerType, "ok").Inc()
			if err := tokenstore.Save(auth.TokenFile, refreshed); err != nil {
				return fmt.Errorf("oauth: save refreshed token: %w", err)
			}
			if err := m.rulesFor(providerType).Enrich(ctx, m, auth, refreshed); err != nil {
				log.WithError(err).Warn("oauth: post-refresh enrich failed (non-fatal)")
			}
			m.throttle.markSuccess(key)
			return nil
		}
		metrics.OAuthRefreshes.WithLabelValues(providerType, "failed").Inc()
		log.WithError(rerr).WithField("provider", providerType).Warn("oauth: refresh failed")
		if providerType == "iflow" && m.tripIFlowCooldown(auth, rerr) {
			return fmt.Errorf("%w: %v", ErrRefreshFailed, rerr)
		}
		if !opts.ForceReacquireIfRefreshFails {
			return fmt.Errorf("%w: %v", ErrRefreshFailed, rerr)
		}
		// fall through to interactive
	} else if tok != nil && tok.RefreshToken != "" && m.cooldown.InCooldown(cooldownKey) {
		metrics.OAuthRefreshes.WithLabelValues(providerType, "cooldown").Inc()
	}

	// 3) No usable token, or interactive explicitly required.
	if norefreshBlocked {
		return ErrUnsupported
	}
	if !opts.OpenBrowser {
		return ErrInteractiveRequired
	}

	newTok, ierr := m.runInteractive(ctx, providerType, auth)
	if ierr != nil {
		return ierr
	}
	if err := m.rulesFor(providerType).Enrich(ctx, m, auth, newTok); err != nil {
		log.WithError(err).Warn("oauth: post-interactive enrich failed (non-fatal)")
	}
	m.throttle.markSuccess(key)
	return nil
}
