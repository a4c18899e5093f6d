// Package oauth implements the OAuth Lifecycle Manager: it guarantees that,
// before a request leaves for an OAuth-authenticated provider, the
// credential at a token file is valid — refreshing, enriching, or triggering
// an interactive reacquisition as needed (spec §4.2).
package oauth

import (
	"errors"
	"time"
)

// AuthURLs holds the per-provider OAuth endpoints (spec: OAuthFlowConfig).
type AuthURLs struct {
	AuthorizationURL string
	TokenURL         string
	DeviceCodeURL    string
	UserInfoURL      string
}

// AuthDescriptor describes how to authenticate one provider type.
type AuthDescriptor struct {
	Type         string
	TokenFile    string
	ClientID     string
	ClientSecret string
	Scopes       []string
	Urls         AuthURLs
	// PortalURL, if set, is a hosted token portal an operator can visit
	// instead of a local interactive flow (spec: OAuthFlowConfig.tokenPortal).
	PortalURL string
}

// Options controls one ensureValidOAuthToken call.
type Options struct {
	// ForceReacquireIfRefreshFails falls through to the interactive flow
	// when a refresh attempt fails, instead of raising RefreshFailed.
	ForceReacquireIfRefreshFails bool
	// OpenBrowser allows this call to run (and block on) an interactive
	// flow. When false, a required interactive flow is refused with
	// ErrInteractiveRequired so the caller can fail fast and retry
	// elsewhere (the Executor always passes false — spec §4.6 step 3).
	OpenBrowser bool
	// ForceReauthorize bypasses the 60s throttle and the "already valid"
	// short-circuit, always re-validating/refreshing.
	ForceReauthorize bool
}

// cacheKey identifies one (providerType, tokenFile) pair for singleflight
// and throttling purposes (spec §4.2/§5).
func cacheKey(providerType, tokenFile string) string {
	return providerType + "\x00" + tokenFile
}

// Failure classes raised by this package (spec §4.2).
var (
	ErrTokenExpired               = errors.New("oauth: token expired")
	ErrRefreshFailed              = errors.New("oauth: refresh failed")
	ErrInteractiveRequired        = errors.New("oauth: interactive authorization required")
	ErrInteractiveLocked          = errors.New("oauth: interactive authorization already in progress")
	ErrPortalUnavailable          = errors.New("oauth: token portal unavailable")
	ErrAccountVerificationRequired = errors.New("oauth: account verification required")
	ErrUnsupported                = errors.New("oauth: unsupported operation for this credential")
)

const (
	throttleWindow     = 60 * time.Second
	interactiveLockTTL = 15 * time.Second
	expirySkew         = 3 * time.Minute
)
