// Package tokenstore owns atomic persistence and shape-normalization of
// per-provider-per-alias OAuth credential files on disk. It is the only
// package that performs file I/O for a given token path (spec §3 ownership).
package tokenstore

// StoredToken is the on-disk JSON document for one credential.
type StoredToken struct {
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	// ExpiresAt is always normalized to epoch milliseconds by Sanitize.
	ExpiresAt int64  `json:"expires_at,omitempty"`
	TokenType string `json:"token_type,omitempty"`
	APIKey    string `json:"api_key,omitempty"`
	ProjectID string `json:"project_id,omitempty"`
	Email     string `json:"email,omitempty"`
	Scope     string `json:"scope,omitempty"`
	IDToken   string `json:"id_token,omitempty"`

	// Alias is the credential slot name this file was resolved for
	// ("default", "static", or a user-chosen name). Not always present on
	// disk; populated by the resolver from the file name.
	Alias string `json:"-"`

	// Norefresh disables both refresh and interactive flows for this
	// token unless explicitly overridden by the caller (spec §4.2).
	Norefresh bool `json:"norefresh,omitempty"`
}

// IsStaticAlias reports whether this credential is the literal "static"
// alias, which short-circuits all refresh/reauth per spec §4.2.
func (t *StoredToken) IsStaticAlias() bool {
	return t != nil && t.Alias == "static"
}

// HasUsableCredential reports whether the token carries either a non-empty
// access token or a stable API key (spec §3 invariant: when access_token is
// empty, api_key is what the runtime uses).
func (t *StoredToken) HasUsableCredential() bool {
	if t == nil {
		return false
	}
	return t.AccessToken != "" || t.APIKey != ""
}

// geminiCLIEnvelope is the wrapping shape used by the gemini-cli family
// ("token" nested, with top-level fields duplicated for back-compat), per
// spec §3/§6.
type geminiCLIEnvelope struct {
	Token     *StoredToken `json:"token,omitempty"`
	ProjectID string       `json:"project_id,omitempty"`
	Email     string       `json:"email,omitempty"`
}
