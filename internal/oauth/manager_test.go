package oauth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/routecodex/routecodex/internal/tokenstore"
)

func testAuth(tokenFile, tokenURL string) AuthDescriptor {
	return AuthDescriptor{
		Type:         "mock",
		TokenFile:    tokenFile,
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		Urls:         AuthURLs{TokenURL: tokenURL},
	}
}

func TestEnsureValidOAuthToken_StaticAliasShortCircuits(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mock-oauth-1-static.json")
	require.NoError(t, tokenstore.Save(path, &tokenstore.StoredToken{APIKey: "sk-test"}))

	m := NewManager(filepath.Join(dir, "cooldown.json"))
	err := m.EnsureValidOAuthToken(context.Background(), "mock", testAuth(path, ""), Options{})
	require.NoError(t, err)
}

func TestEnsureValidOAuthToken_ValidTokenNoForce(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mock-oauth-1-alice.json")
	future := time.Now().Add(time.Hour).UnixMilli()
	require.NoError(t, tokenstore.Save(path, &tokenstore.StoredToken{AccessToken: "tok", ExpiresAt: future}))

	m := NewManager(filepath.Join(dir, "cooldown.json"))
	err := m.EnsureValidOAuthToken(context.Background(), "mock", testAuth(path, ""), Options{})
	require.NoError(t, err)
}

func TestEnsureValidOAuthToken_RefreshesNearExpiry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mock-oauth-1-bob.json")
	nearExpiry := time.Now().Add(time.Minute).UnixMilli()
	require.NoError(t, tokenstore.Save(path, &tokenstore.StoredToken{AccessToken: "stale", RefreshToken: "refresh-me", ExpiresAt: nearExpiry}))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"fresh","expires_in":3600,"token_type":"Bearer"}`))
	}))
	defer srv.Close()

	m := NewManager(filepath.Join(dir, "cooldown.json"))
	err := m.EnsureValidOAuthToken(context.Background(), "mock", testAuth(path, srv.URL), Options{})
	require.NoError(t, err)

	tok, err := tokenstore.Load(path)
	require.NoError(t, err)
	require.Equal(t, "fresh", tok.AccessToken)
}

func TestEnsureValidOAuthToken_RefreshFailureWithoutFallbackReturnsErr(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mock-oauth-1-carol.json")
	nearExpiry := time.Now().Add(time.Minute).UnixMilli()
	require.NoError(t, tokenstore.Save(path, &tokenstore.StoredToken{AccessToken: "stale", RefreshToken: "refresh-me", ExpiresAt: nearExpiry}))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer srv.Close()

	m := NewManager(filepath.Join(dir, "cooldown.json"))
	err := m.EnsureValidOAuthToken(context.Background(), "mock", testAuth(path, srv.URL), Options{})
	require.ErrorIs(t, err, ErrRefreshFailed)
}

func TestEnsureValidOAuthToken_NoRefreshTokenRequiresInteractive(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mock-oauth-1-dave.json")
	require.NoError(t, tokenstore.Save(path, &tokenstore.StoredToken{}))

	m := NewManager(filepath.Join(dir, "cooldown.json"))
	err := m.EnsureValidOAuthToken(context.Background(), "mock", testAuth(path, ""), Options{OpenBrowser: false})
	require.ErrorIs(t, err, ErrInteractiveRequired)
}

func TestEnsureValidOAuthToken_NorefreshBlocksRefresh(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mock-oauth-1-erin.json")
	nearExpiry := time.Now().Add(time.Minute).UnixMilli()
	require.NoError(t, tokenstore.Save(path, &tokenstore.StoredToken{AccessToken: "stale", RefreshToken: "refresh-me", ExpiresAt: nearExpiry, Norefresh: true}))

	m := NewManager(filepath.Join(dir, "cooldown.json"))
	err := m.EnsureValidOAuthToken(context.Background(), "mock", testAuth(path, ""), Options{OpenBrowser: false})
	require.ErrorIs(t, err, ErrUnsupported)
}

func TestShouldTriggerInteractiveOAuthRepair_ServiceDisabledNeverRepairs(t *testing.T) {
	m := NewManager("")
	require.False(t, m.ShouldTriggerInteractiveOAuthRepair("gemini-cli", 403, "", "Cloud AI Companion API has not been used in project 12345 before or it is disabled"))
}

func TestShouldTriggerInteractiveOAuthRepair_GenericInvalidToken(t *testing.T) {
	m := NewManager("")
	require.True(t, m.ShouldTriggerInteractiveOAuthRepair("mock", 401, "", "Unauthenticated: invalid authentication credentials"))
}

func TestSingleflightGroup_DeduplicatesConcurrentCalls(t *testing.T) {
	g := newSingleflightGroup()
	calls := 0
	var wg []chan error
	for i := 0; i < 5; i++ {
		ch := make(chan error, 1)
		wg = append(wg, ch)
		go func(ch chan error) {
			ch <- g.Do("same-key", func() error {
				calls++
				time.Sleep(10 * time.Millisecond)
				return nil
			})
		}(ch)
	}
	for _, ch := range wg {
		require.NoError(t, <-ch)
	}
	require.Equal(t, 1, calls)
}

func TestThrottle_SuppressesWithinWindow(t *testing.T) {
	now := time.Now()
	tr := newThrottle(time.Minute)
	tr.now = func() time.Time { return now }
	require.False(t, tr.shouldSkip("k"))
	tr.markSuccess("k")
	require.True(t, tr.shouldSkip("k"))
	tr.now = func() time.Time { return now.Add(2 * time.Minute) }
	require.False(t, tr.shouldSkip("k"))
}
