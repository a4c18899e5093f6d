package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/routecodex/routecodex/internal/tokenstore"
)

// refresh exchanges tok.RefreshToken for a fresh access token at
// auth.Urls.TokenURL, grounded on the teacher's Manager.RefreshToken, but
// using golang.org/x/oauth2's token source instead of a hand-rolled POST.
func (m *Manager) refresh(ctx context.Context, auth AuthDescriptor, tok *tokenstore.StoredToken) (*tokenstore.StoredToken, error) {
	if tok.RefreshToken == "" {
		return nil, fmt.Errorf("oauth: no refresh token available")
	}
	if auth.Urls.TokenURL == "" {
		return nil, fmt.Errorf("oauth: no token endpoint configured for %s", auth.Type)
	}

	cfg := &oauth2.Config{
		ClientID:     auth.ClientID,
		ClientSecret: auth.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: auth.Urls.TokenURL},
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)

	src := cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: tok.RefreshToken})
	fresh, err := src.Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil &&
			retrieveErr.Response.StatusCode >= http.StatusInternalServerError && auth.Type == "iflow" {
			// iFlow 5xx on refresh: caller applies a 5-minute cooldown (spec §4.2/§7).
			return nil, fmt.Errorf("%w: iflow refresh endpoint returned %d (cooldown applied)", errIFlowRefresh5xx, retrieveErr.Response.StatusCode)
		}
		return nil, fmt.Errorf("oauth: refresh failed: %w", err)
	}

	next := *tok
	if fresh.AccessToken != "" {
		next.AccessToken = fresh.AccessToken
	}
	if fresh.RefreshToken != "" {
		next.RefreshToken = fresh.RefreshToken
	}
	if !fresh.Expiry.IsZero() {
		next.ExpiresAt = fresh.Expiry.UnixMilli()
	}
	if fresh.TokenType != "" {
		next.TokenType = fresh.TokenType
	}
	if idToken, ok := fresh.Extra("id_token").(string); ok && idToken != "" {
		next.IDToken = idToken
	}
	return &next, nil
}
