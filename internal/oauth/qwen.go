package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/routecodex/routecodex/internal/tokenstore"
)

// qwenRules implements Qwen's api_key derivation: the portal-issued access
// token is exchanged for a provider-native api_key via the userinfo
// endpoint. When that endpoint 404s (older Qwen tenants never provisioned
// one), the raw access_token is used as the api_key directly instead of
// failing the whole credential.
type qwenRules struct{}

type qwenUserInfoResponse struct {
	APIKey string `json:"api_key"`
}

func (qwenRules) Enrich(ctx context.Context, m *Manager, auth AuthDescriptor, tok *tokenstore.StoredToken) error {
	if tok.AccessToken == "" || auth.Urls.UserInfoURL == "" {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, auth.Urls.UserInfoURL, nil)
	if err != nil {
		return fmt.Errorf("oauth(qwen): build userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("oauth(qwen): userinfo request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		log.WithField("provider", "qwen").Debug("oauth(qwen): userinfo endpoint 404, using access_token as api_key")
		tok.APIKey = tok.AccessToken
		return tokenstore.Save(auth.TokenFile, tok)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("oauth(qwen): userinfo returned status %d", resp.StatusCode)
	}

	var parsed qwenUserInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("oauth(qwen): decode userinfo response: %w", err)
	}
	if parsed.APIKey == "" {
		tok.APIKey = tok.AccessToken
	} else {
		tok.APIKey = parsed.APIKey
	}
	return tokenstore.Save(auth.TokenFile, tok)
}

func (qwenRules) ShouldTriggerRepair(httpStatus int, upstreamCode, message string) (bool, bool) {
	lower := strings.ToLower(message)
	if httpStatus == http.StatusUnauthorized && strings.Contains(lower, "api_key") {
		return true, false
	}
	return false, false
}
