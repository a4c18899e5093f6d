package routingconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routecodex/routecodex/internal/llmswitch"
)

func TestLoad_ParsesProvidersAndRoutes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "routing.yaml")
	contents := `
default_route: default
long_context_chars: 16000
providers:
  - id: openai-primary
    kind: openai-standard
    base_url: https://api.openai.com
    dialect: openai-chat
    max_rotations: 4
  - id: qwen-oauth
    kind: qwen
    dialect: openai-chat
    auth_type: qwen
    token_file: /tmp/qwen.json
routes:
  - name: default
    members:
      - provider_id: openai-primary
        model_id: gpt-4o
        key_alias: primary
  - name: tools
    members:
      - provider_id: qwen-oauth
        model_id: qwen-max
        key_alias: a1
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "default", cfg.DefaultRoute)
	assert.Equal(t, 16000, cfg.LongContextChars)
	require.Len(t, cfg.Providers, 2)
	assert.Equal(t, llmswitch.FormatOpenAIChat, cfg.Providers[0].Dialect)
	assert.Equal(t, "qwen", cfg.Providers[1].AuthType)
	assert.Equal(t, "/tmp/qwen.json", cfg.Providers[1].Auth.TokenFile)

	require.Len(t, cfg.Routes, 2)
	assert.Equal(t, "tools", cfg.Routes[1].Name)
	assert.Equal(t, "qwen-oauth", cfg.Routes[1].Members[0].ProviderID)
}

func TestLoad_MissingFileReturnsError(t *testing.T) {
	_, err := Load("/nonexistent/routing.yaml")
	assert.Error(t, err)
}
