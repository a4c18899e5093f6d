package routingconfig

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/routecodex/routecodex/internal/llmswitch"
	"github.com/routecodex/routecodex/internal/oauth"
	"github.com/routecodex/routecodex/internal/providerruntime"
)

// fileProvider and fileRoute mirror ProviderConfig/RouteConfig with plain
// yaml tags, kept separate from the exported types so the wire format can
// evolve (snake_case keys, flat auth fields) without disturbing the types
// the rest of the pipeline imports.
type fileProvider struct {
	ID           string   `yaml:"id"`
	Kind         string   `yaml:"kind"`
	BaseURL      string   `yaml:"base_url"`
	Dialect      string   `yaml:"dialect"`
	AuthType     string   `yaml:"auth_type"`
	TokenFile    string   `yaml:"token_file"`
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	Scopes       []string `yaml:"scopes"`
	PortalURL    string   `yaml:"portal_url"`
	MaxRotations int      `yaml:"max_rotations"`
}

type fileRoute struct {
	Name    string `yaml:"name"`
	Members []struct {
		ProviderID string `yaml:"provider_id"`
		ModelID    string `yaml:"model_id"`
		KeyAlias   string `yaml:"key_alias"`
	} `yaml:"members"`
}

type fileConfig struct {
	Providers          []fileProvider `yaml:"providers"`
	Routes             []fileRoute    `yaml:"routes"`
	DefaultRoute       string         `yaml:"default_route"`
	LongContextChars   int            `yaml:"long_context_chars"`
	ServerExecTools    bool           `yaml:"server_exec_tools"`
	AutoBanThreshold   int            `yaml:"auto_ban_threshold"`
	AutoBanDurationSec int            `yaml:"auto_ban_duration_sec"`
}

// Load reads a YAML routing configuration file, the core pipeline's
// counterpart to the legacy internal/config tree's much larger
// config.LoadWithFile for the admin/management surface.
func Load(path string) (RoutingConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return RoutingConfig{}, fmt.Errorf("routingconfig: read %s: %w", path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return RoutingConfig{}, fmt.Errorf("routingconfig: parse %s: %w", path, err)
	}

	cfg := RoutingConfig{
		DefaultRoute:       fc.DefaultRoute,
		LongContextChars:   fc.LongContextChars,
		ServerExecTools:    fc.ServerExecTools,
		AutoBanThreshold:   fc.AutoBanThreshold,
		AutoBanDurationSec: fc.AutoBanDurationSec,
	}
	for _, p := range fc.Providers {
		cfg.Providers = append(cfg.Providers, ProviderConfig{
			ProviderID: p.ID,
			Kind:       p.Kind,
			BaseURL:    p.BaseURL,
			Dialect:    llmswitch.Format(p.Dialect),
			AuthType:   p.AuthType,
			Auth: oauth.AuthDescriptor{
				Type:         p.AuthType,
				TokenFile:    p.TokenFile,
				ClientID:     p.ClientID,
				ClientSecret: p.ClientSecret,
				Scopes:       p.Scopes,
				PortalURL:    p.PortalURL,
			},
			MaxRotations: p.MaxRotations,
			Transport:    providerruntime.ClientConfig{BaseURL: p.BaseURL},
		})
	}
	for _, r := range fc.Routes {
		members := make([]providerruntime.ProviderKey, 0, len(r.Members))
		for _, m := range r.Members {
			members = append(members, providerruntime.ProviderKey{ProviderID: m.ProviderID, ModelID: m.ModelID, KeyAlias: m.KeyAlias})
		}
		cfg.Routes = append(cfg.Routes, RouteConfig{Name: r.Name, Members: members})
	}
	return cfg, nil
}
