package oauth

import (
	"context"

	"github.com/routecodex/routecodex/internal/tokenstore"
)

// noopRules is the providerRules implementation for provider types with no
// family-specific enrichment or repair triage (spec §4.2's decision table
// applies unmodified).
type noopRules struct{}

func (noopRules) Enrich(context.Context, *Manager, AuthDescriptor, *tokenstore.StoredToken) error {
	return nil
}

func (noopRules) ShouldTriggerRepair(int, string, string) (bool, bool) {
	return false, false
}
