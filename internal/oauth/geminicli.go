package oauth

import (
	"context"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/routecodex/routecodex/internal/tokenstore"
)

// geminiCLIRules implements the Gemini-CLI family (gemini-cli, antigravity):
// after a token is validated or refreshed, it derives the user's email and
// a usable project ID and enables the Cloud AI Companion API on it. None of
// this is fatal to the credential itself — an enrichment failure here just
// means a later request-time call discovers the same problem and surfaces
// it there instead.
type geminiCLIRules struct {
	detector *ProjectDetector
}

func (r *geminiCLIRules) ensureDetector() *ProjectDetector {
	if r.detector == nil {
		r.detector = NewProjectDetector()
	}
	return r.detector
}

func (r *geminiCLIRules) Enrich(ctx context.Context, m *Manager, auth AuthDescriptor, tok *tokenstore.StoredToken) error {
	if tok.AccessToken == "" {
		return nil
	}
	detector := r.ensureDetector()

	if tok.Email == "" {
		if email, err := detector.GetUserEmail(ctx, tok.AccessToken); err == nil {
			tok.Email = email
		} else {
			log.WithError(err).Debug("oauth(gemini-cli): failed to fetch user email (non-fatal)")
		}
	}

	if tok.ProjectID == "" {
		projects, err := detector.ListProjects(ctx, tok.AccessToken)
		if err != nil {
			log.WithError(err).Debug("oauth(gemini-cli): failed to list projects (non-fatal)")
		} else if len(projects) > 0 {
			tok.ProjectID = projects[0].ProjectID
		}
	}

	if tok.ProjectID != "" {
		if err := detector.EnableRequiredAPIs(ctx, tok.AccessToken, tok.ProjectID); err != nil {
			log.WithError(err).Debug("oauth(gemini-cli): failed to enable required APIs (non-fatal)")
		}
	}

	return tokenstore.Save(auth.TokenFile, tok)
}

func (geminiCLIRules) ShouldTriggerRepair(httpStatus int, upstreamCode, message string) (bool, bool) {
	lower := strings.ToLower(message)
	if strings.Contains(lower, "verify your account") || strings.Contains(lower, "account verification") {
		return true, true
	}
	if httpStatus == 401 {
		return true, false
	}
	return false, false
}
