package tokenstore

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// knownBadKeys are legacy/garbage fields occasionally found in hand-edited
// or older-version token files; Sanitize strips them rather than erroring.
var knownBadKeys = map[string]bool{
	"undefined": true,
	"null":      true,
	"":          true,
}

// Sanitize parses raw token JSON and normalizes its shape:
//   - expires_at accepted as seconds, milliseconds, or an ISO-8601 string,
//     always normalized to epoch-ms on the way out;
//   - a wrapping `{ "token": {...} }` envelope (gemini-cli family) is
//     unwrapped, with project_id/email duplicated onto the inner token for
//     backward compatibility;
//   - unrecognized/garbage top-level keys are ignored rather than rejected.
func Sanitize(data []byte) (*StoredToken, error) {
	if !json.Valid(data) {
		return nil, fmt.Errorf("tokenstore: invalid json")
	}
	root := gjson.ParseBytes(data)

	// Gemini-CLI family envelope: unwrap "token" and duplicate shared fields.
	if tokenField := root.Get("token"); tokenField.Exists() && tokenField.IsObject() {
		inner, err := Sanitize([]byte(tokenField.Raw))
		if err != nil {
			return nil, err
		}
		if inner.ProjectID == "" {
			inner.ProjectID = root.Get("project_id").String()
		}
		if inner.Email == "" {
			inner.Email = root.Get("email").String()
		}
		return inner, nil
	}

	var tok StoredToken
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("tokenstore: unmarshal: %w", err)
	}

	if norefresh := root.Get("norefresh"); norefresh.Exists() {
		tok.Norefresh = norefresh.Bool()
	}

	if raw := root.Get("expires_at"); raw.Exists() {
		ms, err := normalizeExpiresAt(raw)
		if err == nil {
			tok.ExpiresAt = ms
		}
	}

	return &tok, nil
}

// normalizeExpiresAt accepts seconds-since-epoch, ms-since-epoch, or an
// ISO-8601 string and returns epoch-ms.
func normalizeExpiresAt(v gjson.Result) (int64, error) {
	switch v.Type {
	case gjson.Number:
		n := v.Num
		if n > 0 && n < 1e12 {
			// looks like seconds, not ms
			return int64(n * 1000), nil
		}
		return int64(n), nil
	case gjson.String:
		s := strings.TrimSpace(v.Str)
		if s == "" {
			return 0, fmt.Errorf("empty expires_at")
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			if n > 0 && n < 1e12 {
				return n * 1000, nil
			}
			return n, nil
		}
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t.UnixMilli(), nil
		}
		return 0, fmt.Errorf("unrecognized expires_at format: %q", s)
	default:
		return 0, fmt.Errorf("unsupported expires_at type")
	}
}

// IsNearExpiry reports whether the token is at or within skew of expiring,
// using epoch-ms. A zero ExpiresAt (unknown) is treated as expired.
func (t *StoredToken) IsNearExpiry(now time.Time, skew time.Duration) bool {
	if t == nil || t.ExpiresAt == 0 {
		return true
	}
	expiry := time.UnixMilli(t.ExpiresAt)
	return !now.Add(skew).Before(expiry)
}
