package tokenstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
)

// Load reads and sanitizes the token at path. A missing or unparseable file
// returns (nil, nil) — load never surfaces IO-absent as an error (spec §4.1).
func Load(path string) (*StoredToken, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		log.WithError(err).WithField("path", path).Warn("tokenstore: failed to read token file")
		return nil, nil
	}
	tok, err := Sanitize(data)
	if err != nil {
		log.WithError(err).WithField("path", path).Warn("tokenstore: unparseable token file")
		return nil, nil
	}
	tok.Alias = aliasFromPath(path)
	return tok, nil
}

// Save writes tok to path atomically: create parent directory, write to a
// sibling temp file, then rename over the destination. The rename is the
// crash-atomic boundary — a kill -9 before or after it never leaves a
// partially written file (spec §8 invariant).
func Save(path string, tok *StoredToken) error {
	if tok == nil {
		return fmt.Errorf("tokenstore: cannot save nil token")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("tokenstore: create parent dir: %w", err)
	}

	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("tokenstore: marshal token: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("tokenstore: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("tokenstore: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("tokenstore: sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("tokenstore: close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o600); err != nil {
		return fmt.Errorf("tokenstore: chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("tokenstore: rename into place: %w", err)
	}
	return nil
}

// Backup copies the token currently at path to the sibling file path+".bak"
// and returns its path, so an aborted interactive reacquire can Restore it. If
// path does not exist, Backup is a no-op and returns "".
func Backup(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("tokenstore: read for backup: %w", err)
	}
	backupPath := path + ".bak"
	if err := os.WriteFile(backupPath, data, 0o600); err != nil {
		return "", fmt.Errorf("tokenstore: write backup: %w", err)
	}
	return backupPath, nil
}

// Restore copies backupPath back over path, undoing an aborted reacquire.
func Restore(backupPath, path string) error {
	if backupPath == "" {
		return nil
	}
	data, err := os.ReadFile(backupPath)
	if err != nil {
		return fmt.Errorf("tokenstore: read backup: %w", err)
	}
	return Save(path, mustUnsanitized(data))
}

// Discard removes a backup file once it is no longer needed (flow succeeded).
func Discard(backupPath string) {
	if backupPath == "" {
		return
	}
	if err := os.Remove(backupPath); err != nil && !os.IsNotExist(err) {
		log.WithError(err).WithField("path", backupPath).Warn("tokenstore: failed to discard backup")
	}
}

func mustUnsanitized(data []byte) *StoredToken {
	tok, err := Sanitize(data)
	if err != nil || tok == nil {
		return &StoredToken{}
	}
	return tok
}

func aliasFromPath(path string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	name := base[:len(base)-len(ext)]
	// <providerType>-oauth-<seq>-<alias>
	parts := splitLast(name, "-")
	if len(parts) == 0 {
		return name
	}
	return parts[len(parts)-1]
}

func splitLast(s, sep string) []string {
	var out []string
	cur := ""
	for _, r := range s {
		if string(r) == sep {
			out = append(out, cur)
			cur = ""
			continue
		}
		cur += string(r)
	}
	out = append(out, cur)
	return out
}
