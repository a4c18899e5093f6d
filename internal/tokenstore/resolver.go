package tokenstore

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
)

var fileNamePattern = regexp.MustCompile(`^([a-z0-9_-]+?)-oauth-(\d+)-(.+)\.json$`)

// ResolvePath finds the token file path for (providerType, alias) by
// scanning authDir for `<providerType>-oauth-<seq>-<alias>.json`, preferring
// the highest sequence number. If none exists, it allocates a new path with
// seq = max+1 (spec §4.2).
func ResolvePath(authDir, providerType, alias string) (string, error) {
	entries, err := os.ReadDir(authDir)
	if err != nil {
		if os.IsNotExist(err) {
			return allocatePath(authDir, providerType, alias, 1), nil
		}
		return "", fmt.Errorf("tokenstore: read auth dir: %w", err)
	}

	best := -1
	var bestName string
	maxSeq := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := fileNamePattern.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		if m[1] != providerType {
			continue
		}
		seq, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		if seq > maxSeq {
			maxSeq = seq
		}
		if m[3] == alias && seq > best {
			best = seq
			bestName = entry.Name()
		}
	}

	if best >= 0 {
		return filepath.Join(authDir, bestName), nil
	}
	return allocatePath(authDir, providerType, alias, maxSeq+1), nil
}

func allocatePath(authDir, providerType, alias string, seq int) string {
	if seq < 1 {
		seq = 1
	}
	name := fmt.Sprintf("%s-oauth-%d-%s.json", providerType, seq, alias)
	return filepath.Join(authDir, name)
}

// ListAliases returns every alias on disk for providerType mapped to its
// path, keeping only the highest sequence number per alias.
func ListAliases(authDir, providerType string) (map[string]string, error) {
	entries, err := os.ReadDir(authDir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("tokenstore: read auth dir: %w", err)
	}

	type hit struct {
		seq  int
		path string
	}
	best := make(map[string]hit)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := fileNamePattern.FindStringSubmatch(entry.Name())
		if m == nil || m[1] != providerType {
			continue
		}
		seq, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		alias := m[3]
		if existing, ok := best[alias]; !ok || seq > existing.seq {
			best[alias] = hit{seq: seq, path: filepath.Join(authDir, entry.Name())}
		}
	}

	out := make(map[string]string, len(best))
	aliases := make([]string, 0, len(best))
	for alias := range best {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	for _, alias := range aliases {
		out[alias] = best[alias].path
	}
	return out, nil
}
