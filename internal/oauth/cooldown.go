package oauth

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// cooldownEntry records one provider family's suspension state after a
// failing refresh (e.g. iFlow's 5xx-triggered 5-minute cooldown, spec §4.2).
type cooldownEntry struct {
	Until   time.Time `json:"until"`
	Attempt int       `json:"attempt"`
}

// cooldownStore persists per-key cooldown state to a JSON file so a process
// restart doesn't forget a recent run of upstream failures and hammer the
// same endpoint again immediately.
type cooldownStore struct {
	path string

	mu      sync.Mutex
	entries map[string]cooldownEntry
}

func newCooldownStore(path string) *cooldownStore {
	s := &cooldownStore{path: path, entries: make(map[string]cooldownEntry)}
	s.load()
	return s
}

func (s *cooldownStore) load() {
	if s.path == "" {
		return
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.WithError(err).WithField("path", s.path).Warn("oauth: failed to read cooldown store")
		}
		return
	}
	var entries map[string]cooldownEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		log.WithError(err).WithField("path", s.path).Warn("oauth: cooldown store is corrupt, starting fresh")
		return
	}
	s.entries = entries
}

func (s *cooldownStore) persist() {
	if s.path == "" {
		return
	}
	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		log.WithError(err).Warn("oauth: failed to marshal cooldown store")
		return
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		log.WithError(err).WithField("dir", dir).Warn("oauth: failed to create cooldown store directory")
		return
	}
	tmp, err := os.CreateTemp(dir, ".cooldown-*.tmp")
	if err != nil {
		log.WithError(err).Warn("oauth: failed to create cooldown temp file")
		return
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		log.WithError(err).Warn("oauth: failed to write cooldown temp file")
		return
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		log.WithError(err).Warn("oauth: failed to sync cooldown temp file")
		return
	}
	if err := tmp.Close(); err != nil {
		log.WithError(err).Warn("oauth: failed to close cooldown temp file")
		return
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		log.WithError(err).Warn("oauth: failed to rename cooldown temp file into place")
	}
}

// InCooldown reports whether key is currently suspended.
func (s *cooldownStore) InCooldown(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return false
	}
	return time.Now().Before(e.Until)
}

// Trip puts key into cooldown for d, bumping its attempt counter.
func (s *cooldownStore) Trip(key string, d time.Duration) int {
	s.mu.Lock()
	e := s.entries[key]
	e.Attempt++
	e.Until = time.Now().Add(d)
	s.entries[key] = e
	attempt := e.Attempt
	s.mu.Unlock()
	s.persist()
	return attempt
}

// Clear removes any cooldown state for key after a successful operation.
func (s *cooldownStore) Clear(key string) {
	s.mu.Lock()
	_, existed := s.entries[key]
	if existed {
		delete(s.entries, key)
	}
	s.mu.Unlock()
	if existed {
		s.persist()
	}
}
