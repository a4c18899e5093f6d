package tokenstore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "qwen-oauth-1-default.json")

	tok := &StoredToken{AccessToken: "abc", RefreshToken: "r", ExpiresAt: 1700000000000}
	require.NoError(t, Save(path, tok))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Equal(t, "abc", loaded.AccessToken)
	require.Equal(t, "default", loaded.Alias)
}

func TestLoadMissingReturnsNilNoError(t *testing.T) {
	loaded, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	require.Nil(t, loaded)
}

func TestSanitizeAcceptsSecondsAndMillis(t *testing.T) {
	secTok, err := Sanitize([]byte(`{"access_token":"a","expires_at":1700000000}`))
	require.NoError(t, err)
	require.Equal(t, int64(1700000000000), secTok.ExpiresAt)

	msTok, err := Sanitize([]byte(`{"access_token":"a","expires_at":1700000000000}`))
	require.NoError(t, err)
	require.Equal(t, int64(1700000000000), msTok.ExpiresAt)
}

func TestSanitizeUnwrapsGeminiCLIEnvelope(t *testing.T) {
	tok, err := Sanitize([]byte(`{"token":{"access_token":"inner"},"project_id":"proj-1","email":"me@example.com"}`))
	require.NoError(t, err)
	require.Equal(t, "inner", tok.AccessToken)
	require.Equal(t, "proj-1", tok.ProjectID)
	require.Equal(t, "me@example.com", tok.Email)
}

func TestBackupRestoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gemini-oauth-1-default.json")
	require.NoError(t, Save(path, &StoredToken{AccessToken: "v1"}))

	backupPath, err := Backup(path)
	require.NoError(t, err)
	require.NotEmpty(t, backupPath)

	require.NoError(t, Save(path, &StoredToken{AccessToken: "v2"}))
	loaded, _ := Load(path)
	require.Equal(t, "v2", loaded.AccessToken)

	require.NoError(t, Restore(backupPath, path))
	loaded, _ = Load(path)
	require.Equal(t, "v1", loaded.AccessToken)

	Discard(backupPath)
}

func TestIsNearExpiry(t *testing.T) {
	now := time.Now()
	tok := &StoredToken{ExpiresAt: now.Add(1 * time.Minute).UnixMilli()}
	require.True(t, tok.IsNearExpiry(now, 3*time.Minute))
	require.False(t, tok.IsNearExpiry(now, 10*time.Second))
}

func TestResolvePathAllocatesNextSequence(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Save(filepath.Join(dir, "qwen-oauth-1-default.json"), &StoredToken{AccessToken: "a"}))
	require.NoError(t, Save(filepath.Join(dir, "qwen-oauth-2-default.json"), &StoredToken{AccessToken: "b"}))

	path, err := ResolvePath(dir, "qwen", "default")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "qwen-oauth-2-default.json"), path)

	newPath, err := ResolvePath(dir, "qwen", "work")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "qwen-oauth-3-work.json"), newPath)
}
