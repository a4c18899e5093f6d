package oauth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/routecodex/routecodex/internal/tokenstore"
)

const lockFileName = ".oauth-interactive.lock.json"

// lockPayload is the JSON content of the cross-process interactive lock
// file, recording enough to reclaim a stale lock or cancel a running flow.
type lockPayload struct {
	PID       int       `json:"pid"`
	Port      int       `json:"port"`
	TokenFile string    `json:"token_file"`
	CreatedAt time.Time `json:"created_at"`
}

// interactiveCoordinator serializes interactive OAuth flows process-wide via
// a single O_EXCL lock file, and lets a newer request cancel an in-flight
// older one for the same token path (spec §4.2 step 5).
type interactiveCoordinator struct {
	authDir string

	mu       sync.Mutex
	running  map[string]chan struct{} // tokenFile -> cancel channel for the running flow
}

func newInteractiveCoordinator() *interactiveCoordinator {
	return &interactiveCoordinator{running: make(map[string]chan struct{})}
}

func (ic *interactiveCoordinator) lockPath(authDir string) string {
	return authDir + string(os.PathSeparator) + lockFileName
}

// acquireLock creates the lock file with O_EXCL, reclaiming it if the
// recorded PID is dead or the file is older than interactiveLockTTL.
func (ic *interactiveCoordinator) acquireLock(authDir string, payload lockPayload) (release func(), err error) {
	path := ic.lockPath(authDir)

	for attempt := 0; attempt < 2; attempt++ {
		payload.CreatedAt = time.Now()
		data, _ := json.Marshal(payload)

		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err == nil {
			if _, werr := f.Write(data); werr != nil {
				_ = f.Close()
				_ = os.Remove(path)
				return nil, fmt.Errorf("oauth: write lock file: %w", werr)
			}
			_ = f.Close()
			return func() { _ = os.Remove(path) }, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("oauth: create lock file: %w", err)
		}

		if ic.reclaimIfStale(path) {
			continue // retry once after reclaiming
		}
		return nil, ErrInteractiveLocked
	}
	return nil, ErrInteractiveLocked
}

func (ic *interactiveCoordinator) reclaimIfStale(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return os.IsNotExist(err)
	}
	var existing lockPayload
	if err := json.Unmarshal(data, &existing); err != nil {
		_ = os.Remove(path)
		return true
	}
	if time.Since(existing.CreatedAt) > interactiveLockTTL {
		_ = os.Remove(path)
		return true
	}
	if existing.PID > 0 && !pidAlive(existing.PID) {
		_ = os.Remove(path)
		return true
	}
	return false
}

func pidAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// On Unix, FindProcess always succeeds; signal 0 probes liveness
	// without actually sending a signal.
	err = proc.Signal(syscall.Signal(0))
	return err == nil
}

// runInteractive drives one PKCE authorization-code flow end to end: it
// backs up any existing token, serializes via the process-wide lock, opens a
// local callback listener, builds the authorization URL, waits for the
// callback (or cancellation by a newer session for the same path), and
// exchanges the code for tokens.
func (m *Manager) runInteractive(ctx context.Context, providerType string, auth AuthDescriptor) (*tokenstore.StoredToken, error) {
	authDir := dirOf(auth.TokenFile)

	backupPath, _ := tokenstore.Backup(auth.TokenFile)
	succeeded := false
	defer func() {
		if succeeded {
			tokenstore.Discard(backupPath)
		} else if backupPath != "" {
			_ = tokenstore.Restore(backupPath, auth.TokenFile)
			tokenstore.Discard(backupPath)
		}
	}()

	// Signal any older flow for the same token file to cancel.
	m.interactive.mu.Lock()
	if cancel, ok := m.interactive.running[auth.TokenFile]; ok {
		close(cancel)
	}
	myCancel := make(chan struct{})
	m.interactive.running[auth.TokenFile] = myCancel
	m.interactive.mu.Unlock()
	defer func() {
		m.interactive.mu.Lock()
		if m.interactive.running[auth.TokenFile] == myCancel {
			delete(m.interactive.running, auth.TokenFile)
		}
		m.interactive.mu.Unlock()
	}()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("oauth: open callback listener: %w", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port

	release, err := m.interactive.acquireLock(authDir, lockPayload{PID: os.Getpid(), Port: port, TokenFile: auth.TokenFile})
	if err != nil {
		_ = listener.Close()
		return nil, err
	}
	defer release()

	verifier := generateCodeVerifier()
	state := uuid.NewString()
	authURL := buildAuthURL(auth, state, verifier, port)

	type callbackResult struct {
		code  string
		state string
		err   error
	}
	resultCh := make(chan callbackResult, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if errParam := q.Get("error"); errParam != "" {
			resultCh <- callbackResult{err: fmt.Errorf("oauth: callback error: %s", errParam)}
			fmt.Fprint(w, "Authorization cancelled.")
			return
		}
		if q.Get("state") != state {
			resultCh <- callbackResult{err: fmt.Errorf("oauth: state mismatch (possible CSRF)")}
			fmt.Fprint(w, "Invalid state.")
			return
		}
		resultCh <- callbackResult{code: q.Get("code"), state: q.Get("state")}
		fmt.Fprint(w, "Authorization complete. You may close this window.")
	})
	srv := &http.Server{Handler: mux}
	go func() { _ = srv.Serve(listener) }()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if m.openBrowser != nil {
		_ = m.openBrowser(authURL)
	}
	log.WithField("provider", providerType).Infof("oauth: open this URL to authorize: %s", authURL)

	select {
	case res := <-resultCh:
		if res.err != nil {
			return nil, res.err
		}
		tok, err := m.exchangeCode(ctx, auth, res.code, verifier, port)
		if err != nil {
			return nil, err
		}
		succeeded = true
		if err := tokenstore.Save(auth.TokenFile, tok); err != nil {
			return nil, fmt.Errorf("oauth: save interactive token: %w", err)
		}
		return tok, nil
	case <-myCancel:
		return nil, fmt.Errorf("oauth: cancelled by a newer authorization session for the same credential")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (auth AuthDescriptor) oauth2Config(redirect string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     auth.ClientID,
		ClientSecret: auth.ClientSecret,
		RedirectURL:  redirect,
		Scopes:       auth.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  auth.Urls.AuthorizationURL,
			TokenURL: auth.Urls.TokenURL,
		},
	}
}

func buildAuthURL(auth AuthDescriptor, state, verifier string, port int) string {
	redirect := fmt.Sprintf("http://127.0.0.1:%d/oauth2callback", port)
	cfg := auth.oauth2Config(redirect)
	return cfg.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
		oauth2.SetAuthURLParam("code_challenge", generateCodeChallenge(verifier)),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
}

func (m *Manager) exchangeCode(ctx context.Context, auth AuthDescriptor, code, verifier string, port int) (*tokenstore.StoredToken, error) {
	redirect := fmt.Sprintf("http://127.0.0.1:%d/oauth2callback", port)
	cfg := auth.oauth2Config(redirect)
	httpClientCtx := context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)

	tok, err := cfg.Exchange(httpClientCtx, code, oauth2.SetAuthURLParam("code_verifier", verifier))
	if err != nil {
		return nil, fmt.Errorf("oauth: exchange request: %w", err)
	}

	idToken, _ := tok.Extra("id_token").(string)
	return &tokenstore.StoredToken{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry.UnixMilli(),
		TokenType:    tok.TokenType,
		IDToken:      idToken,
	}, nil
}

func generateCodeVerifier() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

func generateCodeChallenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func dirOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' || path[i] == os.PathSeparator {
			return path[:i]
		}
	}
	return "."
}
