package oauth

import "github.com/skratchdot/open-golang/open"

// DefaultBrowserOpener launches the system's default browser at url. Wire
// it with Manager.WithBrowserOpener for an operator-facing entry point that
// wants the interactive flow to pop a browser window instead of just
// logging the authorization URL.
func DefaultBrowserOpener(url string) error {
	return open.Run(url)
}
