package shared

import (
	"fmt"

	"github.com/skratchdot/open-golang/open"
)

// BrowserOpener opens URLs for the user to interact with.
type BrowserOpener interface {
	Open(url string) error
}

// SystemBrowser opens URLs in the system default browser.
type SystemBrowser struct{}

// Open launches the default browser on url.
func (SystemBrowser) Open(url string) error {
	if err := open.Run(url); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}
