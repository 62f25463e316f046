package capture

import (
	"context"
	"errors"
)

var (
	// ErrTransport marks a transient disconnect between this process and
	// the browser. Element lookup retries once on it.
	ErrTransport = errors.New("webdriver transport disconnected")

	// ErrElementShotUnsupported means the active driver cannot screenshot
	// a single element. The engine falls back to a full-page screenshot;
	// this is a capability gap, not a failure.
	ErrElementShotUnsupported = errors.New("element screenshot not supported by driver")
)

// Element is a located page element that can be captured on its own.
type Element interface {
	Screenshot() ([]byte, error)
}

// Session is one live browser window. Every session must be closed on every
// exit path, success or not.
type Session interface {
	Navigate(url string) error
	SetViewport(width, height int) error
	ElementByID(id string) (Element, error)
	ElementByClass(class string) (Element, error)
	// HasElementByID reports presence without waiting for the element.
	HasElementByID(id string) (bool, error)
	Screenshot() ([]byte, error)
	AddCookie(name, value string) error
	Close() error
}

// Driver opens browser sessions.
type Driver interface {
	NewSession(ctx context.Context) (Session, error)
}
