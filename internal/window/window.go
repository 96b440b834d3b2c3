// Package window records which window had input focus when dictation
// started and asks the platform to give focus back to it later.
package window

import (
	"errors"
	"fmt"
	"log/slog"
)

// Window identifies a top-level window. It is immutable once captured.
type Window struct {
	ID    int
	Title string
}

// Same reports whether w and other refer to the same window. Titles are
// ignored because they change while a window is in use.
func (w Window) Same(other Window) bool {
	return w.ID == other.ID
}

func (w Window) String() string {
	return fmt.Sprintf("%d %q", w.ID, w.Title)
}

// Backend is a platform window system.
type Backend interface {
	// Capture returns the foreground window, or nil if there is none.
	Capture() (*Window, error)
	// Focus brings w to the foreground.
	Focus(w Window) error
}

// NullBackend is used where no window system integration is available.
// It never reports a window and never succeeds in focusing one.
type NullBackend struct{}

func (NullBackend) Capture() (*Window, error) { return nil, nil }

func (NullBackend) Focus(Window) error { return ErrUnsupported }

// ErrUnsupported is returned by backends that cannot change focus.
var ErrUnsupported = errors.New("window: focus not supported on this platform")

// Tracker captures and restores the focused window. A disabled tracker
// never calls its backend.
type Tracker struct {
	enabled bool
	backend Backend
	log     *slog.Logger
}

// NewTracker returns a Tracker. A nil backend is replaced by NullBackend.
func NewTracker(enabled bool, backend Backend, log *slog.Logger) *Tracker {
	if backend == nil || !enabled {
		backend = NullBackend{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Tracker{enabled: enabled, backend: backend, log: log}
}

// Enabled reports whether the tracker talks to its backend.
func (t *Tracker) Enabled() bool { return t.enabled }

// Capture returns the currently focused window, or nil if it is unknown.
// Backend failures are logged and reported as nil.
func (t *Tracker) Capture() *Window {
	if !t.enabled {
		return nil
	}
	w, err := t.backend.Capture()
	if err != nil {
		t.log.Debug("failed to capture active window", "error", err)
		return nil
	}
	return w
}

// Focus asks the backend to foreground w and reports whether it worked.
func (t *Tracker) Focus(w Window) bool {
	if !t.enabled {
		return false
	}
	if err := t.backend.Focus(w); err != nil {
		t.log.Debug("failed to focus window", "window", w.String(), "error", err)
		return false
	}
	return true
}
