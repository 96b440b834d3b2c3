package window

import (
	"errors"
	"sync"

	"github.com/go-vgo/robotgo"
)

// maxRemembered bounds how many captured windows can still be restored.
// Only one dictation is active at a time, a few are kept for queued ones.
const maxRemembered = 8

// RobotgoBackend captures and restores the foreground window via robotgo.
type RobotgoBackend struct {
	mu      sync.Mutex
	restore map[int]func()
	order   []int
}

// NewRobotgoBackend returns a backend bound to the desktop session.
func NewRobotgoBackend() *RobotgoBackend {
	return &RobotgoBackend{restore: make(map[int]func())}
}

// Capture returns the active window handle and its title.
func (b *RobotgoBackend) Capture() (*Window, error) {
	handle := robotgo.GetHandle()
	if handle == 0 {
		return nil, nil
	}
	active := robotgo.GetActive()
	w := &Window{ID: handle, Title: robotgo.GetTitle()}

	b.mu.Lock()
	if _, ok := b.restore[handle]; !ok {
		b.order = append(b.order, handle)
	}
	b.restore[handle] = func() { robotgo.SetActive(active) }
	for len(b.order) > maxRemembered {
		delete(b.restore, b.order[0])
		b.order = b.order[1:]
	}
	b.mu.Unlock()

	return w, nil
}

// Focus restores a window previously returned by Capture.
func (b *RobotgoBackend) Focus(w Window) error {
	b.mu.Lock()
	restore, ok := b.restore[w.ID]
	b.mu.Unlock()
	if !ok {
		return errors.New("window: handle was not captured by this backend")
	}

	restore()
	if robotgo.GetHandle() != w.ID {
		return errors.New("window: foreground did not change")
	}
	return nil
}
