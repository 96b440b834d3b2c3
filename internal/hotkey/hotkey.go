// Package hotkey provides a global hotkey listener using gohook.
// In "hold" mode it reports key press and release; in "toggle" mode every
// press is a toggle.
package hotkey

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	hook "github.com/robotn/gohook"
)

// EventType is the kind of hotkey transition.
type EventType int

const (
	// EventPress is sent when the combination goes down in hold mode.
	EventPress EventType = iota
	// EventRelease is sent when the combination comes up in hold mode.
	EventRelease
	// EventToggle is sent on every press in toggle mode.
	EventToggle
)

func (t EventType) String() string {
	switch t {
	case EventPress:
		return "press"
	case EventRelease:
		return "release"
	case EventToggle:
		return "toggle"
	default:
		return fmt.Sprintf("EventType(%d)", int(t))
	}
}

// Event is emitted on the channel returned by Events.
type Event struct {
	Type EventType
}

// keyAliases maps config names to gohook key names.
var keyAliases = map[string]string{
	"windows": "cmd",
	"win":     "cmd",
	"super":   "cmd",
	"meta":    "cmd",
	"command": "cmd",
	"control": "ctrl",
	"option":  "alt",
	"return":  "enter",
	"escape":  "esc",
}

// ParseKeys splits a combination like "ctrl+windows" into gohook key
// names.
func ParseKeys(combo string) ([]string, error) {
	var keys []string
	for _, part := range strings.Split(combo, "+") {
		k := strings.ToLower(strings.TrimSpace(part))
		if k == "" {
			return nil, fmt.Errorf("hotkey: invalid key combination %q", combo)
		}
		if alias, ok := keyAliases[k]; ok {
			k = alias
		}
		keys = append(keys, k)
	}
	return keys, nil
}

// Options configure a Listener.
type Options struct {
	Keys     []string
	Mode     string // "hold" or "toggle"
	Suppress bool
	Log      *slog.Logger
}

// Listener manages a global hotkey and emits events.
type Listener struct {
	keys     []string
	mode     string
	suppress bool
	log      *slog.Logger
	ch       chan Event
	done     chan struct{}
	once     sync.Once
}

// NewListener creates a Listener. Mode defaults to "hold".
func NewListener(opts Options) *Listener {
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	if opts.Mode == "" {
		opts.Mode = "hold"
	}
	return &Listener{
		keys:     opts.Keys,
		mode:     opts.Mode,
		suppress: opts.Suppress,
		log:      opts.Log,
		ch:       make(chan Event, 64),
		done:     make(chan struct{}),
	}
}

// Events returns the channel that receives hotkey events.
// The channel is closed when the listener stops.
func (l *Listener) Events() <-chan Event {
	return l.ch
}

// Start registers the hotkey and processes OS input events. It blocks
// until Stop is called; run it in a goroutine.
func (l *Listener) Start() {
	if l.suppress {
		l.log.Info("hotkey suppression requested but not supported by the input hook, keys still reach the focused app")
	}

	hook.Register(hook.KeyDown, l.keys, func(hook.Event) { l.keyDown() })
	if l.mode != "toggle" {
		hook.Register(hook.KeyUp, l.keys, func(hook.Event) { l.keyUp() })
	}

	evChan := hook.Start()
	go func() {
		<-l.done
		hook.End()
	}()
	l.log.Info("hotkey listener started", "keys", strings.Join(l.keys, "+"), "mode", l.mode)
	<-hook.Process(evChan)
	close(l.ch)
}

// Stop terminates the hotkey listener.
// It is safe to call multiple times.
func (l *Listener) Stop() {
	l.once.Do(func() {
		close(l.done)
	})
}

func (l *Listener) keyDown() {
	if l.mode == "toggle" {
		l.send(EventToggle)
		return
	}
	l.send(EventPress)
}

func (l *Listener) keyUp() {
	l.send(EventRelease)
}

// send never blocks the hook goroutine; a full channel drops the event.
func (l *Listener) send(t EventType) {
	select {
	case l.ch <- Event{Type: t}:
	default:
		l.log.Warn("hotkey event dropped, consumer is behind", "event", t.String())
	}
}
