// Package emit delivers recognized text to the focused application: copy
// to the clipboard, give focus back to the original window, then paste or
// type. The order is fixed because each step depends on the one before.
package emit

import (
	"fmt"
	"log/slog"
	"runtime"
	"strings"

	"github.com/chaz8081/talkkey/internal/window"
)

// Clipboard writes text to the system clipboard.
type Clipboard interface {
	Copy(text string) error
}

// Keyboard synthesizes key input.
type Keyboard interface {
	SendCombination(c Combo) error
	TypeText(text string) error
}

// Focuser brings a window to the foreground and reports success.
type Focuser interface {
	Focus(w window.Window) bool
}

// Combo is a key with held modifiers, e.g. ctrl+v.
type Combo struct {
	Key       string
	Modifiers []string
}

func (c Combo) String() string {
	return strings.Join(append(append([]string(nil), c.Modifiers...), c.Key), "+")
}

// ParseCombo parses "mod+mod+key". The last element is the key.
func ParseCombo(s string) (Combo, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "+")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
		if parts[i] == "" {
			return Combo{}, fmt.Errorf("emit: invalid key combination %q", s)
		}
	}
	return Combo{Key: parts[len(parts)-1], Modifiers: parts[:len(parts)-1]}, nil
}

// DefaultPasteKeys returns the platform paste shortcut.
func DefaultPasteKeys() string {
	if runtime.GOOS == "darwin" {
		return "cmd+v"
	}
	return "ctrl+v"
}

// EmissionError reports a failed clipboard write or key injection.
type EmissionError struct {
	Op  string
	Err error
}

func (e *EmissionError) Error() string {
	return fmt.Sprintf("emit: %s: %v", e.Op, e.Err)
}

func (e *EmissionError) Unwrap() error { return e.Err }

// Options select which emission steps run.
type Options struct {
	CopyToClipboard bool
	InsertText      bool
	PasteKeys       Combo
}

// Emitter runs the emission sequence.
type Emitter struct {
	clipboard Clipboard
	keyboard  Keyboard
	focus     Focuser
	opts      Options
	log       *slog.Logger
}

// New creates an Emitter. Nil capabilities are replaced with no-ops.
func New(clipboard Clipboard, keyboard Keyboard, focus Focuser, opts Options, log *slog.Logger) *Emitter {
	if clipboard == nil {
		clipboard = NopClipboard{}
	}
	if keyboard == nil {
		keyboard = NopKeyboard{}
	}
	if focus == nil {
		focus = nopFocuser{}
	}
	if opts.PasteKeys.Key == "" {
		opts.PasteKeys, _ = ParseCombo(DefaultPasteKeys())
	}
	if log == nil {
		log = slog.Default()
	}
	return &Emitter{clipboard: clipboard, keyboard: keyboard, focus: focus, opts: opts, log: log}
}

// Emit copies, refocuses and injects text. Empty text is a no-op. A
// clipboard failure aborts before anything is typed; a failed refocus
// only logs a warning and injection goes to whatever has focus.
func (e *Emitter) Emit(text string, target *window.Window) error {
	if text == "" {
		return nil
	}

	if e.opts.CopyToClipboard {
		if err := e.clipboard.Copy(text); err != nil {
			return &EmissionError{Op: "copy to clipboard", Err: err}
		}
	}

	if !e.opts.InsertText {
		return nil
	}

	if target != nil && !e.focus.Focus(*target) {
		e.log.Warn("could not restore focus, typing into current window", "window", target.String())
	}

	if e.opts.CopyToClipboard {
		if err := e.keyboard.SendCombination(e.opts.PasteKeys); err != nil {
			return &EmissionError{Op: "paste " + e.opts.PasteKeys.String(), Err: err}
		}
		return nil
	}
	if err := e.keyboard.TypeText(text); err != nil {
		return &EmissionError{Op: "type text", Err: err}
	}
	return nil
}

// NopClipboard discards writes.
type NopClipboard struct{}

func (NopClipboard) Copy(string) error { return nil }

// NopKeyboard discards key input.
type NopKeyboard struct{}

func (NopKeyboard) SendCombination(Combo) error { return nil }
func (NopKeyboard) TypeText(string) error       { return nil }

type nopFocuser struct{}

func (nopFocuser) Focus(window.Window) bool { return false }
