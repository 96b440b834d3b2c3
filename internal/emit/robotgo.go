package emit

import (
	"fmt"

	"github.com/go-vgo/robotgo"
)

// RobotgoClipboard writes the system clipboard through robotgo.
type RobotgoClipboard struct{}

func (RobotgoClipboard) Copy(text string) error {
	if err := robotgo.WriteAll(text); err != nil {
		return fmt.Errorf("write to clipboard: %w", err)
	}
	return nil
}

// RobotgoKeyboard synthesizes keystrokes through robotgo.
type RobotgoKeyboard struct{}

func (RobotgoKeyboard) SendCombination(c Combo) error {
	mods := make([]any, len(c.Modifiers))
	for i, m := range c.Modifiers {
		mods[i] = m
	}
	if err := robotgo.KeyTap(c.Key, mods...); err != nil {
		return fmt.Errorf("key tap %s: %w", c, err)
	}
	return nil
}

// TypeText types text one character at a time. It preserves the clipboard
// but is slower than pasting for long text.
func (RobotgoKeyboard) TypeText(text string) error {
	robotgo.Type(text)
	return nil
}
