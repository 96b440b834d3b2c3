// Command test-inject is a manual test for text emission.
// It captures the focused window, waits 3 seconds, then emits test text
// back into that window.
//
// Usage:
//
//	go run ./cmd/test-inject [--method type|paste] [--text "..."]
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/chaz8081/talkkey/internal/emit"
	"github.com/chaz8081/talkkey/internal/window"
)

func main() {
	method := flag.String("method", "type", "emit method: type or paste")
	text := flag.String("text", "Hello from talkkey!", "text to emit")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	tracker := window.NewTracker(true, window.NewRobotgoBackend(), logger)
	target := tracker.Capture()
	if target != nil {
		fmt.Printf("Captured window %s\n", target)
	}

	fmt.Printf("Will emit %q using %q method in 3 seconds...\n", *text, *method)
	fmt.Println("Switch windows now to check refocusing.")

	for i := 3; i > 0; i-- {
		fmt.Printf("%d...\n", i)
		time.Sleep(time.Second)
	}

	var opts emit.Options
	switch *method {
	case "type":
		opts.InsertText = true
	case "paste":
		combo, err := emit.ParseCombo(emit.DefaultPasteKeys())
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		opts.CopyToClipboard = true
		opts.InsertText = true
		opts.PasteKeys = combo
	default:
		fmt.Printf("Error: unknown method %q\n", *method)
		return
	}

	emitter := emit.New(emit.RobotgoClipboard{}, emit.RobotgoKeyboard{}, tracker, opts, logger)
	if err := emitter.Emit(*text, target); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	fmt.Println("\nDone!")
}
