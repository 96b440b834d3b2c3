// Command test-hotkey is a manual test for the global hotkey listener.
// Run it, then press the combination to see events.
// Press Ctrl+C to exit.
//
// Usage:
//
//	go run ./cmd/test-hotkey [--keys ctrl+shift+r] [--mode hold|toggle]
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chaz8081/talkkey/internal/hotkey"
)

func main() {
	combo := flag.String("keys", "ctrl+shift+r", "key combination")
	mode := flag.String("mode", "hold", "hotkey mode: hold or toggle")
	flag.Parse()

	keys, err := hotkey.ParseKeys(*combo)
	if err != nil {
		log.Fatal(err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	fmt.Printf("Listening for %s (%v) in %q mode...\n", *combo, keys, *mode)
	fmt.Println("Press Ctrl+C to exit.")

	listener := hotkey.NewListener(hotkey.Options{Keys: keys, Mode: *mode, Log: logger})

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		fmt.Println("\nShutting down...")
		listener.Stop()
	}()

	go func() {
		var pressedAt time.Time
		for ev := range listener.Events() {
			switch ev.Type {
			case hotkey.EventPress:
				pressedAt = time.Now()
				fmt.Println(">>> PRESS")
			case hotkey.EventRelease:
				fmt.Printf("<<< RELEASE (held %v)\n", time.Since(pressedAt).Round(time.Millisecond))
			case hotkey.EventToggle:
				fmt.Println("=== TOGGLE")
			}
		}
		fmt.Println("Event channel closed.")
	}()

	// Blocks until stopped
	listener.Start()
	fmt.Println("Done.")
}
