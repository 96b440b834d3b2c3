// Command talkkey is push-to-talk dictation: hold the hotkey, speak,
// release, and the transcript is typed into the window that had focus.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chaz8081/talkkey/internal/audio"
	"github.com/chaz8081/talkkey/internal/config"
	"github.com/chaz8081/talkkey/internal/emit"
	"github.com/chaz8081/talkkey/internal/hotkey"
	"github.com/chaz8081/talkkey/internal/models"
	"github.com/chaz8081/talkkey/internal/pipeline"
	"github.com/chaz8081/talkkey/internal/session"
	"github.com/chaz8081/talkkey/internal/telemetry"
	"github.com/chaz8081/talkkey/internal/transcribe"
	"github.com/chaz8081/talkkey/internal/window"
	"github.com/chaz8081/talkkey/internal/worker"
)

var version = "dev"

const shutdownTimeout = 30 * time.Second

func main() {
	configPath := flag.String("config", "", "path to config file (default: ~/.config/talkkey/config.yaml)")
	initConfig := flag.Bool("init-config", false, "write the default config file and exit")
	download := flag.Bool("download", false, "download the configured model and exit")
	flag.Parse()

	if *initConfig {
		path, err := config.WriteDefault()
		if err != nil {
			log.Fatalf("config: %v", err)
		}
		if path == "" {
			fmt.Printf("Config already exists at %s\n", config.DefaultConfigPath())
			return
		}
		fmt.Printf("Wrote default config to %s\n", path)
		return
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config validation: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: config.ParseLogLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)

	ctx := context.Background()
	modelPath, err := resolveModel(ctx, cfg, logger, *download)
	if err != nil {
		log.Fatalf("model: %v", err)
	}
	if *download {
		fmt.Printf("Model ready at %s\n", modelPath)
		return
	}

	printBanner(cfg, modelPath)

	tel, err := telemetry.Setup(ctx, telemetry.Config{Version: version, Traces: cfg.Telemetry.Traces}, logger)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	metrics, err := telemetry.NewMetrics(tel.Meter())
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}

	logger.Info("loading whisper model", "path", modelPath)
	modelStart := time.Now()
	backend, err := transcribe.NewWhisperBackend(modelPath, logger)
	if err != nil {
		log.Fatalf("Failed to load whisper model: %v\n\nCheck that the model file exists at: %s\nRun 'talkkey -download' to fetch it.", err, modelPath)
	}
	logger.Info("model loaded", "elapsed", time.Since(modelStart).Round(time.Millisecond))

	var detector transcribe.LanguageDetector
	if cfg.Transcribe.DetectLanguage {
		d, err := transcribe.NewLinguaDetector(transcribe.LinguaOptions{
			Languages:   cfg.Transcribe.DetectLanguages,
			LowAccuracy: cfg.Transcribe.DetectAccuracy != "high",
		})
		if err != nil {
			log.Fatalf("config: %v", err)
		}
		detector = d
	}
	recognizer := transcribe.NewRecognizer(backend, transcribe.Params{
		BeamSize:      cfg.Transcribe.BeamSize,
		Language:      cfg.Transcribe.Language,
		VAD:           cfg.Transcribe.VAD,
		VADMinSilence: cfg.Transcribe.VADMinSilence(),
	}, detector, logger)

	format, err := audio.ParseFormat(cfg.Audio.Format)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	capture, err := audio.NewMalgoBackend()
	if err != nil {
		log.Fatalf("Failed to initialize audio: %v\n\nEnsure microphone access is granted to this terminal.", err)
	}
	recorder, err := audio.NewRecorder(capture, audio.StreamConfig{
		SampleRate: cfg.Audio.SampleRate,
		Channels:   cfg.Audio.Channels,
		BlockSize:  cfg.Audio.BlockSize,
		Format:     format,
	}, logger)
	if err != nil {
		log.Fatalf("audio: %v", err)
	}

	tracker := window.NewTracker(cfg.Output.FocusActiveWindow, window.NewRobotgoBackend(), logger)
	emitter, err := newEmitter(cfg.Output, tracker, logger)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	queue := worker.New(logger)
	if err := metrics.ObserveQueue(queue.Pending); err != nil {
		logger.Warn("queue metrics unavailable", "error", err)
	}
	p := pipeline.New(recognizer, emitter, tel.Tracer(), metrics, logger)
	sess := session.New(recorder, tracker, queue, p.Handle, session.Options{
		Debounce: cfg.Hotkey.DebounceWindow(),
		Metrics:  metrics,
		Log:      logger,
	})

	keys, err := hotkey.ParseKeys(cfg.Hotkey.Keys)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	listener := hotkey.NewListener(hotkey.Options{
		Keys:     keys,
		Mode:     cfg.Hotkey.Mode,
		Suppress: cfg.Hotkey.Suppress,
		Log:      logger,
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go listener.Start()
	logger.Info("ready", "hotkey", cfg.Hotkey.Keys, "mode", cfg.Hotkey.Mode)

	shutdown := func(reason string) {
		logger.Info("shutting down", "reason", reason)
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := sess.Shutdown(ctx); err != nil {
			logger.Error("shutdown did not finish", "error", err)
		}
		if err := recognizer.Close(); err != nil {
			logger.Warn("closing model", "error", err)
		}
		if err := capture.Close(); err != nil {
			logger.Warn("closing audio", "error", err)
		}
		if err := tel.Shutdown(ctx); err != nil {
			logger.Warn("flushing telemetry", "error", err)
		}
		logger.Info("goodbye")
	}

	events := listener.Events()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				shutdown("hotkey listener stopped")
				return
			}
			handleEvent(sess, ev, logger)

		case sig := <-sigCh:
			shutdown(sig.String())
			// Exit directly to avoid gohook's C cleanup crash.
			// The OS reclaims the event hook on process exit.
			os.Exit(0)
		}
	}
}

// handleEvent maps a hotkey event onto the session. It never blocks on
// audio teardown or recognition.
func handleEvent(sess *session.Session, ev hotkey.Event, logger *slog.Logger) {
	switch ev.Type {
	case hotkey.EventPress:
		if _, err := sess.Press(); err != nil && !errors.Is(err, session.ErrClosed) {
			logger.Error("could not start recording", "error", err)
		}
	case hotkey.EventRelease:
		sess.Release()
	case hotkey.EventToggle:
		if _, err := sess.Toggle(); err != nil && !errors.Is(err, session.ErrClosed) {
			logger.Error("could not start recording", "error", err)
		}
	}
}

// newEmitter wires the clipboard and keyboard backends the output config
// enables; disabled capabilities get no-op implementations.
func newEmitter(out config.OutputConfig, focus emit.Focuser, logger *slog.Logger) (*emit.Emitter, error) {
	pasteKeys := out.PasteKeys
	if pasteKeys == "" {
		pasteKeys = emit.DefaultPasteKeys()
	}
	combo, err := emit.ParseCombo(pasteKeys)
	if err != nil {
		return nil, err
	}

	var clipboard emit.Clipboard = emit.NopClipboard{}
	if out.CopyToClipboard {
		clipboard = emit.RobotgoClipboard{}
	}
	var keyboard emit.Keyboard = emit.NopKeyboard{}
	if out.InsertText {
		keyboard = emit.RobotgoKeyboard{}
	}

	return emit.New(clipboard, keyboard, focus, emit.Options{
		CopyToClipboard: out.CopyToClipboard,
		InsertText:      out.InsertText,
		PasteKeys:       combo,
	}, logger), nil
}

// resolveModel returns the model file to load, downloading it when
// allowed. An explicit model_path is used as is.
func resolveModel(ctx context.Context, cfg *config.Config, logger *slog.Logger, force bool) (string, error) {
	t := cfg.Transcribe
	if t.ModelPath != "" {
		if _, err := os.Stat(t.ModelPath); err != nil {
			return "", fmt.Errorf("model_path %s: %w", t.ModelPath, err)
		}
		return t.ModelPath, nil
	}

	path, err := models.Path(t.DownloadDir, t.ModelSize, t.ComputeType)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	if !t.AutoDownload && !force {
		return "", fmt.Errorf("%s not found and auto_download is off; run 'talkkey -download'", path)
	}
	return models.NewDownloader(logger).Ensure(ctx, t.DownloadDir, t.ModelSize, t.ComputeType)
}

// loadConfig loads the config from the specified path, or falls back to
// the default config path, or uses built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}

	defaultPath := config.DefaultConfigPath()
	if _, err := os.Stat(defaultPath); err == nil {
		cfg, err := config.Load(defaultPath)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", defaultPath, err)
		}
		return cfg, nil
	}

	return config.Default(), nil
}

// printBanner displays the startup configuration summary.
func printBanner(cfg *config.Config, modelPath string) {
	language := cfg.Transcribe.Language
	if language == "" {
		language = "auto"
	}
	fmt.Println("=== talkkey ===")
	fmt.Printf("  Model:   %s (beam %d, language %s)\n", modelPath, cfg.Transcribe.BeamSize, language)
	fmt.Printf("  Hotkey:  %s (%s mode)\n", cfg.Hotkey.Keys, cfg.Hotkey.Mode)
	fmt.Printf("  Audio:   %dHz, %dch, %s\n", cfg.Audio.SampleRate, cfg.Audio.Channels, cfg.Audio.Format)
	fmt.Printf("  Output:  clipboard=%v insert=%v refocus=%v\n", cfg.Output.CopyToClipboard, cfg.Output.InsertText, cfg.Output.FocusActiveWindow)
	fmt.Printf("  Log:     %s\n", cfg.LogLevel)
	fmt.Println("===============")
}
