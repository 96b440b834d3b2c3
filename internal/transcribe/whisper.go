package transcribe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	whisper "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
)

// WhisperBackend runs a whisper.cpp model loaded once at startup. Each call
// gets a fresh decoding context.
type WhisperBackend struct {
	model whisper.Model
	log   *slog.Logger
}

// NewWhisperBackend loads a ggml model from path. The caller must call
// Close when done.
func NewWhisperBackend(modelPath string, log *slog.Logger) (*WhisperBackend, error) {
	model, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("transcribe: load whisper model %q: %w", modelPath, err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &WhisperBackend{model: model, log: log}, nil
}

// Close releases the model.
func (b *WhisperBackend) Close() error {
	if b.model != nil {
		return b.model.Close()
	}
	return nil
}

// Transcribe decodes mono 16 kHz samples. With VAD enabled, silence is
// trimmed first and segment times are relative to the trimmed audio;
// input with no speech returns no segments without running the model.
func (b *WhisperBackend) Transcribe(ctx context.Context, samples []float32, p Params) ([]RawSegment, Info, error) {
	info := Info{Duration: time.Duration(len(samples)) * time.Second / SampleRate}

	if p.VAD {
		trimmed := trimSilence(samples, p.VADMinSilence)
		b.log.Debug("vad", "in", len(samples), "out", len(trimmed))
		if len(trimmed) == 0 {
			return nil, info, nil
		}
		samples = trimmed
	}

	if err := ctx.Err(); err != nil {
		return nil, info, err
	}

	wctx, err := b.model.NewContext()
	if err != nil {
		return nil, info, fmt.Errorf("transcribe: create context: %w", err)
	}

	if b.model.IsMultilingual() {
		lang := p.Language
		if lang == "" {
			lang = "auto"
		}
		if err := wctx.SetLanguage(lang); err != nil {
			return nil, info, fmt.Errorf("transcribe: set language %q: %w", lang, err)
		}
	} else if p.Language != "" && p.Language != "en" {
		b.log.Warn("model is English-only, ignoring language hint", "language", p.Language)
	}
	if p.BeamSize > 0 {
		wctx.SetBeamSize(p.BeamSize)
	}

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return nil, info, fmt.Errorf("transcribe: process: %w", err)
	}

	var segments []RawSegment
	for {
		seg, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, info, fmt.Errorf("transcribe: next segment: %w", err)
		}
		segments = append(segments, RawSegment{Text: seg.Text, Start: seg.Start, End: seg.End})
	}

	if b.model.IsMultilingual() {
		info.Language = wctx.DetectedLanguage()
	} else {
		info.Language = "en"
	}
	return segments, info, nil
}
