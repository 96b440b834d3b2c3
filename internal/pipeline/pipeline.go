// Package pipeline turns one finished recording into emitted text.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/chaz8081/talkkey/internal/audio"
	"github.com/chaz8081/talkkey/internal/session"
	"github.com/chaz8081/talkkey/internal/telemetry"
	"github.com/chaz8081/talkkey/internal/transcribe"
	"github.com/chaz8081/talkkey/internal/window"
)

// Recognizer converts a clip to text.
type Recognizer interface {
	Transcribe(ctx context.Context, clip audio.Clip) (transcribe.Result, error)
}

// Emitter delivers text to a window.
type Emitter interface {
	Emit(text string, target *window.Window) error
}

// Pipeline recognizes an utterance and emits the result.
type Pipeline struct {
	recognizer Recognizer
	emitter    Emitter
	tracer     trace.Tracer
	metrics    *telemetry.Metrics
	log        *slog.Logger
}

// New creates a Pipeline. tracer and metrics may be nil.
func New(recognizer Recognizer, emitter Emitter, tracer trace.Tracer, metrics *telemetry.Metrics, log *slog.Logger) *Pipeline {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{recognizer: recognizer, emitter: emitter, tracer: tracer, metrics: metrics, log: log}
}

// Handle processes one utterance. Every failure is logged and recorded on
// the span; the returned error only reports it to the worker.
func (p *Pipeline) Handle(ctx context.Context, u session.Utterance) error {
	ctx, span := p.tracer.Start(ctx, "utterance", trace.WithAttributes(
		attribute.String("utterance.id", u.ID),
		attribute.Int("audio.samples", len(u.Clip.Samples)),
		attribute.Int("audio.sample_rate", u.Clip.SampleRate),
		attribute.Bool("window.captured", u.Window != nil),
	))
	defer span.End()

	log := p.log.With("utterance", u.ID)

	recCtx, recSpan := p.tracer.Start(ctx, "recognize")
	start := time.Now()
	res, err := p.recognizer.Transcribe(recCtx, u.Clip)
	elapsed := time.Since(start)
	if err != nil {
		recSpan.RecordError(err)
		recSpan.SetStatus(codes.Error, "recognition failed")
		recSpan.End()
		span.SetStatus(codes.Error, "recognition failed")
		p.metrics.RecognitionDone(ctx, elapsed, "error")
		log.Error("transcription failed", "error", err, "elapsed", elapsed)
		return err
	}
	recSpan.SetAttributes(
		attribute.String("language", res.Language),
		attribute.Int("segments", len(res.Segments)),
	)
	recSpan.End()

	if res.Text == "" {
		p.metrics.RecognitionDone(ctx, elapsed, "empty")
		log.Info("no speech detected", "elapsed", elapsed)
		return nil
	}
	p.metrics.RecognitionDone(ctx, elapsed, "ok")
	log.Info("transcribed", "text", res.Text, "language", res.Language, "elapsed", elapsed)

	_, emitSpan := p.tracer.Start(ctx, "emit")
	err = p.emitter.Emit(res.Text, u.Window)
	if err != nil {
		emitSpan.RecordError(err)
		emitSpan.SetStatus(codes.Error, "emission failed")
		emitSpan.End()
		span.SetStatus(codes.Error, "emission failed")
		p.metrics.Emitted(ctx, "error")
		log.Error("emitting text", "error", err)
		return err
	}
	emitSpan.End()
	p.metrics.Emitted(ctx, "ok")
	return nil
}
