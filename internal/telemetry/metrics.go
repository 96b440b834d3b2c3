package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics are the counters and histograms recorded along one dictation
// cycle. A nil *Metrics records nothing.
type Metrics struct {
	recordings  metric.Int64Counter
	discarded   metric.Int64Counter
	utterances  metric.Int64Counter
	recognition metric.Float64Histogram
	emissions   metric.Int64Counter
	meter       metric.Meter
}

// NewMetrics creates the instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{meter: meter}
	var err error

	if m.recordings, err = meter.Int64Counter("talkkey.recordings",
		metric.WithDescription("Recordings started")); err != nil {
		return nil, fmt.Errorf("telemetry: recordings counter: %w", err)
	}
	if m.discarded, err = meter.Int64Counter("talkkey.recordings.discarded",
		metric.WithDescription("Recordings that produced no utterance")); err != nil {
		return nil, fmt.Errorf("telemetry: discarded counter: %w", err)
	}
	if m.utterances, err = meter.Int64Counter("talkkey.utterances",
		metric.WithDescription("Utterances handed to the transcription worker")); err != nil {
		return nil, fmt.Errorf("telemetry: utterances counter: %w", err)
	}
	if m.recognition, err = meter.Float64Histogram("talkkey.recognition.duration",
		metric.WithDescription("Recognizer latency per utterance"),
		metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("telemetry: recognition histogram: %w", err)
	}
	if m.emissions, err = meter.Int64Counter("talkkey.emissions",
		metric.WithDescription("Emission attempts by outcome")); err != nil {
		return nil, fmt.Errorf("telemetry: emissions counter: %w", err)
	}
	return m, nil
}

// ObserveQueue reports the transcription backlog on every collection.
func (m *Metrics) ObserveQueue(pending func() int) error {
	if m == nil {
		return nil
	}
	gauge, err := m.meter.Int64ObservableGauge("talkkey.queue.pending",
		metric.WithDescription("Utterances waiting for the transcription worker"))
	if err != nil {
		return fmt.Errorf("telemetry: queue gauge: %w", err)
	}
	_, err = m.meter.RegisterCallback(func(_ context.Context, obs metric.Observer) error {
		obs.ObserveInt64(gauge, int64(pending()))
		return nil
	}, gauge)
	return err
}

func (m *Metrics) RecordingStarted(ctx context.Context) {
	if m == nil {
		return
	}
	m.recordings.Add(ctx, 1)
}

// RecordingDiscarded counts a recording dropped before transcription.
func (m *Metrics) RecordingDiscarded(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.discarded.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

func (m *Metrics) UtteranceQueued(ctx context.Context) {
	if m == nil {
		return
	}
	m.utterances.Add(ctx, 1)
}

// RecognitionDone records recognizer latency with its outcome
// ("ok", "empty" or "error").
func (m *Metrics) RecognitionDone(ctx context.Context, elapsed time.Duration, outcome string) {
	if m == nil {
		return
	}
	m.recognition.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *Metrics) Emitted(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.emissions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
