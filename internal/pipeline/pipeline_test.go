package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/chaz8081/talkkey/internal/audio"
	"github.com/chaz8081/talkkey/internal/session"
	"github.com/chaz8081/talkkey/internal/telemetry"
	"github.com/chaz8081/talkkey/internal/transcribe"
	"github.com/chaz8081/talkkey/internal/window"
)

type mockRecognizer struct {
	res   transcribe.Result
	err   error
	calls int
}

func (m *mockRecognizer) Transcribe(context.Context, audio.Clip) (transcribe.Result, error) {
	m.calls++
	return m.res, m.err
}

type mockEmitter struct {
	mu     sync.Mutex
	texts  []string
	target []*window.Window
	err    error
}

func (m *mockEmitter) Emit(text string, target *window.Window) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.texts = append(m.texts, text)
	m.target = append(m.target, target)
	return m.err
}

type harness struct {
	spans   *tracetest.SpanRecorder
	reader  *sdkmetric.ManualReader
	rec     *mockRecognizer
	emitter *mockEmitter
	p       *Pipeline
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		spans:   tracetest.NewSpanRecorder(),
		reader:  sdkmetric.NewManualReader(),
		rec:     &mockRecognizer{},
		emitter: &mockEmitter{},
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(h.spans))
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(h.reader))
	m, err := telemetry.NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatal(err)
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	h.p = New(h.rec, h.emitter, tp.Tracer("test"), m, log)
	return h
}

func (h *harness) spanNames() map[string]sdktrace.ReadOnlySpan {
	out := map[string]sdktrace.ReadOnlySpan{}
	for _, s := range h.spans.Ended() {
		out[s.Name()] = s
	}
	return out
}

// counter returns the value of a counter data point with the given outcome.
func (h *harness) counter(t *testing.T, name, outcome string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := h.reader.Collect(context.Background(), &rm); err != nil {
		t.Fatal(err)
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			for _, dp := range m.Data.(metricdata.Sum[int64]).DataPoints {
				if v, ok := dp.Attributes.Value("outcome"); ok && v.AsString() == outcome {
					return dp.Value
				}
			}
		}
	}
	return 0
}

func testUtterance() session.Utterance {
	return session.Utterance{
		ID:     "u-1",
		Clip:   audio.Clip{Samples: []float32{0.1, 0.2}, SampleRate: 16000, Channels: 1},
		Window: &window.Window{ID: 9, Title: "terminal"},
	}
}

func TestHandleEmitsText(t *testing.T) {
	h := newHarness(t)
	h.rec.res = transcribe.Result{Text: "hello world", Language: "en"}

	u := testUtterance()
	if err := h.p.Handle(context.Background(), u); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	if len(h.emitter.texts) != 1 || h.emitter.texts[0] != "hello world" {
		t.Fatalf("emitted %v, want [hello world]", h.emitter.texts)
	}
	if h.emitter.target[0] != u.Window {
		t.Error("emit should receive the window captured at start")
	}

	spans := h.spanNames()
	for _, name := range []string{"utterance", "recognize", "emit"} {
		if _, ok := spans[name]; !ok {
			t.Errorf("span %q not recorded", name)
		}
	}
	if got := spans["recognize"].Parent().SpanID(); got != spans["utterance"].SpanContext().SpanID() {
		t.Error("recognize span should be a child of utterance")
	}
	if n := h.counter(t, "talkkey.emissions", "ok"); n != 1 {
		t.Errorf("emissions{ok} = %d, want 1", n)
	}
}

func TestHandleSkipsEmptyText(t *testing.T) {
	h := newHarness(t)

	if err := h.p.Handle(context.Background(), testUtterance()); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if len(h.emitter.texts) != 0 {
		t.Errorf("emitted %v for empty result", h.emitter.texts)
	}
	if _, ok := h.spanNames()["emit"]; ok {
		t.Error("emit span recorded for empty result")
	}
}

func TestHandleRecognitionError(t *testing.T) {
	h := newHarness(t)
	h.rec.err = &transcribe.RecognitionError{Op: "recognize", Err: errors.New("oom")}

	err := h.p.Handle(context.Background(), testUtterance())
	var recErr *transcribe.RecognitionError
	if !errors.As(err, &recErr) {
		t.Fatalf("Handle() error = %v, want *RecognitionError", err)
	}
	if len(h.emitter.texts) != 0 {
		t.Error("emission should be skipped after a recognition error")
	}

	spans := h.spanNames()
	if spans["utterance"].Status().Code != codes.Error {
		t.Error("utterance span should carry an error status")
	}
	if len(spans["recognize"].Events()) == 0 {
		t.Error("recognize span should record the error event")
	}
}

func TestHandleEmissionError(t *testing.T) {
	h := newHarness(t)
	h.rec.res = transcribe.Result{Text: "hi"}
	h.emitter.err = errors.New("clipboard locked")

	if err := h.p.Handle(context.Background(), testUtterance()); err == nil {
		t.Fatal("Handle() should return the emission error")
	}
	if h.spanNames()["emit"].Status().Code != codes.Error {
		t.Error("emit span should carry an error status")
	}
	if n := h.counter(t, "talkkey.emissions", "error"); n != 1 {
		t.Errorf("emissions{error} = %d, want 1", n)
	}
}

func TestNewWithoutTelemetry(t *testing.T) {
	rec := &mockRecognizer{res: transcribe.Result{Text: "ok"}}
	em := &mockEmitter{}
	p := New(rec, em, nil, nil, nil)
	if err := p.Handle(context.Background(), testUtterance()); err != nil {
		t.Fatal(err)
	}
	if len(em.texts) != 1 {
		t.Error("text not emitted")
	}
}
