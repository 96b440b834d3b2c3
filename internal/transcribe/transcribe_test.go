package transcribe

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/chaz8081/talkkey/internal/audio"
)

type mockBackend struct {
	mu       sync.Mutex
	segments []RawSegment
	info     Info
	err      error
	calls    int
	samples  []float32
	params   Params
	closed   bool
}

func (m *mockBackend) Transcribe(_ context.Context, samples []float32, p Params) ([]RawSegment, Info, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.samples = samples
	m.params = p
	return m.segments, m.info, m.err
}

func (m *mockBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

type stubDetector struct {
	lang       string
	confidence float64
	ok         bool
	calls      int
}

func (d *stubDetector) Detect(string) (string, float64, bool) {
	d.calls++
	return d.lang, d.confidence, d.ok
}

func TestNormalize(t *testing.T) {
	raw := []RawSegment{
		{Text: " Hello", Start: 0, End: time.Second},
		{Text: "world! ", Start: time.Second, End: 2 * time.Second},
		{Text: ""},
	}

	text, segments := Normalize(raw)
	if text != "Hello world!" {
		t.Errorf("text = %q, want %q", text, "Hello world!")
	}
	if len(segments) != 2 {
		t.Fatalf("got %d segments, want 2", len(segments))
	}
	if segments[0].Text != "Hello" || segments[1].Text != "world!" {
		t.Errorf("segments = %+v", segments)
	}
	if segments[1].Start != time.Second || segments[1].End != 2*time.Second {
		t.Errorf("segment timing not preserved: %+v", segments[1])
	}
}

func TestNormalizeCleansText(t *testing.T) {
	tests := []struct {
		name string
		raw  []string
		want string
		segs int
	}{
		{"collapses inner whitespace", []string{"  so   many\tspaces\n"}, "so many spaces", 1},
		{"drops whitespace-only", []string{"   ", "\t", "ok"}, "ok", 1},
		{"composes accents", []string{"cafe\u0301"}, "caf\u00e9", 1},
		{"nothing", nil, "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var raw []RawSegment
			for _, s := range tt.raw {
				raw = append(raw, RawSegment{Text: s})
			}
			text, segments := Normalize(raw)
			if text != tt.want {
				t.Errorf("text = %q, want %q", text, tt.want)
			}
			if len(segments) != tt.segs {
				t.Errorf("got %d segments, want %d", len(segments), tt.segs)
			}
		})
	}
}

func TestRecognizerResamplesAndPassesParams(t *testing.T) {
	backend := &mockBackend{
		segments: []RawSegment{{Text: " hi there "}},
		info:     Info{Language: "en", LanguageProbability: 0.9, Duration: time.Second},
	}
	params := Params{BeamSize: 5, Language: "en", VAD: true, VADMinSilence: 500 * time.Millisecond}
	r := NewRecognizer(backend, params, nil, nil)

	clip := audio.Clip{Samples: make([]float32, 48000), SampleRate: 48000, Channels: 1}
	res, err := r.Transcribe(context.Background(), clip)
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}

	if len(backend.samples) != 16000 {
		t.Errorf("backend got %d samples, want 16000", len(backend.samples))
	}
	if backend.params != params {
		t.Errorf("backend params = %+v, want %+v", backend.params, params)
	}
	if res.Text != "hi there" || res.Language != "en" || res.LanguageProbability != 0.9 || res.Duration != time.Second {
		t.Errorf("result = %+v", res)
	}
}

func TestRecognizerDownmixesStereo(t *testing.T) {
	backend := &mockBackend{}
	r := NewRecognizer(backend, Params{}, nil, nil)

	clip := audio.Clip{Samples: []float32{1, 0, 1, 0}, SampleRate: SampleRate, Channels: 2}
	if _, err := r.Transcribe(context.Background(), clip); err != nil {
		t.Fatal(err)
	}
	if len(backend.samples) != 2 || backend.samples[0] != 0.5 {
		t.Errorf("backend samples = %v, want [0.5 0.5]", backend.samples)
	}
}

func TestRecognizerEmptyClipSkipsBackend(t *testing.T) {
	backend := &mockBackend{}
	r := NewRecognizer(backend, Params{}, nil, nil)

	res, err := r.Transcribe(context.Background(), audio.Clip{SampleRate: 44100, Channels: 1})
	if err != nil {
		t.Fatal(err)
	}
	if backend.calls != 0 {
		t.Errorf("backend called %d times, want 0", backend.calls)
	}
	if res.Text != "" {
		t.Errorf("Text = %q, want empty", res.Text)
	}
}

func TestRecognizerWrapsBackendError(t *testing.T) {
	boom := errors.New("model crashed")
	r := NewRecognizer(&mockBackend{err: boom}, Params{}, nil, nil)

	_, err := r.Transcribe(context.Background(), audio.Clip{Samples: []float32{0.1}, SampleRate: SampleRate, Channels: 1})
	var recErr *RecognitionError
	if !errors.As(err, &recErr) {
		t.Fatalf("error = %v, want *RecognitionError", err)
	}
	if !errors.Is(err, boom) {
		t.Error("RecognitionError should unwrap to the backend error")
	}
}

func TestRecognizerBadSampleRate(t *testing.T) {
	backend := &mockBackend{}
	r := NewRecognizer(backend, Params{}, nil, nil)

	_, err := r.Transcribe(context.Background(), audio.Clip{Samples: []float32{0.1}, Channels: 1})
	var recErr *RecognitionError
	if !errors.As(err, &recErr) || recErr.Op != "resample" {
		t.Fatalf("error = %v, want resample RecognitionError", err)
	}
	if backend.calls != 0 {
		t.Error("backend should not be called")
	}
}

func TestRecognizerLanguageDetection(t *testing.T) {
	tests := []struct {
		name      string
		info      Info
		text      string
		detector  *stubDetector
		wantLang  string
		wantProb  float64
		wantCalls int
	}{
		{
			name:      "fills missing language",
			text:      "bonjour",
			detector:  &stubDetector{lang: "fr", confidence: 0.8, ok: true},
			wantLang:  "fr",
			wantProb:  0.8,
			wantCalls: 1,
		},
		{
			name:      "keeps backend values",
			info:      Info{Language: "en", LanguageProbability: 0.99},
			text:      "hello",
			detector:  &stubDetector{lang: "en", confidence: 0.5, ok: true},
			wantLang:  "en",
			wantProb:  0.99,
			wantCalls: 1,
		},
		{
			name:      "probability only for matching language",
			info:      Info{Language: "de"},
			text:      "hello",
			detector:  &stubDetector{lang: "en", confidence: 0.7, ok: true},
			wantLang:  "de",
			wantCalls: 1,
		},
		{
			name:      "undetermined",
			text:      "hmm",
			detector:  &stubDetector{},
			wantCalls: 1,
		},
		{
			name:     "empty text skips detection",
			detector: &stubDetector{lang: "en", ok: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &mockBackend{info: tt.info}
			if tt.text != "" {
				backend.segments = []RawSegment{{Text: tt.text}}
			}
			r := NewRecognizer(backend, Params{}, tt.detector, nil)

			res, err := r.Transcribe(context.Background(), audio.Clip{Samples: []float32{0.1}, SampleRate: SampleRate, Channels: 1})
			if err != nil {
				t.Fatal(err)
			}
			if res.Language != tt.wantLang || res.LanguageProbability != tt.wantProb {
				t.Errorf("language = %q/%v, want %q/%v", res.Language, res.LanguageProbability, tt.wantLang, tt.wantProb)
			}
			if tt.detector.calls != tt.wantCalls {
				t.Errorf("detector calls = %d, want %d", tt.detector.calls, tt.wantCalls)
			}
		})
	}
}

func TestRecognizerClose(t *testing.T) {
	backend := &mockBackend{}
	r := NewRecognizer(backend, Params{}, nil, nil)
	if err := r.Close(); err != nil {
		t.Fatal(err)
	}
	if !backend.closed {
		t.Error("Close() should close the backend")
	}
}
