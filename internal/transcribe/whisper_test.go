package transcribe

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-audio/wav"
)

// whisperModelPath resolves the test model relative to the project root.
func whisperModelPath(t testing.TB) string {
	t.Helper()
	path := filepath.Join("..", "..", "models", "ggml-base.en.bin")
	if _, err := os.Stat(path); err != nil {
		t.Skipf("model not found at %s (run 'talkkey -download' first): %v", path, err)
	}
	return path
}

// loadWAVSamples loads a 16-bit PCM WAV file as float32 samples in
// [-1.0, 1.0]. The test is skipped if the file does not exist.
func loadWAVSamples(t testing.TB, wavPath string) []float32 {
	t.Helper()
	f, err := os.Open(wavPath)
	if err != nil {
		t.Skipf("WAV file not found at %s: %v", wavPath, err)
	}
	defer func() { _ = f.Close() }()

	buf, err := wav.NewDecoder(f).FullPCMBuffer()
	if err != nil {
		t.Fatalf("decode WAV %s: %v", wavPath, err)
	}
	samples := make([]float32, len(buf.Data))
	for i, s := range buf.Data {
		samples[i] = float32(s) / 32768.0
	}
	return samples
}

func TestNewWhisperBackendBadPath(t *testing.T) {
	if _, err := NewWhisperBackend("/nonexistent/model.bin", nil); err == nil {
		t.Fatal("NewWhisperBackend with bad path should return error")
	}
}

func TestWhisperBackendJFK(t *testing.T) {
	path := whisperModelPath(t)
	samples := loadWAVSamples(t, filepath.Join("..", "..", "models", "jfk.wav"))

	b, err := NewWhisperBackend(path, nil)
	if err != nil {
		t.Fatalf("NewWhisperBackend: %v", err)
	}
	defer func() { _ = b.Close() }()

	params := Params{BeamSize: 5, VAD: true, VADMinSilence: 500 * time.Millisecond}
	segments, info, err := b.Transcribe(context.Background(), samples, params)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}

	text, _ := Normalize(segments)
	if !strings.Contains(strings.ToLower(text), "ask not what your country") {
		t.Errorf("expected transcript to contain 'ask not what your country', got: %q", text)
	}
	if info.Language != "en" {
		t.Errorf("Language = %q, want en", info.Language)
	}
	if info.Duration < 10*time.Second {
		t.Errorf("Duration = %v, want about 11s", info.Duration)
	}
}

func TestWhisperBackendSilenceSkipsModel(t *testing.T) {
	path := whisperModelPath(t)

	b, err := NewWhisperBackend(path, nil)
	if err != nil {
		t.Fatalf("NewWhisperBackend: %v", err)
	}
	defer func() { _ = b.Close() }()

	segments, info, err := b.Transcribe(context.Background(), make([]float32, SampleRate), Params{BeamSize: 1, VAD: true})
	if err != nil {
		t.Fatalf("Transcribe on silence returned error: %v", err)
	}
	if len(segments) != 0 {
		t.Errorf("got %d segments from silence, want 0", len(segments))
	}
	if info.Duration != time.Second {
		t.Errorf("Duration = %v, want 1s", info.Duration)
	}
}
