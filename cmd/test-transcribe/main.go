// Command test-transcribe replays a WAV file through the recognizer
// without touching the microphone, and optionally scores the transcript
// against an expected text.
//
// Usage:
//
//	go run ./cmd/test-transcribe --model models/ggml-base.en.bin --wav models/jfk.wav [--expect "..."]
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/chaz8081/talkkey/internal/audio"
	"github.com/chaz8081/talkkey/internal/transcribe"
)

func main() {
	modelPath := flag.String("model", "models/ggml-base.en.bin", "path to a whisper model")
	wavPath := flag.String("wav", "models/jfk.wav", "PCM WAV file to transcribe")
	language := flag.String("language", "", "language code, empty for auto-detect")
	beam := flag.Int("beam", 5, "beam size")
	vad := flag.Bool("vad", true, "trim silence before recognition")
	expect := flag.String("expect", "", "reference transcript for a word error rate")
	languages := flag.String("detect", "", "comma-separated ISO 639-1 codes for language detection, empty for all")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	clip, err := loadClip(*wavPath)
	if err != nil {
		log.Fatalf("wav: %v", err)
	}
	fmt.Printf("Loaded %s: %v at %dHz, %dch\n", *wavPath, clip.Duration().Round(time.Millisecond), clip.SampleRate, clip.Channels)

	var codes []string
	if *languages != "" {
		codes = strings.Split(*languages, ",")
	}
	detector, err := transcribe.NewLinguaDetector(transcribe.LinguaOptions{Languages: codes, LowAccuracy: true})
	if err != nil {
		log.Fatalf("detect: %v", err)
	}

	backend, err := transcribe.NewWhisperBackend(*modelPath, logger)
	if err != nil {
		log.Fatalf("model: %v", err)
	}
	recognizer := transcribe.NewRecognizer(backend, transcribe.Params{
		BeamSize:      *beam,
		Language:      *language,
		VAD:           *vad,
		VADMinSilence: 500 * time.Millisecond,
	}, detector, logger)
	defer func() { _ = recognizer.Close() }()

	start := time.Now()
	res, err := recognizer.Transcribe(context.Background(), clip)
	if err != nil {
		log.Fatalf("transcribe: %v", err)
	}
	elapsed := time.Since(start)

	for _, seg := range res.Segments {
		fmt.Printf("  [%6.2fs -> %6.2fs] %s\n", seg.Start.Seconds(), seg.End.Seconds(), seg.Text)
	}
	fmt.Printf("\nText:     %q\n", res.Text)
	if res.Language != "" {
		fmt.Printf("Language: %s (p=%.2f)\n", res.Language, res.LanguageProbability)
	}
	if res.Duration > 0 {
		fmt.Printf("Speed:    %.1fx real time (%v)\n", res.Duration.Seconds()/elapsed.Seconds(), elapsed.Round(time.Millisecond))
	}

	if *expect != "" {
		w := transcribe.ComputeWER(*expect, res.Text)
		fmt.Printf("WER:      %.1f%% (S=%d I=%d D=%d, %d reference words)\n",
			w.WER*100, w.Substitutions, w.Insertions, w.Deletions, w.RefWords)
	}
}

// loadClip decodes an integer PCM WAV file into a clip of float samples
// in [-1, 1].
func loadClip(path string) (audio.Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return audio.Clip{}, err
	}
	defer func() { _ = f.Close() }()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return audio.Clip{}, fmt.Errorf("%s is not a valid WAV file", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return audio.Clip{}, fmt.Errorf("decoding %s: %w", path, err)
	}
	return audio.Clip{
		Samples:    toFloat(buf),
		SampleRate: buf.Format.SampleRate,
		Channels:   buf.Format.NumChannels,
	}, nil
}

func toFloat(buf *goaudio.IntBuffer) []float32 {
	depth := buf.SourceBitDepth
	if depth == 0 {
		depth = 16
	}
	scale := float32(int64(1) << (depth - 1))
	out := make([]float32, len(buf.Data))
	for i, s := range buf.Data {
		out[i] = float32(s) / scale
	}
	return out
}
