// Package transcribe turns captured audio into normalized recognition
// results. The model itself sits behind Backend; whisper.cpp is the
// production implementation.
package transcribe

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chaz8081/talkkey/internal/audio"
	"github.com/chaz8081/talkkey/internal/resample"
)

// SampleRate is the rate every backend receives audio at.
const SampleRate = 16000

// Params are the fixed decoding parameters passed with every call.
type Params struct {
	BeamSize      int
	Language      string // empty lets the backend detect it
	VAD           bool
	VADMinSilence time.Duration
}

// RawSegment is one segment as reported by a backend, before cleanup.
type RawSegment struct {
	Text       string
	Start, End time.Duration
}

// Info is per-call metadata reported by a backend. Zero values mean the
// backend did not report the field.
type Info struct {
	Language            string
	LanguageProbability float64
	Duration            time.Duration
}

// Backend runs speech recognition on mono 16 kHz samples. Implementations
// need not be safe for concurrent use.
type Backend interface {
	Transcribe(ctx context.Context, samples []float32, p Params) ([]RawSegment, Info, error)
	Close() error
}

// RecognitionError wraps a failure to produce a result for one utterance.
type RecognitionError struct {
	Op  string
	Err error
}

func (e *RecognitionError) Error() string {
	return fmt.Sprintf("transcribe: %s: %v", e.Op, e.Err)
}

func (e *RecognitionError) Unwrap() error { return e.Err }

// Recognizer prepares a clip for the backend and normalizes what comes back.
type Recognizer struct {
	backend  Backend
	params   Params
	detector LanguageDetector
	log      *slog.Logger
}

// NewRecognizer creates a recognizer. detector may be nil.
func NewRecognizer(backend Backend, params Params, detector LanguageDetector, log *slog.Logger) *Recognizer {
	if log == nil {
		log = slog.Default()
	}
	return &Recognizer{backend: backend, params: params, detector: detector, log: log}
}

// Transcribe downmixes and resamples the clip to 16 kHz mono, runs the
// backend and returns the normalized result. An empty Text means no
// speech was recognized.
func (r *Recognizer) Transcribe(ctx context.Context, clip audio.Clip) (Result, error) {
	mono := resample.Downmix(clip.Samples, clip.Channels)
	samples, err := resample.Linear(mono, 1, clip.SampleRate, SampleRate)
	if err != nil {
		return Result{}, &RecognitionError{Op: "resample", Err: err}
	}
	if len(samples) == 0 {
		return Result{}, nil
	}

	raw, info, err := r.backend.Transcribe(ctx, samples, r.params)
	if err != nil {
		return Result{}, &RecognitionError{Op: "recognize", Err: err}
	}

	text, segments := Normalize(raw)
	res := Result{
		Text:                text,
		Segments:            segments,
		Language:            info.Language,
		LanguageProbability: info.LanguageProbability,
		Duration:            info.Duration,
	}

	if r.detector != nil && text != "" {
		r.detectLanguage(&res)
	}
	return res, nil
}

// Close releases the backend.
func (r *Recognizer) Close() error {
	return r.backend.Close()
}

// detectLanguage fills language fields the backend left empty.
func (r *Recognizer) detectLanguage(res *Result) {
	lang, confidence, ok := r.detector.Detect(res.Text)
	if !ok {
		return
	}
	if res.Language == "" {
		res.Language = lang
	}
	if res.LanguageProbability == 0 && res.Language == lang {
		res.LanguageProbability = confidence
	}
	r.log.Debug("language detected", "language", lang, "confidence", confidence)
}
