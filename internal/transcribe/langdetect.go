package transcribe

import (
	"fmt"
	"strings"

	"github.com/pemistahl/lingua-go"
)

// LanguageDetector identifies the language of recognized text. Detect
// returns an ISO 639-1 code and a confidence in [0, 1].
type LanguageDetector interface {
	Detect(text string) (lang string, confidence float64, ok bool)
}

// LinguaOptions select the candidate languages and model size for
// NewLinguaDetector.
type LinguaOptions struct {
	// Languages are ISO 639-1 codes. Empty means every language lingua
	// knows; otherwise at least two are required.
	Languages []string
	// LowAccuracy loads only the trigram models. It uses a fraction of the
	// memory of high accuracy mode and is less reliable on very short text.
	LowAccuracy bool
}

// LinguaDetector detects languages with lingua's n-gram models.
type LinguaDetector struct {
	detector lingua.LanguageDetector
}

// NewLinguaDetector builds a detector from opts. Models load lazily on
// first use.
func NewLinguaDetector(opts LinguaOptions) (*LinguaDetector, error) {
	builder := lingua.NewLanguageDetectorBuilder()
	var b lingua.LanguageDetectorBuilder
	if len(opts.Languages) == 0 {
		b = builder.FromAllLanguages()
	} else {
		langs, err := ParseLanguages(opts.Languages)
		if err != nil {
			return nil, err
		}
		b = builder.FromLanguages(langs...)
	}
	if opts.LowAccuracy {
		b = b.WithLowAccuracyMode()
	}
	return &LinguaDetector{detector: b.Build()}, nil
}

// ParseLanguages maps ISO 639-1 codes to lingua languages. lingua needs
// at least two candidates to choose between.
func ParseLanguages(codes []string) ([]lingua.Language, error) {
	byCode := make(map[string]lingua.Language)
	for _, l := range lingua.AllLanguages() {
		byCode[strings.ToLower(l.IsoCode639_1().String())] = l
	}

	seen := make(map[lingua.Language]bool)
	var langs []lingua.Language
	for _, c := range codes {
		l, ok := byCode[strings.ToLower(strings.TrimSpace(c))]
		if !ok {
			return nil, fmt.Errorf("transcribe: unknown language code %q", c)
		}
		if !seen[l] {
			seen[l] = true
			langs = append(langs, l)
		}
	}
	if len(langs) < 2 {
		return nil, fmt.Errorf("transcribe: language detection needs at least two languages, got %d", len(langs))
	}
	return langs, nil
}

// Detect implements LanguageDetector.
func (d *LinguaDetector) Detect(text string) (string, float64, bool) {
	lang, ok := d.detector.DetectLanguageOf(text)
	if !ok {
		return "", 0, false
	}
	confidence := d.detector.ComputeLanguageConfidence(text, lang)
	return strings.ToLower(lang.IsoCode639_1().String()), confidence, true
}
