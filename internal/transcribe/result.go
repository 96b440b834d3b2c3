package transcribe

import (
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Segment is one cleaned-up piece of recognized text. Zero Start and End
// mean the backend reported no timing.
type Segment struct {
	Text       string
	Start, End time.Duration
}

// Result is the normalized output for one utterance. Zero values mean
// absent; an empty Text means no speech was detected.
type Result struct {
	Text                string
	Segments            []Segment
	Language            string
	LanguageProbability float64
	Duration            time.Duration
}

// Normalize cleans raw backend segments: text is NFC-normalized, trimmed
// and has internal whitespace collapsed; segments left empty are dropped;
// the survivors are joined with single spaces.
func Normalize(raw []RawSegment) (string, []Segment) {
	segments := make([]Segment, 0, len(raw))
	texts := make([]string, 0, len(raw))

	for _, r := range raw {
		text := cleanText(r.Text)
		if text == "" {
			continue
		}
		segments = append(segments, Segment{Text: text, Start: r.Start, End: r.End})
		texts = append(texts, text)
	}
	return strings.Join(texts, " "), segments
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}
