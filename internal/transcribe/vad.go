package transcribe

import (
	"math"
	"time"
)

const (
	vadFrame     = 30 * time.Millisecond
	vadPad       = 200 * time.Millisecond
	vadThreshold = 0.01 // RMS
)

// trimSilence drops silent runs of at least minSilence from 16 kHz mono
// audio, keeping vadPad of context around each speech region. Shorter
// pauses stay in place. It returns nil when no frame rises above the
// threshold.
func trimSilence(samples []float32, minSilence time.Duration) []float32 {
	frameLen := samplesFor(vadFrame)
	if len(samples) == 0 || frameLen == 0 {
		return nil
	}

	type region struct{ start, end int }
	var regions []region
	gap := samplesFor(minSilence)

	for off := 0; off < len(samples); off += frameLen {
		end := min(off+frameLen, len(samples))
		if calculateRMS(samples[off:end]) <= vadThreshold {
			continue
		}
		if n := len(regions); n > 0 && off-regions[n-1].end < gap {
			regions[n-1].end = end
			continue
		}
		regions = append(regions, region{start: off, end: end})
	}
	if len(regions) == 0 {
		return nil
	}

	pad := samplesFor(vadPad)
	out := make([]float32, 0, len(samples))
	last := 0
	for _, r := range regions {
		start := max(r.start-pad, last)
		end := min(r.end+pad, len(samples))
		out = append(out, samples[start:end]...)
		last = end
	}
	return out
}

func samplesFor(d time.Duration) int {
	return int(d * SampleRate / time.Second)
}

// calculateRMS calculates the root mean square of audio samples.
func calculateRMS(samples []float32) float32 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return float32(math.Sqrt(sum / float64(len(samples))))
}
