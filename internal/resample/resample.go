// Package resample converts captured audio to the sample rate the
// recognizer expects.
package resample

import (
	"errors"
	"fmt"
	"math"
)

// ErrNotMono is returned when Linear is given interleaved multi-channel audio.
var ErrNotMono = errors.New("resample: audio must be mono")

// Linear resamples mono samples from one rate to another by linear
// interpolation. The output has round(len*to/from) samples, at least one,
// evaluated at evenly spaced positions over [0, len-1] of the input.
// Equal rates return an unmodified copy; empty input returns empty output.
func Linear(samples []float32, channels, from, to int) ([]float32, error) {
	if from <= 0 || to <= 0 {
		return nil, fmt.Errorf("resample: invalid rates %d -> %d", from, to)
	}
	if from == to {
		out := make([]float32, len(samples))
		copy(out, samples)
		return out, nil
	}
	if channels != 1 {
		return nil, fmt.Errorf("%w: got %d channels", ErrNotMono, channels)
	}

	n := len(samples)
	if n == 0 {
		return []float32{}, nil
	}

	newLen := int(math.RoundToEven(float64(n) * float64(to) / float64(from)))
	if newLen < 1 {
		newLen = 1
	}

	out := make([]float32, newLen)
	if n == 1 || newLen == 1 {
		// Every position collapses onto index 0.
		for i := range out {
			out[i] = samples[0]
		}
		return out, nil
	}

	step := float64(n-1) / float64(newLen-1)
	for i := range out {
		pos := float64(i) * step
		lo := int(pos)
		if lo >= n-1 {
			out[i] = samples[n-1]
			continue
		}
		frac := pos - float64(lo)
		a, b := float64(samples[lo]), float64(samples[lo+1])
		out[i] = float32(a + (b-a)*frac)
	}
	return out, nil
}

// Downmix averages interleaved frames into a single channel. Mono input
// is returned as a copy.
func Downmix(samples []float32, channels int) []float32 {
	if channels <= 1 {
		out := make([]float32, len(samples))
		copy(out, samples)
		return out
	}

	frames := len(samples) / channels
	out := make([]float32, frames)
	for f := 0; f < frames; f++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += float64(samples[f*channels+c])
		}
		out[f] = float32(sum / float64(channels))
	}
	return out
}
