package audio

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Format is the integer sample encoding delivered by the capture device.
// All formats are little-endian and signed.
type Format string

const (
	FormatInt16 Format = "int16"
	FormatInt24 Format = "int24" // packed, 3 bytes per sample
	FormatInt32 Format = "int32"
)

// ParseFormat validates a config format name.
func ParseFormat(name string) (Format, error) {
	switch f := Format(name); f {
	case FormatInt16, FormatInt24, FormatInt32:
		return f, nil
	default:
		return "", fmt.Errorf("audio: unsupported sample format %q", name)
	}
}

// BytesPerSample returns the width of one sample.
func (f Format) BytesPerSample() int {
	switch f {
	case FormatInt16:
		return 2
	case FormatInt24:
		return 3
	case FormatInt32:
		return 4
	default:
		return 0
	}
}

// maxValue is the largest positive value of the format.
func (f Format) maxValue() float64 {
	switch f {
	case FormatInt16:
		return math.MaxInt16
	case FormatInt24:
		return 1<<23 - 1
	case FormatInt32:
		return math.MaxInt32
	default:
		return 1
	}
}

// decodePCM converts little-endian integer PCM into float32 samples in
// [-1.0, 1.0]. Values are divided by the format's largest positive value,
// so the most negative integer is clamped to -1. A trailing partial sample
// is ignored.
func decodePCM(data []byte, f Format) []float32 {
	width := f.BytesPerSample()
	if width == 0 {
		return nil
	}
	n := len(data) / width
	samples := make([]float32, n)
	scale := f.maxValue()

	for i := 0; i < n; i++ {
		b := data[i*width : (i+1)*width]
		var v int32
		switch f {
		case FormatInt16:
			v = int32(int16(binary.LittleEndian.Uint16(b)))
		case FormatInt24:
			// Shift into the top of an int32 and back down to sign-extend.
			v = int32(uint32(b[0])<<8|uint32(b[1])<<16|uint32(b[2])<<24) >> 8
		case FormatInt32:
			v = int32(binary.LittleEndian.Uint32(b))
		}
		s := float64(v) / scale
		if s < -1 {
			s = -1
		}
		samples[i] = float32(s)
	}
	return samples
}
