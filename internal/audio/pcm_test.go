package audio

import (
	"math"
	"testing"
)

func TestParseFormat(t *testing.T) {
	for _, name := range []string{"int16", "int24", "int32"} {
		if _, err := ParseFormat(name); err != nil {
			t.Errorf("ParseFormat(%q) error = %v", name, err)
		}
	}
	for _, name := range []string{"", "float32", "INT16"} {
		if _, err := ParseFormat(name); err == nil {
			t.Errorf("ParseFormat(%q) should fail", name)
		}
	}
}

func TestDecodePCM(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		data   []byte
		want   []float32
	}{
		{
			name:   "int16 extremes",
			format: FormatInt16,
			data:   []byte{0xff, 0x7f, 0x00, 0x80, 0x00, 0x00},
			want:   []float32{1, -1, 0},
		},
		{
			name:   "int24 extremes",
			format: FormatInt24,
			data:   []byte{0xff, 0xff, 0x7f, 0x00, 0x00, 0x80, 0x00, 0x00, 0x00},
			want:   []float32{1, -1, 0},
		},
		{
			name:   "int24 sign extension",
			format: FormatInt24,
			data:   []byte{0x00, 0x00, 0xc0},
			want:   []float32{-0.5},
		},
		{
			name:   "int32 extremes",
			format: FormatInt32,
			data:   []byte{0xff, 0xff, 0xff, 0x7f, 0x00, 0x00, 0x00, 0x80},
			want:   []float32{1, -1},
		},
		{
			name:   "trailing partial sample ignored",
			format: FormatInt16,
			data:   []byte{0x00, 0x00, 0xff},
			want:   []float32{0},
		},
		{
			name:   "empty",
			format: FormatInt16,
			data:   nil,
			want:   []float32{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := decodePCM(tt.data, tt.format)
			if len(got) != len(tt.want) {
				t.Fatalf("decodePCM() returned %d samples, want %d", len(got), len(tt.want))
			}
			for i := range tt.want {
				if math.Abs(float64(got[i]-tt.want[i])) > 1e-6 {
					t.Errorf("samples[%d] = %g, want %g", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestDecodePCMInRange(t *testing.T) {
	data := make([]byte, 0, 2*65536)
	for v := 0; v < 65536; v++ {
		data = append(data, byte(v), byte(v>>8))
	}
	for i, s := range decodePCM(data, FormatInt16) {
		if s < -1 || s > 1 {
			t.Fatalf("samples[%d] = %f out of range", i, s)
		}
	}
}
