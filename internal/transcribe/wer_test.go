package transcribe

import (
	"math"
	"testing"
)

func TestComputeWER(t *testing.T) {
	tests := []struct {
		name     string
		ref, hyp string
		want     WERResult
	}{
		{"identical", "the cat sat on the mat", "the cat sat on the mat",
			WERResult{RefWords: 6}},
		{"substitution", "the cat sat on the mat", "the cat sit on the mat",
			WERResult{WER: 1.0 / 6, Substitutions: 1, RefWords: 6}},
		{"insertion", "the cat sat", "the big cat sat",
			WERResult{WER: 1.0 / 3, Insertions: 1, RefWords: 3}},
		{"deletion", "ask not what your country can do for you", "ask what your country can do for you",
			WERResult{WER: 1.0 / 9, Deletions: 1, RefWords: 9}},
		{"case and punctuation ignored", "Hello, World!", "hello world",
			WERResult{RefWords: 2}},
		{"whitespace collapsed", "  the   cat  sat  ", "the cat sat",
			WERResult{RefWords: 3}},
		{"empty reference", "", "some words", WERResult{}},
		{"empty hypothesis", "some words", "",
			WERResult{WER: 1, Deletions: 2, RefWords: 2}},
		{"all wrong", "the cat sat", "a dog ran",
			WERResult{WER: 1, Substitutions: 3, RefWords: 3}},
		{"mixed", "the quick brown fox jumps over the lazy dog", "a quick brown cat jumps the lazy dog",
			WERResult{WER: 3.0 / 9, Substitutions: 2, Deletions: 1, RefWords: 9}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeWER(tt.ref, tt.hyp)
			if math.Abs(got.WER-tt.want.WER) > 1e-9 {
				t.Errorf("WER = %f, want %f", got.WER, tt.want.WER)
			}
			got.WER, tt.want.WER = 0, 0
			if got != tt.want {
				t.Errorf("ComputeWER() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
