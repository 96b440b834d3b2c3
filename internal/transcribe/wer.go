package transcribe

import (
	"strings"
	"unicode"
)

// WERResult is a word error rate with its edit breakdown.
type WERResult struct {
	WER           float64
	Substitutions int
	Insertions    int
	Deletions     int
	RefWords      int
}

// edits is one cell of the alignment table.
type edits struct {
	subs, ins, dels int
}

func (e edits) cost() int { return e.subs + e.ins + e.dels }

// ComputeWER aligns hypothesis against reference word by word after
// lowercasing and stripping punctuation. An empty reference scores 0.
func ComputeWER(reference, hypothesis string) WERResult {
	ref := werWords(reference)
	hyp := werWords(hypothesis)
	if len(ref) == 0 {
		return WERResult{}
	}

	// prev and cur are consecutive rows over the hypothesis.
	prev := make([]edits, len(hyp)+1)
	cur := make([]edits, len(hyp)+1)
	for j := range prev {
		prev[j] = edits{ins: j}
	}

	for i := 1; i <= len(ref); i++ {
		cur[0] = edits{dels: i}
		for j := 1; j <= len(hyp); j++ {
			if ref[i-1] == hyp[j-1] {
				cur[j] = prev[j-1]
				continue
			}
			best := prev[j-1]
			best.subs++
			if del := prev[j]; del.cost()+1 < best.cost() {
				best = del
				best.dels++
			}
			if ins := cur[j-1]; ins.cost()+1 < best.cost() {
				best = ins
				best.ins++
			}
			cur[j] = best
		}
		prev, cur = cur, prev
	}

	e := prev[len(hyp)]
	return WERResult{
		WER:           float64(e.cost()) / float64(len(ref)),
		Substitutions: e.subs,
		Insertions:    e.ins,
		Deletions:     e.dels,
		RefWords:      len(ref),
	}
}

func werWords(s string) []string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, s)
	return strings.Fields(s)
}
