package audit

import (
	"sort"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Duplicity thresholds, as percentages.
const (
	HighDuplicity     = 70
	ModerateDuplicity = 50
)

// Field weights of the duplicity score. They sum to 1.
const (
	weightName        = 0.15
	weightDescription = 0.25
	weightWhatIDo     = 0.30
	weightWhenToUse   = 0.20
	weightSteps       = 0.10
)

// Pair is two skills and their duplicity score.
type Pair struct {
	A, B  string
	Score int
}

// High reports whether the pair is a likely duplicate.
func (p Pair) High() bool { return p.Score >= HighDuplicity }

var dmp = diffmatchpatch.New()

// Similarity returns the matching-block ratio of a and b: twice the runes
// the diff keeps equal over the total rune count. Two empty strings are
// identical.
func Similarity(a, b string) float64 {
	total := utf8.RuneCountInString(a) + utf8.RuneCountInString(b)
	if total == 0 {
		return 1
	}
	equal := 0
	for _, d := range dmp.DiffMain(a, b, false) {
		if d.Type == diffmatchpatch.DiffEqual {
			equal += utf8.RuneCountInString(d.Text)
		}
	}
	return 2 * float64(equal) / float64(total)
}

// Score is the weighted, case-insensitive similarity of two skills as a
// percentage from 0 to 100.
func Score(a, b Skill) int {
	sum := weightName*Similarity(lower(a.Name), lower(b.Name)) +
		weightDescription*Similarity(lower(a.Description), lower(b.Description)) +
		weightWhatIDo*Similarity(lower(a.WhatIDo), lower(b.WhatIDo)) +
		weightWhenToUse*Similarity(lower(a.WhenToUse), lower(b.WhenToUse)) +
		weightSteps*Similarity(lower(a.Steps), lower(b.Steps))
	return int(sum * 100)
}

// Duplicates scores every unordered pair and returns those at or above
// threshold, highest score first.
func Duplicates(list []Skill, threshold int) []Pair {
	sorted := make([]Skill, len(list))
	copy(sorted, list)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	var out []Pair
	for i := range sorted {
		for j := i + 1; j < len(sorted); j++ {
			if s := Score(sorted[i], sorted[j]); s >= threshold {
				out = append(out, Pair{A: sorted[i].Name, B: sorted[j].Name, Score: s})
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}
