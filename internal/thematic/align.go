package thematic

import (
	"strings"

	"github.com/szz00712/bibliometrix/internal/community"
)

// Aligned is the term set shared by the similarity matrix and the partition,
// in similarity-matrix order. All slices have the same length.
type Aligned struct {
	Words  []string // folded term names
	Groups []int    // partition cluster id per word
	Colors []string // display color per word
	Index  []int    // row/column of each word in the similarity matrix
}

// Len returns the number of aligned terms.
func (a *Aligned) Len() int { return len(a.Words) }

// Align intersects the similarity matrix terms with the partition terms.
// Unless caseSensitive is set, names are lower-cased on both sides first.
// When two names fold to the same key the first one wins. Terms the
// partition left uncolored get NeutralColor.
func Align(sim *Similarity, part *community.Partition, caseSensitive bool) (*Aligned, error) {
	if sim == nil || sim.M == nil {
		return nil, invalidInput("nil similarity matrix", nil)
	}
	if err := part.Validate(); err != nil {
		return nil, invalidInput("partition", err)
	}

	fold := func(s string) string {
		if caseSensitive {
			return s
		}
		return strings.ToLower(s)
	}

	byTerm := make(map[string]int, len(part.Terms))
	for i, term := range part.Terms {
		k := fold(term)
		if _, ok := byTerm[k]; !ok {
			byTerm[k] = i
		}
	}

	a := &Aligned{}
	seen := make(map[string]struct{}, len(sim.Terms))
	for i, term := range sim.Terms {
		k := fold(term)
		p, ok := byTerm[k]
		if !ok {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}

		color := part.Color(p)
		if color == "" {
			color = NeutralColor
		}
		a.Words = append(a.Words, k)
		a.Groups = append(a.Groups, part.Membership[p])
		a.Colors = append(a.Colors, color)
		a.Index = append(a.Index, i)
	}

	if a.Len() == 0 {
		return nil, &AlignmentError{NetworkTerms: len(sim.Terms), PartitionTerms: len(part.Terms)}
	}
	return a, nil
}
