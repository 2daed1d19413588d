package thematic

import (
	"gonum.org/v1/gonum/mat"

	"github.com/szz00712/bibliometrix/internal/network"
)

// Similarity is the association-strength matrix derived from a TermNetwork.
// Terms share the network's order.
type Similarity struct {
	Terms []string
	M     *mat.SymDense
}

// Len returns the number of terms.
func (s *Similarity) Len() int { return len(s.Terms) }

// Normalize converts co-occurrence counts into association strength:
//
//	s(i,j) = scale * w(i,j) / (w(i,i) * w(j,j))
//
// clamped to [0,1]. Pairs involving a term with zero occurrences get 0. The
// diagonal holds each term's self-association 1/w(i,i) (times scale).
func Normalize(net *network.TermNetwork, scale float64) (*Similarity, error) {
	if net == nil {
		return nil, invalidInput("nil network", nil)
	}
	if err := net.Validate(); err != nil {
		return nil, invalidInput("validating network", err)
	}
	if scale <= 0 {
		scale = DefaultSimilarityScale
	}

	n := net.Len()
	m := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		wi := net.Occurrence(i)
		for j := i; j < n; j++ {
			den := wi * net.Occurrence(j)
			if den <= 0 {
				continue
			}
			v := scale * net.At(i, j) / den
			if v > 1 {
				v = 1
			}
			m.SetSym(i, j, v)
		}
	}
	return &Similarity{Terms: net.Terms(), M: m}, nil
}
