package community

import (
	"context"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

// DefaultMaxIterations bounds the number of label propagation sweeps.
const DefaultMaxIterations = 100

// LabelPropagation assigns each term the label carrying the most similarity
// among its neighbors until no label changes. Sweep order is shuffled from the
// seed; ties go to the smallest label so a fixed seed gives a fixed result.
type LabelPropagation struct {
	MaxIterations int
}

// NewLabelPropagation returns a label propagation detector.
func NewLabelPropagation(maxIterations int) *LabelPropagation {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	return &LabelPropagation{MaxIterations: maxIterations}
}

// Name implements Detector.
func (lp *LabelPropagation) Name() string { return AlgorithmLabelPropagation }

// Detect implements Detector.
func (lp *LabelPropagation) Detect(ctx context.Context, terms []string, sim mat.Matrix, seed uint64) (*Partition, error) {
	if err := checkShape(terms, sim); err != nil {
		return nil, err
	}

	n := len(terms)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = i
	}
	rng := rand.New(rand.NewPCG(seed, pcgStream))

	for iter := 0; iter < lp.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		changed := false
		for _, i := range rng.Perm(n) {
			next := lp.vote(i, labels, sim)
			if next != labels[i] {
				labels[i] = next
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	byLabel := make(map[int][]int)
	for i, l := range labels {
		byLabel[l] = append(byLabel[l], i)
	}
	groups := make([][]int, 0, len(byLabel))
	for _, members := range byLabel {
		groups = append(groups, members)
	}
	return newPartition(lp.Name(), terms, groups, 0), nil
}

func (lp *LabelPropagation) vote(i int, labels []int, sim mat.Matrix) int {
	votes := make(map[int]float64)
	for j := range labels {
		if j == i {
			continue
		}
		if w := sim.At(i, j); w > 0 {
			votes[labels[j]] += w
		}
	}
	if len(votes) == 0 {
		return labels[i]
	}

	best, bestVotes := labels[i], -1.0
	for label, v := range votes {
		if v > bestVotes || (v == bestVotes && label < best) {
			best, bestVotes = label, v
		}
	}
	return best
}
