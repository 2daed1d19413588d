package community

import (
	"context"
	"math/rand/v2"

	gcommunity "gonum.org/v1/gonum/graph/community"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/mat"
)

// pcgStream is the second PCG word; the caller's seed picks the state.
const pcgStream = 0x9e3779b97f4a7c15

// Louvain maximizes modularity with gonum's Louvain implementation.
//
// Every term becomes a node (isolates are kept and end up as singleton
// communities); each positive off-diagonal similarity becomes one weighted
// edge. Self-loops are never added.
type Louvain struct {
	Resolution float64
}

// NewLouvain returns a Louvain detector. A non-positive resolution means 1.
func NewLouvain(resolution float64) *Louvain {
	if resolution <= 0 {
		resolution = 1
	}
	return &Louvain{Resolution: resolution}
}

// Name implements Detector.
func (l *Louvain) Name() string { return AlgorithmLouvain }

// Detect implements Detector.
func (l *Louvain) Detect(ctx context.Context, terms []string, sim mat.Matrix, seed uint64) (*Partition, error) {
	if err := checkShape(terms, sim); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	n := len(terms)
	g := simple.NewWeightedUndirectedGraph(0, 0)
	for i := 0; i < n; i++ {
		g.AddNode(simple.Node(i))
	}
	total := 0.0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			w := sim.At(i, j)
			if w <= 0 {
				continue
			}
			g.SetWeightedEdge(simple.WeightedEdge{F: simple.Node(i), T: simple.Node(j), W: w})
			total += w
		}
	}

	// Modularity is undefined without edges: every term is its own community.
	if total == 0 {
		groups := make([][]int, n)
		for i := range groups {
			groups[i] = []int{i}
		}
		return newPartition(l.Name(), terms, groups, 0), nil
	}

	reduced := gcommunity.Modularize(g, l.Resolution, rand.NewPCG(seed, pcgStream))
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	communities := reduced.Communities()
	groups := make([][]int, 0, len(communities))
	for _, c := range communities {
		members := make([]int, 0, len(c))
		for _, node := range c {
			members = append(members, int(node.ID()))
		}
		groups = append(groups, members)
	}
	q := gcommunity.Q(g, communities, l.Resolution)
	return newPartition(l.Name(), terms, groups, q), nil
}
