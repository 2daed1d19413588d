// Package community detects thematic clusters in a term similarity matrix.
//
// Detectors are interchangeable: the thematic map pipeline only consumes the
// resulting Partition (term list, membership and display color per term).
// Two algorithms ship here: Louvain modularity maximization (the default,
// backed by gonum) and weighted label propagation.
package community

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Algorithm names accepted by New.
const (
	AlgorithmLouvain          = "louvain"
	AlgorithmLabelPropagation = "label_propagation"
)

// DefaultAlgorithm is used when no algorithm is configured.
const DefaultAlgorithm = AlgorithmLouvain

// Algorithms lists the accepted detector names.
var Algorithms = []string{AlgorithmLouvain, AlgorithmLabelPropagation}

var clusterPalette = []string{
	"#8b5cf6", "#06b6d4", "#22c55e", "#f59e0b", "#ef4444",
	"#14b8a6", "#eab308", "#3b82f6", "#d946ef", "#f97316",
}

// Partition is the output of community detection: one entry per term.
type Partition struct {
	Algorithm  string   `json:"algorithm"`
	Terms      []string `json:"terms"`
	Membership []int    `json:"membership"`
	// Colors holds a display color per term; "" means no color was assigned.
	Colors     []string `json:"colors,omitempty"`
	Modularity float64  `json:"modularity"`
}

// Detector finds communities in a weighted, undirected similarity graph.
// Implementations must treat sim as read-only and be deterministic for a
// given seed.
type Detector interface {
	Name() string
	Detect(ctx context.Context, terms []string, sim mat.Matrix, seed uint64) (*Partition, error)
}

// Options tunes the detectors. Zero values select defaults.
type Options struct {
	Resolution    float64 // Louvain resolution (default 1)
	MaxIterations int     // label propagation sweeps (default 100)
}

// New returns the detector registered under name.
func New(name string, opts Options) (Detector, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", AlgorithmLouvain:
		return NewLouvain(opts.Resolution), nil
	case AlgorithmLabelPropagation, "lpa":
		return NewLabelPropagation(opts.MaxIterations), nil
	default:
		return nil, fmt.Errorf("unknown community algorithm %q (valid: %s)", name, strings.Join(Algorithms, ", "))
	}
}

// Validate checks that the partition is internally consistent.
func (p *Partition) Validate() error {
	if p == nil {
		return fmt.Errorf("nil partition")
	}
	if len(p.Terms) != len(p.Membership) {
		return fmt.Errorf("partition has %d terms but %d memberships", len(p.Terms), len(p.Membership))
	}
	if len(p.Colors) != 0 && len(p.Colors) != len(p.Terms) {
		return fmt.Errorf("partition has %d terms but %d colors", len(p.Terms), len(p.Colors))
	}
	for i, id := range p.Membership {
		if id <= 0 {
			return fmt.Errorf("term %q has non-positive cluster id %d", p.Terms[i], id)
		}
	}
	return nil
}

// ClusterIDs returns the distinct cluster ids in ascending order.
func (p *Partition) ClusterIDs() []int {
	seen := make(map[int]struct{}, len(p.Membership))
	ids := make([]int, 0)
	for _, id := range p.Membership {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Color returns the color of term i, or "" when none was assigned.
func (p *Partition) Color(i int) string {
	if i < len(p.Colors) {
		return p.Colors[i]
	}
	return ""
}

// ColorFor returns the palette color for a 1-based cluster id.
func ColorFor(id int) string {
	if id <= 0 || len(clusterPalette) == 0 {
		return "#71717a"
	}
	return clusterPalette[(id-1)%len(clusterPalette)]
}

// newPartition converts raw groups of term indexes into a Partition.
// Cluster ids are assigned 1..k by descending group size, then by the
// smallest member index, so identical groupings always get identical ids.
func newPartition(algorithm string, terms []string, groups [][]int, modularity float64) *Partition {
	cleaned := make([][]int, 0, len(groups))
	for _, g := range groups {
		if len(g) == 0 {
			continue
		}
		members := append([]int(nil), g...)
		sort.Ints(members)
		cleaned = append(cleaned, members)
	}
	sort.SliceStable(cleaned, func(i, j int) bool {
		if len(cleaned[i]) != len(cleaned[j]) {
			return len(cleaned[i]) > len(cleaned[j])
		}
		return cleaned[i][0] < cleaned[j][0]
	})

	p := &Partition{
		Algorithm:  algorithm,
		Terms:      append([]string(nil), terms...),
		Membership: make([]int, len(terms)),
		Colors:     make([]string, len(terms)),
		Modularity: modularity,
	}
	for gi, members := range cleaned {
		id := gi + 1
		for _, m := range members {
			p.Membership[m] = id
			p.Colors[m] = ColorFor(id)
		}
	}
	return p
}

func checkShape(terms []string, sim mat.Matrix) error {
	if len(terms) == 0 {
		return fmt.Errorf("no terms to cluster")
	}
	r, c := sim.Dims()
	if r != c || r != len(terms) {
		return fmt.Errorf("similarity matrix is %dx%d for %d terms", r, c, len(terms))
	}
	return nil
}
