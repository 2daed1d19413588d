package thematic

import (
	"context"
	"fmt"

	"github.com/szz00712/bibliometrix/internal/community"
	"github.com/szz00712/bibliometrix/internal/network"
)

// Builder runs the full pipeline with an injected community detector.
type Builder struct {
	detector community.Detector
}

// NewBuilder returns a Builder using d. A nil detector selects Louvain.
func NewBuilder(d community.Detector) *Builder {
	if d == nil {
		d = community.NewLouvain(1)
	}
	return &Builder{detector: d}
}

// Detector returns the community detector in use.
func (b *Builder) Detector() community.Detector { return b.detector }

// Build computes a thematic map for net. It keeps the opts.N most frequent
// terms, normalizes, detects communities with opts.Seed and assembles the
// result.
func (b *Builder) Build(ctx context.Context, net *network.TermNetwork, opts Options) (*Result, error) {
	opts.Normalize()
	if net == nil {
		return nil, invalidInput("nil network", nil)
	}
	if err := net.Validate(); err != nil {
		return nil, invalidInput("validating network", err)
	}
	net = net.Top(opts.N)

	sim, err := Normalize(net, opts.SimilarityScale)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	part, err := b.detector.Detect(ctx, sim.Terms, sim.M, opts.Seed)
	if err != nil {
		return nil, fmt.Errorf("detecting communities (%s): %w", b.detector.Name(), err)
	}
	return assemble(ctx, net, sim, part, opts)
}

// BuildFromPartition runs the pipeline with a partition computed elsewhere.
// The network is used as given (no top-n selection).
func BuildFromPartition(ctx context.Context, net *network.TermNetwork, part *community.Partition, opts Options) (*Result, error) {
	opts.Normalize()
	sim, err := Normalize(net, opts.SimilarityScale)
	if err != nil {
		return nil, err
	}
	return assemble(ctx, net, sim, part, opts)
}

func assemble(ctx context.Context, net *network.TermNetwork, sim *Similarity, part *community.Partition, opts Options) (*Result, error) {
	aligned, err := Align(sim, part, opts.CaseSensitive)
	if err != nil {
		return nil, err
	}
	occ := Occurrences(net, aligned)

	clusters, err := ComputeClusters(ctx, sim, aligned, occ, part.ClusterIDs(), opts)
	if err != nil {
		return nil, err
	}
	ranked, axes := MapQuadrants(clusters)

	words := BuildWordTable(ranked, aligned, occ, float64(opts.MinFreq))
	survivors, words := selectSurvivors(ranked, words)
	if len(survivors) == 0 {
		return nil, &EmptyResultError{MinFreq: opts.MinFreq, Clusters: len(ranked)}
	}

	return &Result{
		Map:      buildPlot(survivors, axes, opts),
		Clusters: survivors,
		Words:    words,
		NClust:   len(survivors),
		Net: &Net{
			Field:      net.Field,
			Terms:      sim.Terms,
			Similarity: sim.M,
			Partition:  part,
		},
		Params: Params{
			Field:     net.Field,
			N:         opts.N,
			MinFreq:   opts.MinFreq,
			Size:      opts.Size,
			Repel:     opts.Repel,
			Stemming:  opts.Stemming,
			Seed:      opts.Seed,
			Algorithm: part.Algorithm,
		},
	}, nil
}
