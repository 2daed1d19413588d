package thematic

import (
	"context"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"

	"github.com/szz00712/bibliometrix/internal/network"
)

// Occurrences returns the raw occurrence count (network diagonal) of each
// aligned word.
func Occurrences(net *network.TermNetwork, a *Aligned) []float64 {
	occ := make([]float64, a.Len())
	for k, idx := range a.Index {
		occ[k] = net.Occurrence(idx)
	}
	return occ
}

// ComputeClusters scores every cluster id in clusterIDs over the aligned
// terms. Metrics always use the full aligned membership; clusters with no
// aligned members are skipped. Records come back in clusterIDs order with
// ID == SourceID; ranks and quadrants are left for MapQuadrants.
func ComputeClusters(ctx context.Context, sim *Similarity, a *Aligned, occ []float64, clusterIDs []int, opts Options) ([]ClusterRecord, error) {
	opts.Normalize()

	members := make(map[int][]int, len(clusterIDs))
	for k, g := range a.Groups {
		members[g] = append(members[g], k)
	}

	slots := make([]*ClusterRecord, len(clusterIDs))
	compute := func(slot int) {
		ks := members[clusterIDs[slot]]
		if len(ks) == 0 {
			return
		}
		rec := scoreCluster(clusterIDs[slot], ks, sim, a, occ, opts)
		slots[slot] = &rec
	}

	if opts.Parallel && len(clusterIDs) > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(runtime.GOMAXPROCS(0))
		for slot := range clusterIDs {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				compute(slot)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for slot := range clusterIDs {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			compute(slot)
		}
	}

	records := make([]ClusterRecord, 0, len(slots))
	for _, rec := range slots {
		if rec != nil {
			records = append(records, *rec)
		}
	}
	return records, nil
}

// scoreCluster computes one record. ks are positions in the aligned set.
func scoreCluster(id int, ks []int, sim *Similarity, a *Aligned, occ []float64, opts Options) ClusterRecord {
	inside := make([]bool, a.Len())
	for _, k := range ks {
		inside[k] = true
	}

	var external, internal float64
	for _, k := range ks {
		row := a.Index[k]
		for l, col := range a.Index {
			v := sim.M.At(row, col)
			if inside[l] {
				internal += v
			} else {
				external += v
			}
		}
	}

	clusterOcc := make([]float64, len(ks))
	for i, k := range ks {
		clusterOcc[i] = occ[k]
	}

	return ClusterRecord{
		ID:         id,
		SourceID:   id,
		Centrality: external * opts.CentralityScale,
		Density:    internal / float64(len(ks)) * opts.DensityScale,
		Label:      clusterLabel(ks, clusterOcc, a, opts),
		Frequency:  floats.Sum(clusterOcc),
		Color:      a.Colors[ks[0]],
		Words:      topWords(ks, clusterOcc, a, opts.TopWords),
		Members:    len(ks),
	}
}

// clusterLabel joins the most frequent members (first encountered on ties).
func clusterLabel(ks []int, clusterOcc []float64, a *Aligned, opts Options) string {
	best := floats.Max(clusterOcc)
	words := make([]string, 0, opts.MaxLabelWords)
	for i, k := range ks {
		if clusterOcc[i] != best {
			continue
		}
		words = append(words, a.Words[k])
		if len(words) == opts.MaxLabelWords {
			break
		}
	}
	return strings.Join(words, opts.LabelSeparator)
}

// topWords renders up to limit "word count" lines for members occurring more
// than once, most frequent first.
func topWords(ks []int, clusterOcc []float64, a *Aligned, limit int) string {
	order := make([]int, 0, len(ks))
	for i := range ks {
		if clusterOcc[i] > 1 {
			order = append(order, i)
		}
	}
	sort.SliceStable(order, func(x, y int) bool {
		return clusterOcc[order[x]] > clusterOcc[order[y]]
	})
	if len(order) > limit {
		order = order[:limit]
	}

	lines := make([]string, len(order))
	for n, i := range order {
		lines[n] = a.Words[ks[i]] + " " + formatCount(clusterOcc[i])
	}
	return strings.Join(lines, "\n")
}

func formatCount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
