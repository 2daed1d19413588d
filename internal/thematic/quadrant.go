package thematic

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Axis titles used on the plot.
const (
	CentralityTitle = "Relevance degree\n(Centrality)"
	DensityTitle    = "Development degree\n(Density)"
)

// Axes holds the mean-rank crosshair and the axis limits symmetric around it.
type Axes struct {
	MeanCentrality float64    `json:"mean_centrality"`
	MeanDensity    float64    `json:"mean_density"`
	XLim           [2]float64 `json:"xlim"`
	YLim           [2]float64 `json:"ylim"`
}

// Rank returns ascending 1-based ranks; equal values share the average of the
// positions they span.
func Rank(values []float64) []float64 {
	order := make([]int, len(values))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return values[order[a]] < values[order[b]] })

	ranks := make([]float64, len(values))
	for start := 0; start < len(order); {
		end := start + 1
		for end < len(order) && values[order[end]] == values[order[start]] {
			end++
		}
		// positions start+1 .. end share their mean
		avg := float64(start+1+end) / 2
		for _, i := range order[start:end] {
			ranks[i] = avg
		}
		start = end
	}
	return ranks
}

// MapQuadrants ranks centrality and density across clusters, derives the
// crosshair and symmetric limits, and classifies each cluster. The input is
// not modified.
func MapQuadrants(clusters []ClusterRecord) ([]ClusterRecord, Axes) {
	out := append([]ClusterRecord(nil), clusters...)
	if len(out) == 0 {
		return out, Axes{}
	}

	centrality := make([]float64, len(out))
	density := make([]float64, len(out))
	for i, c := range out {
		centrality[i] = c.Centrality
		density[i] = c.Density
	}
	rc := Rank(centrality)
	rd := Rank(density)

	axes := Axes{
		MeanCentrality: stat.Mean(rc, nil),
		MeanDensity:    stat.Mean(rd, nil),
	}
	axes.XLim = symmetricLimits(rc, axes.MeanCentrality)
	axes.YLim = symmetricLimits(rd, axes.MeanDensity)

	for i := range out {
		out[i].RCentrality = rc[i]
		out[i].RDensity = rd[i]
		out[i].Quadrant = classify(rc[i] >= axes.MeanCentrality, rd[i] >= axes.MeanDensity)
	}
	return out, axes
}

func symmetricLimits(ranks []float64, mean float64) [2]float64 {
	r := math.Max(mean-floats.Min(ranks), floats.Max(ranks)-mean)
	return [2]float64{mean - r, mean + r}
}

func classify(central, dense bool) Quadrant {
	switch {
	case central && dense:
		return QuadrantMotor
	case dense:
		return QuadrantNiche
	case central:
		return QuadrantBasic
	default:
		return QuadrantEmerging
	}
}

// buildPlot turns surviving clusters into renderer input. Point size is
// log(frequency); labels are shown only for clusters occurring more than once.
func buildPlot(clusters []ClusterRecord, axes Axes, opts Options) Plot {
	p := Plot{
		Points: make([]PlotPoint, len(clusters)),
		MeanX:  axes.MeanCentrality,
		MeanY:  axes.MeanDensity,
		XLim:   axes.XLim,
		YLim:   axes.YLim,
		XTitle: CentralityTitle,
		YTitle: DensityTitle,
		Scale:  opts.Size,
		Repel:  opts.Repel,
	}
	for i, c := range clusters {
		size := 0.0
		if c.Frequency > 0 {
			size = math.Log(c.Frequency)
		}
		p.Points[i] = PlotPoint{
			Cluster:   c.ID,
			X:         c.RCentrality,
			Y:         c.RDensity,
			Size:      size,
			Color:     c.Color,
			Label:     c.Label,
			ShowLabel: c.Frequency > 1,
			Quadrant:  c.Quadrant,
		}
	}
	return p
}
