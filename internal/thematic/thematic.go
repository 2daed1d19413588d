// Package thematic computes strategic diagrams (thematic maps) from a term
// co-occurrence network.
//
// The pipeline runs strictly forward:
//
//	TermNetwork -> Normalize -> community detection -> Align ->
//	ComputeClusters -> MapQuadrants -> BuildWordTable -> filter & renumber
//
// Each cluster of terms is scored on centrality (similarity to terms outside
// the cluster, i.e. relevance to the whole field) and density (similarity
// inside the cluster, i.e. maturity of the theme). Clusters are placed on a
// map by the rank of both scores, with the crosshair at the mean rank.
//
// Nothing in this package performs I/O or keeps state between calls.
package thematic

import (
	"gonum.org/v1/gonum/mat"

	"github.com/szz00712/bibliometrix/internal/community"
)

// Defaults for Options.
const (
	DefaultN               = 250
	DefaultMinFreq         = 5
	DefaultSize            = 0.5
	DefaultSimilarityScale = 1.0
	DefaultCentralityScale = 10.0
	DefaultDensityScale    = 100.0
	DefaultLabelSeparator  = ";"
	DefaultMaxLabelWords   = 3
	DefaultTopWords        = 10
	// NeutralColor is used for aligned terms the partition left uncolored.
	NeutralColor = "#D3D3D3"
)

// Options configures a thematic map build.
type Options struct {
	N        int     // keep at most N most frequent terms; 0 keeps all
	MinFreq  int     // minimum per-word occurrence for the word table
	Size     float64 // label/point scale factor passed to the renderer
	Repel    bool    // label collision avoidance, renderer only
	Stemming bool    // recorded for the upstream term extractor
	Seed     uint64  // community detection seed

	SimilarityScale float64
	CentralityScale float64
	DensityScale    float64
	LabelSeparator  string
	MaxLabelWords   int
	TopWords        int

	// CaseSensitive disables lower-casing before network/partition alignment.
	CaseSensitive bool
	// Parallel computes per-cluster metrics concurrently.
	Parallel bool
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		N:               DefaultN,
		MinFreq:         DefaultMinFreq,
		Size:            DefaultSize,
		Repel:           true,
		SimilarityScale: DefaultSimilarityScale,
		CentralityScale: DefaultCentralityScale,
		DensityScale:    DefaultDensityScale,
		LabelSeparator:  DefaultLabelSeparator,
		MaxLabelWords:   DefaultMaxLabelWords,
		TopWords:        DefaultTopWords,
	}
}

// Normalize fills unset numeric options with defaults. MinFreq below 1 is
// raised to 1 and a negative N means no limit.
func (o *Options) Normalize() {
	if o.N < 0 {
		o.N = 0
	}
	if o.MinFreq < 1 {
		o.MinFreq = 1
	}
	if o.Size < 0 {
		o.Size = 0
	}
	if o.SimilarityScale <= 0 {
		o.SimilarityScale = DefaultSimilarityScale
	}
	if o.CentralityScale <= 0 {
		o.CentralityScale = DefaultCentralityScale
	}
	if o.DensityScale <= 0 {
		o.DensityScale = DefaultDensityScale
	}
	if o.LabelSeparator == "" {
		o.LabelSeparator = DefaultLabelSeparator
	}
	if o.MaxLabelWords <= 0 {
		o.MaxLabelWords = DefaultMaxLabelWords
	}
	if o.TopWords <= 0 {
		o.TopWords = DefaultTopWords
	}
}

// Quadrant classifies a cluster relative to the mean-rank crosshair.
type Quadrant string

const (
	// QuadrantMotor: high centrality, high density.
	QuadrantMotor Quadrant = "motor"
	// QuadrantNiche: low centrality, high density (highly developed, isolated).
	QuadrantNiche Quadrant = "niche"
	// QuadrantEmerging: low centrality, low density (emerging or declining).
	QuadrantEmerging Quadrant = "emerging"
	// QuadrantBasic: high centrality, low density.
	QuadrantBasic Quadrant = "basic"
)

// ClusterRecord describes one cluster on the map.
type ClusterRecord struct {
	ID          int      `json:"id"`
	SourceID    int      `json:"source_id"`
	Centrality  float64  `json:"centrality"`
	Density     float64  `json:"density"`
	RCentrality float64  `json:"rcentrality"`
	RDensity    float64  `json:"rdensity"`
	Label       string   `json:"label"`
	Frequency   float64  `json:"frequency"`
	Color       string   `json:"color"`
	Words       string   `json:"words"`
	Members     int      `json:"members"`
	Quadrant    Quadrant `json:"quadrant,omitempty"`
}

// WordRecord is one row of the word table.
type WordRecord struct {
	Occurrences  float64 `json:"occurrences"`
	Word         string  `json:"word"`
	Cluster      int     `json:"cluster"`
	Color        string  `json:"color"`
	ClusterLabel string  `json:"cluster_label"`
}

// PlotPoint is one cluster as the chart renderer sees it.
type PlotPoint struct {
	Cluster   int      `json:"cluster"`
	X         float64  `json:"x"`
	Y         float64  `json:"y"`
	Size      float64  `json:"size"`
	Color     string   `json:"color"`
	Label     string   `json:"label"`
	ShowLabel bool     `json:"show_label"`
	Quadrant  Quadrant `json:"quadrant"`
}

// Plot is the plot-ready structure: rank coordinates, the mean-rank
// crosshair and axis limits symmetric around it.
type Plot struct {
	Points []PlotPoint `json:"points"`
	MeanX  float64     `json:"mean_x"`
	MeanY  float64     `json:"mean_y"`
	XLim   [2]float64  `json:"xlim"`
	YLim   [2]float64  `json:"ylim"`
	XTitle string      `json:"x_title"`
	YTitle string      `json:"y_title"`
	Scale  float64     `json:"scale"`
	Repel  bool        `json:"repel"`
}

// Net is the network/partition pair behind a result.
type Net struct {
	Field      string               `json:"field"`
	Terms      []string             `json:"terms"`
	Similarity *mat.SymDense        `json:"-"`
	Partition  *community.Partition `json:"partition"`
}

// Params records the options a result was built with.
type Params struct {
	Field     string  `json:"field"`
	N         int     `json:"n"`
	MinFreq   int     `json:"minfreq"`
	Size      float64 `json:"size"`
	Repel     bool    `json:"repel"`
	Stemming  bool    `json:"stemming"`
	Seed      uint64  `json:"seed"`
	Algorithm string  `json:"algorithm"`
}

// Result is the output bundle of a thematic map build.
type Result struct {
	Map      Plot            `json:"map"`
	Clusters []ClusterRecord `json:"clusters"`
	Words    []WordRecord    `json:"words"`
	NClust   int             `json:"nclust"`
	Net      *Net            `json:"net"`
	Params   Params          `json:"params"`
}
