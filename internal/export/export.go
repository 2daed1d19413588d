// Package export writes thematic map results as CSV tables and JSON.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/szz00712/bibliometrix/internal/thematic"
)

// ClusterColumns is the header of the cluster table.
var ClusterColumns = []string{
	"id", "centrality", "density", "rcentrality", "rdensity",
	"label", "frequency", "color", "words", "quadrant",
}

// WordColumns is the header of the word table.
var WordColumns = []string{"occurrences", "word", "cluster", "color", "cluster_label"}

// WriteClustersCSV writes one row per cluster.
func WriteClustersCSV(w io.Writer, clusters []thematic.ClusterRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ClusterColumns); err != nil {
		return fmt.Errorf("writing cluster header: %w", err)
	}
	for _, c := range clusters {
		row := []string{
			strconv.Itoa(c.ID),
			num(c.Centrality),
			num(c.Density),
			num(c.RCentrality),
			num(c.RDensity),
			c.Label,
			num(c.Frequency),
			c.Color,
			c.Words,
			string(c.Quadrant),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing cluster %d: %w", c.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteWordsCSV writes one row per word.
func WriteWordsCSV(w io.Writer, words []thematic.WordRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(WordColumns); err != nil {
		return fmt.Errorf("writing word header: %w", err)
	}
	for _, wr := range words {
		row := []string{num(wr.Occurrences), wr.Word, strconv.Itoa(wr.Cluster), wr.Color, wr.ClusterLabel}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing word %q: %w", wr.Word, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteDir writes clusters.csv, words.csv and result.json into dir and
// returns the paths written.
func WriteDir(dir string, res *thematic.Result) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", dir, err)
	}
	files := []struct {
		name  string
		write func(io.Writer) error
	}{
		{"clusters.csv", func(w io.Writer) error { return WriteClustersCSV(w, res.Clusters) }},
		{"words.csv", func(w io.Writer) error { return WriteWordsCSV(w, res.Words) }},
		{"result.json", func(w io.Writer) error { return WriteJSON(w, res) }},
	}

	var written []string
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if err := writeFile(path, f.write); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
