package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/szz00712/bibliometrix/internal/network"
)

// CSVImporter handles .csv and .tsv co-occurrence matrices.
type CSVImporter struct{}

// CanHandle returns true for CSV/TSV file extensions.
func (c *CSVImporter) CanHandle(path string) bool {
	return hasExt(path, ".csv", ".tsv")
}

// Import parses a labelled square matrix:
//
//	term,graph,node
//	graph,4,2
//	node,2,3
//
// The first header cell is ignored. Row labels must repeat the header terms in
// the same order. Empty cells read as 0.
func (c *CSVImporter) Import(ctx context.Context, path string) ([]*network.TermNetwork, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	if hasExt(path, ".tsv") {
		reader.Comma = '\t'
	}
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing CSV %s: %w", path, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("parsing CSV %s: need a header and at least one row", path)
	}

	header := records[0]
	if len(header) < 2 {
		return nil, fmt.Errorf("parsing CSV %s: header has no terms", path)
	}
	terms := make([]string, len(header)-1)
	for i, h := range header[1:] {
		terms[i] = strings.TrimSpace(h)
	}

	rows := make([][]float64, 0, len(records)-1)
	for i, rec := range records[1:] {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line := i + 2
		if len(rec) == 0 || strings.TrimSpace(rec[0]) == "" {
			return nil, fmt.Errorf("%s:%d: missing row label", path, line)
		}
		if i < len(terms) && strings.TrimSpace(rec[0]) != terms[i] {
			return nil, fmt.Errorf("%s:%d: row label %q does not match column %q", path, line, rec[0], terms[i])
		}
		row := make([]float64, len(rec)-1)
		for j, cell := range rec[1:] {
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: column %d: %w", path, line, j+2, err)
			}
			row[j] = v
		}
		rows = append(rows, row)
	}

	net, err := network.New("", terms, rows)
	if err != nil {
		return nil, fmt.Errorf("parsing CSV %s: %w", path, err)
	}
	return []*network.TermNetwork{net}, nil
}
