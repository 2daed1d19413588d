package ingest

import (
	"fmt"

	"github.com/szz00712/bibliometrix/internal/network"
)

// bundle is the document shape shared by the JSON and YAML importers. A file
// holds either a list under "networks" or a single network at the top level.
type bundle struct {
	Networks []bundleNetwork `json:"networks" yaml:"networks"`
	bundleNetwork `yaml:",inline"`
}

type bundleNetwork struct {
	Field  string      `json:"field" yaml:"field"`
	Terms  []string    `json:"terms" yaml:"terms"`
	Matrix [][]float64 `json:"matrix" yaml:"matrix"`
}

func (b *bundle) networks(path string) ([]*network.TermNetwork, error) {
	entries := b.Networks
	if len(entries) == 0 && len(b.Terms) > 0 {
		entries = []bundleNetwork{b.bundleNetwork}
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%s: no networks found", path)
	}

	out := make([]*network.TermNetwork, 0, len(entries))
	for i, e := range entries {
		net, err := network.New(e.Field, e.Terms, e.Matrix)
		if err != nil {
			return nil, fmt.Errorf("%s: network %d: %w", path, i, err)
		}
		out = append(out, net)
	}
	return out, nil
}
