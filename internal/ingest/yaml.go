package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/szz00712/bibliometrix/internal/network"
)

// YAMLImporter handles .yaml and .yml network bundles.
type YAMLImporter struct{}

// CanHandle returns true for YAML file extensions.
func (y *YAMLImporter) CanHandle(path string) bool {
	return hasExt(path, ".yaml", ".yml")
}

// Import parses the same shapes as JSONImporter. Multi-document YAML
// (separated by ---) contributes the networks of every document.
func (y *YAMLImporter) Import(ctx context.Context, path string) ([]*network.TermNetwork, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	var out []*network.TermNetwork
	for docNum := 1; ; docNum++ {
		var b bundle
		if err := decoder.Decode(&b); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("invalid YAML in %s (document %d): %w", path, docNum, err)
		}
		nets, err := b.networks(fmt.Sprintf("%s (document %d)", path, docNum))
		if err != nil {
			return nil, err
		}
		out = append(out, nets...)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: no networks found", path)
	}
	return out, nil
}
