package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/szz00712/bibliometrix/internal/network"
)

// JSONImporter handles .json network bundles.
type JSONImporter struct{}

// CanHandle returns true for JSON file extensions.
func (j *JSONImporter) CanHandle(path string) bool {
	return hasExt(path, ".json")
}

// Import parses {"networks": [{"field", "terms", "matrix"}, ...]} or a single
// {"field", "terms", "matrix"} object.
func (j *JSONImporter) Import(ctx context.Context, path string) ([]*network.TermNetwork, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil, fmt.Errorf("%s: empty file", path)
	}

	var b bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("invalid JSON in %s: %w", path, err)
	}
	return b.networks(path)
}
