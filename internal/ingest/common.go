package ingest

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/szz00712/bibliometrix/internal/network"
)

// Importer is the interface every network format parser implements.
type Importer interface {
	// CanHandle returns true if this importer supports the given file path.
	CanHandle(path string) bool

	// Import parses the file into one or more networks. Networks whose file
	// does not name a field come back with an empty Field.
	Import(ctx context.Context, path string) ([]*network.TermNetwork, error)
}

// ImportResult summarizes an import operation.
type ImportResult struct {
	FilesScanned  int
	FilesImported int
	FilesSkipped  int
	NetworksNew   int
	NetworkIDs    []int64
	Errors        []ImportError
}

// Add merges another ImportResult into this one.
func (r *ImportResult) Add(other *ImportResult) {
	r.FilesScanned += other.FilesScanned
	r.FilesImported += other.FilesImported
	r.FilesSkipped += other.FilesSkipped
	r.NetworksNew += other.NetworksNew
	r.NetworkIDs = append(r.NetworkIDs, other.NetworkIDs...)
	r.Errors = append(r.Errors, other.Errors...)
}

// ImportError records a non-fatal error during import.
type ImportError struct {
	File    string
	Network int // position within the file, 0-based
	Message string
}

// ImportOptions configures an import operation.
type ImportOptions struct {
	DryRun      bool
	MaxFileSize int64  // bytes, default 50MB
	Field       string // field for networks whose file does not name one
	Name        string // stored name; defaults to the file name
}

// DefaultMaxFileSize is 50MB.
const DefaultMaxFileSize = 50 * 1024 * 1024

func hasExt(path string, exts ...string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}
