// Package ingest provides the import engine for co-occurrence networks.
//
// Each supported format (CSV/TSV matrices, JSON and YAML bundles) has its own
// importer that implements the Importer interface. The engine auto-detects
// formats by file extension, validates every parsed network and stores it.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/szz00712/bibliometrix/internal/network"
	"github.com/szz00712/bibliometrix/internal/store"
)

// Engine dispatches files to importers and saves the parsed networks.
type Engine struct {
	store     store.Store
	importers []Importer
	log       *slog.Logger
}

// NewEngine creates an engine with the built-in importers.
func NewEngine(s store.Store, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		store: s,
		importers: []Importer{
			&CSVImporter{},
			&JSONImporter{},
			&YAMLImporter{},
		},
		log: log,
	}
}

// ImporterFor returns the importer that handles path, or nil.
func (e *Engine) ImporterFor(path string) Importer {
	for _, imp := range e.importers {
		if imp.CanHandle(path) {
			return imp
		}
	}
	return nil
}

// ImportFile parses path and stores each valid network. Networks that fail
// validation are reported in the result and skipped; unreadable or
// unparseable files return an error.
func (e *Engine) ImportFile(ctx context.Context, path string, opts ImportOptions) (*ImportResult, error) {
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}
	if opts.Field == "" {
		opts.Field = network.FieldKeywords
	}
	if !network.IsField(opts.Field) {
		return nil, fmt.Errorf("unknown field %q (want one of %v)", opts.Field, network.Fields)
	}

	result := &ImportResult{FilesScanned: 1}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	if info.Size() > opts.MaxFileSize {
		result.FilesSkipped++
		result.Errors = append(result.Errors, ImportError{
			File:    path,
			Message: fmt.Sprintf("file is %d bytes, limit is %d", info.Size(), opts.MaxFileSize),
		})
		return result, nil
	}

	imp := e.ImporterFor(path)
	if imp == nil {
		result.FilesSkipped++
		result.Errors = append(result.Errors, ImportError{File: path, Message: "unsupported file type"})
		return result, nil
	}

	nets, err := imp.Import(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("importing %s: %w", path, err)
	}

	name := opts.Name
	if name == "" {
		name = filepath.Base(path)
	}

	for i, net := range nets {
		if net.Field == "" {
			net.Field = opts.Field
		}
		if !network.IsField(net.Field) {
			result.Errors = append(result.Errors, ImportError{File: path, Network: i, Message: fmt.Sprintf("unknown field %q", net.Field)})
			continue
		}
		if err := net.Validate(); err != nil {
			result.Errors = append(result.Errors, ImportError{File: path, Network: i, Message: err.Error()})
			continue
		}

		netName := name
		if len(nets) > 1 {
			netName = fmt.Sprintf("%s#%d", name, i+1)
		}

		if opts.DryRun {
			result.NetworksNew++
			e.log.Debug("dry run: parsed network", "file", path, "field", net.Field, "terms", net.Len())
			continue
		}

		id, err := e.store.SaveNetwork(ctx, store.NetworkFrom(net, netName))
		if err != nil {
			return nil, fmt.Errorf("saving network %d from %s: %w", i, path, err)
		}
		result.NetworksNew++
		result.NetworkIDs = append(result.NetworkIDs, id)
		e.log.Info("imported network", "id", id, "file", path, "field", net.Field, "terms", net.Len())
	}

	if result.NetworksNew > 0 {
		result.FilesImported++
	} else {
		result.FilesSkipped++
	}
	return result, nil
}
