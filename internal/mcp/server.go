// Package mcp provides a Model Context Protocol server for thematic maps.
//
// It exposes map computation and the stored networks and runs as MCP tools,
// and recent runs as an MCP resource. Served over stdio by the CLI.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/szz00712/bibliometrix/internal/community"
	"github.com/szz00712/bibliometrix/internal/network"
	"github.com/szz00712/bibliometrix/internal/service"
	"github.com/szz00712/bibliometrix/internal/store"
	"github.com/szz00712/bibliometrix/internal/thematic"
)

// ServerConfig holds configuration for the MCP server.
type ServerConfig struct {
	Service *service.Service
	// Defaults are the map options used for arguments a call omits.
	Defaults  thematic.Options
	Algorithm string
	Version   string // version string for MCP server info
	Logger    *slog.Logger
}

// maxRunsLimit caps list_runs.
const maxRunsLimit = 200

// dbMu serializes tool calls that touch the database. mcp-go dispatches
// handlers concurrently and SQLite allows a single writer.
var dbMu sync.Mutex

// NewServer creates a configured MCP server with all tools and resources.
func NewServer(cfg ServerConfig) *server.MCPServer {
	ver := cfg.Version
	if ver == "" {
		ver = "dev"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := server.NewMCPServer(
		"thematicmap",
		ver,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(true, false),
	)

	registerMapTool(s, cfg)
	registerListNetworksTool(s, cfg.Service.Store())
	registerListRunsTool(s, cfg.Service.Store())
	registerGetRunTool(s, cfg.Service.Store())

	registerRunsResource(s, cfg.Service.Store())

	return s
}

// ServeStdio runs the server on stdin/stdout until the client disconnects.
func ServeStdio(cfg ServerConfig) error {
	return server.ServeStdio(NewServer(cfg))
}

// --- Tools ---

type mapResponse struct {
	NetworkID int64            `json:"network_id"`
	Cached    bool             `json:"cached"`
	RunID     string           `json:"run_id,omitempty"`
	Result    *thematic.Result `json:"result"`
}

func registerMapTool(s *server.MCPServer, cfg ServerConfig) {
	tool := mcp.NewTool("thematic_map",
		mcp.WithDescription("Compute a strategic diagram (thematic map) for an imported co-occurrence network. Clusters terms, scores each cluster's centrality and density, ranks them into four quadrants (motor, niche, emerging/declining, basic) and returns the cluster and word tables."),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithNumber("network_id",
			mcp.Description("Stored network id (see list_networks). Takes precedence over field."),
		),
		mcp.WithString("field",
			mcp.Description("Use the latest network imported for this field (default: keywords)"),
			mcp.Enum(network.Fields...),
		),
		mcp.WithNumber("minfreq",
			mcp.Description("Minimum occurrences for a word to appear in the word table (>= 1)"),
		),
		mcp.WithNumber("n",
			mcp.Description("Number of most frequent terms to keep (>= 1)"),
		),
		mcp.WithNumber("seed",
			mcp.Description("Community detection seed"),
		),
		mcp.WithString("algorithm",
			mcp.Description("Community detection algorithm"),
			mcp.Enum(community.Algorithms...),
		),
		mcp.WithBoolean("save",
			mcp.Description("Save the result as a run (default: false)"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		mreq := service.Request{Algorithm: cfg.Algorithm, Options: cfg.Defaults}

		if v, err := req.RequireFloat("network_id"); err == nil {
			if v < 1 {
				return mcp.NewToolResultError("network_id must be a positive integer"), nil
			}
			mreq.NetworkID = int64(v)
		}
		if v, err := req.RequireString("field"); err == nil {
			mreq.Field = v
		}
		if v, err := req.RequireString("algorithm"); err == nil && v != "" {
			mreq.Algorithm = v
		}
		if v, err := req.RequireFloat("minfreq"); err == nil {
			if v < 1 {
				return mcp.NewToolResultError("minfreq must be at least 1"), nil
			}
			mreq.Options.MinFreq = int(v)
		}
		if v, err := req.RequireFloat("n"); err == nil {
			if v < 1 {
				return mcp.NewToolResultError("n must be at least 1"), nil
			}
			mreq.Options.N = int(v)
		}
		if v, err := req.RequireFloat("seed"); err == nil {
			if v < 0 {
				return mcp.NewToolResultError("seed must not be negative"), nil
			}
			mreq.Options.Seed = uint64(v)
		}

		out, err := cfg.Service.Build(ctx, mreq)
		if err != nil {
			msg := fmt.Sprintf("thematic map failed: %v", err)
			if hint := thematic.Hint(err); hint != "" {
				msg += "\nhint: " + hint
			}
			return mcp.NewToolResultError(msg), nil
		}

		resp := mapResponse{NetworkID: out.NetworkID, Cached: out.Cached, Result: out.Result}
		if save, err := req.RequireBool("save"); err == nil && save {
			id, err := cfg.Service.Save(ctx, out)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("saving run: %v", err)), nil
			}
			resp.RunID = id
		}

		data, _ := json.MarshalIndent(resp, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerListNetworksTool(s *server.MCPServer, st store.Store) {
	tool := mcp.NewTool("list_networks",
		mcp.WithDescription("List imported co-occurrence networks with their field, name and size."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		nets, err := st.ListNetworks(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("listing networks: %v", err)), nil
		}
		if nets == nil {
			nets = []*store.NetworkInfo{}
		}
		data, _ := json.MarshalIndent(map[string]interface{}{
			"networks": nets,
			"count":    len(nets),
		}, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerListRunsTool(s *server.MCPServer, st store.Store) {
	tool := mcp.NewTool("list_runs",
		mcp.WithDescription("List saved thematic map runs, newest first, without their full results."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithNumber("limit",
			mcp.Description(fmt.Sprintf("Maximum number of runs (default: %d, max: %d)", store.DefaultListLimit, maxRunsLimit)),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		limit := store.DefaultListLimit
		if v, err := req.RequireFloat("limit"); err == nil && v > 0 {
			limit = int(v)
			if limit > maxRunsLimit {
				limit = maxRunsLimit
			}
		}

		runs, err := st.ListRuns(ctx, limit)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("listing runs: %v", err)), nil
		}
		if runs == nil {
			runs = []*store.Run{}
		}
		data, _ := json.MarshalIndent(map[string]interface{}{
			"runs":  runs,
			"count": len(runs),
		}, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerGetRunTool(s *server.MCPServer, st store.Store) {
	tool := mcp.NewTool("get_run",
		mcp.WithDescription("Get a saved thematic map run with its full result."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Run id (UUID)"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		id, err := req.RequireString("id")
		if err != nil || id == "" {
			return mcp.NewToolResultError("id is required"), nil
		}
		run, err := st.GetRun(ctx, id)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("getting run: %v", err)), nil
		}
		if run == nil {
			return mcp.NewToolResultError(fmt.Sprintf("run %s not found", id)), nil
		}
		data, _ := json.MarshalIndent(run, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

// --- Resources ---

func registerRunsResource(s *server.MCPServer, st store.Store) {
	resource := mcp.NewResource(
		"thematicmap://runs",
		"Recent Runs",
		mcp.WithResourceDescription("The most recent saved thematic map runs."),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(resource, func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		runs, err := st.ListRuns(ctx, store.DefaultListLimit)
		if err != nil {
			return nil, fmt.Errorf("querying runs resource: %w", err)
		}
		if runs == nil {
			runs = []*store.Run{}
		}
		data, _ := json.MarshalIndent(map[string]interface{}{
			"runs":  runs,
			"count": len(runs),
		}, "", "  ")
		return []mcp.ResourceContents{
			mcp.TextResourceContents{URI: req.Params.URI, MIMEType: "application/json", Text: string(data)},
		}, nil
	})
}
