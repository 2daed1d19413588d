package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/szz00712/bibliometrix/internal/network"
	"github.com/szz00712/bibliometrix/internal/service"
	"github.com/szz00712/bibliometrix/internal/store"
	"github.com/szz00712/bibliometrix/internal/thematic"
)

// helper: create a test store holding one two-block keyword network
func setupTestServer(t *testing.T) (*server.MCPServer, store.Store) {
	t.Helper()
	s, err := store.NewStore(store.StoreConfig{DBPath: ":memory:"})
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	net, err := network.New(network.FieldKeywords, []string{"a", "b", "c", "d", "e"}, [][]float64{
		{6, 4, 3, 0, 0},
		{4, 5, 3, 0, 0},
		{3, 3, 4, 1, 0},
		{0, 0, 1, 7, 5},
		{0, 0, 0, 5, 6},
	})
	if err != nil {
		t.Fatalf("building network: %v", err)
	}
	if _, err := s.SaveNetwork(context.Background(), store.NetworkFrom(net, "two-blocks")); err != nil {
		t.Fatalf("saving network: %v", err)
	}

	svc, err := service.New(service.Config{Store: s})
	if err != nil {
		t.Fatalf("creating service: %v", err)
	}
	defaults := thematic.DefaultOptions()
	defaults.MinFreq = 1
	return NewServer(ServerConfig{Service: svc, Defaults: defaults, Version: "test"}), s
}

func callTool(t *testing.T, srv *server.MCPServer, name string, args map[string]interface{}) *mcplib.CallToolResult {
	t.Helper()

	result := srv.HandleMessage(context.Background(), mustMarshal(t, map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/call",
		"params": map[string]interface{}{
			"name":      name,
			"arguments": args,
		},
	}))

	respBytes, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}

	var resp struct {
		Result struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
			IsError bool `json:"isError"`
		} `json:"result"`
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		t.Fatalf("unmarshal response: %v\nraw: %s", err, string(respBytes))
	}
	if resp.Error != nil {
		t.Fatalf("JSON-RPC error: %d %s", resp.Error.Code, resp.Error.Message)
	}

	callResult := &mcplib.CallToolResult{IsError: resp.Result.IsError}
	for _, c := range resp.Result.Content {
		if c.Type == "text" {
			callResult.Content = append(callResult.Content, mcplib.NewTextContent(c.Text))
		}
	}
	return callResult
}

func readResource(t *testing.T, srv *server.MCPServer, uri string) string {
	t.Helper()

	result := srv.HandleMessage(context.Background(), mustMarshal(t, map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "resources/read",
		"params":  map[string]interface{}{"uri": uri},
	}))
	respBytes, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}

	var resp struct {
		Result struct {
			Contents []struct {
				Text string `json:"text"`
			} `json:"contents"`
		} `json:"result"`
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		t.Fatalf("unmarshal response: %v\nraw: %s", err, string(respBytes))
	}
	if resp.Error != nil {
		t.Fatalf("JSON-RPC error: %d %s", resp.Error.Code, resp.Error.Message)
	}
	if len(resp.Result.Contents) == 0 {
		t.Fatalf("no resource contents for %s", uri)
	}
	return resp.Result.Contents[0].Text
}

func mustMarshal(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

func getTextContent(t *testing.T, result *mcplib.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	for _, c := range result.Content {
		if tc, ok := c.(mcplib.TextContent); ok {
			return tc.Text
		}
	}
	t.Fatal("no text content found")
	return ""
}

func TestThematicMapTool(t *testing.T) {
	srv, _ := setupTestServer(t)

	result := callTool(t, srv, "thematic_map", map[string]interface{}{
		"network_id": 1,
		"seed":       4,
	})
	text := getTextContent(t, result)
	if result.IsError {
		t.Fatalf("unexpected error: %s", text)
	}

	var resp mapResponse
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if resp.NetworkID != 1 {
		t.Errorf("expected network 1, got %d", resp.NetworkID)
	}
	if resp.RunID != "" {
		t.Errorf("expected no run id without save, got %q", resp.RunID)
	}
	if resp.Result == nil || resp.Result.NClust != 2 {
		t.Fatalf("expected 2 clusters, got %+v", resp.Result)
	}
	for _, c := range resp.Result.Clusters {
		if c.Quadrant == "" {
			t.Errorf("cluster %d has no quadrant", c.ID)
		}
	}
	if len(resp.Result.Words) != 5 {
		t.Errorf("expected 5 words at minfreq 1, got %d", len(resp.Result.Words))
	}
}

func TestThematicMapToolByField(t *testing.T) {
	srv, _ := setupTestServer(t)

	result := callTool(t, srv, "thematic_map", map[string]interface{}{
		"field":     "keywords",
		"algorithm": "label_propagation",
	})
	if result.IsError {
		t.Fatalf("unexpected error: %s", getTextContent(t, result))
	}
	if !strings.Contains(getTextContent(t, result), `"algorithm": "label_propagation"`) {
		t.Error("expected label propagation in params")
	}
}

func TestThematicMapToolSave(t *testing.T) {
	srv, s := setupTestServer(t)

	result := callTool(t, srv, "thematic_map", map[string]interface{}{
		"network_id": 1,
		"save":       true,
	})
	text := getTextContent(t, result)
	if result.IsError {
		t.Fatalf("unexpected error: %s", text)
	}
	var resp mapResponse
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if resp.RunID == "" {
		t.Fatal("expected a run id")
	}

	run, err := s.GetRun(context.Background(), resp.RunID)
	if err != nil || run == nil {
		t.Fatalf("saved run not found: %v", err)
	}

	got := callTool(t, srv, "get_run", map[string]interface{}{"id": resp.RunID})
	if got.IsError {
		t.Fatalf("get_run failed: %s", getTextContent(t, got))
	}
	if !strings.Contains(getTextContent(t, got), resp.RunID) {
		t.Error("get_run response missing run id")
	}

	list := callTool(t, srv, "list_runs", map[string]interface{}{"limit": 1000})
	var runs struct {
		Runs  []store.Run `json:"runs"`
		Count int         `json:"count"`
	}
	if err := json.Unmarshal([]byte(getTextContent(t, list)), &runs); err != nil {
		t.Fatalf("parse runs: %v", err)
	}
	if runs.Count != 1 || runs.Runs[0].Result != nil {
		t.Errorf("expected one summary run, got %+v", runs)
	}

	if !strings.Contains(readResource(t, srv, "thematicmap://runs"), resp.RunID) {
		t.Error("runs resource missing saved run")
	}
}

func TestThematicMapToolErrors(t *testing.T) {
	srv, _ := setupTestServer(t)

	tests := []struct {
		name string
		args map[string]interface{}
		want string
	}{
		{name: "empty result", args: map[string]interface{}{"minfreq": 500}, want: "lower minfreq"},
		{name: "zero minfreq", args: map[string]interface{}{"minfreq": 0}, want: "minfreq must be at least 1"},
		{name: "bad n", args: map[string]interface{}{"n": 0}, want: "n must be at least 1"},
		{name: "negative seed", args: map[string]interface{}{"seed": -1}, want: "seed must not be negative"},
		{name: "missing network", args: map[string]interface{}{"network_id": 42}, want: "not found"},
		{name: "no network for field", args: map[string]interface{}{"field": "titles"}, want: "not found"},
		{name: "unknown algorithm", args: map[string]interface{}{"algorithm": "walktrap"}, want: "unknown community algorithm"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := callTool(t, srv, "thematic_map", tt.args)
			if !result.IsError {
				t.Fatal("expected error result")
			}
			if text := getTextContent(t, result); !strings.Contains(text, tt.want) {
				t.Errorf("expected %q in %q", tt.want, text)
			}
		})
	}
}

func TestListNetworksTool(t *testing.T) {
	srv, _ := setupTestServer(t)

	result := callTool(t, srv, "list_networks", map[string]interface{}{})
	var resp struct {
		Networks []store.NetworkInfo `json:"networks"`
		Count    int                 `json:"count"`
	}
	if err := json.Unmarshal([]byte(getTextContent(t, result)), &resp); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if resp.Count != 1 {
		t.Fatalf("expected 1 network, got %d", resp.Count)
	}
	if n := resp.Networks[0]; n.Name != "two-blocks" || n.Terms != 5 || n.Field != network.FieldKeywords {
		t.Errorf("unexpected network info: %+v", n)
	}
}

func TestGetRunNotFound(t *testing.T) {
	srv, _ := setupTestServer(t)

	result := callTool(t, srv, "get_run", map[string]interface{}{"id": "missing"})
	if !result.IsError {
		t.Fatal("expected error for unknown run")
	}
	if !strings.Contains(getTextContent(t, result), "not found") {
		t.Error("expected not found message")
	}
}

func TestRunsResourceEmpty(t *testing.T) {
	srv, _ := setupTestServer(t)

	text := readResource(t, srv, "thematicmap://runs")
	if !strings.Contains(text, `"count": 0`) {
		t.Errorf("expected empty runs, got %s", text)
	}
}
