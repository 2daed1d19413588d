package viz

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/szz00712/bibliometrix/internal/network"
	"github.com/szz00712/bibliometrix/internal/service"
	"github.com/szz00712/bibliometrix/internal/store"
	"github.com/szz00712/bibliometrix/internal/thematic"
)

type fixture struct {
	ts        *httptest.Server
	store     store.Store
	networkID int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := store.NewStore(store.StoreConfig{DBPath: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	net, err := network.New(network.FieldKeywords, []string{"a", "b", "c", "d", "e"}, [][]float64{
		{6, 4, 3, 0, 0},
		{4, 5, 3, 0, 0},
		{3, 3, 4, 1, 0},
		{0, 0, 1, 7, 5},
		{0, 0, 0, 5, 6},
	})
	require.NoError(t, err)
	id, err := st.SaveNetwork(context.Background(), store.NetworkFrom(net, "fixture"))
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	svc, err := service.New(service.Config{Store: st, CacheSize: 8, Registerer: reg})
	require.NoError(t, err)

	defaults := thematic.DefaultOptions()
	defaults.MinFreq = 1
	ts := httptest.NewServer(NewHandler(ServerConfig{Service: svc, Defaults: defaults, Gatherer: reg}))
	t.Cleanup(ts.Close)
	return &fixture{ts: ts, store: st, networkID: id}
}

func (f *fixture) get(t *testing.T, path string) (int, map[string]interface{}) {
	t.Helper()
	resp, err := http.Get(f.ts.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestVisualizerHTML(t *testing.T) {
	data, err := visualizerFS.ReadFile("visualizer.html")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "<!DOCTYPE html>"))
	assert.Contains(t, string(data), "/api/map")
	assert.Contains(t, string(data), "/api/networks")

	f := newFixture(t)
	resp, err := http.Get(f.ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
}

func TestMapAPI(t *testing.T) {
	f := newFixture(t)

	code, body := f.get(t, "/api/map?network_id=1&seed=2")
	require.Equal(t, http.StatusOK, code, "body: %v", body)
	assert.Equal(t, float64(f.networkID), body["network_id"])
	assert.Equal(t, false, body["cached"])

	result := body["result"].(map[string]interface{})
	assert.Equal(t, float64(2), result["nclust"])
	plot := result["map"].(map[string]interface{})
	assert.Len(t, plot["points"], 2)

	_, body = f.get(t, "/api/map?network_id=1&seed=2")
	assert.Equal(t, true, body["cached"])

	code, _ = f.get(t, "/api/map?field=keywords")
	assert.Equal(t, http.StatusOK, code)
}

func TestMapAPIErrors(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		query  string
		status int
		hint   bool
	}{
		{name: "bad network id", query: "network_id=abc", status: http.StatusBadRequest},
		{name: "zero minfreq", query: "minfreq=0", status: http.StatusBadRequest},
		{name: "bad n", query: "n=-3", status: http.StatusBadRequest},
		{name: "bad seed", query: "seed=x", status: http.StatusBadRequest},
		{name: "unknown algorithm", query: "algorithm=walktrap", status: http.StatusBadRequest},
		{name: "unknown field", query: "field=journals", status: http.StatusBadRequest},
		{name: "missing network", query: "network_id=99", status: http.StatusNotFound},
		{name: "no network for field", query: "field=titles", status: http.StatusNotFound},
		{name: "empty result", query: "minfreq=100", status: http.StatusUnprocessableEntity, hint: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := f.get(t, "/api/map?"+tt.query)
			assert.Equal(t, tt.status, code)
			assert.NotEmpty(t, body["error"])
			if tt.hint {
				assert.Contains(t, body["hint"], "minfreq")
			}
		})
	}
}

func TestNetworksRunsAndStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	code, body := f.get(t, "/api/networks")
	require.Equal(t, http.StatusOK, code)
	nets := body["networks"].([]interface{})
	require.Len(t, nets, 1)
	assert.Equal(t, "fixture", nets[0].(map[string]interface{})["name"])

	code, body = f.get(t, "/api/runs")
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, body["runs"])

	netRec, err := f.store.GetNetwork(ctx, f.networkID)
	require.NoError(t, err)
	net, err := netRec.TermNetwork()
	require.NoError(t, err)
	opts := thematic.DefaultOptions()
	opts.MinFreq = 1
	res, err := thematic.NewBuilder(nil).Build(ctx, net, opts)
	require.NoError(t, err)
	runID, err := f.store.SaveRun(ctx, &store.Run{NetworkID: f.networkID, Params: res.Params, Result: res})
	require.NoError(t, err)

	code, body = f.get(t, "/api/runs?limit=5")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["runs"], 1)

	code, body = f.get(t, "/api/runs/"+runID)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, runID, body["id"])
	assert.NotNil(t, body["result"])

	code, _ = f.get(t, "/api/runs/nope")
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = f.get(t, "/api/runs?limit=zero")
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = f.get(t, "/api/stats")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), body["runs"])
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	f.get(t, "/api/map?network_id=1")
	f.get(t, "/api/map?network_id=1")

	resp, err := http.Get(f.ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	text := string(data)
	assert.Contains(t, text, `thematicmap_builds_total{outcome="ok"} 1`)
	assert.Contains(t, text, "thematicmap_cache_hits_total 1")
	assert.Contains(t, text, "thematicmap_builds_duration_seconds_bucket")
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(&thematic.AlignmentError{}))
	assert.Equal(t, http.StatusInternalServerError, statusFor(io.ErrUnexpectedEOF))
}

func TestServeStopsOnCancel(t *testing.T) {
	st, err := store.NewStore(store.StoreConfig{DBPath: ":memory:"})
	require.NoError(t, err)
	defer st.Close()
	svc, err := service.New(service.Config{Store: st})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, ServerConfig{Service: svc, Port: 0}) }()
	cancel()
	assert.NoError(t, <-done)
}
