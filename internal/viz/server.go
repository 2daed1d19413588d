// Package viz serves an interactive strategic diagram. It embeds a
// self-contained HTML/SVG page that plots clusters by rank centrality and
// rank density, and fetches data from local JSON endpoints.
package viz

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/szz00712/bibliometrix/internal/service"
	"github.com/szz00712/bibliometrix/internal/store"
	"github.com/szz00712/bibliometrix/internal/thematic"
)

//go:embed visualizer.html
var visualizerFS embed.FS

// ServerConfig holds settings for the visualizer server.
type ServerConfig struct {
	Service *service.Service
	// Defaults are the map options used for parameters a request omits.
	Defaults  thematic.Options
	Algorithm string
	// Gatherer backs /metrics; nil omits the endpoint.
	Gatherer prometheus.Gatherer
	Port     int
	Logger   *slog.Logger
}

type server struct {
	cfg ServerConfig
	log *slog.Logger
}

// NewHandler returns the HTTP handler with every route registered.
func NewHandler(cfg ServerConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	s := &server{cfg: cfg, log: cfg.Logger}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /api/map", s.handleMap)
	mux.HandleFunc("GET /api/networks", s.handleNetworks)
	mux.HandleFunc("GET /api/runs", s.handleRuns)
	mux.HandleFunc("GET /api/runs/{id}", s.handleRun)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	if cfg.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

// Serve listens on cfg.Port until ctx is cancelled, then shuts down.
func Serve(ctx context.Context, cfg ServerConfig) error {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           NewHandler(cfg),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		cfg.Logger.Info("thematic map visualizer listening", "url", fmt.Sprintf("http://localhost:%d", cfg.Port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}
		return nil
	}
}

func (s *server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data, err := visualizerFS.ReadFile("visualizer.html")
	if err != nil {
		http.Error(w, "visualizer not found", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

func (s *server) handleMap(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseMapRequest(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	out, err := s.cfg.Service.Build(r.Context(), req)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			s.log.Error("map request failed", "err", err)
		}
		body := map[string]string{"error": err.Error()}
		if hint := thematic.Hint(err); hint != "" {
			body["hint"] = hint
		}
		writeJSON(w, status, body)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) parseMapRequest(r *http.Request) (service.Request, error) {
	q := r.URL.Query()
	req := service.Request{
		Field:     q.Get("field"),
		Algorithm: s.cfg.Algorithm,
		Options:   s.cfg.Defaults,
	}
	if a := q.Get("algorithm"); a != "" {
		req.Algorithm = a
	}

	if v := q.Get("network_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			return req, fmt.Errorf("invalid network_id %q", v)
		}
		req.NetworkID = id
	}
	if v := q.Get("minfreq"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return req, fmt.Errorf("invalid minfreq %q: want an integer >= 1", v)
		}
		req.Options.MinFreq = n
	}
	if v := q.Get("n"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return req, fmt.Errorf("invalid n %q: want an integer >= 1", v)
		}
		req.Options.N = n
	}
	if v := q.Get("seed"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return req, fmt.Errorf("invalid seed %q", v)
		}
		req.Options.Seed = seed
	}
	return req, nil
}

func (s *server) handleNetworks(w http.ResponseWriter, r *http.Request) {
	nets, err := s.cfg.Service.Store().ListNetworks(r.Context())
	if err != nil {
		s.log.Error("listing networks", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if nets == nil {
		nets = []*store.NetworkInfo{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"networks": nets})
}

func (s *server) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit := store.DefaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		limit = n
	}
	runs, err := s.cfg.Service.Store().ListRuns(r.Context(), limit)
	if err != nil {
		s.log.Error("listing runs", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if runs == nil {
		runs = []*store.Run{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"runs": runs})
}

func (s *server) handleRun(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	run, err := s.cfg.Service.Store().GetRun(r.Context(), id)
	if err != nil {
		s.log.Error("getting run", "run_id", id, "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if run == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": fmt.Sprintf("run %s not found", id)})
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.cfg.Service.Store().Stats(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNetworkNotFound):
		return http.StatusNotFound
	case errors.Is(err, thematic.ErrAlignment),
		errors.Is(err, thematic.ErrEmptyResult),
		errors.Is(err, thematic.ErrInvalidInput):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
