// Package service computes thematic maps for stored networks. It is shared by
// the CLI, the visualizer server and the MCP server: it resolves the network,
// picks the detector, caches results and saves runs.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/szz00712/bibliometrix/internal/community"
	"github.com/szz00712/bibliometrix/internal/network"
	"github.com/szz00712/bibliometrix/internal/store"
	"github.com/szz00712/bibliometrix/internal/thematic"
)

var (
	// ErrNetworkNotFound is returned when no stored network matches a request.
	ErrNetworkNotFound = errors.New("network not found")
	// ErrBadRequest wraps request parameters that can never succeed.
	ErrBadRequest = errors.New("bad request")
)

// Config configures a Service.
type Config struct {
	Store           store.Store
	DetectorOptions community.Options
	// CacheSize bounds the result cache; 0 disables caching.
	CacheSize int
	// Registerer receives build metrics; nil disables them.
	Registerer prometheus.Registerer
	Logger     *slog.Logger
}

// Request selects a network and the options to map it with. NetworkID wins
// over Field; with neither, the latest keywords network is used.
type Request struct {
	NetworkID int64
	Field     string
	Algorithm string
	Options   thematic.Options
}

// Outcome is a computed map and where it came from.
type Outcome struct {
	NetworkID int64            `json:"network_id"`
	Result    *thematic.Result `json:"result"`
	Cached    bool             `json:"cached"`
}

// Service builds and saves thematic maps.
type Service struct {
	store   store.Store
	detOpts community.Options
	cache   *lru.Cache[string, *thematic.Result]
	metrics *buildMetrics
	log     *slog.Logger
}

// New creates a Service.
func New(cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("service: store is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	s := &Service{store: cfg.Store, detOpts: cfg.DetectorOptions, log: cfg.Logger}

	if cfg.CacheSize > 0 {
		cache, err := lru.New[string, *thematic.Result](cfg.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("creating result cache: %w", err)
		}
		s.cache = cache
	}

	m, err := newBuildMetrics(cfg.Registerer)
	if err != nil {
		return nil, fmt.Errorf("registering metrics: %w", err)
	}
	s.metrics = m
	return s, nil
}

// Store returns the underlying store.
func (s *Service) Store() store.Store { return s.store }

// ResolveNetwork loads the network a request points at.
func (s *Service) ResolveNetwork(ctx context.Context, id int64, field string) (*store.Network, error) {
	var (
		n   *store.Network
		err error
	)
	switch {
	case id > 0:
		n, err = s.store.GetNetwork(ctx, id)
	default:
		if field == "" {
			field = network.FieldKeywords
		}
		if !network.IsField(field) {
			return nil, fmt.Errorf("%w: unknown field %q", ErrBadRequest, field)
		}
		n, err = s.store.GetNetworkByField(ctx, field)
	}
	if err != nil {
		return nil, err
	}
	if n == nil {
		if id > 0 {
			return nil, fmt.Errorf("%w: id %d", ErrNetworkNotFound, id)
		}
		return nil, fmt.Errorf("%w: no %s network imported", ErrNetworkNotFound, field)
	}
	return n, nil
}

// Build computes (or fetches from cache) the map for req.
func (s *Service) Build(ctx context.Context, req Request) (*Outcome, error) {
	detector, err := community.New(req.Algorithm, s.detOpts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	stored, err := s.ResolveNetwork(ctx, req.NetworkID, req.Field)
	if err != nil {
		return nil, err
	}

	opts := req.Options
	opts.Normalize()
	key := cacheKey(stored.ID, detector.Name(), s.detOpts, opts)
	if s.cache != nil {
		if res, ok := s.cache.Get(key); ok {
			s.metrics.cache(true)
			s.log.Debug("map served from cache", "network_id", stored.ID)
			return &Outcome{NetworkID: stored.ID, Result: res, Cached: true}, nil
		}
		s.metrics.cache(false)
	}

	net, err := stored.TermNetwork()
	if err != nil {
		return nil, fmt.Errorf("loading network %d: %w", stored.ID, err)
	}

	start := time.Now()
	res, err := thematic.NewBuilder(detector).Build(ctx, net, opts)
	elapsed := time.Since(start)
	s.metrics.observe(elapsed.Seconds(), err)
	if err != nil {
		s.log.Info("map build failed", "network_id", stored.ID, "outcome", outcomeOf(err), "err", err)
		return nil, err
	}
	s.log.Info("map built", "network_id", stored.ID, "clusters", res.NClust, "algorithm", detector.Name(), "elapsed", elapsed)

	if s.cache != nil {
		s.cache.Add(key, res)
	}
	return &Outcome{NetworkID: stored.ID, Result: res}, nil
}

// Save stores an outcome as a run and returns the run id.
func (s *Service) Save(ctx context.Context, out *Outcome) (string, error) {
	id, err := s.store.SaveRun(ctx, &store.Run{
		NetworkID: out.NetworkID,
		Params:    out.Result.Params,
		Result:    out.Result,
	})
	if err != nil {
		return "", err
	}
	s.log.Info("run saved", "run_id", id, "network_id", out.NetworkID)
	return id, nil
}

func cacheKey(networkID int64, algorithm string, det community.Options, opts thematic.Options) string {
	return fmt.Sprintf("%d|%s|%+v|%+v", networkID, algorithm, det, opts)
}
