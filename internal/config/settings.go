package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/szz00712/bibliometrix/internal/community"
	"github.com/szz00712/bibliometrix/internal/network"
	"github.com/szz00712/bibliometrix/internal/store"
	"github.com/szz00712/bibliometrix/internal/thematic"
)

// Config keys.
const (
	KeyDBPath          = "db_path"
	KeyLogLevel        = "log_level"
	KeyField           = "map.field"
	KeyN               = "map.n"
	KeyMinFreq         = "map.minfreq"
	KeyStemming        = "map.stemming"
	KeySize            = "map.size"
	KeyRepel           = "map.repel"
	KeySeed            = "map.seed"
	KeyAlgorithm       = "map.algorithm"
	KeyResolution      = "map.resolution"
	KeySimilarityScale = "scale.similarity"
	KeyCentralityScale = "scale.centrality"
	KeyDensityScale    = "scale.density"
	KeyPort            = "server.port"
	KeyCacheSize       = "server.cache_size"
)

// DefaultPort is the visualizer's listen port.
const DefaultPort = 8090

type keySpec struct {
	name string
	env  string
	def  string
}

var keys = []keySpec{
	{KeyDBPath, "THEMATICMAP_DB", store.DefaultDBPath},
	{KeyLogLevel, "THEMATICMAP_LOG_LEVEL", "info"},
	{KeyField, "THEMATICMAP_FIELD", network.FieldKeywords},
	{KeyN, "THEMATICMAP_N", strconv.Itoa(thematic.DefaultN)},
	{KeyMinFreq, "THEMATICMAP_MINFREQ", strconv.Itoa(thematic.DefaultMinFreq)},
	{KeyStemming, "THEMATICMAP_STEMMING", "false"},
	{KeySize, "THEMATICMAP_SIZE", formatFloat(thematic.DefaultSize)},
	{KeyRepel, "THEMATICMAP_REPEL", "true"},
	{KeySeed, "THEMATICMAP_SEED", "0"},
	{KeyAlgorithm, "THEMATICMAP_ALGORITHM", community.DefaultAlgorithm},
	{KeyResolution, "THEMATICMAP_RESOLUTION", "1"},
	{KeySimilarityScale, "", formatFloat(thematic.DefaultSimilarityScale)},
	{KeyCentralityScale, "", formatFloat(thematic.DefaultCentralityScale)},
	{KeyDensityScale, "", formatFloat(thematic.DefaultDensityScale)},
	{KeyPort, "THEMATICMAP_PORT", strconv.Itoa(DefaultPort)},
	{KeyCacheSize, "THEMATICMAP_CACHE_SIZE", "64"},
}

func keyByName(name string) (keySpec, bool) {
	for _, k := range keys {
		if k.name == name {
			return k, true
		}
	}
	return keySpec{}, false
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// Settings is the typed, validated form of a ResolvedConfig.
type Settings struct {
	DBPath   string
	LogLevel string

	Field      string
	N          int
	MinFreq    int
	Stemming   bool
	Size       float64
	Repel      bool
	Seed       uint64
	Algorithm  string
	Resolution float64

	SimilarityScale float64
	CentralityScale float64
	DensityScale    float64

	Port      int
	CacheSize int
}

// Settings parses and validates every value. All problems are reported
// together, each naming the key and where its value came from.
func (r ResolvedConfig) Settings() (Settings, error) {
	p := parser{r: r}
	s := Settings{
		DBPath:          r.Get(KeyDBPath).Value,
		LogLevel:        strings.ToLower(r.Get(KeyLogLevel).Value),
		Field:           r.Get(KeyField).Value,
		N:               p.intValue(KeyN),
		MinFreq:         p.intValue(KeyMinFreq),
		Stemming:        p.boolValue(KeyStemming),
		Size:            p.floatValue(KeySize),
		Repel:           p.boolValue(KeyRepel),
		Seed:            p.uintValue(KeySeed),
		Algorithm:       strings.ToLower(r.Get(KeyAlgorithm).Value),
		Resolution:      p.floatValue(KeyResolution),
		SimilarityScale: p.floatValue(KeySimilarityScale),
		CentralityScale: p.floatValue(KeyCentralityScale),
		DensityScale:    p.floatValue(KeyDensityScale),
		Port:            p.intValue(KeyPort),
		CacheSize:       p.intValue(KeyCacheSize),
	}

	if !network.IsField(s.Field) {
		p.fail(KeyField, fmt.Sprintf("must be one of %s", strings.Join(network.Fields, ", ")))
	}
	if s.N < 1 {
		p.fail(KeyN, "must be at least 1")
	}
	if s.MinFreq < 1 {
		p.fail(KeyMinFreq, "must be at least 1")
	}
	if s.Size < 0 {
		p.fail(KeySize, "must not be negative")
	}
	if _, err := community.New(s.Algorithm, community.Options{}); err != nil {
		p.fail(KeyAlgorithm, fmt.Sprintf("must be one of %s", strings.Join(community.Algorithms, ", ")))
	}
	if s.Resolution <= 0 {
		p.fail(KeyResolution, "must be positive")
	}
	if s.Port < 0 || s.Port > 65535 {
		p.fail(KeyPort, "must be a TCP port")
	}
	if s.CacheSize < 0 {
		p.fail(KeyCacheSize, "must not be negative")
	}
	switch s.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		p.fail(KeyLogLevel, "must be debug, info, warn or error")
	}

	return s, errors.Join(p.errs...)
}

// ThematicOptions converts the map settings into pipeline options.
func (s Settings) ThematicOptions() thematic.Options {
	o := thematic.DefaultOptions()
	o.N = s.N
	o.MinFreq = s.MinFreq
	o.Size = s.Size
	o.Repel = s.Repel
	o.Stemming = s.Stemming
	o.Seed = s.Seed
	o.SimilarityScale = s.SimilarityScale
	o.CentralityScale = s.CentralityScale
	o.DensityScale = s.DensityScale
	return o
}

// DetectorOptions returns the tuning shared by every detector.
func (s Settings) DetectorOptions() community.Options {
	return community.Options{Resolution: s.Resolution}
}

// Detector builds the configured community detector.
func (s Settings) Detector() (community.Detector, error) {
	return community.New(s.Algorithm, s.DetectorOptions())
}

type parser struct {
	r    ResolvedConfig
	errs []error
}

func (p *parser) fail(key, msg string) {
	v := p.r.Get(key)
	p.errs = append(p.errs, fmt.Errorf("%s=%q (%s %s): %s", key, v.Value, v.Source, v.From, msg))
}

func (p *parser) intValue(key string) int {
	n, err := strconv.Atoi(p.r.Get(key).Value)
	if err != nil {
		p.fail(key, "not an integer")
	}
	return n
}

func (p *parser) uintValue(key string) uint64 {
	n, err := strconv.ParseUint(p.r.Get(key).Value, 10, 64)
	if err != nil {
		p.fail(key, "not a non-negative integer")
	}
	return n
}

func (p *parser) floatValue(key string) float64 {
	f, err := strconv.ParseFloat(p.r.Get(key).Value, 64)
	if err != nil {
		p.fail(key, "not a number")
	}
	return f
}

func (p *parser) boolValue(key string) bool {
	b, err := strconv.ParseBool(p.r.Get(key).Value)
	if err != nil {
		p.fail(key, "not a boolean")
	}
	return b
}
