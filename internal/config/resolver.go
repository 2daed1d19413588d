package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type ValueSource string

const (
	SourceUnknown ValueSource = "unknown"
	SourceConfig  ValueSource = "config"
	SourceEnv     ValueSource = "env"
	SourceCLI     ValueSource = "cli"
	SourceDefault ValueSource = "default"
)

type ResolvedValue struct {
	Value  string      `json:"value"`
	Source ValueSource `json:"source"`
	From   string      `json:"from,omitempty"`
}

// Override is a value given on the command line for a config key.
type Override struct {
	Key   string // dotted config key, e.g. "map.minfreq"
	Value string
	Flag  string // flag name for provenance, e.g. "--minfreq"
}

type ResolveOptions struct {
	ConfigPath string
	// EnvFile is a dotenv file whose entries act like environment variables.
	// Real environment variables win. Defaults to ".env"; a missing file is
	// ignored.
	EnvFile string
	CLI     []Override
}

type ResolvedConfig struct {
	ConfigPath string                   `json:"config_path"`
	Values     map[string]ResolvedValue `json:"values"`
}

func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".thematicmap", "config.yaml")
}

// ResolveConfig layers defaults, the YAML file, the environment and CLI
// overrides, in increasing precedence. Values are not validated here; see
// ResolvedConfig.Settings.
func ResolveConfig(opts ResolveOptions) (ResolvedConfig, error) {
	path := strings.TrimSpace(opts.ConfigPath)
	if path == "" {
		path = DefaultConfigPath()
	}

	out := ResolvedConfig{
		ConfigPath: path,
		Values:     make(map[string]ResolvedValue, len(keys)),
	}
	for _, k := range keys {
		out.Values[k.name] = ResolvedValue{Value: k.def, Source: SourceDefault, From: "built-in default"}
	}

	fileValues, err := loadConfig(path)
	if err != nil {
		return out, err
	}
	for name, raw := range fileValues {
		if _, ok := keyByName(name); !ok {
			return out, fmt.Errorf("%s: unknown key %q", path, name)
		}
		out.apply(name, raw, SourceConfig, path)
	}

	dotenv, envFile, err := loadDotenv(opts.EnvFile)
	if err != nil {
		return out, err
	}
	for _, k := range keys {
		if k.env == "" {
			continue
		}
		if v, ok := os.LookupEnv(k.env); ok {
			out.apply(k.name, v, SourceEnv, k.env)
		} else if v, ok := dotenv[k.env]; ok {
			out.apply(k.name, v, SourceEnv, k.env+" ("+envFile+")")
		}
	}

	for _, o := range opts.CLI {
		if _, ok := keyByName(o.Key); !ok {
			return out, fmt.Errorf("unknown config key %q for %s", o.Key, o.Flag)
		}
		out.apply(o.Key, o.Value, SourceCLI, o.Flag)
	}

	if db, ok := out.Values[KeyDBPath]; ok {
		db.Value = expandUserPath(db.Value)
		out.Values[KeyDBPath] = db
	}
	return out, nil
}

// Get returns the resolved value for key.
func (r ResolvedConfig) Get(key string) ResolvedValue {
	if v, ok := r.Values[key]; ok {
		return v
	}
	return ResolvedValue{Source: SourceUnknown}
}

// Keys returns the known keys in sorted order.
func (r ResolvedConfig) Keys() []string {
	names := make([]string, 0, len(r.Values))
	for name := range r.Values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r ResolvedConfig) apply(key, raw string, source ValueSource, from string) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return
	}
	r.Values[key] = ResolvedValue{Value: v, Source: source, From: from}
}

// loadConfig reads the YAML file and flattens nested sections into dotted
// keys ("map.minfreq"). A missing file yields no values.
func loadConfig(path string) (map[string]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var doc map[string]interface{}
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	out := make(map[string]string)
	flatten("", doc, out)
	return out, nil
}

func flatten(prefix string, doc map[string]interface{}, out map[string]string) {
	for k, v := range doc {
		name := k
		if prefix != "" {
			name = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]interface{}:
			flatten(name, val, out)
		case nil:
		default:
			out[name] = fmt.Sprint(val)
		}
	}
}

func loadDotenv(path string) (map[string]string, string, error) {
	explicit := path != ""
	if !explicit {
		path = ".env"
	}
	values, err := godotenv.Read(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil, path, nil
		}
		return nil, path, fmt.Errorf("reading %s: %w", path, err)
	}
	return values, path, nil
}

func expandUserPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
