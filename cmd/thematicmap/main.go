// Command thematicmap imports term co-occurrence networks and draws
// strategic diagrams (thematic maps) from them.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/szz00712/bibliometrix/internal/config"
	"github.com/szz00712/bibliometrix/internal/service"
	"github.com/szz00712/bibliometrix/internal/store"
	"github.com/szz00712/bibliometrix/internal/thematic"
)

var version = "0.1.0-dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if hint := thematic.Hint(err); hint != "" {
			fmt.Fprintf(os.Stderr, "Hint: %s\n", hint)
		}
		os.Exit(1)
	}
}

// app carries the state shared by every subcommand once flags and config
// are resolved.
type app struct {
	configPath string
	envFile    string

	resolved config.ResolvedConfig
	settings config.Settings
	log      *slog.Logger

	out    io.Writer
	errOut io.Writer
}

// flagKeys maps command-line flags onto the config keys they override.
// Flags a command does not define are skipped.
var flagKeys = map[string]string{
	"db":         config.KeyDBPath,
	"log-level":  config.KeyLogLevel,
	"field":      config.KeyField,
	"n":          config.KeyN,
	"minfreq":    config.KeyMinFreq,
	"stemming":   config.KeyStemming,
	"size":       config.KeySize,
	"seed":       config.KeySeed,
	"algorithm":  config.KeyAlgorithm,
	"resolution": config.KeyResolution,
	"port":       config.KeyPort,
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, errOut: errOut}

	root := &cobra.Command{
		Use:   "thematicmap",
		Short: "Strategic diagrams from term co-occurrence networks",
		Long: `thematicmap clusters a term co-occurrence network, scores each cluster's
centrality and density, and places the clusters on a strategic diagram of
motor, niche, emerging/declining and basic themes.

Examples:
  thematicmap import keywords.csv            # store a co-occurrence matrix
  thematicmap map --minfreq 3                # map the latest keywords network
  thematicmap map --format json --save       # print JSON and save the run
  thematicmap serve                          # interactive map on :8090`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "config file (default ~/.thematicmap/config.yaml)")
	pf.StringVar(&a.envFile, "env-file", "", "dotenv file with THEMATICMAP_* settings (default .env)")
	pf.String("db", "", "database path (default ~/.thematicmap/thematicmap.db)")
	pf.String("log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		newImportCmd(a),
		newNetworksCmd(a),
		newMapCmd(a),
		newRunsCmd(a),
		newShowCmd(a),
		newDeleteCmd(a),
		newStatsCmd(a),
		newConfigCmd(a),
		newServeCmd(a),
		newMCPCmd(a),
		newVersionCmd(a),
	)
	return root
}

// setup resolves configuration for cmd and builds the logger.
func (a *app) setup(cmd *cobra.Command) error {
	var overrides []config.Override
	for flag, key := range flagKeys {
		f := cmd.Flags().Lookup(flag)
		if f == nil || !f.Changed {
			continue
		}
		overrides = append(overrides, config.Override{Key: key, Value: f.Value.String(), Flag: "--" + flag})
	}
	if f := cmd.Flags().Lookup("no-repel"); f != nil && f.Changed && f.Value.String() == "true" {
		overrides = append(overrides, config.Override{Key: config.KeyRepel, Value: "false", Flag: "--no-repel"})
	}

	resolved, err := config.ResolveConfig(config.ResolveOptions{
		ConfigPath: a.configPath,
		EnvFile:    a.envFile,
		CLI:        overrides,
	})
	if err != nil {
		return err
	}
	settings, err := resolved.Settings()
	if err != nil {
		return fmt.Errorf("invalid configuration:\n%w", err)
	}
	a.resolved = resolved
	a.settings = settings
	a.log = slog.New(slog.NewTextHandler(a.errOut, &slog.HandlerOptions{Level: parseLevel(settings.LogLevel)}))
	return nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (a *app) openStore() (store.Store, error) {
	s, err := store.NewStore(store.StoreConfig{DBPath: a.settings.DBPath})
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	return s, nil
}

// newService opens the store and wraps it in a map service. The caller
// closes the returned store.
func (a *app) newService(cfg service.Config) (*service.Service, store.Store, error) {
	s, err := a.openStore()
	if err != nil {
		return nil, nil, err
	}
	cfg.Store = s
	cfg.DetectorOptions = a.settings.DetectorOptions()
	cfg.Logger = a.log
	svc, err := service.New(cfg)
	if err != nil {
		s.Close()
		return nil, nil, err
	}
	return svc, s, nil
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(a.out, "thematicmap %s\n", version)
			return nil
		},
	}
}
