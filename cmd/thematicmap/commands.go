package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/szz00712/bibliometrix/internal/community"
	"github.com/szz00712/bibliometrix/internal/export"
	"github.com/szz00712/bibliometrix/internal/ingest"
	"github.com/szz00712/bibliometrix/internal/network"
	"github.com/szz00712/bibliometrix/internal/service"
	"github.com/szz00712/bibliometrix/internal/store"
	"github.com/szz00712/bibliometrix/internal/thematic"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatCSV   = "csv"
)

func checkFormat(f string) error {
	switch f {
	case formatTable, formatJSON, formatCSV:
		return nil
	}
	return fmt.Errorf("unknown format %q (valid: table, json, csv)", f)
}

func newImportCmd(a *app) *cobra.Command {
	var (
		dryRun bool
		name   string
	)
	cmd := &cobra.Command{
		Use:   "import <path>...",
		Short: "Import co-occurrence networks from CSV, TSV, JSON or YAML files",
		Long: `Import one or more term co-occurrence networks.

CSV/TSV files hold a labelled square matrix: the header row and the first
column list the terms, the diagonal holds each term's occurrence count.
JSON and YAML files hold {field, terms, matrix} objects or a {networks: [...]}
bundle.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			engine := ingest.NewEngine(s, a.log)
			opts := ingest.ImportOptions{DryRun: dryRun, Field: a.settings.Field, Name: name}
			if dryRun {
				fmt.Fprintln(a.out, "Dry run: nothing will be written")
			}

			total := &ingest.ImportResult{}
			for _, path := range args {
				res, err := engine.ImportFile(cmd.Context(), path, opts)
				if err != nil {
					fmt.Fprintf(a.errOut, "  Error: %v\n", err)
					total.Errors = append(total.Errors, ingest.ImportError{File: path, Message: err.Error()})
					total.FilesScanned++
					continue
				}
				total.Add(res)
			}
			writeImportSummary(a.out, total)
			if total.NetworksNew == 0 && len(total.Errors) > 0 {
				return fmt.Errorf("no networks imported")
			}
			return nil
		},
	}
	cmd.Flags().String("field", "", "field for files that do not name one (default keywords)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "parse and validate without storing")
	cmd.Flags().StringVar(&name, "name", "", "stored network name (default: file name)")
	return cmd
}

func writeImportSummary(w io.Writer, r *ingest.ImportResult) {
	fmt.Fprintf(w, "Files: %d scanned, %d imported, %d skipped\n", r.FilesScanned, r.FilesImported, r.FilesSkipped)
	fmt.Fprintf(w, "Networks: %d new", r.NetworksNew)
	if len(r.NetworkIDs) > 0 {
		ids := make([]string, len(r.NetworkIDs))
		for i, id := range r.NetworkIDs {
			ids[i] = fmt.Sprint(id)
		}
		fmt.Fprintf(w, " (ids %s)", strings.Join(ids, ", "))
	}
	fmt.Fprintln(w)
	for _, e := range r.Errors {
		fmt.Fprintf(w, "  %s [%d]: %s\n", e.File, e.Network, e.Message)
	}
}

func newNetworksCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "networks",
		Short: "List imported networks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			nets, err := s.ListNetworks(cmd.Context())
			if err != nil {
				return err
			}
			if len(nets) == 0 {
				fmt.Fprintln(a.out, "No networks imported. Run: thematicmap import <file>")
				return nil
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tFIELD\tTERMS\tNAME\tIMPORTED")
			for _, n := range nets {
				fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\n", n.ID, n.Field, n.Terms, n.Name, n.ImportedAt.Format("2006-01-02 15:04"))
			}
			return tw.Flush()
		},
	}
}

func newMapCmd(a *app) *cobra.Command {
	var (
		networkID int64
		format    string
		outDir    string
		save      bool
	)
	cmd := &cobra.Command{
		Use:   "map",
		Short: "Compute a thematic map",
		Long: `Compute a strategic diagram for a stored network.

Without --network-id the most recently imported network of --field is used.
Clusters are ranked by Callon centrality and density and placed in one of
four quadrants around the mean ranks.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			svc, s, err := a.newService(service.Config{})
			if err != nil {
				return err
			}
			defer s.Close()

			out, err := svc.Build(cmd.Context(), service.Request{
				NetworkID: networkID,
				Field:     a.settings.Field,
				Algorithm: a.settings.Algorithm,
				Options:   a.settings.ThematicOptions(),
			})
			if err != nil {
				return err
			}

			if err := writeResult(a.out, format, out); err != nil {
				return err
			}
			if outDir != "" {
				files, err := export.WriteDir(outDir, out.Result)
				if err != nil {
					return err
				}
				for _, f := range files {
					fmt.Fprintf(a.errOut, "wrote %s\n", f)
				}
			}
			if save {
				id, err := svc.Save(cmd.Context(), out)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.errOut, "saved run %s\n", id)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.Int64Var(&networkID, "network-id", 0, "stored network id (overrides --field)")
	f.String("field", "", fmt.Sprintf("field whose latest network is mapped (%s)", strings.Join(network.Fields, ", ")))
	f.Int("n", thematic.DefaultN, "number of most frequent terms to keep")
	f.Int("minfreq", thematic.DefaultMinFreq, "minimum occurrences for a word to be listed")
	f.Uint64("seed", 0, "community detection seed")
	f.String("algorithm", community.DefaultAlgorithm, fmt.Sprintf("community detection (%s)", strings.Join(community.Algorithms, ", ")))
	f.Float64("resolution", 1, "Louvain resolution")
	f.Float64("size", thematic.DefaultSize, "point size scale")
	f.Bool("no-repel", false, "do not mark labels for repulsion")
	f.Bool("stemming", false, "record that terms were stemmed")
	f.StringVar(&format, "format", formatTable, "output format: table, json, csv")
	f.StringVar(&outDir, "out-dir", "", "also write clusters.csv, words.csv and result.json here")
	f.BoolVar(&save, "save", false, "save the result as a run")
	return cmd
}

func writeResult(w io.Writer, format string, out *service.Outcome) error {
	switch format {
	case formatJSON:
		return export.WriteJSON(w, out)
	case formatCSV:
		return export.WriteClustersCSV(w, out.Result.Clusters)
	default:
		return writeResultTable(w, out.Result)
	}
}

func writeResultTable(w io.Writer, res *thematic.Result) error {
	fmt.Fprintf(w, "Field: %s  Clusters: %d  Algorithm: %s  minfreq: %d\n\n",
		res.Params.Field, res.NClust, res.Params.Algorithm, res.Params.MinFreq)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tQUADRANT\tFREQ\tCENTRALITY\tDENSITY\tRANK C\tRANK D\tLABEL")
	for _, c := range res.Clusters {
		fmt.Fprintf(tw, "%d\t%s\t%g\t%.4f\t%.4f\t%g\t%g\t%s\n",
			c.ID, c.Quadrant, c.Frequency, c.Centrality, c.Density, c.RCentrality, c.RDensity, c.Label)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nCrosshair: centrality rank %g, density rank %g\n", res.Map.MeanX, res.Map.MeanY)
	for _, c := range res.Clusters {
		if c.Words == "" {
			continue
		}
		fmt.Fprintf(w, "\n[%d] %s\n", c.ID, c.Label)
		for _, line := range strings.Split(c.Words, "\n") {
			fmt.Fprintf(w, "  %s\n", line)
		}
	}
	return nil
}

func newRunsCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List saved runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 1 {
				return fmt.Errorf("--limit must be at least 1")
			}
			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			runs, err := s.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(a.out, "No saved runs. Use: thematicmap map --save")
				return nil
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNETWORK\tCLUSTERS\tALGORITHM\tMINFREQ\tCREATED")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%d\t%s\n",
					r.ID, r.NetworkID, r.NClust, r.Params.Algorithm, r.Params.MinFreq, r.CreatedAt.Format("2006-01-02 15:04"))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", store.DefaultListLimit, "maximum runs to list")
	return cmd
}

func newShowCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show a saved run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			run, err := s.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if run == nil {
				return fmt.Errorf("run %s not found", args[0])
			}
			if format == formatJSON {
				return export.WriteJSON(a.out, run)
			}
			return writeResult(a.out, format, &service.Outcome{NetworkID: run.NetworkID, Result: run.Result})
		},
	}
	cmd.Flags().StringVar(&format, "format", formatTable, "output format: table, json, csv")
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <run-id>",
		Short: "Delete a saved run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.DeleteRun(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "deleted run %s\n", args[0])
			return nil
		},
	}
}

func newStatsCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show database statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			stats, err := s.Stats(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return export.WriteJSON(a.out, stats)
			}
			fmt.Fprintf(a.out, "Database: %s\n", a.settings.DBPath)
			fmt.Fprintf(a.out, "Networks: %d\nRuns:     %d\nSize:     %d bytes\n", stats.NetworkCount, stats.RunCount, stats.DBSizeBytes)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newConfigCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the resolved configuration and where each value came from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if asJSON {
				data, err := json.MarshalIndent(a.resolved, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(a.out, string(data))
				return nil
			}
			fmt.Fprintf(a.out, "Config file: %s\n\n", a.resolved.ConfigPath)
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KEY\tVALUE\tSOURCE\tFROM")
			for _, k := range a.resolved.Keys() {
				v := a.resolved.Get(k)
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", k, v.Value, v.Source, v.From)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}
