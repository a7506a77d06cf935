package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/c360studio/statemap/choropleth"
	"github.com/c360studio/statemap/config"
	"github.com/c360studio/statemap/dataset"
	"github.com/c360studio/statemap/shapefile"
)

// runOptions collects the run command's flag values.
type runOptions struct {
	dataPath    string
	valueColumn string
	output      string
	cacheDir    string
	configPath  string
	logLevel    string
}

func runCmd() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Render a choropleth map from a data file",
		Long: `Render a choropleth map of the 50 U.S. states.

The data file is tab-separated UTF-8 with a header row. It must contain a
"State" column holding full state names and the numeric column named by
--value_column. Empty value cells count as missing data; states without
data are drawn grey. Any other non-numeric cell aborts the run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(opts.logLevel)
			return run(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.dataPath, "data", "", "Path to the tab-separated data file")
	cmd.Flags().StringVar(&opts.valueColumn, "value_column", "", "Numeric column to visualize")
	cmd.Flags().StringVar(&opts.output, "output", "", "Output PNG path (default from config: us_state_map.png)")
	cmd.Flags().StringVar(&opts.cacheDir, "cache-dir", "", "Boundary shapefile cache directory (default: ~/.us_state_geo)")
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	_ = cmd.MarkFlagRequired("data")
	_ = cmd.MarkFlagRequired("value_column")

	return cmd
}

// run executes the four pipeline stages in order: boundaries, data, join,
// render. The first failing stage aborts the run.
func run(ctx context.Context, opts *runOptions) error {
	cfg, err := config.NewLoader(slog.Default()).Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.cacheDir != "" {
		cfg.Boundaries.CacheDir = opts.cacheDir
	}
	if opts.output != "" {
		cfg.Render.Output = opts.output
	}

	provider := shapefile.NewCachingProvider(cfg.Boundaries.CacheDir, slog.Default())
	provider.ArchiveURL = cfg.Boundaries.ArchiveURL

	return render(ctx, provider, cfg, opts.dataPath, opts.valueColumn)
}

// render runs the pipeline against an arbitrary boundary provider so tests
// can substitute a local fixture for the remote archive.
func render(ctx context.Context, provider shapefile.Provider, cfg *config.Config, dataPath, valueColumn string) error {
	geoms, err := provider.Boundaries(ctx)
	if err != nil {
		return fmt.Errorf("boundaries stage: %w", err)
	}
	slog.Info("Loaded state boundaries", slog.Int("states", len(geoms)))

	table, err := dataset.Load(dataPath, valueColumn)
	if err != nil {
		return fmt.Errorf("data stage: %w", err)
	}
	slog.Info("Loaded data file",
		slog.String("path", dataPath),
		slog.String("column", valueColumn),
		slog.Int("rows", len(table.Records)))

	for _, name := range choropleth.Unmatched(geoms, table.Records) {
		slog.Warn("Ignoring data row without a matching boundary",
			slog.String("state", name),
			slog.String("reason", unmatchedReason(name)))
	}

	joined, rng, err := choropleth.Join(geoms, table.Records)
	if err != nil {
		return fmt.Errorf("join stage: column %q: %w", valueColumn, err)
	}
	slog.Debug("Joined data to boundaries",
		slog.Float64("min", rng.Min),
		slog.Float64("max", rng.Max))

	gradient, err := renderGradient(cfg)
	if err != nil {
		return fmt.Errorf("render stage: %w", err)
	}
	title := humanize(valueColumn) + " by State"
	renderOpts := choropleth.RenderOptions{
		Path:         cfg.Render.Output,
		Title:        title,
		LegendLabel:  humanize(valueColumn),
		WidthInches:  cfg.Render.WidthInches,
		HeightInches: cfg.Render.HeightInches,
		DPI:          cfg.Render.DPI,
		Gradient:     gradient,
	}
	if err := choropleth.Render(joined, rng, renderOpts); err != nil {
		return fmt.Errorf("render stage: %w", err)
	}

	slog.Info("Map written", slog.String("path", cfg.Render.Output))
	return nil
}

// renderGradient builds the configured color scale, or nil for the
// built-in default.
func renderGradient(cfg *config.Config) (*choropleth.Gradient, error) {
	if len(cfg.Render.ColorStops) == 0 {
		return nil, nil
	}
	return choropleth.NewGradient(cfg.Render.ColorStops)
}

// humanize turns a column name like Property_Tax_Burden into a title
// fragment.
func humanize(column string) string {
	return strings.ReplaceAll(column, "_", " ")
}

// unmatchedReason explains why a data row has no boundary: either the
// shapefile lacks a real state, or the row names something that is not
// a U.S. state at all.
func unmatchedReason(name string) string {
	if dataset.IsState(name) {
		return "state absent from boundary data"
	}
	return "not a U.S. state"
}
