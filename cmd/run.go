package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/rotisserie/eris"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/address-geocoder/internal/config"
	"github.com/sells-group/address-geocoder/internal/dataset"
	"github.com/sells-group/address-geocoder/internal/model"
	"github.com/sells-group/address-geocoder/internal/pipeline"
	"github.com/sells-group/address-geocoder/internal/report"
)

var (
	runInput       string
	runOutput      string
	runPreview     string
	runCache       string
	runLimit       int
	runRetryFaults bool
	runDryRun      bool
	runUpload      bool
	runPublish     bool
	runNoProgress  bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Geocode an address file and write the enriched dataset",
	Long: `Reads the input table, resolves every address through the cache and the
configured provider chain, and writes the dataset, a preview and a run summary.

Examples:
  # Count cache hits and pending lookups without calling the provider
  address-geocoder run --input data/addresses.csv --dry-run

  address-geocoder run --input data/addresses.csv --output outputs/clean.parquet
  address-geocoder run --limit 20 --output outputs/sample.csv --upload --publish`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		applyRunFlags(cfg)

		if runDryRun {
			return dryRun(ctx, cfg, runLimit, runRetryFaults, cmd.OutOrStdout())
		}

		var progressOut io.Writer
		if !runNoProgress && isatty.IsTerminal(os.Stderr.Fd()) {
			progressOut = os.Stderr
		}

		_, err := executeRun(ctx, cfg, runOptions{
			Limit:       runLimit,
			RetryFaults: runRetryFaults,
			Upload:      runUpload,
			Publish:     runPublish,
			ProgressOut: progressOut,
		})
		return err
	},
}

func init() {
	runCmd.Flags().StringVar(&runInput, "input", "", "input .csv or .xlsx (default from config)")
	runCmd.Flags().StringVar(&runOutput, "output", "", "output .parquet, .csv, .xlsx, .json or .shp (default from config)")
	runCmd.Flags().StringVar(&runPreview, "preview", "", "preview CSV path (default from config)")
	runCmd.Flags().StringVar(&runCache, "cache", "", "cache file or SQLite path (default from config)")
	runCmd.Flags().IntVar(&runLimit, "limit", 0, "max rows to process (0 = all)")
	runCmd.Flags().BoolVar(&runRetryFaults, "retry-faults", false, "resolve cached lookup faults again")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "report cache hits and pending lookups, then exit")
	runCmd.Flags().BoolVar(&runUpload, "upload", false, "upload artifacts to the configured S3 bucket")
	runCmd.Flags().BoolVar(&runPublish, "publish", false, "publish records to the configured Kafka topic")
	runCmd.Flags().BoolVar(&runNoProgress, "no-progress", false, "disable the progress bar")
	rootCmd.AddCommand(runCmd)
}

func applyRunFlags(c *config.Config) {
	if runInput != "" {
		c.Input.Path = runInput
	}
	if runOutput != "" {
		c.Output.Path = runOutput
	}
	if runPreview != "" {
		c.Output.PreviewPath = runPreview
	}
	if runCache != "" {
		c.Cache.Path = runCache
	}
}

// runOptions are per-invocation settings that do not live in config.
type runOptions struct {
	Limit       int
	RetryFaults bool
	Upload      bool
	Publish     bool
	ProgressOut io.Writer // nil disables the progress bar
}

// executeRun performs one batch run and writes its artifacts. Publication
// failures are logged and returned after the dataset is on disk.
func executeRun(ctx context.Context, c *config.Config, o runOptions) (*pipeline.Result, error) {
	if err := validateSinks(c, o); err != nil {
		return nil, err
	}

	inputs, err := dataset.ReadInput(c.Input.Path, dataset.InputOptions{
		AddressColumn: c.Input.AddressColumn,
		GroupColumn:   c.Input.GroupColumn,
		Sheet:         c.Input.Sheet,
		Limit:         o.Limit,
	})
	if err != nil {
		return nil, err
	}
	zap.L().Info("input loaded", zap.String("path", c.Input.Path), zap.Int("rows", len(inputs)))

	opts := []pipeline.Option{pipeline.WithRetryFaults(o.RetryFaults)}
	if o.ProgressOut != nil {
		bar := progressbar.NewOptions(len(inputs),
			progressbar.OptionSetDescription("geocoding"),
			progressbar.OptionSetWriter(o.ProgressOut),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
		opts = append(opts, pipeline.WithProgress(bar))
	}

	env, err := initRunEnv(ctx, c, opts...)
	if err != nil {
		return nil, err
	}
	defer env.Close()

	result, err := env.Pipeline.Run(ctx, inputs)
	if err != nil {
		return nil, err
	}
	logGroups(result.Summary)

	if err := writeArtifacts(c, result); err != nil {
		return result, err
	}

	if err := publish(ctx, c, o, result); err != nil {
		zap.L().Error("publish run", zap.Error(err))
		return result, err
	}
	return result, nil
}

// writeArtifacts writes the dataset, the preview and the YAML summary.
func writeArtifacts(c *config.Config, result *pipeline.Result) error {
	if err := dataset.WriteOutput(c.Output.Path, result.Records); err != nil {
		return eris.Wrap(err, "write output")
	}
	zap.L().Info("output written", zap.String("path", c.Output.Path), zap.Int("records", len(result.Records)))

	if c.Output.PreviewPath != "" {
		if err := dataset.WritePreview(c.Output.PreviewPath, result.Records, c.Output.PreviewRows); err != nil {
			return eris.Wrap(err, "write preview")
		}
	}
	if c.Output.SummaryPath != "" {
		doc := report.NewSummaryDocument(c.Output.Path, result.Summary, result.Stats)
		if err := report.WriteSummaryYAML(c.Output.SummaryPath, doc); err != nil {
			return eris.Wrap(err, "write summary")
		}
	}
	return nil
}

// artifactPaths lists the files written for a run.
func artifactPaths(c *config.Config) []string {
	paths := []string{c.Output.Path}
	for _, p := range []string{c.Output.PreviewPath, c.Output.SummaryPath} {
		if p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

func logGroups(s model.RunSummary) {
	for _, g := range s.Groups {
		zap.L().Info("group summary",
			zap.String("city", g.Group),
			zap.Int("count", g.Count),
			zap.Int("succeeded", g.Succeeded),
			zap.Float64("success_rate", g.SuccessRate),
		)
	}
}
