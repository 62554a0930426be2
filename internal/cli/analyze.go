package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ppiankov/sprstat/internal/model"
	"github.com/ppiankov/sprstat/internal/pipeline"
	"github.com/ppiankov/sprstat/internal/store"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	outDir        string
	timeout       time.Duration
	noCache       bool
	dbPath        string
	outlierMethod string
	outlierK      float64
	wordBand      string
	iterations    int
	seed          uint64
	workers       int
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze <dataset>",
	Short: "Analyse one experiment export",
	Long: `Analyze runs the full pipeline on one dataset (.xlsx workbook or SPR .csv,
local path or http(s) URL):
- Remove practice and filler trials, then trial-level outliers (IQR)
- Split sentences into subject, modifier, spillover and fact regions
- Apply the word-level RT band
- Test attention capture (H1), attention narrowing (H2) and memory bias (H3)
- Report region effects, exclusion sensitivity, power and recall scores

Example:
  sprstat analyze results.xlsx
  sprstat analyze results.xlsx -o ./out --band 200-1600
  sprstat analyze results.xlsx --iterations 2000 --db runs.db`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	addAnalysisFlags(analyzeCmd.Flags())
	analyzeCmd.Flags().StringVarP(&outDir, "out", "o", "", "output directory (default from config)")
	analyzeCmd.Flags().DurationVar(&timeout, "timeout", 10*time.Minute, "overall analysis timeout")
}

// addAnalysisFlags registers flags shared by analyze and batch
func addAnalysisFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&noCache, "no-cache", false, "disable the parsed dataset cache")
	fs.StringVar(&dbPath, "db", "", "record runs in this SQLite database")
	fs.StringVar(&outlierMethod, "outlier-method", "iqr", "trial outlier method (iqr, sd)")
	fs.Float64Var(&outlierK, "outlier-k", 2.5, "IQR or SD multiplier for trial outliers")
	fs.StringVar(&wordBand, "band", "200-3000", "word-level RT band in ms")
	fs.IntVar(&iterations, "iterations", 10000, "bootstrap resamples")
	fs.Uint64Var(&seed, "seed", 42, "bootstrap seed")
	fs.IntVar(&workers, "workers", 4, "bootstrap workers")
}

// applyFlags overrides cfg with the flags the user set explicitly
func applyFlags(cmd *cobra.Command, cfg *model.Config) error {
	changed := cmd.Flags().Changed
	if changed("no-cache") {
		cfg.Cache.Enabled = !noCache
	}
	if changed("db") {
		cfg.Output.SQLitePath = dbPath
	}
	if changed("out") || changed("output-dir") {
		cfg.Output.Dir = outDir
	}
	if changed("outlier-method") {
		cfg.Exclusion.OutlierMethod = outlierMethod
	}
	if changed("outlier-k") {
		cfg.Exclusion.OutlierK = outlierK
	}
	if changed("band") {
		b, err := parseBand(wordBand)
		if err != nil {
			return err
		}
		cfg.Exclusion.WordBand = b
	}
	if changed("iterations") {
		cfg.Bootstrap.Iterations = iterations
	}
	if changed("seed") {
		cfg.Bootstrap.Seed = seed
	}
	if changed("workers") {
		cfg.Concurrency.Workers = workers
	}
	cfg.Output.Verbose = cfg.Output.Verbose || verbose
	return nil
}

// openStore opens the results database when one is configured
func openStore(cfg *model.Config) (*store.Store, []pipeline.Option, error) {
	if cfg.Output.SQLitePath == "" {
		return nil, nil, nil
	}
	st, err := store.Open(cfg.Output.SQLitePath)
	if err != nil {
		return nil, nil, err
	}
	return st, []pipeline.Option{pipeline.WithStore(st)}, nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	dataset := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return err
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Analysing: %s\n", dataset)
		fmt.Fprintf(os.Stderr, "Timeout: %v\n", timeout)
		fmt.Fprintf(os.Stderr, "Cache: %v\n", cfg.Cache.Enabled)
		fmt.Fprintln(os.Stderr)
	}

	st, opts, err := openStore(cfg)
	if err != nil {
		return err
	}
	if st != nil {
		defer st.Close()
	}

	p, err := pipeline.NewPipeline(cfg, logger, opts...)
	if err != nil {
		return err
	}

	report, err := p.Analyze(ctx, dataset)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "✓ Run %s written to %s\n", report.RunID, p.OutputDir(dataset))
	}
	return nil
}
