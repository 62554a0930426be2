package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ppiankov/sprstat/internal/cache"
	"github.com/ppiankov/sprstat/internal/extract"
	"github.com/ppiankov/sprstat/internal/filter"
	"github.com/ppiankov/sprstat/internal/load"
	"github.com/ppiankov/sprstat/internal/model"
	"github.com/ppiankov/sprstat/internal/region"
	"github.com/ppiankov/sprstat/internal/score"
	"github.com/ppiankov/sprstat/internal/store"
	"github.com/ppiankov/sprstat/internal/validate"
	"go.uber.org/zap"
)

// Pipeline orchestrates the complete analysis of one dataset
type Pipeline struct {
	config    *model.Config
	logger    *zap.Logger
	fetcher   *Fetcher
	loader    *load.Loader
	cache     *cache.DatasetCache // nil when caching is disabled
	validator *validate.Validator
	outliers  *filter.TrialOutlierRemover
	parser    *region.Parser
	recall    *extract.RecallExtractor
	scorer    *score.Scorer
	renderer  *Renderer
	store     *store.Store // Optional results database
	subdirs   bool
	shared    map[string]bool // Subdirectory names claimed by more than one location
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithStore records every analysed run in s
func WithStore(s *store.Store) Option {
	return func(p *Pipeline) { p.store = s }
}

// WithDatasetSubdirs writes each dataset's outputs to its own directory
// under the output directory. Directories are named after the dataset file;
// when several of locations share a name, each of them gets a short hash
// of its location appended.
func WithDatasetSubdirs(locations ...string) Option {
	return func(p *Pipeline) {
		p.subdirs = true
		p.shared = make(map[string]bool)
		owner := make(map[string]string)
		for _, loc := range locations {
			name := subdirName(loc)
			if prev, ok := owner[name]; ok && prev != loc {
				p.shared[name] = true
			}
			owner[name] = loc
		}
	}
}

// WithRenderer replaces the default stderr renderer
func WithRenderer(r *Renderer) Option {
	return func(p *Pipeline) { p.renderer = r }
}

// NewPipeline creates a new pipeline with the given configuration
func NewPipeline(cfg *model.Config, logger *zap.Logger, opts ...Option) (*Pipeline, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	outliers, err := filter.NewTrialOutlierRemover(cfg.Exclusion.OutlierMethod, cfg.Exclusion.OutlierK, logger)
	if err != nil {
		return nil, fmt.Errorf("outlier remover: %w", err)
	}

	p := &Pipeline{
		config:    cfg,
		logger:    logger,
		fetcher:   NewFetcher(cfg.Input, logger),
		loader:    load.NewLoader(logger),
		validator: validate.NewValidator(),
		outliers:  outliers,
		parser:    region.NewParser(cfg.Exclusion.MinRegions, cfg.Exclusion.WordBand, logger),
		recall:    extract.NewRecallExtractor(cfg.Recall),
		scorer:    score.NewScorer(cfg.Output.Alpha, cfg.Exclusion.RobustnessDelta),
		renderer:  NewRenderer(os.Stderr),
	}

	if cfg.Cache.Enabled {
		dir := cfg.Cache.Dir
		if dir == "" {
			dir = cache.DefaultDir()
		}
		layered := cache.NewLayeredCache(cfg.Cache.MemoryTTL, dir, cfg.Cache.DiskTTL)
		p.cache = cache.NewDatasetCache(layered, cfg.Cache.DiskTTL)
	}

	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Result is the outcome of one analysis
type Result struct {
	Report       *model.Report
	Observations []model.RegionObservation // After word-level filtering
	CacheHit     bool
}

// Run loads, cleans and analyses the dataset at location (path or URL)
func (p *Pipeline) Run(ctx context.Context, location string) (*Result, error) {
	// 1. Load (cached by content)
	ds, hit, err := p.load(ctx, location)
	if err != nil {
		return nil, err
	}

	// 2. Validate
	validation := p.validator.Validate(ds)
	for _, w := range validation.Warnings() {
		p.logger.Warn("dataset warning", zap.String("issue", w.String()))
	}
	if err := validation.Err(); err != nil {
		return nil, fmt.Errorf("validate %s: %w", location, err)
	}

	report := &model.Report{Source: location}
	x := &report.Exclusion
	x.TrialsLoaded = len(ds.Trials)

	// 3. Practice and filler trials
	trials, removed := filter.RemovePractice(ds.Trials, p.config.Exclusion.PracticeMarker)
	x.PracticeRemoved = removed
	trials, removed = filter.RemoveFillers(trials)
	x.FillersRemoved = removed

	// 4. Trial-level outliers
	out := p.outliers.Remove(trials)
	x.OutlierCriterion = out.Criterion(p.config.Exclusion.OutlierMethod, p.config.Exclusion.OutlierK)
	x.OutlierLower, x.OutlierUpper = out.Lower, out.Upper
	x.OutliersRemoved = out.Removed
	x.TrialsKept = len(out.Kept)
	report.Participants = countParticipants(out.Kept)

	p.logger.Info("trials filtered",
		zap.Int("loaded", x.TrialsLoaded),
		zap.Int("practice", x.PracticeRemoved),
		zap.Int("fillers", x.FillersRemoved),
		zap.Int("outliers", x.OutliersRemoved),
		zap.Int("kept", x.TrialsKept))

	// 5. Regions
	parsed := p.parser.ParseAll(out.Kept)
	x.ShortTrials = parsed.Skipped
	x.FactsOmitted = parsed.FactsOmitted

	// 6. Word-level band (facts are already averaged over in-band words)
	obs, wordRemoved := filter.FilterObservations(parsed.Observations, p.config.Exclusion.WordBand)
	x.WordBand = p.config.Exclusion.WordBand
	x.WordLevelRemoved = wordRemoved
	x.Observations = len(obs)

	// 7. Analyses
	a := newAnalysis(p.config, p.logger, report)
	if err := a.attentionCapture(ctx, obs); err != nil {
		return nil, err
	}
	a.attentionNarrowing(obs)
	a.memoryBias(ds.Ratings)
	if err := a.manipulationCheck(ctx, ds.ManipulationChecks); err != nil {
		return nil, err
	}
	if err := a.regionEffects(ctx, obs); err != nil {
		return nil, err
	}
	a.sensitivity(parsed.Observations)
	a.power()
	report.Recall = p.recall.ScoreAll(ds.Recalls)
	a.integration(ds.Ratings, obs, report.Recall)

	// 8. Signals
	report.Signals = p.scorer.Assess(report)
	report.Confidence = score.Confidence(report.Signals)

	report.RunID = uuid.NewString()
	report.CreatedAt = time.Now().UTC()

	return &Result{Report: report, Observations: obs, CacheHit: hit}, nil
}

func (p *Pipeline) load(ctx context.Context, location string) (*model.Dataset, bool, error) {
	fetched, err := p.fetcher.Fetch(ctx, location)
	if err != nil {
		return nil, false, fmt.Errorf("fetch: %w", err)
	}

	key := cache.DatasetKey(fetched.Name, fetched.Data)
	if p.cache != nil {
		if ds, ok := p.cache.Get(key); ok {
			p.logger.Debug("dataset cache hit", zap.String("source", location))
			return ds, true, nil
		}
	}

	ds, err := p.loader.Parse(fetched.Name, fetched.Data)
	if err != nil {
		return nil, false, fmt.Errorf("load %s: %w", location, err)
	}
	ds.Source = fetched.Location

	if p.cache != nil {
		if err := p.cache.Put(key, ds); err != nil {
			p.logger.Warn("dataset cache write failed", zap.Error(err))
		}
	}
	return ds, false, nil
}

// Analyze runs the analysis and writes every output. It satisfies the
// batch processor's Analyzer interface.
func (p *Pipeline) Analyze(ctx context.Context, location string) (*model.Report, error) {
	res, err := p.Run(ctx, location)
	if err != nil {
		return nil, err
	}
	if err := p.RenderReport(res, p.OutputDir(location)); err != nil {
		return nil, err
	}
	if p.store != nil {
		if err := p.store.SaveRun(ctx, res.Report, res.Observations); err != nil {
			return nil, fmt.Errorf("save run: %w", err)
		}
		p.logger.Debug("run saved", zap.String("run_id", res.Report.RunID))
	}
	return res.Report, nil
}

// OutputDir is where outputs for location are written
func (p *Pipeline) OutputDir(location string) string {
	if !p.subdirs {
		return p.config.Output.Dir
	}
	name := subdirName(location)
	if p.shared[name] {
		sum := sha256.Sum256([]byte(location))
		name = fmt.Sprintf("%s-%s", name, hex.EncodeToString(sum[:4]))
	}
	return filepath.Join(p.config.Output.Dir, name)
}

func subdirName(location string) string {
	name := filepath.Base(location)
	if u, err := url.Parse(location); err == nil && IsRemote(location) {
		name = datasetName(u, "")
	}
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// RenderReport writes report.json, summary.md and the CSV tables to dir
func (p *Pipeline) RenderReport(res *Result, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	jsonPath := filepath.Join(dir, "report.json")
	if err := p.renderer.RenderJSON(res.Report, jsonPath); err != nil {
		return fmt.Errorf("render JSON: %w", err)
	}
	mdPath := filepath.Join(dir, "summary.md")
	if err := p.renderer.RenderMarkdown(res.Report, mdPath); err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}
	written, err := p.renderer.RenderTables(res.Report, res.Observations, dir)
	if err != nil {
		return fmt.Errorf("render tables: %w", err)
	}

	if p.config.Output.Verbose {
		p.renderer.Printf("✓ Wrote JSON: %s\n", jsonPath)
		p.renderer.Printf("✓ Wrote Markdown: %s\n", mdPath)
		for _, path := range written {
			p.renderer.Printf("✓ Wrote table: %s\n", path)
		}
	}

	p.renderer.RenderSummary(res.Report)
	return nil
}

func countParticipants(trials []model.Trial) int {
	seen := make(map[string]bool)
	for _, t := range trials {
		seen[t.ParticipantID] = true
	}
	return len(seen)
}
