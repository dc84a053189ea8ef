// Package pipeline orchestrates the full transform: decompose the
// narrative into atoms, classify them against the ruleset, partition
// them for the requested mode, and assemble the run report.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"plainview/internal/cache"
	"plainview/internal/classify"
	"plainview/internal/decompose"
	"plainview/internal/fetch"
	"plainview/internal/logging"
	"plainview/internal/model"
	"plainview/internal/oracle"
	"plainview/internal/render"
	"plainview/internal/rules"
	"plainview/internal/selection"
)

// Pipeline holds the long-lived stages. Construction fails if the
// ruleset cannot load: without rules there is no classification, and a
// partial pipeline must never run. The ruleset can be swapped at
// runtime via ReloadRules; everything else is immutable after New.
type Pipeline struct {
	cfg      *model.Config
	oracle   oracle.Oracle
	selector *selection.Selector
	renderer *render.Renderer
	fetcher  *fetch.Fetcher
	log      *slog.Logger

	mu     sync.RWMutex
	engine *rules.Engine
}

// New builds a pipeline from the configuration.
func New(cfg *model.Config) (*Pipeline, error) {
	if cfg == nil {
		cfg = model.DefaultConfig()
	}

	// 1. Load the ruleset. A load failure is fatal, never a fallback.
	eng, err := loadEngine(cfg)
	if err != nil {
		return nil, err
	}

	// 2. Build the oracle, wrapped with the response cache when enabled.
	orc, err := oracle.New(cfg.Oracle)
	if err != nil {
		return nil, fmt.Errorf("oracle: %w", err)
	}
	if cfg.Cache.Enabled {
		store := cache.NewLayered(cfg.Cache.TTL, cfg.Cache.Dir, cfg.Cache.TTL)
		orc = oracle.WithCache(orc, store, cfg.Cache.TTL, cfg.Oracle.Model)
	}

	return &Pipeline{
		cfg:      cfg,
		oracle:   orc,
		selector: selection.New(cfg),
		renderer: render.New(cfg.Output.IncludeFooter),
		fetcher:  fetch.New(cfg.Fetch),
		log:      logging.New("pipeline"),
		engine:   eng,
	}, nil
}

func loadEngine(cfg *model.Config) (*rules.Engine, error) {
	if cfg.Rules.Path == "" {
		return rules.Default()
	}
	return rules.Load(cfg.Rules.Path)
}

// rules returns the current engine. Transforms snapshot it once so a
// concurrent reload never splits one run across two rulesets.
func (p *Pipeline) rules() *rules.Engine {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.engine
}

// RulesetVersion reports the version of the currently loaded ruleset.
func (p *Pipeline) RulesetVersion() string {
	return p.rules().Version()
}

// ReloadRules reloads the ruleset from the configured path and swaps it
// in atomically. On failure the previous ruleset stays active.
func (p *Pipeline) ReloadRules() error {
	eng, err := loadEngine(p.cfg)
	if err != nil {
		return fmt.Errorf("reload rules: %w", err)
	}
	p.mu.Lock()
	p.engine = eng
	p.mu.Unlock()
	p.log.Info("ruleset reloaded", "version", eng.Version())
	return nil
}

// Transform runs the full pipeline over a narrative. The mode is
// request-scoped so one pipeline can serve callers wanting different
// presentations.
func (p *Pipeline) Transform(ctx context.Context, source, narrative string, mode model.Mode) (*model.Report, error) {
	if strings.TrimSpace(narrative) == "" {
		return nil, fmt.Errorf("transform: empty narrative")
	}
	started := time.Now()
	eng := p.rules()

	// 1. Decompose the narrative into provenance-tagged atoms.
	store, diags, err := decompose.New(eng, p.oracle).Run(ctx, narrative)
	if err != nil {
		return nil, fmt.Errorf("decompose: %w", err)
	}

	// 2. Classify every atom against the ruleset.
	diags = append(diags, classify.New(eng, p.cfg).Run(store, narrative)...)

	// 3. Partition atoms into buckets for the requested mode.
	sel, err := p.selector.Run(store, mode)
	if err != nil {
		return nil, fmt.Errorf("select: %w", err)
	}

	// 4. Assemble the run report.
	report := &model.Report{
		RunID:          uuid.NewString(),
		Source:         source,
		GeneratedAt:    time.Now().UTC(),
		Mode:           mode,
		RulesetVersion: eng.Version(),
		OracleProvider: p.oracle.Name(),
		Store:          store,
		Selection:      sel,
		Diagnostics:    diags,
	}
	report.Summarize()

	p.log.Info("transform complete",
		"run_id", report.RunID,
		"mode", mode,
		"atoms", report.Counts.Atoms,
		"included", report.Counts.Included,
		"excluded", report.Counts.Excluded,
		"diagnostics", len(diags),
		"duration", time.Since(started).Round(time.Millisecond))
	return report, nil
}

// TransformURL fetches a narrative from a URL and transforms it.
func (p *Pipeline) TransformURL(ctx context.Context, rawURL string, mode model.Mode) (*model.Report, error) {
	result, err := p.fetcher.FetchWithRetry(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	return p.Transform(ctx, result.FinalURL, result.Narrative, mode)
}

// TransformFile reads a narrative from a file and transforms it.
func (p *Pipeline) TransformFile(ctx context.Context, path string, mode model.Mode) (*model.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read narrative: %w", err)
	}
	return p.Transform(ctx, path, string(data), mode)
}

// RenderText renders the prose report for a completed run.
func (p *Pipeline) RenderText(report *model.Report) (string, error) {
	return p.renderer.Text(report.Store, report.Selection)
}

// RenderJSON renders the structured report for a completed run.
func (p *Pipeline) RenderJSON(report *model.Report) ([]byte, error) {
	return p.renderer.JSON(report.Store, report.Selection)
}

// Summary returns the short stdout summary for a completed run.
func (p *Pipeline) Summary(report *model.Report) string {
	return p.renderer.Summary(report)
}
