// Package worker fans batch transforms out over a bounded concurrent
// group.
package worker

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"plainview/internal/logging"
	"plainview/internal/model"
)

// Transformer runs one source through the pipeline.
type Transformer interface {
	TransformURL(ctx context.Context, rawURL string, mode model.Mode) (*model.Report, error)
	TransformFile(ctx context.Context, path string, mode model.Mode) (*model.Report, error)
}

// BatchResult pairs one source with its report or its failure.
type BatchResult struct {
	Source string
	Report *model.Report
	Err    error
}

// Batch processes many sources concurrently through one Transformer.
type Batch struct {
	transformer Transformer
	concurrency int
	failFast    bool
	log         *slog.Logger
}

// NewBatch creates a batch processor with the configured concurrency.
func NewBatch(t Transformer, cfg model.BatchConfig) *Batch {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Batch{
		transformer: t,
		concurrency: concurrency,
		failFast:    cfg.FailFast,
		log:         logging.New("worker"),
	}
}

// Process transforms every source with bounded concurrency. Results
// come back in input order regardless of completion order. With
// fail-fast set, the first failure cancels the remaining sources and
// is returned; otherwise failures stay in their per-source results and
// the batch runs to completion.
func (b *Batch) Process(ctx context.Context, sources []string, mode model.Mode) ([]*BatchResult, error) {
	if len(sources) == 0 {
		return []*BatchResult{}, nil
	}

	results := make([]*BatchResult, len(sources))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)

	for i, source := range sources {
		g.Go(func() error {
			report, err := b.transform(ctx, source, mode)
			results[i] = &BatchResult{Source: source, Report: report, Err: err}
			if err != nil {
				b.log.Warn("transform failed", "source", source, "error", err)
				if b.failFast {
					return fmt.Errorf("%s: %w", source, err)
				}
			}
			return nil
		})
	}

	err := g.Wait()
	return results, err
}

// ProcessManifest reads a source manifest and processes every entry.
func (b *Batch) ProcessManifest(ctx context.Context, path string, mode model.Mode) ([]*BatchResult, error) {
	sources, err := ReadSources(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return b.Process(ctx, sources, mode)
}

func (b *Batch) transform(ctx context.Context, source string, mode model.Mode) (*model.Report, error) {
	if isURL(source) {
		return b.transformer.TransformURL(ctx, source, mode)
	}
	return b.transformer.TransformFile(ctx, source, mode)
}

// isURL reports whether a manifest entry names a remote source rather
// than a local file.
func isURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// ReadSources reads a manifest file: one source per line, a file path
// or a URL. Blank lines and #-comments are skipped; duplicates keep
// their first position.
func ReadSources(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer func() { _ = file.Close() }()

	var sources []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !seen[line] {
			seen[line] = true
			sources = append(sources, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan manifest: %w", err)
	}
	return sources, nil
}

// ReadDir collects the narrative files directly under dir, sorted by
// name. Hidden files and anything that is not .txt, .md, or .text is
// skipped.
func ReadDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read narrative dir: %w", err)
	}
	var sources []string
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".txt", ".md", ".text":
			sources = append(sources, filepath.Join(dir, entry.Name()))
		}
	}
	return sources, nil
}
