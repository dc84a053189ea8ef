package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"plainview/internal/audit"
	"plainview/internal/model"
	"plainview/internal/pipeline"
	"plainview/internal/worker"
)

var (
	batchMode        string
	batchConcurrency int
	batchFailFast    bool
	batchOutputDir   string
	batchTimeout     time.Duration
	batchRules       string
	batchNoCache     bool
	batchNoAudit     bool
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <manifest|dir>",
	Short: "Transform multiple narratives in parallel",
	Long: `Batch processes many sources concurrently:
- Read sources from a manifest (one file path or URL per line) or take
  every narrative file directly under a directory
- Transform sources in parallel with a configurable worker count
- Write a text report and a run record per source into the output directory
- Record every successful run in the audit ledger

Example:
  plainview batch narratives.txt
  plainview batch ./narratives --concurrency 8 --output-dir ./reports
  plainview batch narratives.txt --mode full --fail-fast`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().StringVarP(&batchMode, "mode", "m", "", "presentation mode: strict, full, timeline, events_only, recomposition")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "number of concurrent workers (default from config)")
	batchCmd.Flags().BoolVar(&batchFailFast, "fail-fast", false, "abort the batch on the first failure")
	batchCmd.Flags().StringVar(&batchOutputDir, "output-dir", "./plainview-reports", "output directory for reports")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().StringVar(&batchRules, "rules", "", "external ruleset file or directory")
	batchCmd.Flags().BoolVar(&batchNoCache, "no-cache", false, "bypass the oracle response cache")
	batchCmd.Flags().BoolVar(&batchNoAudit, "no-audit", false, "skip recording runs in the audit ledger")

	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	manifest := args[0]
	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if batchRules != "" {
		cfg.Rules.Path = batchRules
	}
	if batchNoCache {
		cfg.Cache.Enabled = false
	}
	if batchConcurrency > 0 {
		cfg.Batch.Concurrency = batchConcurrency
	}
	if batchFailFast {
		cfg.Batch.FailFast = true
	}

	modeName := cfg.Mode
	if batchMode != "" {
		modeName = batchMode
	}
	mode, err := model.ParseMode(modeName)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Plainview Batch Processing\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Manifest:     %s\n", manifest)
	fmt.Fprintf(os.Stderr, "  Mode:         %s\n", mode)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", cfg.Batch.Concurrency)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", batchOutputDir)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(os.Stderr, "\n")

	if err := os.MkdirAll(batchOutputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	p, err := pipeline.New(cfg)
	if err != nil {
		return fmt.Errorf("initialize pipeline: %w", err)
	}

	var ledger *audit.Ledger
	if cfg.Audit.Enabled && !batchNoAudit {
		ledger, err = audit.Open(cfg.Audit.DBPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: audit ledger unavailable: %v\n", err)
			ledger = nil
		} else {
			defer ledger.Close()
		}
	}

	batch := worker.NewBatch(p, cfg.Batch)

	fmt.Fprintf(os.Stderr, "⚙️  Processing sources with %d workers...\n", cfg.Batch.Concurrency)
	fmt.Fprintf(os.Stderr, "\n")

	results, batchErr := processSources(ctx, batch, manifest, mode)
	if results == nil {
		return batchErr
	}

	successCount := 0
	failureCount := 0
	for _, result := range results {
		if result == nil {
			continue
		}
		if result.Err != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.Source, result.Err)
			continue
		}
		successCount++

		if ledger != nil {
			if err := ledger.Record(result.Report); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to record %s: %v\n", result.Source, err)
			}
		}
		if err := writeBatchReport(p, result); err != nil {
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.Source, err)
			continue
		}

		fmt.Fprintf(os.Stderr, "✓ %s (%d atoms, %d included)\n",
			result.Source, result.Report.Counts.Atoms, result.Report.Counts.Included)
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d sources\n", len(results))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", successCount)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failureCount)
	fmt.Fprintf(os.Stderr, "  Output:    %s\n", batchOutputDir)
	fmt.Fprintf(os.Stderr, "\n")

	if batchErr != nil {
		return fmt.Errorf("batch aborted: %w", batchErr)
	}
	return nil
}

// processSources routes the argument: a directory yields its narrative
// files, anything else is read as a manifest.
func processSources(ctx context.Context, batch *worker.Batch, arg string, mode model.Mode) ([]*worker.BatchResult, error) {
	info, err := os.Stat(arg)
	if err == nil && info.IsDir() {
		sources, err := worker.ReadDir(arg)
		if err != nil {
			return nil, err
		}
		return batch.Process(ctx, sources, mode)
	}
	return batch.ProcessManifest(ctx, arg, mode)
}

// writeBatchReport writes the text document plus the full run record
// for one result, so audit verify can inspect the batch afterwards.
func writeBatchReport(p *pipeline.Pipeline, result *worker.BatchResult) error {
	slug := sanitizeFilename(result.Source)

	text, err := p.RenderText(result.Report)
	if err != nil {
		return fmt.Errorf("render text: %w", err)
	}
	if err := os.WriteFile(filepath.Join(batchOutputDir, slug+".txt"), []byte(text), 0o644); err != nil {
		return fmt.Errorf("write text report: %w", err)
	}

	return writeRunRecord(filepath.Join(batchOutputDir, slug+".json"), result.Report)
}

var filenameReplacer = strings.NewReplacer(
	"https://", "",
	"http://", "",
	"/", "_",
	"\\", "_",
	":", "_",
	"*", "_",
	"?", "_",
	"\"", "_",
	"<", "_",
	">", "_",
	"|", "_",
	" ", "-",
)

// sanitizeFilename turns a source path or URL into a safe filename slug.
func sanitizeFilename(s string) string {
	s = strings.TrimSuffix(s, filepath.Ext(s))
	s = filenameReplacer.Replace(s)
	s = strings.Trim(s, "._-")
	if s == "" {
		s = "report"
	}
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}
