package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"plainview/internal/audit"
	"plainview/internal/model"
	"plainview/internal/pipeline"
)

var (
	transformMode        string
	transformFormat      string
	transformOut         string
	transformJSON        string
	transformRules       string
	transformOracle      string
	transformOracleModel string
	transformFloor       float64
	transformTimeout     time.Duration
	transformNoCache     bool
	transformNoAudit     bool
)

// transformCmd represents the transform command
var transformCmd = &cobra.Command{
	Use:   "transform <file|url|->",
	Short: "Transform a single narrative into a dispassionate report",
	Long: `Transform reads one narrative from a file, a URL, or stdin ("-"),
decomposes it into atomic statements, classifies every statement against
the ruleset, and renders the report for the requested mode.

The rendered document goes to stdout or --out. The full run record,
which the audit commands consume, goes to --json when set.`,
	Args: cobra.ExactArgs(1),
	RunE: runTransform,
}

func init() {
	transformCmd.Flags().StringVarP(&transformMode, "mode", "m", "", "presentation mode: strict, full, timeline, events_only, recomposition")
	transformCmd.Flags().StringVarP(&transformFormat, "format", "f", "", "output format: text, json, or both")
	transformCmd.Flags().StringVarP(&transformOut, "out", "o", "", "write the rendered document to this file instead of stdout")
	transformCmd.Flags().StringVar(&transformJSON, "json", "", "write the full run record as JSON to this file")
	transformCmd.Flags().StringVar(&transformRules, "rules", "", "external ruleset file or directory")
	transformCmd.Flags().StringVar(&transformOracle, "oracle", "", "decomposition oracle: heuristic, openai, ollama")
	transformCmd.Flags().StringVar(&transformOracleModel, "oracle-model", "", "model name for LLM oracles")
	transformCmd.Flags().Float64Var(&transformFloor, "floor", -1, "confidence floor below which classifications downgrade to unknown")
	transformCmd.Flags().DurationVar(&transformTimeout, "timeout", 2*time.Minute, "overall transform timeout (0 disables)")
	transformCmd.Flags().BoolVar(&transformNoCache, "no-cache", false, "bypass the oracle response cache")
	transformCmd.Flags().BoolVar(&transformNoAudit, "no-audit", false, "skip recording the run in the audit ledger")

	rootCmd.AddCommand(transformCmd)
}

func runTransform(cmd *cobra.Command, args []string) error {
	source := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyTransformFlags(cfg)

	modeName := cfg.Mode
	if transformMode != "" {
		modeName = transformMode
	}
	mode, err := model.ParseMode(modeName)
	if err != nil {
		return err
	}

	p, err := pipeline.New(cfg)
	if err != nil {
		return fmt.Errorf("initialize pipeline: %w", err)
	}

	ctx := cmd.Context()
	if transformTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, transformTimeout)
		defer cancel()
	}

	report, err := transformSource(ctx, p, source, mode)
	if err != nil {
		return err
	}

	// 1. Record the run in the audit ledger. Failures warn, they never
	// block the report.
	if cfg.Audit.Enabled && !transformNoAudit {
		recordRun(cfg.Audit.DBPath, report)
	}

	// 2. Write the full run record when requested.
	if transformJSON != "" {
		if err := writeRunRecord(transformJSON, report); err != nil {
			return err
		}
		if cfg.Output.Verbose {
			fmt.Fprintf(os.Stderr, "Run record written to %s\n", transformJSON)
		}
	}

	// 3. Render and emit the document.
	if err := emitDocument(p, report, cfg.Format, transformOut); err != nil {
		return err
	}

	if cfg.Output.Verbose {
		fmt.Fprintln(os.Stderr, p.Summary(report))
	}
	return nil
}

// applyTransformFlags layers transform flags over the loaded config.
func applyTransformFlags(cfg *model.Config) {
	if transformRules != "" {
		cfg.Rules.Path = transformRules
	}
	if transformOracle != "" {
		cfg.Oracle.Provider = transformOracle
	}
	if transformOracleModel != "" {
		cfg.Oracle.Model = transformOracleModel
	}
	if transformFloor >= 0 {
		cfg.Rules.ConfidenceFloor = transformFloor
	}
	if transformNoCache {
		cfg.Cache.Enabled = false
	}
	if transformFormat != "" {
		cfg.Format = transformFormat
	}
}

// transformSource routes one source string to the right pipeline entry
// point: "-" reads stdin, URLs are fetched, everything else is a path.
func transformSource(ctx context.Context, p *pipeline.Pipeline, source string, mode model.Mode) (*model.Report, error) {
	switch {
	case source == "-":
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return p.Transform(ctx, "stdin", string(data), mode)
	case isURL(source):
		return p.TransformURL(ctx, source, mode)
	default:
		return p.TransformFile(ctx, source, mode)
	}
}

// recordRun appends the run to the audit ledger, best effort.
func recordRun(dbPath string, report *model.Report) {
	ledger, err := audit.Open(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: audit ledger unavailable: %v\n", err)
		return
	}
	defer ledger.Close()
	if err := ledger.Record(report); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to record run: %v\n", err)
	}
}

// writeRunRecord writes the complete report, store and selection
// included, as indented JSON. This is the file audit verify reads.
func writeRunRecord(path string, report *model.Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal run record: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write run record: %w", err)
	}
	return nil
}

// emitDocument renders the report and writes it to outPath or stdout.
// Format "both" writes the text document plus a .json sidecar, so it
// requires a file destination.
func emitDocument(p *pipeline.Pipeline, report *model.Report, format, outPath string) error {
	switch format {
	case "", "text":
		text, err := p.RenderText(report)
		if err != nil {
			return err
		}
		return writeDocument(outPath, text)
	case "json":
		doc, err := p.RenderJSON(report)
		if err != nil {
			return err
		}
		return writeDocument(outPath, string(doc)+"\n")
	case "both":
		if outPath == "" {
			return fmt.Errorf("format both requires --out")
		}
		text, err := p.RenderText(report)
		if err != nil {
			return err
		}
		if err := writeDocument(outPath, text); err != nil {
			return err
		}
		doc, err := p.RenderJSON(report)
		if err != nil {
			return err
		}
		return writeDocument(outPath+".json", string(doc)+"\n")
	default:
		return fmt.Errorf("unknown format %q (valid: text, json, both)", format)
	}
}

func writeDocument(path, content string) error {
	if path == "" {
		fmt.Print(content)
		return nil
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Report written to %s\n", path)
	return nil
}
