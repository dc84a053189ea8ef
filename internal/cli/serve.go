package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"plainview/internal/audit"
	"plainview/internal/pipeline"
	"plainview/internal/server"
)

var (
	serveAddr       string
	serveWatchRules bool
	serveRules      string
	serveNoAudit    bool
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP transform service",
	Long: `Serve exposes the pipeline over HTTP:
  POST /v1/transform   transform a narrative or URL
  GET  /v1/modes       list presentation modes
  GET  /v1/ruleset     active ruleset version
  GET  /v1/runs        recent audit ledger entries
  GET  /healthz        liveness
  GET  /metrics        Prometheus metrics

With --watch-rules the server reloads an external ruleset when its file
changes. A reload that fails keeps the previous ruleset active.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	serveCmd.Flags().BoolVar(&serveWatchRules, "watch-rules", false, "reload the external ruleset on file changes")
	serveCmd.Flags().StringVar(&serveRules, "rules", "", "external ruleset file or directory")
	serveCmd.Flags().BoolVar(&serveNoAudit, "no-audit", false, "run without the audit ledger")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	if serveRules != "" {
		cfg.Rules.Path = serveRules
	}
	if serveWatchRules {
		cfg.Server.WatchRules = true
	}
	if serveNoAudit {
		cfg.Audit.Enabled = false
	}

	p, err := pipeline.New(cfg)
	if err != nil {
		return fmt.Errorf("initialize pipeline: %w", err)
	}

	// A missing ledger downgrades the runs endpoints, it does not stop
	// the server.
	var ledger *audit.Ledger
	if cfg.Audit.Enabled {
		ledger, err = audit.Open(cfg.Audit.DBPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: audit ledger unavailable: %v\n", err)
			ledger = nil
		} else {
			defer ledger.Close()
		}
	}

	if cfg.Server.WatchRules {
		watcher, err := server.NewRulesWatcher(cfg.Rules.Path, p.ReloadRules)
		if err != nil {
			return fmt.Errorf("watch rules: %w", err)
		}
		go func() {
			if err := watcher.Run(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: rules watcher stopped: %v\n", err)
			}
		}()
	}

	srv := server.New(cfg, p, ledger)
	fmt.Fprintf(os.Stderr, "Plainview listening on %s (ruleset %s)\n", cfg.Server.Addr, p.RulesetVersion())
	return srv.Run(ctx)
}
