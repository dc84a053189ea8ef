package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"plainview/internal/audit"
)

var (
	auditLimit       int
	auditConcurrency int
)

// auditCmd represents the audit command group
var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the run ledger and verify run records",
	Long: `Audit works with the local run ledger and with run record files
written by transform --report. Verification recomputes the completeness
guarantees from the record itself: every atom routed exactly once,
counts consistent, preserved quotes speaker-resolved.`,
}

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs from the ledger",
	Args:  cobra.NoArgs,
	RunE:  runAuditList,
}

var auditShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print the full run record for one run as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuditShow,
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify <record.json>...",
	Short: "Re-check the completeness guarantees of run records",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAuditVerify,
}

var auditStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the ledger: run counts, atom and inclusion averages",
	Args:  cobra.NoArgs,
	RunE:  runAuditStats,
}

func init() {
	auditListCmd.Flags().IntVar(&auditLimit, "limit", 20, "maximum number of runs to list")
	auditVerifyCmd.Flags().IntVar(&auditConcurrency, "concurrency", 4, "number of records verified in parallel")

	auditCmd.AddCommand(auditListCmd)
	auditCmd.AddCommand(auditShowCmd)
	auditCmd.AddCommand(auditVerifyCmd)
	auditCmd.AddCommand(auditStatsCmd)
	rootCmd.AddCommand(auditCmd)
}

// openLedger opens the configured ledger for the audit subcommands.
func openLedger() (*audit.Ledger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	ledger, err := audit.Open(cfg.Audit.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open audit ledger: %w", err)
	}
	return ledger, nil
}

func runAuditList(cmd *cobra.Command, args []string) error {
	ledger, err := openLedger()
	if err != nil {
		return err
	}
	defer ledger.Close()

	runs, err := ledger.List(auditLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN ID\tGENERATED\tSOURCE\tMODE\tATOMS\tINCLUDED\tEXCLUDED\tDIAGS")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\n",
			run.RunID, run.GeneratedAt.Local().Format("2006-01-02 15:04"),
			run.Source, run.Mode, run.Atoms, run.Included, run.Excluded, run.Diagnostics)
	}
	return w.Flush()
}

func runAuditShow(cmd *cobra.Command, args []string) error {
	ledger, err := openLedger()
	if err != nil {
		return err
	}
	defer ledger.Close()

	report, err := ledger.Get(args[0])
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal run record: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func runAuditVerify(cmd *cobra.Command, args []string) error {
	results := audit.VerifyFiles(cmd.Context(), args, auditConcurrency)

	failed := 0
	for _, res := range results {
		if res.OK {
			fmt.Printf("✓ %s (run %s, %d events, mean confidence %.2f)\n",
				res.Path, res.RunID, res.Confidence.Events, res.Confidence.Mean)
			continue
		}
		failed++
		fmt.Printf("✗ %s\n", res.Path)
		for _, problem := range res.Problems {
			fmt.Printf("    %s\n", problem)
		}
	}

	if failed > 0 {
		return fmt.Errorf("verification failed for %d of %d records", failed, len(results))
	}
	return nil
}

func runAuditStats(cmd *cobra.Command, args []string) error {
	ledger, err := openLedger()
	if err != nil {
		return err
	}
	defer ledger.Close()

	st, err := ledger.Stats()
	if err != nil {
		return err
	}
	if st.Runs == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}

	fmt.Printf("Runs:            %d\n", st.Runs)
	fmt.Printf("Mean atoms:      %.1f\n", st.MeanAtoms)
	fmt.Printf("Median atoms:    %.1f\n", st.MedianAtoms)
	fmt.Printf("Mean inclusion:  %.1f%%\n", st.MeanInclusion*100)
	fmt.Printf("P90 excluded:    %.1f\n", st.P90Excluded)
	return nil
}
