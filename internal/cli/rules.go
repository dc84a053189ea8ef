package cli

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"plainview/internal/rules"
)

// rulesCmd represents the rules command group
var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect and validate classification rulesets",
	Long: `Rules inspects the ruleset the pipeline classifies with. Without a
path argument the commands use the configured ruleset, falling back to
the embedded default.`,
}

var rulesValidateCmd = &cobra.Command{
	Use:   "validate [path]",
	Short: "Load a ruleset and report whether it is usable",
	Long: `Validate loads a ruleset exactly the way the pipeline does. A ruleset
that fails here would abort every transform, so the command exits
non-zero with the loader's diagnosis.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRulesValidate,
}

var rulesListCmd = &cobra.Command{
	Use:   "list [path]",
	Short: "List every rule in a ruleset",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRulesList,
}

func init() {
	rulesCmd.AddCommand(rulesValidateCmd)
	rulesCmd.AddCommand(rulesListCmd)
	rootCmd.AddCommand(rulesCmd)
}

// loadRuleset resolves the ruleset path from the argument, the config,
// or the embedded default, in that order.
func loadRuleset(args []string) (*rules.Engine, string, error) {
	path := ""
	if len(args) > 0 {
		path = args[0]
	} else if cfg, err := loadConfig(); err == nil {
		path = cfg.Rules.Path
	}

	if path == "" {
		eng, err := rules.Default()
		return eng, "embedded default", err
	}
	eng, err := rules.Load(path)
	return eng, path, err
}

func runRulesValidate(cmd *cobra.Command, args []string) error {
	eng, source, err := loadRuleset(args)
	if err != nil {
		return fmt.Errorf("ruleset invalid: %w", err)
	}

	enabled := 0
	actions := map[string]int{}
	for _, r := range eng.Rules() {
		if r.IsEnabled() {
			enabled++
		}
		actions[string(r.Action)]++
	}

	fmt.Printf("✓ ruleset valid\n")
	fmt.Printf("  Version:    %s\n", eng.Version())
	fmt.Printf("  Source:     %s\n", source)
	fmt.Printf("  Rules:      %d (%d enabled)\n", eng.Len(), enabled)
	fmt.Printf("  Categories: %d\n", len(eng.Categories()))

	names := make([]string, 0, len(actions))
	for name := range actions {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Printf("  Actions:\n")
	for _, name := range names {
		fmt.Printf("    %-12s %d\n", name, actions[name])
	}
	return nil
}

func runRulesList(cmd *cobra.Command, args []string) error {
	eng, source, err := loadRuleset(args)
	if err != nil {
		return fmt.Errorf("ruleset invalid: %w", err)
	}

	ruleList := eng.Rules()
	sort.Slice(ruleList, func(i, j int) bool {
		if ruleList[i].Category != ruleList[j].Category {
			return ruleList[i].Category < ruleList[j].Category
		}
		if ruleList[i].Priority != ruleList[j].Priority {
			return ruleList[i].Priority < ruleList[j].Priority
		}
		return ruleList[i].ID < ruleList[j].ID
	})

	fmt.Fprintf(os.Stderr, "Ruleset %s (%s), %d rules\n\n", eng.Version(), source, len(ruleList))

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCATEGORY\tMATCH\tACTION\tPRIORITY\tENABLED")
	for _, r := range ruleList {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%v\n",
			r.ID, r.Category, r.Match.Type, r.Action, r.Priority, r.IsEnabled())
	}
	return w.Flush()
}
