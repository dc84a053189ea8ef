package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"plainview/internal/logging"
	"plainview/internal/model"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "plainview",
	Short: "Plainview - Dispassionate restatement of first-person incident narratives",
	Long: `Plainview turns emotionally-charged incident narratives into flat,
provenance-tagged reports.

It does not judge, verify, or embellish. Every sentence of the input is
decomposed into atomic statements, each statement is classified by a
deterministic ruleset, and every statement either appears in a labeled
section of the report or is listed as excluded with a reason. Nothing
is silently dropped.

Plainview restates; it never interprets.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number and build information for Plainview.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("plainview v0.1.0")
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.plainview/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Bind flags to viper
	_ = viper.BindPFlag("output.verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Search for config in ~/.plainview and the working directory
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home + "/.plainview")
		}
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	seedDefaults()

	// Read in environment variables that match PLAINVIEW_*
	viper.SetEnvPrefix("PLAINVIEW")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// APIKey never comes from the config file, only from the environment
	_ = viper.BindEnv("oracle.api_key")

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// seedDefaults registers every config key with viper so environment
// overrides resolve against the full key set, not just keys present in
// the config file.
func seedDefaults() {
	raw, err := yaml.Marshal(model.DefaultConfig())
	if err != nil {
		return
	}
	var tree map[string]any
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return
	}
	for key, value := range tree {
		viper.SetDefault(key, value)
	}
}

// loadConfig materializes the layered configuration: defaults, then the
// config file, then PLAINVIEW_* environment variables, then flags bound
// by individual commands. It also initializes logging, so every command
// calls it exactly once before doing real work.
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if verbose {
		cfg.Output.Verbose = true
		cfg.Log.Level = "debug"
	}

	// Fall back to the conventional OpenAI variable when no
	// PLAINVIEW_ORACLE_API_KEY is set.
	if cfg.Oracle.Provider == "openai" && cfg.Oracle.APIKey == "" {
		cfg.Oracle.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	logging.Init(logging.ParseLevel(cfg.Log.Level), cfg.Log.Format)
	return cfg, nil
}

// isURL reports whether a batch or transform source should be fetched
// rather than read from disk.
func isURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}
