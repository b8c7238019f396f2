package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"concierge/internal/config"
	"concierge/internal/logging"
)

var (
	// Global flags
	configPath string
	debug      bool
	apiKey     string
	devMode    bool

	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "concierge",
	Short: "concierge - capability-orchestrating assistant engine",
	Long: `concierge turns a natural-language request into a bounded sequence of
capability invocations and a synthesized answer.

Capabilities come from a static registry plus an optional remote catalog
discovered over HTTP and cached with a short TTL. The orchestration loop
enforces hard step and call budgets, so a run always terminates.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if apiKey != "" {
			cfg.LLM.APIKey = apiKey
		}
		if debug {
			cfg.Logging.DebugMode = true
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		return logging.Initialize(logging.Options{
			Debug:      cfg.Logging.DebugMode,
			Dir:        cfg.Logging.Dir,
			Categories: cfg.Logging.Categories,
		})
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "path to config file")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "model API key (overrides config and env)")
	rootCmd.PersistentFlags().BoolVar(&devMode, "dev", false, "development mode: raw model text in traces and error detail in answers")

	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(catalogCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
