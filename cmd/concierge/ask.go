package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"concierge/internal/capability"
	"concierge/internal/config"
	"concierge/internal/engine"
	"concierge/internal/llm"
	"concierge/internal/remote"
)

var (
	askMaxSteps int
	askMaxCalls int
	askTrace    bool
	askQuiet    bool
)

var askCmd = &cobra.Command{
	Use:   "ask <message>",
	Short: "Run one orchestration pass over a natural-language request",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		client, err := buildClient(ctx, cfg)
		if err != nil {
			return err
		}

		registry, cleanup, err := buildRegistry(cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		eng := buildEngine(client, registry, cfg, askQuiet)

		resp := eng.Run(ctx, engine.Request{
			UserMessage:     strings.Join(args, " "),
			Budgets:         engine.Budgets{MaxSteps: askMaxSteps, MaxCalls: askMaxCalls},
			DevelopmentMode: devMode,
		})

		fmt.Println(resp.FinalAnswer)

		if askTrace {
			fmt.Fprintln(os.Stderr, "\n--- trace ---")
			for _, step := range resp.Steps {
				fmt.Fprintf(os.Stderr, "%3d %-11s %s\n", step.ID, step.Type, step.Content)
			}
		}
		if !resp.Success {
			return fmt.Errorf("run failed: %s", resp.Error)
		}
		return nil
	},
}

func init() {
	askCmd.Flags().IntVar(&askMaxSteps, "max-steps", 0, "step budget for this run (0 = config default)")
	askCmd.Flags().IntVar(&askMaxCalls, "max-calls", 0, "call budget for this run (0 = config default)")
	askCmd.Flags().BoolVar(&askTrace, "trace", false, "print the step trace to stderr")
	askCmd.Flags().BoolVarP(&askQuiet, "quiet", "q", false, "suppress progress output")
}

// buildClient constructs the completion client for the configured
// provider.
func buildClient(ctx context.Context, cfg *config.Config) (llm.Client, error) {
	timeout, err := cfg.LLMTimeout()
	if err != nil {
		return nil, err
	}

	switch cfg.LLM.Provider {
	case "gemini":
		return llm.NewGeminiClient(ctx, cfg.LLM.APIKey, cfg.LLM.Model)
	case "openai", "":
		oc := llm.DefaultOpenAIConfig(cfg.LLM.APIKey)
		oc.Model = cfg.LLM.Model
		oc.Timeout = timeout
		if cfg.LLM.BaseURL != "" {
			oc.BaseURL = cfg.LLM.BaseURL
		}
		return llm.NewOpenAIClientWithConfig(oc), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}
}

// buildRegistry assembles the static capabilities and, when enabled,
// the remote catalog. The returned cleanup closes the catalog store.
func buildRegistry(cfg *config.Config) (*capability.Registry, func(), error) {
	registry := capability.NewRegistry()
	for _, c := range builtinCapabilities() {
		registry.MustRegister(c)
	}

	cleanup := func() {}
	if !cfg.Remote.Enabled {
		return registry, cleanup, nil
	}

	timeout, err := cfg.RemoteTimeout()
	if err != nil {
		return nil, nil, err
	}
	ttl, err := cfg.RemoteCacheTTL()
	if err != nil {
		return nil, nil, err
	}

	var store *remote.Store
	if cfg.Remote.StorePath != "" {
		store, err = remote.NewStore(cfg.Remote.StorePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open catalog store: %w", err)
		}
		cleanup = func() { store.Close() }
	}

	transport := remote.NewHTTPTransport(cfg.Remote.BaseURL, timeout)
	registry.SetRemoteSource(remote.NewCatalog(transport, ttl, store))
	return registry, cleanup, nil
}

// buildEngine wires the orchestration loop from config.
func buildEngine(client llm.Client, registry *capability.Registry, cfg *config.Config, quiet bool) *engine.Engine {
	opts := []engine.Option{
		engine.WithDedupWindow(cfg.Engine.DedupWindow),
		engine.WithDefaultBudgets(engine.Budgets{
			MaxSteps: cfg.Engine.MaxSteps,
			MaxCalls: cfg.Engine.MaxCalls,
		}),
	}
	if !cfg.Engine.ValidationEnabled {
		opts = append(opts, engine.WithValidation(nil))
	}
	if !quiet {
		opts = append(opts, engine.WithProgressSink(engine.ProgressFunc(func(msg string) {
			fmt.Fprintf(os.Stderr, "· %s\n", msg)
		})))
	}
	return engine.New(client, registry, opts...)
}
