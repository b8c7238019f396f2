package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"concierge/internal/config"
	"concierge/internal/engine"
	"concierge/internal/logging"
	"concierge/internal/promptctx"
)

var chatQuiet bool

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive session with chat history and live config reload",
	Long: `chat runs an interactive loop: each input line is one orchestration run
and prior turns feed the next run's context. Edits to the config file
are picked up between turns without restarting the session.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		// Config snapshot the watcher swaps in place; each turn builds
		// its engine from whatever is current.
		var mu sync.Mutex
		current := cfg

		w, err := config.NewWatcher(configPath, func(c *config.Config) {
			mu.Lock()
			current = c
			mu.Unlock()
			fmt.Fprintln(os.Stderr, "(config reloaded)")
		})
		if err != nil {
			logging.Get(logging.CategoryConfig).Warnw("config watcher unavailable", "error", err)
		} else if err := w.Start(ctx); err != nil {
			logging.Get(logging.CategoryConfig).Warnw("config watcher failed to start", "path", configPath, "error", err)
		} else {
			defer w.Stop()
		}

		// The registry and its catalog store outlive individual turns;
		// remote settings take a restart to change.
		registry, cleanup, err := buildRegistry(current)
		if err != nil {
			return err
		}
		defer cleanup()

		fmt.Println("concierge chat. Empty line or Ctrl-D exits.")
		var history []promptctx.Turn
		scanner := bufio.NewScanner(os.Stdin)
		for {
			fmt.Print("> ")
			if !scanner.Scan() {
				break
			}
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				break
			}

			mu.Lock()
			c := current
			mu.Unlock()

			client, err := buildClient(ctx, c)
			if err != nil {
				return err
			}
			eng := buildEngine(client, registry, c, chatQuiet)

			resp := eng.Run(ctx, engine.Request{
				UserMessage:     line,
				ChatHistory:     history,
				DevelopmentMode: devMode,
			})
			fmt.Println(resp.FinalAnswer)

			history = append(history,
				promptctx.Turn{Role: promptctx.RoleUser, Content: line},
				promptctx.Turn{Role: promptctx.RoleAssistant, Content: resp.FinalAnswer},
			)
			if ctx.Err() != nil {
				break
			}
		}
		return scanner.Err()
	},
}

func init() {
	chatCmd.Flags().BoolVarP(&chatQuiet, "quiet", "q", false, "suppress progress output")
}
