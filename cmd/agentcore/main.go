package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/crystalyse/agentcore/internal/sandbox"
)

// Build information, populated by ldflags during build.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// Must run before cobra sees os.Args: on Linux a re-exec'd helper
	// invocation restricts this process under Landlock and execs the real
	// command directly, never returning (internal/sandbox landlock_linux.go).
	sandbox.MaybeRunHelper()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:          "agentcore",
		Short:        "agentcore - materials-discovery agent execution core",
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file (defaults to built-in defaults)")

	rootCmd.AddCommand(buildTurnCmd(&configPath))
	rootCmd.AddCommand(buildStatsCmd(&configPath))
	return rootCmd
}

// buildTurnCmd runs one turn against a JSON request read from stdin or
// --request, printing the resulting TurnResult as JSON.
func buildTurnCmd(configPath *string) *cobra.Command {
	var requestPath string

	cmd := &cobra.Command{
		Use:   "turn",
		Short: "Run one agent turn: dispatch tool calls, screen the reply, compact the transcript",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(*configPath)
			if err != nil {
				return err
			}

			var raw []byte
			if requestPath != "" {
				raw, err = os.ReadFile(requestPath)
			} else {
				raw, err = io.ReadAll(os.Stdin)
			}
			if err != nil {
				return fmt.Errorf("read turn request: %w", err)
			}

			var req turnRequest
			if err := json.Unmarshal(raw, &req); err != nil {
				return fmt.Errorf("parse turn request: %w", err)
			}

			app, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer app.shutdown(cmd.Context())

			result, err := app.runTurn(cmd.Context(), req)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
	cmd.Flags().StringVar(&requestPath, "request", "", "Path to a JSON turn request (defaults to stdin)")
	return cmd
}

// buildStatsCmd prints the artifact tracker's summary statistics for the
// current (empty, freshly-built) session — mainly useful to confirm wiring
// without running a turn.
func buildStatsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print artifact tracker statistics for a fresh session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(*configPath)
			if err != nil {
				return err
			}
			app, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer app.shutdown(cmd.Context())
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(app.tracker.Stats())
		},
	}
}
