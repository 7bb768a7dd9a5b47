package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/michaelbrown/coderoom/internal/completion"
	"github.com/michaelbrown/coderoom/internal/config"
	"github.com/michaelbrown/coderoom/internal/relay"
	"github.com/michaelbrown/coderoom/internal/room"
	"github.com/michaelbrown/coderoom/internal/runner"
	"github.com/michaelbrown/coderoom/internal/server"
	"github.com/michaelbrown/coderoom/internal/storage/sqlite"
)

var portFlag int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the coderoom server",
	Long: `Start the coderoom server with the WebSocket relay and REST API.

Clients connect to /ws and scope all events by a room token. API endpoints
are under /api.

Examples:
  coderoom serve
  coderoom serve --port 9090`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&portFlag, "port", 0, "Port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Open run history storage
	store, err := sqlite.Open(cfg.Storage.DBPath)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer store.Close()

	// Sandbox runner
	run := runner.New(runner.Policy{
		Timeout:   cfg.Exec.Timeout,
		MaxOutput: cfg.Exec.MaxOutputBytes,
		TempRoot:  cfg.Exec.TempDir,
	})
	if cfg.Exec.ToolchainsFile != "" {
		tc, err := runner.LoadToolchains(cfg.Exec.ToolchainsFile)
		if err != nil {
			return fmt.Errorf("loading toolchains: %w", err)
		}
		run.SetToolchains(tc)
	}

	// AI completion provider, if configured
	var completer relay.Completer
	if cfg.Completion.Enabled && cfg.Completion.APIKey != "" {
		completer = completion.NewService(
			cfg.Completion.BaseURL,
			cfg.Completion.APIKey,
			cfg.Completion.Models["primary"],
			cfg.Completion.Models["fallback"],
		)
		log.Println("Completions: provider enabled")
	} else {
		log.Println("Completions: local fallback only")
	}

	registry := room.NewRegistry()
	rl := relay.New(registry, run, completer, store)
	srv := server.New(registry, rl, store)

	// Determine port
	port := cfg.Server.Port
	if portFlag > 0 {
		port = portFlag
	}

	// Graceful shutdown on SIGINT/SIGTERM
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		srv.Shutdown(context.Background())
	}()

	return srv.Start(port)
}
