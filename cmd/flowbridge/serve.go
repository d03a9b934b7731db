package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"flowbridge/internal/flow"
	"flowbridge/internal/paths"
	"flowbridge/internal/rpc"
	"flowbridge/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve JSON-RPC requests over stdio",
	Long: `Serve newline-delimited JSON-RPC 2.0 requests on stdin and write responses
to stdout. Methods: definition, diagnostics, autocomplete, typeAtPos, status,
shutdown. Positions in requests are 0-based.

Logs go to the configured log file (default ~/.flowbridge/logs/flowbridge.log)
since stdout carries the protocol. All Flow servers started by this process
are killed when input ends or on SIGINT/SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Logging.File == "" {
		if cfg.Logging.File, err = paths.DefaultLogPath(); err != nil {
			return fmt.Errorf("failed to get log path: %w", err)
		}
	}

	// stderr only when asked for; the file always gets the configured level
	var console io.Writer
	if verbosity > 0 {
		console = os.Stderr
	}
	logger, closer, err := newLogger(cfg, console)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer closer.Close()

	sup, err := flow.NewSupervisor(cfg, logger)
	if err != nil {
		return err
	}
	defer sup.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := rpc.NewServer(sup, logger)
	logger.Info("Starting flowbridge serve",
		"version", version.Info(),
		"config", cfg.Source,
		"session", srv.Session(),
		"pid", os.Getpid(),
	)
	return srv.Serve(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
}
