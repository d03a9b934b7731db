package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"flowbridge/internal/config"
	"flowbridge/internal/flow"
	"flowbridge/internal/slogutil"
	"flowbridge/internal/version"
)

var (
	configPath string
	verbosity  int
	quiet      bool
	formatFlag string
)

var rootCmd = &cobra.Command{
	Use:   "flowbridge",
	Short: "flowbridge - supervised access to Flow type-checker servers",
	Long: `flowbridge runs Flow commands on behalf of editors and tools. It finds the
project root of each file, starts a Flow server for the root when none is
running, retries while the server comes up, and stops using roots whose server
has crashed.

Positions on the command line are 1-based (line:column as editors show them).`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("flowbridge version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a config file (default: ./.flowbridge/config.json)")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress all logs")
	rootCmd.PersistentFlags().StringVar(&formatFlag, "format", string(FormatHuman), "Output format (human, json, yaml)")
}

// loadConfig reads --config when given, otherwise the working directory's config
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadConfigFile(configPath)
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return config.LoadConfig(wd)
}

// newLogger builds the CLI logger: console output gated by -v/--quiet, plus
// the configured log file at its own level.
func newLogger(cfg *config.Config, console io.Writer) (*slog.Logger, io.Closer, error) {
	level := slogutil.LevelFromVerbosity(verbosity, quiet)
	return slogutil.New(cfg.Logging, slogutil.Options{Console: console, ConsoleLevel: &level})
}

// session is a supervisor plus the resources that must be released with it
type session struct {
	cfg    *config.Config
	logger *slog.Logger
	sup    *flow.Supervisor
	closer io.Closer
}

func openSession() (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, closer, err := newLogger(cfg, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}
	sup, err := flow.NewSupervisor(cfg, logger)
	if err != nil {
		_ = closer.Close()
		return nil, err
	}
	return &session{cfg: cfg, logger: logger, sup: sup, closer: closer}, nil
}

func (s *session) Close() {
	_ = s.sup.Shutdown()
	_ = s.closer.Close()
}

// readBuffer returns stdin contents when fromStdin is set, otherwise nil so
// the file on disk is used.
func readBuffer(cmd *cobra.Command, fromStdin bool) (*string, error) {
	if !fromStdin {
		return nil, nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return nil, fmt.Errorf("failed to read stdin: %w", err)
	}
	text := string(data)
	return &text, nil
}

// parsePosition converts 1-based CLI arguments to 0-based line and column
func parsePosition(lineArg, colArg string) (int, int, error) {
	line, err := strconv.Atoi(lineArg)
	if err != nil || line < 1 {
		return 0, 0, fmt.Errorf("invalid line %q: must be a positive integer", lineArg)
	}
	col, err := strconv.Atoi(colArg)
	if err != nil || col < 1 {
		return 0, 0, fmt.Errorf("invalid column %q: must be a positive integer", colArg)
	}
	return line - 1, col - 1, nil
}

// absPath makes file absolute; the supervisor resolves roots from it
func absPath(file string) string {
	if abs, err := filepath.Abs(file); err == nil {
		return abs
	}
	return file
}

// newContext is canceled on SIGINT or SIGTERM. Workers run in their own
// process group and never see the terminal's signals, so commands must
// return normally and let session.Close kill them.
func newContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// printResult formats resp with --format and writes it to stdout
func printResult(cmd *cobra.Command, resp interface{}) error {
	out, err := FormatResponse(resp, OutputFormat(formatFlag))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}
