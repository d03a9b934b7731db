package main

import (
	"context"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"flowbridge/internal/flow"
)

var (
	diagStdin bool
	diagJobs  int
)

var diagnosticsCmd = &cobra.Command{
	Use:   "diagnostics <file>...",
	Short: "Report Flow errors for files",
	Long: `Report Flow errors for one or more files. Files are checked as saved on
disk unless --stdin supplies the buffer of a single file.

Exits with status 1 when any errors are found.

Examples:
  flowbridge diagnostics src/*.js
  cat src/app.js | flowbridge diagnostics --stdin src/app.js`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDiagnostics,
}

func init() {
	diagnosticsCmd.Flags().BoolVar(&diagStdin, "stdin", false, "Read the buffer of a single file from stdin")
	diagnosticsCmd.Flags().IntVarP(&diagJobs, "jobs", "j", runtime.NumCPU(), "Number of files checked concurrently")
	rootCmd.AddCommand(diagnosticsCmd)
}

func runDiagnostics(cmd *cobra.Command, args []string) error {
	if diagStdin && len(args) != 1 {
		return fmt.Errorf("--stdin takes exactly one file, got %d", len(args))
	}
	buf, err := readBuffer(cmd, diagStdin)
	if err != nil {
		return err
	}

	ctx, stop := newContext()
	defer stop()

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	resp, err := collectDiagnostics(ctx, s.sup, args, buf, diagJobs)
	if err != nil {
		return err
	}
	if err := printResult(cmd, resp); err != nil {
		return err
	}
	if resp.Total > 0 {
		return &exitError{code: 1}
	}
	return nil
}

type diagnoser interface {
	Diagnostics(ctx context.Context, file string, contents *string) []flow.Diagnostic
}

// collectDiagnostics checks files with at most jobs in flight, keeping the
// argument order in the result.
func collectDiagnostics(ctx context.Context, d diagnoser, files []string, buf *string, jobs int) (*DiagnosticsResponseCLI, error) {
	results := make([]FileDiagnostics, len(files))

	g, ctx := errgroup.WithContext(ctx)
	if jobs < 1 {
		jobs = 1
	}
	g.SetLimit(jobs)

	for i, file := range files {
		g.Go(func() error {
			path := absPath(file)
			results[i] = FileDiagnostics{File: path, Diagnostics: d.Diagnostics(ctx, path, buf)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	resp := &DiagnosticsResponseCLI{Files: results}
	for _, r := range results {
		resp.Total += len(r.Diagnostics)
	}
	return resp, nil
}
