package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var (
	defStdin       bool
	typeStdin      bool
	completePrefix string
)

var defCmd = &cobra.Command{
	Use:   "def <file> <line> <column>",
	Short: "Find the definition of the symbol at a position",
	Long: `Find where the symbol at line:column of a file is defined.

Examples:
  flowbridge def src/app.js 12 8
  cat src/app.js | flowbridge def --stdin src/app.js 12 8 --format json`,
	Args: cobra.ExactArgs(3),
	RunE: runDef,
}

var typeAtCmd = &cobra.Command{
	Use:   "type-at <file> <line> <column>",
	Short: "Show the type at a position",
	Args:  cobra.ExactArgs(3),
	RunE:  runTypeAt,
}

var autocompleteCmd = &cobra.Command{
	Use:   "autocomplete <file> <line> <column>",
	Short: "List completions at a position",
	Long: `List completions at line:column. The buffer is read from stdin when it is
not a terminal, otherwise from the file on disk.

Examples:
  flowbridge autocomplete src/app.js 4 10 --prefix us`,
	Args: cobra.ExactArgs(3),
	RunE: runAutocomplete,
}

func init() {
	defCmd.Flags().BoolVar(&defStdin, "stdin", false, "Read the buffer from stdin instead of the file")
	typeAtCmd.Flags().BoolVar(&typeStdin, "stdin", false, "Read the buffer from stdin instead of the file")
	autocompleteCmd.Flags().StringVar(&completePrefix, "prefix", "", "Text already typed before the cursor")
	rootCmd.AddCommand(defCmd, typeAtCmd, autocompleteCmd)
}

func runDef(cmd *cobra.Command, args []string) error {
	line, col, err := parsePosition(args[1], args[2])
	if err != nil {
		return err
	}
	buf, err := readBuffer(cmd, defStdin)
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

	def := s.sup.Definition(ctx, absPath(args[0]), buf, line, col)
	return printResult(cmd, &DefinitionResponseCLI{Found: def != nil, Definition: def})
}

func runTypeAt(cmd *cobra.Command, args []string) error {
	line, col, err := parsePosition(args[1], args[2])
	if err != nil {
		return err
	}
	buf, err := readBuffer(cmd, typeStdin)
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

	typ, ok := s.sup.TypeAtPosition(ctx, absPath(args[0]), buf, line, col)
	return printResult(cmd, &TypeResponseCLI{Found: ok, Type: typ})
}

func runAutocomplete(cmd *cobra.Command, args []string) error {
	line, col, err := parsePosition(args[1], args[2])
	if err != nil {
		return err
	}
	file := absPath(args[0])

	contents, err := autocompleteBuffer(cmd, file)
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

	items := s.sup.Autocomplete(ctx, file, contents, line, col, completePrefix)
	return printResult(cmd, &AutocompleteResponseCLI{Completions: items})
}

func autocompleteBuffer(cmd *cobra.Command, file string) (string, error) {
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); !ok || !isTerminal(f) {
		data, err := io.ReadAll(in)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		if len(data) > 0 {
			return string(data), nil
		}
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", file, err)
	}
	return string(data), nil
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
