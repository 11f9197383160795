package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var batchFlags struct {
	file     string
	parallel int
}

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Process patient messages from a file, one per line",
	Long: `Process a batch of independent patient messages concurrently. Each non-blank
line of the input is one case; results are printed as a JSON array in input order.

Usage:
  caretriage batch --file messages.txt --parallel 8
  cat messages.txt | caretriage batch`,
	Args: cobra.NoArgs,
	RunE: runBatch,
}

func init() {
	f := batchCmd.Flags()
	f.StringVarP(&batchFlags.file, "file", "f", "", "Input file (default: stdin)")
	f.IntVarP(&batchFlags.parallel, "parallel", "p", 4, "Maximum cases processed at once")
}

func runBatch(cmd *cobra.Command, _ []string) error {
	if batchFlags.parallel < 1 {
		return fmt.Errorf("--parallel must be at least 1")
	}

	in := cmd.InOrStdin()
	if batchFlags.file != "" {
		f, err := os.Open(batchFlags.file)
		if err != nil {
			return fmt.Errorf("failed to open input file: %w", err)
		}
		defer f.Close()
		in = f
	}
	inputs, err := readMessages(in)
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		return fmt.Errorf("no patient messages in input")
	}

	ctx := cmd.Context()
	app, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	results, err := app.Cases.ProcessBatch(ctx, inputs, batchFlags.parallel)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), results)
}

func readMessages(r io.Reader) ([]string, error) {
	var out []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			out = append(out, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return out, nil
}
