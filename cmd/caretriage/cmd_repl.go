package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Interactively process patient messages",
	Long:  "Read patient messages from stdin, one per line, and print each finalized case. Type 'exit' or send EOF to quit.",
	Args:  cobra.NoArgs,
	RunE:  runREPL,
}

func runREPL(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	app, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	out := cmd.OutOrStdout()
	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		outcome, err := app.Cases.Submit(ctx, line)
		if err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), "error:", err)
			continue
		}
		if err := printJSON(out, outcome); err != nil {
			return err
		}
	}
}
