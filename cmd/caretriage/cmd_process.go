package main

import (
	"strings"

	"github.com/spf13/cobra"
)

var processCmd = &cobra.Command{
	Use:   "process <patient message>",
	Short: "Process a single patient message",
	Long: `Process one patient message and print the finalized case.

Usage:
  caretriage process "I have had chest pain since this morning"
  caretriage process --provider=anthropic "my child has a high fever"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runProcess,
}

func runProcess(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	app, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	outcome, err := app.Cases.Submit(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), outcome)
}
