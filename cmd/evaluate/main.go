package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/zatekoja/caretriage/internal/bootstrap"
	"github.com/zatekoja/caretriage/internal/evaluation"
	"github.com/zatekoja/caretriage/internal/infrastructure/observability"
	"github.com/zatekoja/caretriage/pkg/config"
)

var flags struct {
	golden            string
	maxUnderTriage    float64
	minRedFlagRecall  float64
	minSpecialtyMatch float64
}

var rootCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Score the triage pipeline against labeled golden cases",
	Long: `Run every golden case through the configured pipeline, print the summary as JSON
and exit non-zero when a guardrail is violated.

The reasoning engine, directory and thresholds come from the same environment
variables as the API server.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	defaults := evaluation.DefaultGuardrails()
	f := rootCmd.Flags()
	f.StringVar(&flags.golden, "golden", "", "Golden cases JSON file (default: built-in set)")
	f.Float64Var(&flags.maxUnderTriage, "max-under-triage", defaults.MaxUnderTriageRate, "Maximum acceptable under-triage rate")
	f.Float64Var(&flags.minRedFlagRecall, "min-red-flag-recall", defaults.MinRedFlagRecall, "Minimum acceptable red-flag recall")
	f.Float64Var(&flags.minSpecialtyMatch, "min-specialty-accuracy", defaults.MinSpecialtyAccuracy, "Minimum acceptable specialty accuracy")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	observability.InitLogger("caretriage-evaluate", cfg.Server.Env)
	zerolog.SetGlobalLevel(zerolog.WarnLevel)

	cases, err := evaluation.LoadGoldenCases(flags.golden)
	if err != nil {
		return err
	}
	if err := evaluation.ValidateGoldenCases(cases); err != nil {
		return fmt.Errorf("invalid golden cases: %w", err)
	}

	// evaluation never touches the case store or notification channels
	cfg.Store.Driver = config.StoreNone
	cfg.Redis.Enabled = false
	cfg.Slack.BotToken = ""

	ctx := context.Background()
	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	summary, err := evaluation.NewRunner(app.Orchestrator).Run(ctx, cases)
	if err != nil {
		return fmt.Errorf("evaluation failed: %w", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return err
	}

	guardrails := evaluation.NewGuardrails(evaluation.GuardrailConfig{
		MaxUnderTriageRate:   flags.maxUnderTriage,
		MinRedFlagRecall:     flags.minRedFlagRecall,
		MinSpecialtyAccuracy: flags.minSpecialtyMatch,
	})
	if violations := guardrails.Check(summary); len(violations) > 0 {
		for _, v := range violations {
			fmt.Fprintln(cmd.ErrOrStderr(), "guardrail violated:", v)
		}
		return fmt.Errorf("%d guardrail(s) violated", len(violations))
	}
	return nil
}
