package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/zatekoja/caretriage/internal/bootstrap"
	"github.com/zatekoja/caretriage/internal/infrastructure/observability"
	"github.com/zatekoja/caretriage/pkg/config"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	provider  string
	directory string
	store     string
	verbose   bool
}

var rootCmd = &cobra.Command{
	Use:   "caretriage",
	Short: "Run patient messages through intake, triage and routing",
	Long: `caretriage processes free-text patient messages through the intake, triage and
routing stages and prints the finalized case as JSON.

Configuration is read from the environment (see pkg/config); the flags below
override the most common settings.`,
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&rootFlags.provider, "provider", "", "Reasoning engine: offline, openai or anthropic (default: $REASONING_PROVIDER)")
	f.StringVar(&rootFlags.directory, "directory", "", "Provider directory YAML file (default: built-in directory)")
	f.StringVar(&rootFlags.store, "store", "", "Case store: none, postgres or sqlite (default: $CASE_STORE)")
	f.BoolVarP(&rootFlags.verbose, "verbose", "v", false, "Log pipeline progress to stderr")

	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(replCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadApp applies flag overrides to the environment configuration and wires the pipeline.
func loadApp(ctx context.Context) (*bootstrap.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if rootFlags.provider != "" {
		cfg.Reasoning.Provider = rootFlags.provider
	}
	if rootFlags.directory != "" {
		cfg.Directory.Path = rootFlags.directory
	}
	if rootFlags.store != "" {
		cfg.Store.Driver = rootFlags.store
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	observability.InitLogger("caretriage", cfg.Server.Env)
	if !rootFlags.verbose {
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	}
	return bootstrap.New(ctx, cfg)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
