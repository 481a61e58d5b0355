// Package commands implements the adm CLI commands.
package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"learnpath/internal/config"
	"learnpath/internal/di"
	"learnpath/internal/models"
	"learnpath/internal/observability"
	contextutils "learnpath/internal/utils"
	"learnpath/internal/version"

	"github.com/spf13/cobra"
)

var attemptsFile string

var rootCmd = &cobra.Command{
	Use:           "adm",
	Short:         "Administration CLI for the learnpath analytics and quiz pipelines",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&attemptsFile, "attempts", "", "JSON file with attempt records (used instead of the database)")

	rootCmd.AddCommand(trainCmd)
	rootCmd.AddCommand(recommendCmd)
	rootCmd.AddCommand(pathCmd)
	rootCmd.AddCommand(quizgenCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("learnpath adm %s (commit %s, built %s)\n", version.Version, version.Commit, version.BuildTime)
	},
}

// newContainer builds the service graph for a CLI invocation. When an
// attempts file is given it is loaded into the in-memory store so commands
// work without a database.
func newContainer(ctx context.Context) (*di.Container, error) {
	cfg, err := config.NewConfig()
	if err != nil {
		return nil, err
	}
	if attemptsFile != "" {
		// File input replaces the database for this invocation.
		cfg.Database.URL = ""
	}

	logger := observability.NewLogger(&cfg.OpenTelemetry)
	observability.InitGlobalTracer()

	container, err := di.NewContainer(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	if attemptsFile != "" {
		if err := loadAttemptsFromFile(ctx, container, attemptsFile); err != nil {
			_ = container.Close()
			return nil, err
		}
	}
	return container, nil
}

func loadAttemptsFromFile(ctx context.Context, container *di.Container, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return contextutils.WrapErrorf(contextutils.ErrInvalidInput, "failed to read attempts file: %w", err)
	}
	var records []models.AttemptRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return contextutils.WrapErrorf(contextutils.ErrInvalidInput, "failed to parse attempts file: %w", err)
	}
	for _, r := range records {
		if err := container.AttemptStore.SaveAttempt(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to render output: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
