package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"spendcast/internal/backend"
	"spendcast/internal/config"
	"spendcast/internal/log"
	"spendcast/internal/services"
)

var (
	flagFile            string
	flagDB              string
	flagJSON            bool
	flagDays            int
	flagSequenceBackend string
	flagModelConfig     string
	flagVerbose         bool
)

var rootCmd = &cobra.Command{
	Use:           "spendcast-cli",
	Short:         "Daily spending forecasts from the terminal",
	Long:          "Forecast a user's daily spending from a transactions CSV file or the spendcast SQLite database.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "  Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagFile, "file", "f", filepath.Join("data", "transactions.csv"), "Transactions CSV file")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "SQLite database to read instead of --file")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Print JSON instead of tables")
	rootCmd.PersistentFlags().IntVarP(&flagDays, "days", "n", services.DefaultDaysAhead, "Days to forecast (1-365)")
	rootCmd.PersistentFlags().StringVar(&flagSequenceBackend, "sequence-backend", "lstm", "Sequence model backend: lstm or none")
	rootCmd.PersistentFlags().StringVar(&flagModelConfig, "model-config", os.Getenv("MODEL_CONFIG_FILE"), "Model hyper-parameter TOML file")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Log progress to stderr")
}

// openService builds a prediction service over the selected data file.
// The returned function releases the backend.
func openService(ctx context.Context) (*services.PredictionService, func(), error) {
	model, err := config.LoadModelConfig(flagModelConfig)
	if err != nil {
		return nil, nil, err
	}

	cfg := backend.Config{
		Type:             backend.MemoryBackend,
		TransactionsFile: flagFile,
		SequenceBackend:  flagSequenceBackend,
		Model:            model,
	}
	if flagDB != "" {
		cfg.Type = backend.SQLiteBackend
		cfg.SQLiteDBPath = flagDB
	} else if _, err := os.Stat(flagFile); err != nil {
		return nil, nil, fmt.Errorf("transactions file: %w", err)
	}

	logCfg := log.Config{Level: slog.LevelDebug, Component: log.ComponentCLI, Output: io.Discard}
	if flagVerbose {
		logCfg.Output = os.Stderr
	}
	logger := log.New(logCfg).Slog()

	b, err := backend.NewFactory(logger).CreateBackend(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	svc := services.NewPredictionService(services.Config{
		Source:   b.Source,
		Writer:   b.Writer,
		Registry: b.Registry,
		Logger:   logger,
	})
	return svc, func() { _ = b.Close() }, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
