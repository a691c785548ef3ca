package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"job-ingest-go/internal/config"
	"job-ingest-go/internal/logging"
)

type options struct {
	configFile string
	output     string
	verbose    bool
}

// exitError carries a process exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	if err := newRootCmd().Execute(); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "scraper-cli",
		Short: "Scrape the job grid and upsert the results",
		Long: `scraper-cli walks a grid of roles and cities across the configured job
boards, normalizes the postings and upserts them into the jobs table.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "config.yaml", "Configuration file path")
	cmd.PersistentFlags().StringVarP(&opts.output, "output", "o", "console", "Output format: console, json")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output")

	cmd.AddCommand(
		newRunCmd(opts),
		newConfigCmd(opts),
		newGridCmd(opts),
		newSitesCmd(opts),
		newTestCmd(opts),
	)
	return cmd
}

func (o *options) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(o.configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if o.output != "console" && o.output != "json" {
		return nil, fmt.Errorf("unknown output format %q", o.output)
	}
	return cfg, nil
}

func (o *options) logger(cfg *config.Config) (*zap.Logger, error) {
	level := cfg.Monitoring.LogLevel
	if o.verbose {
		level = "debug"
	}
	return logging.New(cfg.Monitoring.Development || o.verbose, level)
}

func outputJSON(data interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

func maskString(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "***" + s[len(s)-4:]
}
