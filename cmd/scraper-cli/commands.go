package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"job-ingest-go/internal/config"
	"job-ingest-go/internal/models"
	"job-ingest-go/internal/pipeline"
	"job-ingest-go/internal/scraper/sources"
)

func newRunCmd(opts *options) *cobra.Command {
	var (
		sites   []string
		results int
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one ingest over the whole grid",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if len(sites) > 0 {
				cfg.Scraper.Sites = sites
			}
			if results > 0 {
				cfg.Scraper.ResultsWanted = results
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("configuration validation failed: %w", err)
			}

			logger, err := opts.logger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			deps, cleanup, err := pipeline.Build(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer cleanup()

			report, err := pipeline.Run(ctx, cfg, deps)
			if report != nil {
				if opts.output == "json" {
					if jsonErr := outputJSON(report); jsonErr != nil {
						return jsonErr
					}
				} else {
					report.WriteConsole(os.Stdout)
				}
			}
			if errors.Is(err, pipeline.ErrNoJobs) {
				if msg := noJobsMessage(opts.output); msg != "" {
					fmt.Println(msg)
				}
				return nil
			}
			if err != nil {
				return &exitError{code: 1, err: err}
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&sites, "sites", nil, "Override the job sites to scrape (e.g. indeed,linkedin)")
	cmd.Flags().IntVar(&results, "results", 0, "Override results wanted per site and cell")
	return cmd
}

// noJobsMessage is the console note for a run that found nothing. JSON output
// carries the same fact in the report, so it gets none.
func noJobsMessage(output string) string {
	if output == "json" {
		return ""
	}
	return "No jobs found; nothing was written."
}

func newConfigCmd(opts *options) *cobra.Command {
	var savePath string
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if savePath != "" {
				if err := saveConfig(cfg, savePath); err != nil {
					return err
				}
				fmt.Printf("Configuration saved to %s\n", savePath)
				return nil
			}
			masked := *cfg
			masked.Database.SupabaseURL = maskString(cfg.Database.SupabaseURL)
			masked.Database.SupabaseKey = maskString(cfg.Database.SupabaseKey)
			masked.Database.PostgresDSN = maskString(cfg.Database.PostgresDSN)
			masked.Cache.RedisURL = maskString(cfg.Cache.RedisURL)

			if opts.output == "json" {
				return outputJSON(masked)
			}
			fmt.Println("Current Configuration:")
			fmt.Printf("Sink: %s\n", cfg.SinkKind())
			fmt.Printf("Supabase URL: %s\n", masked.Database.SupabaseURL)
			fmt.Printf("Supabase Key: %s\n", masked.Database.SupabaseKey)
			fmt.Printf("Postgres DSN: %s\n", masked.Database.PostgresDSN)
			fmt.Printf("Table: %s\n", cfg.Database.Table)
			fmt.Printf("Sites: %v\n", cfg.Scraper.Sites)
			fmt.Printf("Results Wanted: %d\n", cfg.Scraper.ResultsWanted)
			fmt.Printf("Hours Old: %d\n", cfg.Scraper.HoursOld)
			fmt.Printf("Indeed Country: %s\n", cfg.Scraper.CountryIndeed)
			fmt.Printf("Batch Size: %d\n", cfg.Pipeline.BatchSize)
			fmt.Printf("Timezone: %s\n", cfg.Pipeline.Timezone)
			fmt.Printf("Redis Cache: %s\n", masked.Cache.RedisURL)
			fmt.Printf("Pushgateway: %s\n", cfg.Monitoring.PushgatewayURL)
			return nil
		},
	}
	cmd.Flags().StringVar(&savePath, "save", "", "Write the effective configuration, without credentials, to this JSON file")
	return cmd
}

// saveConfig writes cfg to path with every credential blanked; those stay in
// the environment.
func saveConfig(cfg *config.Config, path string) error {
	out := *cfg
	out.Database.SupabaseURL = ""
	out.Database.SupabaseKey = ""
	out.Database.PostgresDSN = ""
	out.Cache.RedisURL = ""
	return out.SaveConfig(path)
}

func newGridCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "grid",
		Short: "List the (role, city) cells scanned on every run",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.Grid.Validate(); err != nil {
				return err
			}
			cells := cfg.Grid.Cells()
			if opts.output == "json" {
				return outputJSON(cells)
			}
			fmt.Printf("Grid: %d roles x %d cities = %d cells\n", len(cfg.Grid.Roles), len(cfg.Grid.Cities), len(cells))
			for i, c := range cells {
				fmt.Printf("%3d. %-25s %-12s %s\n", i+1, c.Role, c.City, c.Location)
			}
			return nil
		},
	}
}

type siteInfo struct {
	Name      string `json:"name"`
	Enabled   bool   `json:"enabled"`
	RateLimit int    `json:"rate_limit"`
	BaseURL   string `json:"base_url,omitempty"`
}

func listSites(cfg *config.Config) ([]siteInfo, error) {
	manager, err := pipeline.NewSourceManager(cfg)
	if err != nil {
		return nil, err
	}
	var infos []siteInfo
	for _, name := range manager.Names() {
		sc, _ := manager.GetSourceConfig(name)
		info := siteInfo{Name: name, Enabled: sc.Enabled, RateLimit: sc.RateLimit}
		if src, err := manager.GetSource(name); err == nil {
			info.BaseURL = src.GetBaseURL()
		}
		infos = append(infos, info)
	}
	return infos, nil
}

func newSitesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "sites",
		Short: "List available job sites",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			infos, err := listSites(cfg)
			if err != nil {
				return err
			}
			if opts.output == "json" {
				return outputJSON(infos)
			}
			fmt.Println("Available Job Sites:")
			for _, info := range infos {
				status := "disabled"
				if info.Enabled {
					status = "enabled"
				}
				fmt.Printf("- %s: %s (rate limit: %d/min)\n", info.Name, status, info.RateLimit)
			}
			return nil
		},
	}
}

func newTestCmd(opts *options) *cobra.Command {
	var (
		site     string
		role     string
		location string
	)
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Smoke-test the enabled job sites with a single query",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if site != "" {
				cfg.Scraper.Sites = []string{site}
			}
			logger, err := opts.logger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			manager, err := pipeline.NewSourceManager(cfg)
			if err != nil {
				return err
			}

			cell := models.Cell{Role: role, City: location, Location: location}
			q := sources.Query{
				SearchTerm:               cell.Role,
				GoogleSearchTerm:         cell.GoogleSearchTerm(),
				Location:                 cell.Location,
				ResultsWanted:            5,
				HoursOld:                 cfg.Scraper.HoursOld,
				CountryIndeed:            cfg.Scraper.CountryIndeed,
				LinkedInFetchDescription: false,
			}

			fmt.Println("Testing job sites...")
			failed := 0
			for _, name := range cfg.Scraper.Sites {
				if !testSingleSite(cmd.Context(), manager, name, q, logger) {
					failed++
				}
			}
			if failed > 0 {
				return &exitError{code: 1, err: fmt.Errorf("%d site(s) failed", failed)}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&site, "site", "", "Test only this site")
	cmd.Flags().StringVar(&role, "role", "software engineer", "Search term")
	cmd.Flags().StringVar(&location, "location", "Bengaluru, Karnataka, India", "Location")
	return cmd
}

func testSingleSite(ctx context.Context, manager *sources.SourceManager, name string, q sources.Query, logger *zap.Logger) bool {
	fmt.Printf("Testing site: %s\n", name)

	source, err := manager.GetSource(name)
	if err != nil {
		fmt.Printf("❌ %s: %v\n", name, err)
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	start := time.Now()
	rows, err := source.FetchJobs(ctx, q)
	if err != nil {
		fmt.Printf("❌ %s test failed: %v\n", source.GetName(), err)
		return false
	}
	fmt.Printf("✅ %s test passed: fetched %d jobs in %v\n", source.GetName(), len(rows), time.Since(start).Round(time.Millisecond))
	for _, row := range rows {
		logger.Debug("sample job",
			zap.Any("title", row[models.ColTitle]),
			zap.Any("company", row[models.ColCompany]),
			zap.Any("job_url", row[models.ColJobURL]))
	}
	return true
}
