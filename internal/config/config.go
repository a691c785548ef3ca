package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata" // zone database for hosts without one

	"github.com/spf13/viper"

	"job-ingest-go/internal/storage"
)

// Config holds the application configuration
type Config struct {
	Database   DatabaseConfig   `mapstructure:"database" json:"database"`
	Scraper    ScraperConfig    `mapstructure:"scraper" json:"scraper"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline" json:"pipeline"`
	Cache      CacheConfig      `mapstructure:"cache" json:"cache"`
	Monitoring MonitoringConfig `mapstructure:"monitoring" json:"monitoring"`
	Grid       Grid             `mapstructure:"-" json:"grid"`
}

// DatabaseConfig holds the credentials of the persistence targets. When
// neither Supabase nor a Postgres DSN is configured rows go to a local CSV.
type DatabaseConfig struct {
	SupabaseURL string `mapstructure:"supabase_url" json:"supabase_url"`
	SupabaseKey string `mapstructure:"supabase_key" json:"supabase_key"`
	PostgresDSN string `mapstructure:"postgres_dsn" json:"postgres_dsn"`
	Table       string `mapstructure:"table" json:"table"`
	EnsureTable bool   `mapstructure:"ensure_table" json:"ensure_table"`
}

// ScraperConfig holds the parameters sent to the boards for every cell
type ScraperConfig struct {
	Sites                    []string      `mapstructure:"sites" json:"sites"`
	ResultsWanted            int           `mapstructure:"results_wanted" json:"results_wanted"`
	HoursOld                 int           `mapstructure:"hours_old" json:"hours_old"`
	CountryIndeed            string        `mapstructure:"country_indeed" json:"country_indeed"`
	LinkedInFetchDescription bool          `mapstructure:"linkedin_fetch_description" json:"linkedin_fetch_description"`
	RequestTimeout           time.Duration `mapstructure:"request_timeout" json:"request_timeout"`
	RetryAttempts            int           `mapstructure:"retry_attempts" json:"retry_attempts"`
	RetryDelay               time.Duration `mapstructure:"retry_delay" json:"retry_delay"`
	RateLimit                int           `mapstructure:"rate_limit" json:"rate_limit"`
	ProxyURL                 string        `mapstructure:"proxy_url" json:"proxy_url"`
}

// PipelineConfig holds normalization and persistence settings
type PipelineConfig struct {
	GridFile  string `mapstructure:"grid_file" json:"grid_file"`
	Timezone  string `mapstructure:"timezone" json:"timezone"`
	BatchSize int    `mapstructure:"batch_size" json:"batch_size"`
	CSVPath   string `mapstructure:"csv_path" json:"csv_path"`
}

// CacheConfig configures the optional Redis cache of per-cell results
type CacheConfig struct {
	RedisURL string        `mapstructure:"redis_url" json:"redis_url"`
	TTL      time.Duration `mapstructure:"ttl" json:"ttl"`
}

// MonitoringConfig holds logging and metrics configuration
type MonitoringConfig struct {
	LogLevel       string `mapstructure:"log_level" json:"log_level"`
	Development    bool   `mapstructure:"development" json:"development"`
	PushgatewayURL string `mapstructure:"pushgateway_url" json:"pushgateway_url"`
	MetricsJob     string `mapstructure:"metrics_job" json:"metrics_job"`
}

// envBindings maps config keys to the bare environment variables the job has
// always been deployed with.
var envBindings = map[string]string{
	"database.supabase_url": "SUPABASE_URL",
	"database.supabase_key": "SUPABASE_KEY",
	"database.postgres_dsn": "DATABASE_URL",
	"cache.redis_url":       "REDIS_URL",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.table", "jobs")
	v.SetDefault("database.ensure_table", false)
	v.SetDefault("scraper.sites", []string{"indeed", "linkedin", "google"})
	v.SetDefault("scraper.results_wanted", 50)
	v.SetDefault("scraper.hours_old", 24)
	v.SetDefault("scraper.country_indeed", "INDIA")
	v.SetDefault("scraper.linkedin_fetch_description", true)
	v.SetDefault("scraper.request_timeout", 30*time.Second)
	v.SetDefault("scraper.retry_attempts", 0)
	v.SetDefault("scraper.retry_delay", 2*time.Second)
	v.SetDefault("scraper.rate_limit", 30)
	v.SetDefault("scraper.proxy_url", "")
	v.SetDefault("pipeline.grid_file", "grid.yaml")
	v.SetDefault("pipeline.timezone", "Asia/Kolkata")
	v.SetDefault("pipeline.batch_size", 100)
	v.SetDefault("pipeline.csv_path", "daily_jobs_full.csv")
	v.SetDefault("cache.ttl", 12*time.Hour)
	v.SetDefault("monitoring.log_level", "info")
	v.SetDefault("monitoring.development", false)
	v.SetDefault("monitoring.metrics_job", "job_ingest")
	v.SetDefault("monitoring.pushgateway_url", "")
}

// DefaultConfig returns the configuration used when no file or environment
// overrides are present.
func DefaultConfig() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{}
	// Defaults are static and always decode.
	_ = v.Unmarshal(cfg)
	cfg.Grid = DefaultGrid()
	return cfg
}

// LoadConfig loads configuration from an optional YAML/JSON file and the
// environment, then reads the search grid it points at.
func LoadConfig(filename string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("JOBINGEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, "JOBINGEST_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	setDefaults(v)

	if filename != "" {
		if _, err := os.Stat(filename); err == nil {
			v.SetConfigFile(filename)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	grid, err := LoadGrid(config.Pipeline.GridFile)
	if err != nil {
		return nil, err
	}
	config.Grid = grid

	return config, nil
}

// SaveConfig saves configuration to a JSON file
func (c *Config) SaveConfig(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if (c.Database.SupabaseURL == "") != (c.Database.SupabaseKey == "") {
		return fmt.Errorf("supabase URL and key must be set together")
	}

	if c.Database.Table == "" {
		return fmt.Errorf("database table is required")
	}

	if len(c.Scraper.Sites) == 0 {
		return fmt.Errorf("at least one job site must be enabled")
	}

	if c.Scraper.ResultsWanted <= 0 {
		return fmt.Errorf("results wanted must be positive")
	}

	if c.Scraper.HoursOld < 0 {
		return fmt.Errorf("hours old cannot be negative")
	}

	if c.Scraper.RetryAttempts < 0 {
		return fmt.Errorf("retry attempts cannot be negative")
	}

	if c.Scraper.RateLimit <= 0 {
		return fmt.Errorf("rate limit must be positive")
	}

	if c.Pipeline.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive")
	}

	if c.Pipeline.BatchSize > storage.MaxBatchSize {
		return fmt.Errorf("batch size cannot exceed %d", storage.MaxBatchSize)
	}

	if _, err := time.LoadLocation(c.Pipeline.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Pipeline.Timezone, err)
	}

	return c.Grid.Validate()
}

// SinkKind names the persistence target the credentials select.
func (c *Config) SinkKind() string {
	switch {
	case c.Database.SupabaseURL != "" && c.Database.SupabaseKey != "":
		return "supabase"
	case c.Database.PostgresDSN != "":
		return "postgres"
	default:
		return "csv"
	}
}
