package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Scrape  ScrapeConfig  `yaml:"scrape" mapstructure:"scrape"`
	Browser BrowserConfig `yaml:"browser" mapstructure:"browser"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// ScrapeConfig configures the scrape loop and extraction budgets.
type ScrapeConfig struct {
	SearchBaseURL   string `yaml:"search_base_url" mapstructure:"search_base_url"`
	LocationsFile   string `yaml:"locations_file" mapstructure:"locations_file"`
	OutFile         string `yaml:"out_file" mapstructure:"out_file"`
	SkipLogFile     string `yaml:"skip_log_file" mapstructure:"skip_log_file"`
	ArtifactsDir    string `yaml:"artifacts_dir" mapstructure:"artifacts_dir"`
	TargetPlaces    int    `yaml:"target_places" mapstructure:"target_places"`
	MaxScrolls      int    `yaml:"max_scrolls" mapstructure:"max_scrolls"`
	RetryAttempts   int    `yaml:"retry_attempts" mapstructure:"retry_attempts"`
	MinIntervalSecs int    `yaml:"min_interval_secs" mapstructure:"min_interval_secs"`
	PageTimeoutSecs int    `yaml:"page_timeout_secs" mapstructure:"page_timeout_secs"`
}

// BrowserConfig configures the Chrome session.
type BrowserConfig struct {
	Headless     bool   `yaml:"headless" mapstructure:"headless"`
	WindowWidth  int    `yaml:"window_width" mapstructure:"window_width"`
	WindowHeight int    `yaml:"window_height" mapstructure:"window_height"`
	UserAgent    string `yaml:"user_agent" mapstructure:"user_agent"`
}

// StoreConfig configures run-history persistence.
type StoreConfig struct {
	RunsPath string `yaml:"runs_path" mapstructure:"runs_path"`
}

// ServerConfig configures the read-only feature server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PLACETIMES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("scrape.search_base_url", "https://www.google.com/maps/search/")
	v.SetDefault("scrape.locations_file", "locations.csv")
	v.SetDefault("scrape.out_file", "places.geojson")
	v.SetDefault("scrape.skip_log_file", "skipped.log")
	v.SetDefault("scrape.artifacts_dir", "artifacts")
	v.SetDefault("scrape.target_places", 120)
	v.SetDefault("scrape.max_scrolls", 10)
	v.SetDefault("scrape.retry_attempts", 3)
	v.SetDefault("scrape.min_interval_secs", 2)
	v.SetDefault("scrape.page_timeout_secs", 120)
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.window_width", 1920)
	v.SetDefault("browser.window_height", 1080)
	v.SetDefault("store.runs_path", "runs.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
