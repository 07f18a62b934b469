package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/address-geocoder/internal/normalize"
)

// Config holds the full application configuration.
type Config struct {
	Input     InputConfig     `yaml:"input" mapstructure:"input"`
	Output    OutputConfig    `yaml:"output" mapstructure:"output"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Geocode   GeocodeConfig   `yaml:"geocode" mapstructure:"geocode"`
	Score     ScoreConfig     `yaml:"score" mapstructure:"score"`
	Normalize NormalizeConfig `yaml:"normalize" mapstructure:"normalize"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Kafka     KafkaConfig     `yaml:"kafka" mapstructure:"kafka"`
	S3        S3Config        `yaml:"s3" mapstructure:"s3"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// InputConfig locates the raw address dataset.
type InputConfig struct {
	Path          string `yaml:"path" mapstructure:"path"`
	AddressColumn string `yaml:"address_column" mapstructure:"address_column"`
	GroupColumn   string `yaml:"group_column" mapstructure:"group_column"` // Optional; empty disables per-group stats
	Sheet         string `yaml:"sheet" mapstructure:"sheet"`               // XLSX only
}

// OutputConfig controls where the enriched dataset and its side artifacts go.
type OutputConfig struct {
	Path        string `yaml:"path" mapstructure:"path"`
	PreviewPath string `yaml:"preview_path" mapstructure:"preview_path"`
	PreviewRows int    `yaml:"preview_rows" mapstructure:"preview_rows"`
	SummaryPath string `yaml:"summary_path" mapstructure:"summary_path"`
}

// CacheConfig selects the lookup cache backend.
type CacheConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // file, sqlite, postgres
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	Table       string `yaml:"table" mapstructure:"table"`
}

// GeocodeConfig configures the external lookup service and the resolver
// wrapped around it.
type GeocodeConfig struct {
	Provider         string   `yaml:"provider" mapstructure:"provider"`
	Providers        []string `yaml:"providers" mapstructure:"providers"` // Cascade order; overrides Provider when set
	BaseURL          string   `yaml:"base_url" mapstructure:"base_url"`
	UserAgent        string   `yaml:"user_agent" mapstructure:"user_agent"`
	Email            string   `yaml:"email" mapstructure:"email"`
	GoogleAPIKey     string   `yaml:"google_api_key" mapstructure:"google_api_key"`
	TimeoutSecs      int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MinDelayMs       int      `yaml:"min_delay_ms" mapstructure:"min_delay_ms"`
	MaxRetries       int      `yaml:"max_retries" mapstructure:"max_retries"`
	InitialBackoffMs int      `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int      `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	BreakerThreshold int      `yaml:"breaker_threshold" mapstructure:"breaker_threshold"` // 0 disables the breaker
	BreakerResetSecs int      `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
}

// Timeout returns the per-request HTTP timeout.
func (g GeocodeConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSecs) * time.Second
}

// MinDelay returns the minimum spacing between external calls.
func (g GeocodeConfig) MinDelay() time.Duration {
	return time.Duration(g.MinDelayMs) * time.Millisecond
}

// ProviderChain returns the providers to try, in order.
func (g GeocodeConfig) ProviderChain() []string {
	if len(g.Providers) > 0 {
		return g.Providers
	}
	if g.Provider == "" {
		return nil
	}
	return []string{g.Provider}
}

// ScoreConfig selects the quality scoring policy.
type ScoreConfig struct {
	Policy string `yaml:"policy" mapstructure:"policy"`
}

// NormalizeConfig extends the built-in abbreviation table.
type NormalizeConfig struct {
	Expansions []normalize.Rule `yaml:"expansions" mapstructure:"expansions"`
}

// ServerConfig configures the read-only results API.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	Dataset     string   `yaml:"dataset" mapstructure:"dataset"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// KafkaConfig enables publishing one event per enriched record.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers" mapstructure:"brokers"`
	Topic   string   `yaml:"topic" mapstructure:"topic"`
}

// Enabled reports whether publishing is configured.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0 && k.Topic != ""
}

// S3Config enables uploading run artifacts to S3-compatible storage.
type S3Config struct {
	Endpoint  string `yaml:"endpoint" mapstructure:"endpoint"`
	AccessKey string `yaml:"access_key" mapstructure:"access_key"`
	SecretKey string `yaml:"secret_key" mapstructure:"secret_key"`
	Bucket    string `yaml:"bucket" mapstructure:"bucket"`
	Prefix    string `yaml:"prefix" mapstructure:"prefix"`
	UseSSL    bool   `yaml:"use_ssl" mapstructure:"use_ssl"`
}

// Enabled reports whether uploads are configured.
func (s S3Config) Enabled() bool {
	return s.Endpoint != "" && s.Bucket != ""
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, config.yaml and GEOCODE_* environment
// variables, in increasing precedence.
func Load() (*Config, error) {
	// Missing .env is the common case.
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("GEOCODE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("input.path", "data/addresses_sample.csv")
	v.SetDefault("input.address_column", "address")
	v.SetDefault("input.group_column", "city")
	v.SetDefault("output.path", "outputs/addresses_clean.parquet")
	v.SetDefault("output.preview_path", "outputs/addresses_preview.csv")
	v.SetDefault("output.preview_rows", 20)
	v.SetDefault("output.summary_path", "outputs/run_summary.yaml")
	v.SetDefault("cache.driver", "file")
	v.SetDefault("cache.path", "outputs/geocode_cache.json")
	v.SetDefault("cache.table", "geocode_cache")
	v.SetDefault("geocode.provider", "nominatim")
	v.SetDefault("geocode.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocode.user_agent", "address-geocoder")
	v.SetDefault("geocode.timeout_secs", 10)
	v.SetDefault("geocode.min_delay_ms", 1000)
	v.SetDefault("geocode.max_retries", 2)
	v.SetDefault("geocode.initial_backoff_ms", 1000)
	v.SetDefault("geocode.max_backoff_ms", 30000)
	v.SetDefault("geocode.breaker_threshold", 0)
	v.SetDefault("geocode.breaker_reset_secs", 60)
	v.SetDefault("score.policy", "importance")
	v.SetDefault("server.port", 8501)
	v.SetDefault("server.dataset", "outputs/addresses_clean.parquet")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("s3.prefix", "geocode-runs")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

// Validate checks the settings a command needs. mode is one of "run",
// "report" or "serve".
func (c *Config) Validate(mode string) error {
	var errs []string
	switch mode {
	case "run":
		if c.Input.Path == "" {
			errs = append(errs, "input.path is required")
		}
		if c.Input.AddressColumn == "" {
			errs = append(errs, "input.address_column is required")
		}
		if c.Output.Path == "" {
			errs = append(errs, "output.path is required")
		}
		errs = append(errs, c.validateCache()...)
		errs = append(errs, c.validateGeocode()...)
	case "report":
		if c.Output.Path == "" {
			errs = append(errs, "output.path is required")
		}
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		if c.Server.Dataset == "" {
			errs = append(errs, "server.dataset is required")
		}
	case "cache":
		errs = append(errs, c.validateCache()...)
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateCache() []string {
	var errs []string
	switch c.Cache.Driver {
	case "file", "sqlite":
		if c.Cache.Path == "" {
			errs = append(errs, "cache.path is required")
		}
	case "postgres":
		if c.Cache.DatabaseURL == "" {
			errs = append(errs, "cache.database_url is required")
		}
	default:
		errs = append(errs, "cache.driver must be file, sqlite or postgres")
	}
	return errs
}

func (c *Config) validateGeocode() []string {
	var errs []string
	chain := c.Geocode.ProviderChain()
	if len(chain) == 0 {
		errs = append(errs, "geocode.provider is required")
	}
	for _, p := range chain {
		switch p {
		case "nominatim":
			if c.Geocode.UserAgent == "" {
				errs = append(errs, "geocode.user_agent is required for nominatim")
			}
		case "google":
			if c.Geocode.GoogleAPIKey == "" {
				errs = append(errs, "geocode.google_api_key is required for google")
			}
		case "census":
		default:
			errs = append(errs, "geocode: unknown provider "+p)
		}
	}
	if c.Geocode.MinDelayMs < 0 {
		errs = append(errs, "geocode.min_delay_ms must be >= 0")
	}
	if c.Geocode.MaxRetries < 0 {
		errs = append(errs, "geocode.max_retries must be >= 0")
	}
	return errs
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
