// Package config loads tract-equity settings from config.yaml and TRACT_*
// environment variables.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/tract-equity/internal/analysis"
)

// Config holds the full application configuration.
type Config struct {
	Census     CensusConfig     `yaml:"census" mapstructure:"census"`
	Tiger      TigerConfig      `yaml:"tiger" mapstructure:"tiger"`
	Study      StudyConfig      `yaml:"study" mapstructure:"study"`
	Output     OutputConfig     `yaml:"output" mapstructure:"output"`
	Cache      CacheConfig      `yaml:"cache" mapstructure:"cache"`
	Postgres   PostgresConfig   `yaml:"postgres" mapstructure:"postgres"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Validation ValidationConfig `yaml:"validation" mapstructure:"validation"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// CensusConfig configures the Census data API.
type CensusConfig struct {
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	MetadataURL string `yaml:"metadata_url" mapstructure:"metadata_url"`
	APIKey      string `yaml:"api_key" mapstructure:"api_key"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxAttempts int    `yaml:"max_attempts" mapstructure:"max_attempts"`
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
}

// Timeout returns the per-request timeout.
func (c CensusConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// TigerConfig configures the TIGER/Line boundary download.
type TigerConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Year    int    `yaml:"year" mapstructure:"year"`
	Dir     string `yaml:"dir" mapstructure:"dir"`
}

// StudyConfig points at a study definition; empty uses the built-in one.
type StudyConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// OutputConfig configures rendered artifacts.
type OutputConfig struct {
	Dir         string  `yaml:"dir" mapstructure:"dir"`
	Concurrency int     `yaml:"concurrency" mapstructure:"concurrency"`
	MapStyle    string  `yaml:"map_style" mapstructure:"map_style"`
	MapZoom     float64 `yaml:"map_zoom" mapstructure:"map_zoom"`
}

// CacheConfig configures the SQLite response cache.
type CacheConfig struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	Path     string `yaml:"path" mapstructure:"path"`
	TTLHours int    `yaml:"ttl_hours" mapstructure:"ttl_hours"`
}

// TTL returns how long cached responses stay valid.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}

// PostgresConfig configures the PostGIS export.
type PostgresConfig struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
}

// ServerConfig configures the artifact viewer.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// ValidationConfig selects how data anomalies are handled.
type ValidationConfig struct {
	Policy string `yaml:"policy" mapstructure:"policy"`
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
	v.SetEnvPrefix("TRACT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("census.base_url", "https://api.census.gov/data/2022/acs/acs5")
	v.SetDefault("census.metadata_url", "https://api.census.gov/data/2022/acs/acs5")
	v.SetDefault("census.api_key", "")
	v.SetDefault("census.timeout_secs", 60)
	v.SetDefault("census.max_attempts", 1)
	v.SetDefault("census.user_agent", "tract-equity/1.0")
	v.SetDefault("tiger.enabled", true)
	v.SetDefault("tiger.base_url", "https://www2.census.gov/geo/tiger")
	v.SetDefault("tiger.year", 2022)
	v.SetDefault("tiger.dir", "out/tiger")
	v.SetDefault("study.path", "")
	v.SetDefault("output.dir", "out")
	v.SetDefault("output.concurrency", 4)
	v.SetDefault("output.map_style", "open-street-map")
	v.SetDefault("output.map_zoom", 9)
	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.path", "out/cache.db")
	v.SetDefault("cache.ttl_hours", 24)
	v.SetDefault("postgres.database_url", "")
	v.SetDefault("postgres.max_conns", 4)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("validation.policy", string(analysis.PolicyWarn))
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

// Validate checks the settings a command mode needs. Modes: analyze, export,
// serve, cache.
func (c *Config) Validate(mode string) error {
	var errs []string

	if _, err := analysis.ParsePolicy(c.Validation.Policy); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Output.Dir == "" {
		errs = append(errs, "output.dir is required")
	}

	switch mode {
	case "analyze":
		errs = append(errs, c.validateFetch()...)
		if c.Output.Concurrency < 1 || c.Output.Concurrency > 32 {
			errs = append(errs, "output.concurrency must be between 1 and 32")
		}
	case "export":
		errs = append(errs, c.validateFetch()...)
		if c.Postgres.DatabaseURL == "" {
			errs = append(errs, "postgres.database_url is required")
		}
		if c.Postgres.MaxConns < 1 {
			errs = append(errs, "postgres.max_conns must be > 0")
		}
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be > 0 and <= 65535")
		}
	case "cache":
		if c.Cache.Path == "" {
			errs = append(errs, "cache.path is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateFetch() []string {
	var errs []string
	if c.Census.BaseURL == "" {
		errs = append(errs, "census.base_url is required")
	}
	if c.Census.MetadataURL == "" {
		errs = append(errs, "census.metadata_url is required")
	}
	if c.Census.MaxAttempts < 1 {
		errs = append(errs, "census.max_attempts must be >= 1")
	}
	if c.Census.TimeoutSecs < 1 {
		errs = append(errs, "census.timeout_secs must be >= 1")
	}
	if c.Tiger.Enabled && c.Tiger.Year < 2010 {
		errs = append(errs, "tiger.year must be 2010 or later")
	}
	if c.Cache.Enabled && c.Cache.TTLHours < 1 {
		errs = append(errs, "cache.ttl_hours must be >= 1")
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
