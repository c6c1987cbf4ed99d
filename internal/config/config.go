// Package config loads application configuration from file and environment
// and initializes the global logger.
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
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Engine EngineConfig `yaml:"engine" mapstructure:"engine"`
	Batch  BatchConfig  `yaml:"batch" mapstructure:"batch"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the run-history database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// EngineConfig holds the tunable thresholds of the metrics engine. Defaults
// match the production risk model; overrides come from config or a risk
// model file.
type EngineConfig struct {
	LTVWeight   float64 `yaml:"ltv_weight" mapstructure:"ltv_weight"`
	DSCRWeight  float64 `yaml:"dscr_weight" mapstructure:"dscr_weight"`
	FlagsWeight float64 `yaml:"flags_weight" mapstructure:"flags_weight"`

	HighThreshold   float64 `yaml:"high_threshold" mapstructure:"high_threshold"`
	MediumThreshold float64 `yaml:"medium_threshold" mapstructure:"medium_threshold"`

	NOIIncomeProxyRatio float64 `yaml:"noi_income_proxy_ratio" mapstructure:"noi_income_proxy_ratio"`
	PreviewRows         int     `yaml:"preview_rows" mapstructure:"preview_rows"`

	// Acceptance band for the property-value rescale heuristic: a proposed
	// correction is kept only when the corrected LTV lands inside it.
	RescaleLTVMin float64 `yaml:"rescale_ltv_min" mapstructure:"rescale_ltv_min"`
	RescaleLTVMax float64 `yaml:"rescale_ltv_max" mapstructure:"rescale_ltv_max"`

	// DerivePolicyFlags runs the policy rules when the caller supplied none.
	DerivePolicyFlags bool `yaml:"derive_policy_flags" mapstructure:"derive_policy_flags"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	MaxConcurrentRecords int `yaml:"max_concurrent_records" mapstructure:"max_concurrent_records"`
}

// ServerConfig configures the REST server.
type ServerConfig struct {
	Port            int      `yaml:"port" mapstructure:"port"`
	RatePerSecond   float64  `yaml:"rate_per_second" mapstructure:"rate_per_second"`
	RateBurst       int      `yaml:"rate_burst" mapstructure:"rate_burst"`
	AllowedOrigins  []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	ShutdownTimeout int      `yaml:"shutdown_timeout_secs" mapstructure:"shutdown_timeout_secs"`
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
	v.SetEnvPrefix("UNDERWRITE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "underwrite.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_per_second", 20)
	v.SetDefault("server.rate_burst", 40)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.shutdown_timeout_secs", 10)
	v.SetDefault("batch.max_concurrent_records", 5)
	v.SetDefault("engine.ltv_weight", 0.50)
	v.SetDefault("engine.dscr_weight", 0.35)
	v.SetDefault("engine.flags_weight", 0.15)
	v.SetDefault("engine.high_threshold", 0.70)
	v.SetDefault("engine.medium_threshold", 0.40)
	v.SetDefault("engine.noi_income_proxy_ratio", 0.30)
	v.SetDefault("engine.preview_rows", 12)
	v.SetDefault("engine.rescale_ltv_min", 0.05)
	v.SetDefault("engine.rescale_ltv_max", 10.0)
	v.SetDefault("engine.derive_policy_flags", true)

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
