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
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	LLM       LLMConfig       `yaml:"llm" mapstructure:"llm"`
	Search    SearchConfig    `yaml:"search" mapstructure:"search"`
	Enrich    EnrichConfig    `yaml:"enrich" mapstructure:"enrich"`
	Scoring   ScoringConfig   `yaml:"scoring" mapstructure:"scoring"`
	Ingest    IngestConfig    `yaml:"ingest" mapstructure:"ingest"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// AnthropicConfig holds model-service API settings.
type AnthropicConfig struct {
	Key         string  `yaml:"key" mapstructure:"key"`
	Model       string  `yaml:"model" mapstructure:"model"`
	MaxTokens   int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
}

// LLMConfig toggles the model-based extraction and scoring paths. Both are
// off by default: minimizing external calls is a design goal, not a tuning
// knob.
type LLMConfig struct {
	ExtractionEnabled bool `yaml:"extraction_enabled" mapstructure:"extraction_enabled"`
	ScoringEnabled    bool `yaml:"scoring_enabled" mapstructure:"scoring_enabled"`
}

// SearchConfig selects and configures the web-search provider used to find
// company pages during enrichment.
type SearchConfig struct {
	Provider       string `yaml:"provider" mapstructure:"provider"`
	SerperKey      string `yaml:"serper_key" mapstructure:"serper_key"`
	SerperEndpoint string `yaml:"serper_endpoint" mapstructure:"serper_endpoint"`
	SearxngURL     string `yaml:"searxng_url" mapstructure:"searxng_url"`
	TimeoutSecs    int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// EnrichConfig configures profile enrichment.
type EnrichConfig struct {
	ProfileTTLDays int `yaml:"profile_ttl_days" mapstructure:"profile_ttl_days"`
	MaxConcurrent  int `yaml:"max_concurrent" mapstructure:"max_concurrent"`
}

// ScoringConfig carries optional domain-preference strings injected verbatim
// into the model scoring prompt.
type ScoringConfig struct {
	DomainPreferences []string `yaml:"domain_preferences" mapstructure:"domain_preferences"`
}

// IngestConfig configures email import.
type IngestConfig struct {
	MaxEmailsPerRun int `yaml:"max_emails_per_run" mapstructure:"max_emails_per_run"`
}

// ServerConfig configures the HTTP API.
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
	v.SetEnvPrefix("LEADMAIL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "data/leadmail.db")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 900)
	v.SetDefault("anthropic.temperature", 0.0)
	v.SetDefault("llm.extraction_enabled", false)
	v.SetDefault("llm.scoring_enabled", false)
	v.SetDefault("search.provider", "serper")
	v.SetDefault("search.serper_endpoint", "https://google.serper.dev/search")
	v.SetDefault("search.searxng_url", "http://localhost:8080")
	v.SetDefault("search.timeout_secs", 20)
	v.SetDefault("enrich.profile_ttl_days", 7)
	v.SetDefault("enrich.max_concurrent", 4)
	v.SetDefault("ingest.max_emails_per_run", 50)
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
