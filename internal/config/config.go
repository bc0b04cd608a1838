package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Environment string          `mapstructure:"environment"`
	LogLevel    string          `mapstructure:"log_level"`
	Server      ServerConfig    `mapstructure:"server"`
	Database    DatabaseConfig  `mapstructure:"database"`
	Redis       RedisConfig     `mapstructure:"redis"`
	Upstream    UpstreamConfig  `mapstructure:"upstream"`
	Ingestion   IngestionConfig `mapstructure:"ingestion"`
	Engine      EngineConfig    `mapstructure:"engine"`
	State       StateConfig     `mapstructure:"state"`
	Cleanup     CleanupConfig   `mapstructure:"cleanup"`
	Telegram    TelegramConfig  `mapstructure:"telegram"`
	Telemetry   TelemetryConfig `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type UpstreamConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Timeout int    `mapstructure:"timeout"`
}

type IngestionConfig struct {
	PollInterval       string   `mapstructure:"poll_interval"`
	PredictionInterval string   `mapstructure:"prediction_interval"`
	OddsTTL            string   `mapstructure:"odds_ttl"`
	PreMatchOddsTTL    string   `mapstructure:"prematch_odds_ttl"`
	AllowedLeagues     []string `mapstructure:"allowed_leagues"`
	DeniedLeagues      []string `mapstructure:"denied_leagues"`
}

type EngineConfig struct {
	HomeBaseXG      float64 `mapstructure:"home_base_xg"`
	AwayBaseXG      float64 `mapstructure:"away_base_xg"`
	BookmakerMargin float64 `mapstructure:"bookmaker_margin"`
}

type StateConfig struct {
	ActivityWindow string `mapstructure:"activity_window"`
	ActivityBuffer string `mapstructure:"activity_buffer"`
	IdleEviction   string `mapstructure:"idle_eviction"`
	SweepInterval  string `mapstructure:"sweep_interval"`
}

type CleanupConfig struct {
	SnapshotRetentionDays  int `mapstructure:"snapshot_retention_days"`
	CleanupIntervalMinutes int `mapstructure:"cleanup_interval_minutes"`
}

type TelegramConfig struct {
	BotToken       string  `mapstructure:"bot_token" json:"-" yaml:"-"`
	ChatID         string  `mapstructure:"chat_id"`
	MinEdge        float64 `mapstructure:"min_edge"`
	MinProbability float64 `mapstructure:"min_probability"`
}

type TelemetryConfig struct {
	Enabled    bool    `mapstructure:"enabled"`
	Endpoint   string  `mapstructure:"endpoint"`
	SampleRate float64 `mapstructure:"sample_rate"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	// Set default values
	setDefaults()

	// Enable environment variable support
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Bind secrets to their conventional environment names
	if err := viper.BindEnv("upstream.api_key", "UPSTREAM_API_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind UPSTREAM_API_KEY environment variable: %w", err)
	}
	if err := viper.BindEnv("telegram.bot_token", "TELEGRAM_BOT_TOKEN"); err != nil {
		return nil, fmt.Errorf("failed to bind TELEGRAM_BOT_TOKEN environment variable: %w", err)
	}

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		// Config file not found, use defaults and environment variables
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.Environment = strings.ToLower(config.Environment)

	for name, value := range map[string]string{
		"ingestion.poll_interval":       config.Ingestion.PollInterval,
		"ingestion.prediction_interval": config.Ingestion.PredictionInterval,
		"ingestion.odds_ttl":            config.Ingestion.OddsTTL,
		"ingestion.prematch_odds_ttl":   config.Ingestion.PreMatchOddsTTL,
		"state.activity_window":         config.State.ActivityWindow,
		"state.activity_buffer":         config.State.ActivityBuffer,
		"state.idle_eviction":           config.State.IdleEviction,
		"state.sweep_interval":          config.State.SweepInterval,
		"server.read_timeout":           config.Server.ReadTimeout,
		"server.write_timeout":          config.Server.WriteTimeout,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			return nil, fmt.Errorf("invalid duration for %s: %w", name, err)
		}
	}

	return &config, nil
}

// Duration parses a duration config value previously validated by Load.
func Duration(value string) time.Duration {
	d, _ := time.ParseDuration(value)
	return d
}

func setDefaults() {
	// Environment
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")

	// Server
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "10s")
	viper.SetDefault("server.write_timeout", "15s")

	// Database
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.dbname", "matchpulse")
	viper.SetDefault("database.sslmode", "disable")

	// Redis
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	// Upstream feed
	viper.SetDefault("upstream.base_url", "http://localhost:3001")
	viper.SetDefault("upstream.api_key", "")
	viper.SetDefault("upstream.timeout", 15)

	// Ingestion
	viper.SetDefault("ingestion.poll_interval", "10s")
	viper.SetDefault("ingestion.prediction_interval", "30s")
	viper.SetDefault("ingestion.odds_ttl", "5s")
	viper.SetDefault("ingestion.prematch_odds_ttl", "6h")
	viper.SetDefault("ingestion.allowed_leagues", []string{})
	viper.SetDefault("ingestion.denied_leagues", []string{})

	// Engine
	viper.SetDefault("engine.home_base_xg", 1.45)
	viper.SetDefault("engine.away_base_xg", 1.15)
	viper.SetDefault("engine.bookmaker_margin", 0.05)

	// Match state
	viper.SetDefault("state.activity_window", "5m")
	viper.SetDefault("state.activity_buffer", "1m")
	viper.SetDefault("state.idle_eviction", "2h")
	viper.SetDefault("state.sweep_interval", "10m")

	// Cleanup
	viper.SetDefault("cleanup.snapshot_retention_days", 30)
	viper.SetDefault("cleanup.cleanup_interval_minutes", 60)

	// Telegram
	viper.SetDefault("telegram.bot_token", "")
	viper.SetDefault("telegram.chat_id", "")
	viper.SetDefault("telegram.min_edge", 0.05)
	viper.SetDefault("telegram.min_probability", 0.5)

	// Telemetry
	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.endpoint", "")
	viper.SetDefault("telemetry.sample_rate", 0.2)
}
