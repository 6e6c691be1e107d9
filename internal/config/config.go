// Package config provides configuration management for the comorbidity index
// service and batch tooling.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/comorbid-index-engine/internal/domain"
)

// Config is the complete service configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Registry RegistryConfig `mapstructure:"registry"`
	Run      RunConfig      `mapstructure:"run"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// DatabaseConfig holds the results-warehouse connection settings.
type DatabaseConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Host        string        `mapstructure:"host"`
	Port        int           `mapstructure:"port"`
	Database    string        `mapstructure:"database"`
	Username    string        `mapstructure:"username"`
	Password    string        `mapstructure:"password"`
	SSLMode     string        `mapstructure:"ssl_mode"`
	MaxConns    int32         `mapstructure:"max_conns"`
	MinConns    int32         `mapstructure:"min_conns"`
	MaxConnLife time.Duration `mapstructure:"conn_max_lifetime"`
	MaxConnIdle time.Duration `mapstructure:"conn_max_idle"`
}

// URL renders the connection string used by migrations and the sql store.
func (d DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.Username, d.Password, d.Host, d.Port, d.Database, d.SSLMode)
}

// CacheConfig holds the optional Redis result-cache settings.
type CacheConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	RedisURL string        `mapstructure:"redis_url"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// RegistryConfig holds the cancer-registry API client settings.
type RegistryConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	BaseURL   string        `mapstructure:"base_url"`
	APIKey    string        `mapstructure:"api_key"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit int           `mapstructure:"rate_limit"`
}

// RunConfig holds the default run parameters for batch invocations.
type RunConfig struct {
	Index             string   `mapstructure:"index"`
	Site              string   `mapstructure:"site"`
	KeyColumns        []string `mapstructure:"key_columns"`
	CodeColumn        string   `mapstructure:"code_column"`
	CodeColumnPrefix  string   `mapstructure:"code_column_prefix"`
	IncludeIndicators bool     `mapstructure:"include_indicators"`
	IncludeScores     bool     `mapstructure:"include_scores"`
	Workers           int      `mapstructure:"workers"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Manager loads and validates configuration using Viper.
type Manager struct {
	config *Config
}

// NewManager creates a configuration manager, loading from the config file
// (when present), environment variables and defaults.
func NewManager() (*Manager, error) {
	m := &Manager{}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

func (m *Manager) loadConfig() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/comorbid-index-engine/")

	viper.SetEnvPrefix("COMORBID")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	m.setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; defaults and environment variables apply.
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.config = config
	return nil
}

func (m *Manager) setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")

	viper.SetDefault("database.enabled", false)
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.database", "comorbid")
	viper.SetDefault("database.username", "postgres")
	viper.SetDefault("database.password", "")
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.max_conns", 25)
	viper.SetDefault("database.min_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", "5m")
	viper.SetDefault("database.conn_max_idle", "1m")

	viper.SetDefault("cache.enabled", false)
	viper.SetDefault("cache.redis_url", "redis://localhost:6379")
	viper.SetDefault("cache.ttl", "24h")

	viper.SetDefault("registry.enabled", false)
	viper.SetDefault("registry.base_url", "")
	viper.SetDefault("registry.timeout", "30s")
	viper.SetDefault("registry.rate_limit", 10)

	viper.SetDefault("run.index", "m3")
	viper.SetDefault("run.site", "")
	viper.SetDefault("run.key_columns", []string{"patient_id"})
	viper.SetDefault("run.code_column", "code")
	viper.SetDefault("run.code_column_prefix", "diag")
	viper.SetDefault("run.include_indicators", true)
	viper.SetDefault("run.include_scores", true)
	viper.SetDefault("run.workers", 0)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
}

// GetConfig returns the complete configuration.
func (m *Manager) GetConfig() *Config {
	return m.config
}

// Validate checks the run-relevant configuration invariants that must fail
// fast before any processing starts.
func (m *Manager) Validate() error {
	// Index and site names are case-normalized so config files and env vars
	// can use either case.
	m.config.Run.Index = strings.ToLower(m.config.Run.Index)
	m.config.Run.Site = strings.ToUpper(m.config.Run.Site)
	run := m.config.Run

	index := domain.IndexVariant(run.Index)
	if !index.IsValid() {
		return domain.NewConfigError("run.index", run.Index, domain.ErrUnknownIndex)
	}
	if index == domain.IndexC3 && !domain.CancerSite(run.Site).IsValid() {
		return domain.NewConfigError("run.site", run.Site, domain.ErrUnknownSite)
	}
	if run.Site != "" && !domain.CancerSite(run.Site).IsValid() {
		return domain.NewConfigError("run.site", run.Site, domain.ErrUnknownSite)
	}
	if !run.IncludeIndicators && !run.IncludeScores {
		return domain.NewConfigError("run.include_indicators", "false", domain.ErrNoOutputs)
	}
	if len(run.KeyColumns) == 0 {
		return domain.NewConfigError("run.key_columns", "", fmt.Errorf("at least one patient key column is required"))
	}
	return nil
}
