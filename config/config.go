package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultPath is where the configuration file is looked up when no path is given
const DefaultPath = "./config/config.json"

// EnvPrefix prefixes environment overrides, e.g. WA_ANALYZER_BACKEND_API_KEY
const EnvPrefix = "WA_ANALYZER"

type Config struct {
	Env       string          `mapstructure:"env"`
	Backend   BackendConfig   `mapstructure:"backend"`
	Server    ServerConfig    `mapstructure:"server"`
	Analysis  AnalysisConfig  `mapstructure:"analysis"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// BackendConfig describes the messaging backend the conversations are fetched from
type BackendConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	Instance string        `mapstructure:"instance"`
	APIKey   string        `mapstructure:"api_key"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type AnalysisConfig struct {
	MaxMessages  int    `mapstructure:"max_messages"`
	Timezone     string `mapstructure:"timezone"`
	FilterByDate bool   `mapstructure:"filter_by_date"`
}

type TelemetryConfig struct {
	Endpoint       string `mapstructure:"endpoint"`
	Headers        string `mapstructure:"headers"`
	ServiceName    string `mapstructure:"service_name"`
	ServiceVersion string `mapstructure:"service_version"`
}

// Load reads the configuration into cfg.
// Values come from the JSON file at path (DefaultPath when empty, which alone may be absent),
// then from a .env file and the environment, which take precedence.
func Load(cfg *Config, path string) error {
	// A missing .env file is not an error
	_ = godotenv.Load(".env")

	if path == "" {
		path = DefaultPath
	}

	v := newViper()

	v.SetConfigFile(path)
	v.SetConfigType("json")

	// Read the configuration file
	// Only the default file may be absent, an explicit path must exist
	if err := v.ReadInConfig(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) || path != DefaultPath {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	// Unmarshal the configuration into the cfg struct
	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("failed to validate config: %w", err)
	}

	return nil
}

// newViper creates a viper instance with defaults and environment bindings for every key
func newViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("env", "development")
	v.SetDefault("backend.base_url", "")
	v.SetDefault("backend.instance", "")
	v.SetDefault("backend.api_key", "")
	v.SetDefault("backend.timeout", "0s")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("analysis.max_messages", 500)
	v.SetDefault("analysis.timezone", "America/Sao_Paulo")
	v.SetDefault("analysis.filter_by_date", false)
	v.SetDefault("telemetry.endpoint", "")
	v.SetDefault("telemetry.headers", "")
	v.SetDefault("telemetry.service_name", "whatsapp-conversation-analyzer")
	v.SetDefault("telemetry.service_version", "dev")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// IsProduction reports whether the service runs in production
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// GetServerAddress returns the HTTP server address in host:port format
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GetLocation returns the time zone dates are displayed in
func (c *Config) GetLocation() *time.Location {
	loc, err := time.LoadLocation(c.Analysis.Timezone)
	if err != nil {
		// Validate rejects unknown zones, so this only happens on unvalidated configs
		return time.UTC
	}
	return loc
}

// FindMessagesURL returns the message query endpoint of the backend instance
func (c BackendConfig) FindMessagesURL() string {
	return strings.TrimRight(c.BaseURL, "/") + "/chat/findMessages/" + url.PathEscape(c.Instance)
}

// Enabled reports whether traces are exported
func (c TelemetryConfig) Enabled() bool {
	return c.Endpoint != ""
}

