package config

import (
	"fmt"
	"net/url"
	"time"
)

// Validate validates the entire configuration
func (c *Config) Validate() error {
	checks := []func(*Config) error{
		validateBackendConfig,
		validateServerConfig,
		validateAnalysisConfig,
	}

	for _, check := range checks {
		if err := check(c); err != nil {
			return err
		}
	}

	return nil
}

func validateBackendConfig(cfg *Config) error {
	if cfg.Backend == (BackendConfig{}) {
		return fmt.Errorf("backend config is empty")
	}

	if cfg.Backend.BaseURL == "" {
		return fmt.Errorf("backend base url is empty")
	}

	u, err := url.Parse(cfg.Backend.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid backend base url, must be an absolute http(s) url, got %q", cfg.Backend.BaseURL)
	}

	if cfg.Backend.Instance == "" {
		return fmt.Errorf("backend instance is empty")
	}

	if cfg.Backend.APIKey == "" {
		return fmt.Errorf("backend api key is empty")
	}

	if cfg.Backend.Timeout < 0 {
		return fmt.Errorf("backend timeout must not be negative, got %v", cfg.Backend.Timeout)
	}

	return nil
}

func validateServerConfig(cfg *Config) error {
	if cfg.Server == (ServerConfig{}) {
		return fmt.Errorf("server config is empty")
	}

	if cfg.Server.Host == "" {
		return fmt.Errorf("server host is empty")
	}

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port, must be between 1 and 65535, got %d", cfg.Server.Port)
	}

	return nil
}

func validateAnalysisConfig(cfg *Config) error {
	if cfg.Analysis.MaxMessages < 1 {
		return fmt.Errorf("invalid analysis max messages, must be positive, got %d", cfg.Analysis.MaxMessages)
	}

	if _, err := time.LoadLocation(cfg.Analysis.Timezone); err != nil {
		return fmt.Errorf("invalid analysis timezone %q: %w", cfg.Analysis.Timezone, err)
	}

	return nil
}
