package tool

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/moyoez/docconvert-go/types"
)

var (
	ConfigPath    = "config.yaml" // be aware that it can be changed, default to ./config.yaml
	CurrentConfig types.AppConfig
)

// DefaultConfig mirrors the limits of the conversion server.
func DefaultConfig() types.AppConfig {
	return types.AppConfig{
		ServerURL:             "http://127.0.0.1:5000",
		DefaultMode:           string(types.ModePDF),
		DefaultLanguage:       "ben", // server side default when lang is omitted
		PollIntervalMs:        1000,
		MaxNotFoundAttempts:   30,
		RequestTimeoutSeconds: 30,
		CleanupTimeoutSeconds: 5,
		RequestsPerSecond:     0,
		ListenPort:            53318,
		HistoryTTLSeconds:     600,
		MaxUploadBytes:        100 * 1024 * 1024,
	}
}

// LoadConfig reads path (default ./config.yaml). A missing file is created with defaults.
func LoadConfig(path string) (types.AppConfig, error) {
	if path == "" {
		path = ConfigPath
	}
	ConfigPath = path

	cfg := DefaultConfig()

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			if writeErr := writeDefaultConfig(path, cfg); writeErr != nil {
				return cfg, fmt.Errorf("config file not found, and failed to generate default config: %w", writeErr)
			}
			DefaultLogger.Infof("Created new config file at %s", path)
			CurrentConfig = cfg
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if info.IsDir() {
		return cfg, fmt.Errorf("config file path is a directory: %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := ValidateConfig(cfg); err != nil {
		return cfg, err
	}

	CurrentConfig = cfg
	return cfg, nil
}

// ApplyFlagOverrides merges non-empty CLI flags into cfg.
func ApplyFlagOverrides(cfg *types.AppConfig, flags types.Config) {
	if flags.UseServer != "" {
		cfg.ServerURL = flags.UseServer
	}
	if flags.UseMode != "" {
		cfg.DefaultMode = flags.UseMode
	}
	if flags.UseLang != "" {
		cfg.DefaultLanguage = flags.UseLang
	}
	if flags.UsePort > 0 {
		cfg.ListenPort = flags.UsePort
	}
	if flags.UseNotifySock != "" {
		cfg.NotifySocket = flags.UseNotifySock
	}
}

// ValidateConfig rejects values the client cannot run with.
func ValidateConfig(cfg types.AppConfig) error {
	if _, err := ParseServerURL(cfg.ServerURL); err != nil {
		return fmt.Errorf("invalid serverUrl: %w", err)
	}
	if _, ok := types.ParseMode(cfg.DefaultMode); !ok {
		return fmt.Errorf("invalid defaultMode %q: want pdf or image", cfg.DefaultMode)
	}
	if cfg.PollIntervalMs <= 0 {
		return fmt.Errorf("pollIntervalMs must be > 0, got %d", cfg.PollIntervalMs)
	}
	if cfg.MaxNotFoundAttempts <= 0 {
		return fmt.Errorf("maxNotFoundAttempts must be > 0, got %d", cfg.MaxNotFoundAttempts)
	}
	if cfg.RequestsPerSecond < 0 {
		return fmt.Errorf("requestsPerSecond must be >= 0, got %d", cfg.RequestsPerSecond)
	}
	return nil
}

// PollInterval returns the configured poll interval as a duration.
func PollInterval(cfg types.AppConfig) time.Duration {
	return time.Duration(cfg.PollIntervalMs) * time.Millisecond
}

func writeDefaultConfig(path string, cfg types.AppConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func GetCurrentConfig() *types.AppConfig {
	return &CurrentConfig
}
