// Package config loads the Config spec.md §6 names as the core's sole
// input surface, via the teacher's pflag+viper layering (flags > env >
// file > defaults).
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"docs_organiser/internal/llm"
)

// Config is spec.md §6's configuration surface: "input_dir,
// destination_dir, quarantine_dir, provider, model, ocr_language
// (default eng), reset_progress (bool), max_attempts (default 3),
// worker_count (default 1)". APIKey is an optional override for the
// provider's `<PROVIDER>_API_KEY` environment variable (spec.md §6
// "if the CLI does not [supply one]").
type Config struct {
	InputDir      string `mapstructure:"input_dir"`
	DestDir       string `mapstructure:"destination_dir"`
	QuarantineDir string `mapstructure:"quarantine_dir"`
	Provider      string `mapstructure:"provider"`
	Model         string `mapstructure:"model"`
	OCRLanguage   string `mapstructure:"ocr_language"`
	ResetProgress bool   `mapstructure:"reset_progress"`
	MaxAttempts   int    `mapstructure:"max_attempts"`
	WorkerCount   int    `mapstructure:"worker_count"`
	APIKey        string `mapstructure:"api_key"`
	BaseURL       string `mapstructure:"base_url"`
}

// Load parses flags, environment variables (DOCS_ prefix) and an optional
// YAML config file into a Config, applying spec.md §6's defaults.
func Load() (*Config, error) {
	viper.SetDefault("ocr_language", "eng")
	viper.SetDefault("reset_progress", false)
	viper.SetDefault("max_attempts", 3)
	viper.SetDefault("worker_count", 1)
	viper.SetDefault("provider", "openai")

	pflag.String("input_dir", "", "Directory to scan for documents")
	pflag.String("destination_dir", "", "Directory to move named documents into")
	pflag.String("quarantine_dir", "", "Directory to move unprocessable documents into")
	pflag.String("provider", "openai", "LLM provider: "+strings.Join(llm.KnownProviders, ", "))
	pflag.String("model", "", "Model name to request from the provider")
	pflag.String("ocr_language", "eng", "Tesseract language code for OCR fallback")
	pflag.Bool("reset_progress", false, "Discard the progress journal and reprocess everything")
	pflag.Int("max_attempts", 3, "Maximum attempts per recoverable operation before giving up")
	pflag.Int("worker_count", 1, "Number of concurrent file-processing workers")
	pflag.String("api_key", "", "Provider API key (overrides <PROVIDER>_API_KEY)")
	pflag.String("base_url", "", "Base URL for the local provider")
	configPath := pflag.String("config", "", "Path to a YAML configuration file")
	pflag.Parse()

	if err := viper.BindPFlags(pflag.CommandLine); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}

	viper.SetEnvPrefix("DOCS")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if *configPath != "" {
		viper.SetConfigFile(*configPath)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && *configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.APIKey == "" {
		cfg.APIKey = resolveAPIKey(cfg.Provider)
	}

	return &cfg, nil
}

// Validate checks the required fields and the provider's membership in
// the closed set spec.md §4.5 defines.
func (c *Config) Validate() error {
	if c.InputDir == "" {
		return fmt.Errorf("input_dir is required")
	}
	if c.DestDir == "" {
		return fmt.Errorf("destination_dir is required")
	}
	if c.QuarantineDir == "" {
		return fmt.Errorf("quarantine_dir is required")
	}
	if !llm.IsKnownProvider(c.Provider) {
		return fmt.Errorf("unknown provider %q: must be one of %s", c.Provider, strings.Join(llm.KnownProviders, ", "))
	}
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("max_attempts must be positive")
	}
	if c.WorkerCount <= 0 {
		return fmt.Errorf("worker_count must be positive")
	}
	return nil
}

// resolveAPIKey reads the provider's documented environment variable
// (spec.md §6), returning "" for providers that need none (Local).
func resolveAPIKey(provider string) string {
	envVar := llm.EnvVar(provider)
	if envVar == "" {
		return ""
	}
	return os.Getenv(envVar)
}
