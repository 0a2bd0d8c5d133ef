package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/Roska-x/Ninjutsu/pkg/scoring"
)

// Credentials holds the per-provider API secrets. Loaded from environment
// variables only; secrets never live in the settings file.
// Supported env vars: API_KEY_GOOGLE, SEARCH_ENGINE_ID, SERPER_API_KEY,
// SERP_API_KEY, GOOGLE_SLEEP_SECONDS, SERPER_SLEEP_SECONDS,
// DUCKDUCKGO_SLEEP_SECONDS
type Credentials struct {
	GoogleAPIKey   string
	GoogleEngineID string
	SerperAPIKey   string
	SerpAPIKey     string

	GoogleInterval     time.Duration
	SerperInterval     time.Duration
	DuckDuckGoInterval time.Duration
}

// LoadCredentials reads provider secrets and pacing intervals from the
// environment. Missing keys are not an error here: a provider without its
// key simply reports itself unconfigured.
func LoadCredentials() *Credentials {
	return &Credentials{
		GoogleAPIKey:   os.Getenv("API_KEY_GOOGLE"),
		GoogleEngineID: os.Getenv("SEARCH_ENGINE_ID"),
		SerperAPIKey:   os.Getenv("SERPER_API_KEY"),
		SerpAPIKey:     os.Getenv("SERP_API_KEY"),

		GoogleInterval:     sleepSeconds("GOOGLE_SLEEP_SECONDS", 1),
		SerperInterval:     sleepSeconds("SERPER_SLEEP_SECONDS", 1),
		DuckDuckGoInterval: sleepSeconds("DUCKDUCKGO_SLEEP_SECONDS", 2),
	}
}

// Settings is the file-backed configuration: execution knobs, provider
// priority and the scoring tables.
type Settings struct {
	ProviderPriority []string `mapstructure:"provider_priority"`
	Concurrency      int      `mapstructure:"concurrency"`
	ResultsPerQuery  int      `mapstructure:"results_per_query"`
	MaxRetries       int      `mapstructure:"max_retries"`
	BackoffBaseMS    int      `mapstructure:"backoff_base_ms"`
	CallTimeoutS     int      `mapstructure:"call_timeout_s"`
	CatalogPath      string   `mapstructure:"catalog_path"`
	OutputDir        string   `mapstructure:"output_dir"`

	Scoring scoring.Config `mapstructure:"scoring"`
}

// DefaultSettings returns the settings used when no file is present.
func DefaultSettings() *Settings {
	return &Settings{
		ProviderPriority: []string{"serper", "google", "duckduckgo"},
		Concurrency:      4,
		ResultsPerQuery:  10,
		MaxRetries:       2,
		BackoffBaseMS:    500,
		CallTimeoutS:     30,
		CatalogPath:      "./config/dorks.yaml",
		OutputDir:        "./reports",
		Scoring:          scoring.DefaultConfig(),
	}
}

// LoadSettings reads the settings file via viper. An explicit path is
// required to exist; with an empty path the default search locations are
// tried and a missing file falls back to defaults.
func LoadSettings(path string) (*Settings, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("NINJUTSU")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("settings")
		for _, p := range []string{"./config", ".", "/etc/ninjutsu", "$HOME/.ninjutsu"} {
			v.AddConfigPath(p)
		}
	}

	settings := DefaultSettings()
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok && path == "" {
			log.Debug("No settings file found, using defaults")
			return settings, nil
		}
		return nil, fmt.Errorf("reading settings: %w", err)
	}

	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("parsing settings: %w", err)
	}
	log.Infof("Loaded settings file: %s", v.ConfigFileUsed())
	return settings, nil
}

func sleepSeconds(key string, def int) time.Duration {
	secs := def
	if raw := os.Getenv(key); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 0 {
			secs = parsed
		} else {
			log.Warnf("Ignoring invalid %s value %q", key, raw)
		}
	}
	return time.Duration(secs) * time.Second
}
