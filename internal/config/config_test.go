package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadCredentialsFromEnv(t *testing.T) {
	t.Setenv("API_KEY_GOOGLE", "gkey")
	t.Setenv("SEARCH_ENGINE_ID", "cx")
	t.Setenv("SERPER_API_KEY", "skey")
	t.Setenv("SERP_API_KEY", "dkey")
	t.Setenv("GOOGLE_SLEEP_SECONDS", "5")

	creds := LoadCredentials()
	if creds.GoogleAPIKey != "gkey" || creds.GoogleEngineID != "cx" {
		t.Errorf("google credentials not loaded: %+v", creds)
	}
	if creds.SerperAPIKey != "skey" || creds.SerpAPIKey != "dkey" {
		t.Errorf("aggregator credentials not loaded: %+v", creds)
	}
	if creds.GoogleInterval != 5*time.Second {
		t.Errorf("sleep override not applied: %v", creds.GoogleInterval)
	}
}

func TestLoadCredentialsDefaults(t *testing.T) {
	t.Setenv("GOOGLE_SLEEP_SECONDS", "")
	t.Setenv("SERPER_SLEEP_SECONDS", "not-a-number")
	t.Setenv("DUCKDUCKGO_SLEEP_SECONDS", "")

	creds := LoadCredentials()
	if creds.GoogleInterval != time.Second {
		t.Errorf("expected 1s google default, got %v", creds.GoogleInterval)
	}
	if creds.SerperInterval != time.Second {
		t.Errorf("invalid value must fall back to default, got %v", creds.SerperInterval)
	}
	if creds.DuckDuckGoInterval != 2*time.Second {
		t.Errorf("expected 2s duckduckgo default, got %v", creds.DuckDuckGoInterval)
	}
}

func TestLoadSettingsDefaultsWithoutFile(t *testing.T) {
	// Run from an empty directory so no real settings file is picked up.
	oldDir, _ := os.Getwd()
	defer os.Chdir(oldDir)
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("chdir: %v", err)
	}

	settings, err := LoadSettings("")
	if err != nil {
		t.Fatalf("missing optional settings file must not fail: %v", err)
	}
	if settings.Concurrency != 4 || settings.MaxRetries != 2 {
		t.Errorf("unexpected defaults: %+v", settings)
	}
	if settings.Scoring.Thresholds.High != 0.6 {
		t.Errorf("scoring defaults not applied: %+v", settings.Scoring.Thresholds)
	}
}

func TestLoadSettingsExplicitMissingFileFails(t *testing.T) {
	if _, err := LoadSettings("/nonexistent/settings.yaml"); err == nil {
		t.Fatal("an explicitly named missing file must fail")
	}
}

func TestLoadSettingsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	doc := `
provider_priority: [serper]
concurrency: 8
scoring:
  thresholds:
    high: 0.8
    medium: 0.4
`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatalf("writing settings file: %v", err)
	}

	settings, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if settings.Concurrency != 8 {
		t.Errorf("file value not applied: %d", settings.Concurrency)
	}
	if len(settings.ProviderPriority) != 1 || settings.ProviderPriority[0] != "serper" {
		t.Errorf("priority not applied: %v", settings.ProviderPriority)
	}
	if settings.Scoring.Thresholds.High != 0.8 {
		t.Errorf("scoring override not applied: %+v", settings.Scoring.Thresholds)
	}
	// Values absent from the file keep their defaults.
	if settings.MaxRetries != 2 {
		t.Errorf("absent key must keep default: %d", settings.MaxRetries)
	}
	if len(settings.Scoring.SensitiveExtensions) == 0 {
		t.Error("absent scoring tables must keep defaults")
	}
}
