package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"

	"kotrader/internal/broker"
)

func defaults(t *testing.T) Config {
	t.Helper()
	var cfg Config
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(flags, &cfg)
	if err := flags.Parse(nil); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	cfg.EnvFile = ""
	return cfg
}

func TestFinalizeRequiresCredentials(t *testing.T) {
	cases := map[string][2]string{
		"missing key":    {"", "secret"},
		"missing secret": {"key", ""},
		"missing both":   {"", ""},
	}
	for name, creds := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(EnvAPIKey, creds[0])
			t.Setenv(EnvAPISecret, creds[1])
			cfg := defaults(t)
			if err := Finalize(&cfg); err == nil {
				t.Fatalf("expected missing credentials error")
			}
		})
	}
}

func TestFinalizeAcceptsDefaults(t *testing.T) {
	t.Setenv(EnvAPIKey, "key")
	t.Setenv(EnvAPISecret, "secret")
	cfg := defaults(t)

	if err := Finalize(&cfg); err != nil {
		t.Fatalf("expected config to be valid, got %v", err)
	}
	if cfg.Symbol != "KO" || cfg.Qty != 1 {
		t.Fatalf("expected KO qty=1, got %s qty=%d", cfg.Symbol, cfg.Qty)
	}
	if cfg.Cutoff.Hour != 10 || cfg.Cutoff.Minute != 0 {
		t.Fatalf("expected 10:00 cutoff, got %s", cfg.Cutoff)
	}
	if cfg.Location.String() != "America/New_York" {
		t.Fatalf("expected America/New_York, got %s", cfg.Location)
	}
	if cfg.TIF != broker.Day {
		t.Fatalf("expected day time in force, got %s", cfg.TIF)
	}
}

func TestValidateRejectsInvalidValues(t *testing.T) {
	cases := map[string]func(*Config){
		"qty":           func(c *Config) { c.Qty = 0 },
		"symbol":        func(c *Config) { c.Symbol = " " },
		"timezone":      func(c *Config) { c.Timezone = "Mars/Olympus" },
		"cutoff":        func(c *Config) { c.CutoffTime = "noon" },
		"time in force": func(c *Config) { c.TimeInForce = "gtc" },
		"log level":     func(c *Config) { c.LogLevel = "loud" },
		"base url":      func(c *Config) { c.PaperBaseURL = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := defaults(t)
			cfg.APIKey = "key"
			cfg.APISecret = "secret"
			mutate(&cfg)
			if err := validate(&cfg); err == nil {
				t.Fatalf("expected validation error for %s", name)
			}
		})
	}
}

func TestFinalizeCredentialsIgnoresOrderSettings(t *testing.T) {
	t.Setenv(EnvAPIKey, "key")
	t.Setenv(EnvAPISecret, "secret")
	cfg := defaults(t)
	cfg.CutoffTime = "noon"
	cfg.TimeInForce = "gtc"
	cfg.Qty = 0

	if err := FinalizeCredentials(&cfg); err != nil {
		t.Fatalf("expected credentials to be accepted, got %v", err)
	}
	if err := Finalize(&cfg); err == nil {
		t.Fatalf("expected full finalize to reject order settings")
	}

	cfg.LogLevel = "loud"
	if err := FinalizeCredentials(&cfg); err == nil {
		t.Fatalf("expected invalid log level error")
	}

	t.Setenv(EnvAPISecret, "")
	cfg.LogLevel = "info"
	if err := FinalizeCredentials(&cfg); err == nil {
		t.Fatalf("expected missing credentials error")
	}
}

func TestFinalizeHistory(t *testing.T) {
	var cfg HistoryConfig
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindHistoryFlags(flags, &cfg)
	if err := flags.Parse([]string{"--symbols", "spy, qqq"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	if err := FinalizeHistory(&cfg); err != nil {
		t.Fatalf("finalize history: %v", err)
	}
	if len(cfg.Symbols) != 2 || cfg.Symbols[0] != "SPY" || cfg.Symbols[1] != "QQQ" {
		t.Fatalf("unexpected symbols %v", cfg.Symbols)
	}
	if cfg.StartTime.Year() != 2020 || cfg.EndTime.Year() != 2023 {
		t.Fatalf("unexpected range %s..%s", cfg.StartTime, cfg.EndTime)
	}

	cfg.End = "2019-12-31"
	if err := FinalizeHistory(&cfg); err == nil {
		t.Fatalf("expected error for reversed range")
	}
}

func TestLoadDotEnvSetsValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "APCA_API_KEY_ID=abc123\nAPCA_API_SECRET_KEY=shh\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	unsetEnv(t, EnvAPIKey)
	unsetEnv(t, EnvAPISecret)

	cfg := defaults(t)
	cfg.EnvFile = path
	if err := Finalize(&cfg); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if cfg.APIKey != "abc123" {
		t.Fatalf("expected key to be set, got %q", cfg.APIKey)
	}
	if cfg.APISecret != "shh" {
		t.Fatalf("expected secret to be set, got %q", cfg.APISecret)
	}
}

func TestLoadDotEnvDoesNotOverrideExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("APCA_API_KEY_ID=from_file\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv(EnvAPIKey, "from_env")

	if err := loadDotEnv(path); err != nil {
		t.Fatalf("loadDotEnv error: %v", err)
	}
	if got := os.Getenv(EnvAPIKey); got != "from_env" {
		t.Fatalf("expected env to win, got %q", got)
	}
}

func TestLoadDotEnvIgnoresMissingFile(t *testing.T) {
	if err := loadDotEnv(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Fatalf("expected missing file to be ignored, got %v", err)
	}
}

// unsetEnv clears key for the rest of the test and restores it afterwards.
func unsetEnv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("unset env: %v", err)
	}
}
