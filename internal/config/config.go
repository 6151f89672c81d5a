package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"kotrader/internal/broker"
	"kotrader/internal/strategy"
)

const (
	EnvAPIKey    = "APCA_API_KEY_ID"
	EnvAPISecret = "APCA_API_SECRET_KEY"
)

type Config struct {
	Symbol       string
	Qty          int
	CutoffTime   string
	Timezone     string
	TimeInForce  string
	PaperBaseURL string
	EnvFile      string
	LogFile      string
	LogLevel     string
	APIKey       string
	APISecret    string

	Cutoff   strategy.Cutoff
	TIF      broker.TimeInForce
	Level    slog.Level
	Location *time.Location
}

type HistoryConfig struct {
	Symbols []string
	Start   string
	End     string
	Feed    string
	BaseURL string

	StartTime time.Time
	EndTime   time.Time
}

func BindFlags(flags *pflag.FlagSet, cfg *Config) {
	flags.StringVar(&cfg.Symbol, "symbol", "KO", "symbol to trade")
	flags.IntVar(&cfg.Qty, "qty", 1, "shares per order")
	flags.StringVar(&cfg.CutoffTime, "cutoff", "10:00", "buy before and sell after this time of day (HH:MM[:SS])")
	flags.StringVar(&cfg.Timezone, "timezone", "America/New_York", "timezone the cutoff is read in")
	flags.StringVar(&cfg.TimeInForce, "time-in-force", "day", "time in force: day")
	flags.StringVar(&cfg.PaperBaseURL, "paper-base-url", "https://paper-api.alpaca.markets", "paper trading base URL")
	flags.StringVar(&cfg.EnvFile, "env-file", ".env", "optional dotenv file with API credentials")
	flags.StringVar(&cfg.LogFile, "log-file", "strategy.log", "also write logs to this file (empty to disable)")
	flags.StringVar(&cfg.LogLevel, "log-level", "info", "log level: debug, info, warn, error")
}

func BindHistoryFlags(flags *pflag.FlagSet, cfg *HistoryConfig) {
	flags.StringSliceVar(&cfg.Symbols, "symbols", []string{"SPY", "QQQ", "IWM"}, "symbols to load")
	flags.StringVar(&cfg.Start, "start", "2020-01-01", "first date to load (YYYY-MM-DD)")
	flags.StringVar(&cfg.End, "end", "2023-12-31", "last date to load (YYYY-MM-DD)")
	flags.StringVar(&cfg.Feed, "feed", "iex", "market data feed: iex or sip")
	flags.StringVar(&cfg.BaseURL, "data-base-url", "https://data.alpaca.markets", "market data base URL")
}

// Finalize reads credentials from the environment (after loading the
// optional dotenv file) and validates cfg. It performs no network access.
func Finalize(cfg *Config) error {
	if err := readCredentials(cfg); err != nil {
		return err
	}
	return validate(cfg)
}

// FinalizeCredentials is Finalize without the order settings: only
// credentials and logging are checked.
func FinalizeCredentials(cfg *Config) error {
	if err := readCredentials(cfg); err != nil {
		return err
	}
	return validateCredentials(cfg)
}

func readCredentials(cfg *Config) error {
	if err := loadDotEnv(cfg.EnvFile); err != nil {
		return err
	}
	cfg.APIKey = os.Getenv(EnvAPIKey)
	cfg.APISecret = os.Getenv(EnvAPISecret)
	return nil
}

func FinalizeHistory(cfg *HistoryConfig) error {
	var err error
	if len(cfg.Symbols) == 0 {
		return errors.New("at least one symbol is required")
	}
	for i, symbol := range cfg.Symbols {
		cfg.Symbols[i] = strings.ToUpper(strings.TrimSpace(symbol))
		if cfg.Symbols[i] == "" {
			return errors.New("empty symbol in --symbols")
		}
	}
	if cfg.StartTime, err = time.Parse(time.DateOnly, cfg.Start); err != nil {
		return fmt.Errorf("invalid start date %q: %w", cfg.Start, err)
	}
	if cfg.EndTime, err = time.Parse(time.DateOnly, cfg.End); err != nil {
		return fmt.Errorf("invalid end date %q: %w", cfg.End, err)
	}
	if !cfg.EndTime.After(cfg.StartTime) {
		return errors.New("end date must be after start date")
	}
	if cfg.Feed != "iex" && cfg.Feed != "sip" {
		return fmt.Errorf("invalid feed: %s", cfg.Feed)
	}
	return nil
}

func validateCredentials(cfg *Config) error {
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return fmt.Errorf("missing API credentials: set %s and %s in your environment", EnvAPIKey, EnvAPISecret)
	}
	if err := cfg.Level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return fmt.Errorf("invalid log level %q", cfg.LogLevel)
	}
	return nil
}

func validate(cfg *Config) error {
	if err := validateCredentials(cfg); err != nil {
		return err
	}
	var err error
	cfg.Symbol = strings.ToUpper(strings.TrimSpace(cfg.Symbol))
	if cfg.Symbol == "" {
		return errors.New("symbol is required")
	}
	if cfg.Qty <= 0 {
		return errors.New("qty must be > 0")
	}
	if cfg.PaperBaseURL == "" {
		return errors.New("paper-base-url is required")
	}
	if cfg.Location, err = time.LoadLocation(cfg.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}
	if cfg.Cutoff, err = strategy.ParseCutoff(cfg.CutoffTime, cfg.Location); err != nil {
		return err
	}
	if cfg.TIF, err = broker.ParseTimeInForce(cfg.TimeInForce); err != nil {
		return err
	}
	return nil
}

// loadDotEnv never overrides variables that are already set. A missing
// file is not an error.
func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}
