package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"kotrader/internal/broker"
	"kotrader/internal/config"
	"kotrader/internal/engine"
	"kotrader/internal/history"
)

func newRootCmd() *cobra.Command {
	var cfg config.Config

	rootCmd := &cobra.Command{
		Use:   "kotrader",
		Short: "Place one paper market order: buy before the cutoff, sell after it",
		Long: `kotrader runs once. It reads the market clock from the paper brokerage account and,
if the market is open, buys before the cutoff time (10:00 US/Eastern by default) and
sells after it. Exactly at the cutoff, or while the market is closed, it does nothing.

Credentials are read from APCA_API_KEY_ID and APCA_API_SECRET_KEY.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Finalize(&cfg); err != nil {
				return err
			}
			closeLog := setupLogger(cfg, cmd.ErrOrStderr())
			defer closeLog()

			client := broker.New(cfg.APIKey, cfg.APISecret, cfg.PaperBaseURL)
			eng := engine.New(engine.Options{
				Symbol:      cfg.Symbol,
				Qty:         cfg.Qty,
				TimeInForce: cfg.TIF,
				Cutoff:      cfg.Cutoff,
				Out:         cmd.OutOrStdout(),
			}, client, client)

			if _, err := eng.RunOnce(cmd.Context()); err != nil {
				slog.Error("run failed", "error", err)
				return err
			}
			return nil
		},
	}
	config.BindFlags(rootCmd.PersistentFlags(), &cfg)
	rootCmd.AddCommand(newHistoryCmd(&cfg))
	return rootCmd
}

func newHistoryCmd(cfg *config.Config) *cobra.Command {
	var hcfg config.HistoryConfig

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Load daily bars for a list of symbols and report what was loaded",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.FinalizeCredentials(cfg); err != nil {
				return err
			}
			if err := config.FinalizeHistory(&hcfg); err != nil {
				return err
			}
			closeLog := setupLogger(*cfg, cmd.ErrOrStderr())
			defer closeLog()

			out := cmd.OutOrStdout()
			loader := history.NewLoader(history.NewClient(cfg.APIKey, cfg.APISecret, hcfg.BaseURL), hcfg.Feed)
			fmt.Fprintf(out, "Loading data for symbols: %v\n", hcfg.Symbols)
			dataset, err := loader.Load(cmd.Context(), hcfg.Symbols, hcfg.StartTime, hcfg.EndTime)
			if err != nil {
				fmt.Fprintln(out, "Failed to load data. Check your internet connection.")
				return nil
			}
			fmt.Fprintf(out, "Data loaded successfully. Shape: (%d, %d)\n", dataset.Rows(), len(dataset.Symbols()))
			return nil
		},
	}
	config.BindHistoryFlags(historyCmd.Flags(), &hcfg)
	return historyCmd
}

// setupLogger installs the default slog logger writing to stderr and, when
// configured, the log file. The returned func closes the file.
func setupLogger(cfg config.Config, stderr io.Writer) func() {
	var w io.Writer = stderr
	var file *os.File
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			fmt.Fprintf(stderr, "warning: cannot open log file %s: %v\n", cfg.LogFile, err)
		} else {
			file = f
			w = io.MultiWriter(stderr, f)
		}
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: cfg.Level})))
	return func() {
		if file == nil {
			return
		}
		if err := file.Close(); err != nil {
			fmt.Fprintf(stderr, "failed to close log file: %v\n", err)
		}
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
