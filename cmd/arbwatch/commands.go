package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/alanyoungcy/arbwatch/internal/app"
	"github.com/alanyoungcy/arbwatch/internal/config"
	"github.com/alanyoungcy/arbwatch/internal/ledger"
	"github.com/alanyoungcy/arbwatch/internal/logging"
	"github.com/alanyoungcy/arbwatch/internal/notify"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "arbwatch",
		Short: "Cross-market equity spread monitor",
		Long: `arbwatch polls quotes for the configured symbols on every market they
list on, converts them to USD and reports venue pairs whose spread
exceeds transaction costs.

Examples:
  arbwatch run --config arbwatch.toml
  arbwatch report
  arbwatch close GOTO 0.35
  arbwatch close TLKM 0.20 --loss`,
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "arbwatch.toml",
		"Path to the TOML configuration file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "",
		"Override log_level (debug, info, warn, error)")

	root.AddCommand(newRunCommand(opts))
	root.AddCommand(newReportCommand(opts))
	root.AddCommand(newCloseCommand(opts))
	root.AddCommand(newVersionCommand())
	return root
}

// load reads and validates the configuration and builds the logger.
func (o *rootOptions) load() (*config.Config, *slog.Logger, io.Closer, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, nil, err
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, err
	}

	logger, closer, err := logging.New(cfg.LogLevel, cfg.Logging)
	if err != nil {
		return nil, nil, nil, err
	}
	slog.SetDefault(logger)
	return cfg, logger, closer, nil
}

func newRunCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the detector until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, closer, err := opts.load()
			if err != nil {
				return err
			}
			defer closer.Close()

			logger.Info("arbwatch starting",
				slog.String("version", version),
				slog.String("mode", cfg.Mode),
				slog.String("config", opts.configPath),
			)
			logger.Debug("effective configuration", slog.Any("config", config.RedactedConfig(cfg)))

			application := app.New(cfg, logger)
			defer application.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("application exited with error", slog.String("error", err.Error()))
				return err
			}
			logger.Info("arbwatch stopped")
			return nil
		},
	}
}

func newReportCommand(opts *rootOptions) *cobra.Command {
	var send bool

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the simulated trading daily report",
		Long: `Print the daily report of the simulated trading book at ledger.path.
With --send the report is also delivered to the configured notification
channels.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, closer, err := opts.load()
			if err != nil {
				return err
			}
			defer closer.Close()

			l, err := ledger.Open(cfg.Ledger.Path, logger)
			if err != nil {
				return err
			}
			text := l.DailyReport(time.Now())
			fmt.Fprintln(cmd.OutOrStdout(), text)

			if !send {
				return nil
			}
			n := notify.NewNotifier(app.Senders(cfg.Notify, false, cmd.OutOrStdout()), cfg.Notify.Events, logger)
			return n.Notify(cmd.Context(), notify.EventDailyReport, "", text)
		},
	}
	cmd.Flags().BoolVar(&send, "send", false, "Deliver the report to the notification channels")
	return cmd
}

func newCloseCommand(opts *rootOptions) *cobra.Command {
	var loss bool

	cmd := &cobra.Command{
		Use:   "close SYMBOL PNL",
		Short: "Close a simulated position",
		Long: `Close one open simulated position for SYMBOL. PNL is the realized
amount in USD; a negative PNL or --loss records a loss of its absolute value.
Put -- before a negative PNL so it is not read as a flag:

  arbwatch close TLKM -- -0.20`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbol := strings.ToUpper(strings.TrimSpace(args[0]))
			amount, err := decimal.NewFromString(args[1])
			if err != nil {
				return fmt.Errorf("invalid PNL %q: %w", args[1], err)
			}
			win := !loss && !amount.IsNegative()

			cfg, logger, closer, err := opts.load()
			if err != nil {
				return err
			}
			defer closer.Close()

			l, err := ledger.Open(cfg.Ledger.Path, logger)
			if err != nil {
				return err
			}
			if err := l.Close(cmd.Context(), symbol, amount.Abs(), win); err != nil {
				return err
			}

			st := l.Book().State
			fmt.Fprintf(cmd.OutOrStdout(), "Closed %s. Capital: $%.2f, open positions: %d, win rate: %.1f%%\n",
				symbol, st.CurrentCapital, st.OpenPositions, l.WinRate())
			return nil
		},
	}
	cmd.Flags().BoolVar(&loss, "loss", false, "Record the position as a loss")
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "arbwatch %s\n", version)
		},
	}
}
