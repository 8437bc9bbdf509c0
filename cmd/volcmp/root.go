package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"volbot/internal/app"
	"volbot/internal/config"
	"volbot/internal/telegram"
	"volbot/internal/volatility"
)

type options struct {
	configPath string
	underlying string
	volIndex   string
	window     int
	lag        int
	start      string
	source     string
	out        string
	send       bool
}

func Execute(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	o := &options{}
	root := &cobra.Command{
		Use:   "volcmp",
		Short: "Compare implied volatility with realized volatility",
		Long: "volcmp loads an underlying and its volatility index, computes rolling\n" +
			"annualized realized volatility, aligns it with the index and reports how\n" +
			"often implied volatility was above realized volatility.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, o)
		},
	}
	f := root.Flags()
	f.StringVarP(&o.configPath, "config", "c", os.Getenv("CONFIG_PATH"), "YAML config file")
	f.StringVarP(&o.underlying, "underlying", "u", "", "underlying identifier (default from config)")
	f.StringVarP(&o.volIndex, "vol-index", "v", "", "volatility index identifier (default from config)")
	f.IntVarP(&o.window, "window", "w", 0, "rolling window in trading days (default from config)")
	f.IntVarP(&o.lag, "lag", "l", 0, "realized volatility lag in trading days (default from config)")
	f.StringVar(&o.start, "start", "", "first date to load, YYYY-MM-DD (default from config)")
	f.StringVar(&o.source, "source", "", "price source: csv or yahoo (default from config)")
	f.StringVarP(&o.out, "out", "o", "volcmp.png", "chart output path")
	f.BoolVar(&o.send, "send", false, "also post the chart to telegram.chat_id")
	return root
}

func run(cmd *cobra.Command, o *options) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	app.SetupLogging(cfg)
	o.apply(cfg, cmd.Flags().Changed)
	if err := cfg.Validate(); err != nil {
		return err
	}
	p, err := cfg.Params()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	started := time.Now()
	rep, err := a.Service.Run(ctx, p)
	if err != nil {
		return err
	}
	log.Info().Dur("took", time.Since(started)).Int("points", rep.Comparison.Summary.Total).Msg("volcmp: done")

	if dir := filepath.Dir(o.out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(o.out, rep.Chart, 0o644); err != nil {
		return fmt.Errorf("write chart: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), rep.Caption)
	if rep.Commentary != "" {
		fmt.Fprintln(cmd.OutOrStdout(), rep.Commentary)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "chart written to %s\n", o.out)

	if o.send {
		if cfg.Telegram.BotToken == "" || cfg.Telegram.ChatID == 0 {
			return fmt.Errorf("%w: --send needs telegram.bot_token and telegram.chat_id", volatility.ErrConfig)
		}
		pub, err := telegram.NewPublisher(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		if err != nil {
			return fmt.Errorf("telegram: %w", err)
		}
		if err := pub.Publish(rep); err != nil {
			return fmt.Errorf("telegram: %w", err)
		}
		log.Info().Int64("chat_id", cfg.Telegram.ChatID).Msg("telegram: report sent")
	}
	return nil
}

// apply lays explicitly set flags over the loaded config. Window and lag go
// through unchanged so Validate sees out-of-range values.
func (o *options) apply(cfg *config.Config, changed func(name string) bool) {
	if o.underlying != "" {
		cfg.Analysis.Underlying = o.underlying
	}
	if o.volIndex != "" {
		cfg.Analysis.VolIndex = o.volIndex
	}
	if changed("window") {
		cfg.Analysis.RollingWindow = o.window
	}
	if changed("lag") {
		cfg.Analysis.Lag = o.lag
	}
	if o.start != "" {
		cfg.Analysis.Start = o.start
	}
	if o.source != "" {
		cfg.DataSource.Kind = o.source
	}
}
