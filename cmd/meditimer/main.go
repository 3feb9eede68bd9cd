// Package main provides the meditimer binary: a meditation countdown that can
// run in the terminal or as a daemon with an HTTP API and a HomeKit bridge.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/brutella/hap"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"meditimer/internal/api"
	"meditimer/internal/bell"
	"meditimer/internal/config"
	"meditimer/internal/console"
	"meditimer/internal/homekit"
	"meditimer/internal/logging"
	"meditimer/internal/metrics"
	"meditimer/internal/timer"
)

const (
	Version = "0.2.0"
	appName = "meditimer"

	chimeWait = 1600 * time.Millisecond
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		configPath string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Meditation countdown timer",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	load := func() (*config.Config, *logging.Logger, error) {
		// .env is optional
		_ = godotenv.Load()
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, nil, err
		}
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		return cfg, logging.New(cfg.LogLevel, cfg.LogFormat), nil
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and, if enabled, the HomeKit bridge",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := load()
			if err != nil {
				return err
			}
			return serve(cfg, configPath, logger)
		},
	})

	var (
		seconds int
		minutes int
		preset  string
	)
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run one countdown in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := load()
			if err != nil {
				return err
			}
			return runCountdown(cmd, cfg, logger, seconds, minutes, preset)
		},
	}
	runCmd.Flags().IntVar(&seconds, "seconds", 0, "Countdown length in seconds")
	runCmd.Flags().IntVar(&minutes, "minutes", 0, "Countdown length in minutes (1-180)")
	runCmd.Flags().StringVar(&preset, "preset", "", "Name of a configured preset")
	runCmd.MarkFlagsMutuallyExclusive("seconds", "minutes", "preset")
	cmd.AddCommand(runCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "presets",
		Short: "List configured presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := load()
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tLENGTH")
			for _, p := range cfg.Timer.Presets {
				fmt.Fprintf(tw, "%s\t%s\n", p.Name, timer.FormatClock(p.Seconds))
			}
			return tw.Flush()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
		},
	})

	return cmd
}

// interruptContext is cancelled on SIGINT or SIGTERM.
func interruptContext(logger *logging.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	signal.Notify(c, syscall.SIGTERM)

	go func() {
		select {
		case <-c:
			logger.Info("stopping meditimer")
		case <-ctx.Done():
		}
		// Stop delivering signals
		signal.Stop(c)
		cancel()
	}()
	return ctx, cancel
}

func serve(cfg *config.Config, configPath string, logger *logging.Logger) error {
	ctx, cancel := interruptContext(logger)
	defer cancel()

	catalog, err := timer.NewCatalog(cfg.Timer.Presets)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewTimerMetrics(reg)
	hub := api.NewHub(logger.Logger)

	sinks := []timer.Sink{m, hub}
	if cfg.Timer.Bell {
		b := bell.New(logger.Logger)
		defer b.Close()
		sinks = append(sinks, b)
	}

	engine := timer.New(
		timer.WithTickSource(timer.IntervalSource{Interval: cfg.Timer.TickInterval}),
		timer.WithDefaultSeconds(cfg.Timer.DefaultSeconds),
		timer.WithLogger(logger.Logger),
		timer.WithSink(sinks...),
	)
	defer engine.Close()

	if configPath != "" {
		if err := config.WatchPresets(ctx, configPath, catalog, logger.Logger); err != nil {
			logger.Warn("config: preset reload disabled", "error", err)
		}
	}

	errCh := make(chan error, 2)

	if cfg.HomeKit.Enabled {
		bridge := homekit.New(cfg.HomeKit.Name, engine, logger.Logger)
		engine.Attach(bridge)
		store := hap.NewFsStore(cfg.HomeKit.StoreDir)
		go func() {
			errCh <- bridge.Serve(ctx, store, cfg.HomeKit.Addr, cfg.HomeKit.Pin)
		}()
	}

	srv := &http.Server{
		Addr: cfg.API.Addr,
		Handler: api.NewRouter(api.Config{
			Engine:         engine,
			Catalog:        catalog,
			Metrics:        m,
			Hub:            hub,
			MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			Logger:         logger.Logger,
		}),
	}
	go func() {
		logger.Info("api: listening", "addr", cfg.API.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("api server: %w", err)
		}
	}()

	logger.Info("starting meditimer", "version", Version)
	select {
	case <-ctx.Done():
	case err = <-errCh:
		if err != nil {
			logger.Error("server failed", "error", err)
		}
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.API.ShutdownTimeout)
	defer shutdownCancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		logger.Warn("api: shutdown", "error", serr)
	}
	return err
}

func runCountdown(cmd *cobra.Command, cfg *config.Config, logger *logging.Logger, seconds, minutes int, preset string) error {
	catalog, err := timer.NewCatalog(cfg.Timer.Presets)
	if err != nil {
		return err
	}

	switch {
	case preset != "":
		p, ok := catalog.Lookup(preset)
		if !ok {
			return fmt.Errorf("unknown preset %q", preset)
		}
		seconds = p.Seconds
	case cmd.Flags().Changed("minutes"):
		clamped := timer.ClampMinutes(minutes)
		if clamped != minutes {
			logger.Warn("run: minutes clamped", "requested", minutes, "used", clamped)
		}
		if seconds, err = timer.CustomSeconds(clamped); err != nil {
			return err
		}
	case seconds == 0:
		seconds = cfg.Timer.DefaultSeconds
	}

	ctx, cancel := interruptContext(logger)
	defer cancel()

	display := console.New(cmd.OutOrStdout())
	sinks := []timer.Sink{display}
	if cfg.Timer.Bell {
		b := bell.New(logger.Logger)
		defer b.Close()
		sinks = append(sinks, b)
	}

	engine := timer.New(
		timer.WithTickSource(timer.IntervalSource{Interval: cfg.Timer.TickInterval}),
		timer.WithLogger(logger.Logger),
		timer.WithSink(sinks...),
	)
	defer engine.Close()

	if err := engine.Start(seconds); err != nil {
		return err
	}

	select {
	case <-display.Done():
		if cfg.Timer.Bell {
			// let the chime play out before the speaker closes
			time.Sleep(chimeWait)
		}
	case <-ctx.Done():
		engine.Stop()
		fmt.Fprintln(cmd.OutOrStdout())
	}
	return nil
}
