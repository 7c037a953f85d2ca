package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli"

	"github.com/valerio/go-frameperf/frameperf/app"
	"github.com/valerio/go-frameperf/frameperf/backend"
	"github.com/valerio/go-frameperf/frameperf/backend/headless"
	"github.com/valerio/go-frameperf/frameperf/backend/terminal"
	"github.com/valerio/go-frameperf/frameperf/config"
	"github.com/valerio/go-frameperf/frameperf/metrics"
)

func main() {
	err := newApp().Run(os.Args)
	if err != nil {
		slog.Error("Error running frameperf", "error", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	cliApp := cli.NewApp()
	cliApp.Name = "frameperf"
	cliApp.Description = "A throttled frame loop that measures how well the host keeps up"
	cliApp.Usage = "frameperf [options]"
	cliApp.Version = "1.0.0"
	cliApp.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config",
			Usage: "Path to a YAML configuration file",
		},
		cli.Float64Flag{
			Name:  "fps",
			Usage: "Target ticks per second",
			Value: config.DefaultFPS,
		},
		cli.IntFlag{
			Name:  "samples",
			Usage: "Samples per performance window",
			Value: config.DefaultSamplesCount,
		},
		cli.DurationFlag{
			Name:  "sample-duration",
			Usage: "Maximum duration of a performance window (0 = count only)",
			Value: config.DefaultSampleDuration,
		},
		cli.BoolFlag{
			Name:  "no-perf",
			Usage: "Disable performance sampling",
		},
		cli.Float64Flag{
			Name:  "refresh-rate",
			Usage: "Display refreshes per second of the host",
			Value: app.DefaultRefreshRate,
		},
		cli.StringFlag{
			Name:  "pacing",
			Usage: "Terminal refresh pacing: adaptive or ticker",
			Value: "adaptive",
		},
		cli.IntFlag{
			Name:  "max-units",
			Usage: "Largest workload rendered per tick",
			Value: app.DefaultMaxUnits,
		},
		cli.DurationFlag{
			Name:  "unit-cost",
			Usage: "Render cost of one workload unit",
			Value: app.DefaultUnitCost,
		},
		cli.BoolFlag{
			Name:  "headless",
			Usage: "Run a simulated host without a terminal interface",
		},
		cli.IntFlag{
			Name:  "ticks",
			Usage: "Number of ticks to run in headless mode (required for headless)",
		},
		cli.IntFlag{
			Name:  "hide-after",
			Usage: "Hide the headless host after N ticks (0 = never)",
		},
		cli.DurationFlag{
			Name:  "hide-for",
			Usage: "How long the headless host stays hidden",
		},
		cli.StringFlag{
			Name:  "metrics-addr",
			Usage: "Serve Prometheus metrics on this address (e.g. :9090)",
		},
		cli.StringFlag{
			Name:  "log-level",
			Usage: "debug, info, warn or error",
			Value: "info",
		},
	}
	cliApp.Action = run
	return cliApp
}

func run(c *cli.Context) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.String("log-level"))); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	b, err := newBackend(c)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := app.Options{
		Title:       fmt.Sprintf("%g fps", cfg.FPS),
		MaxUnits:    c.Int("max-units"),
		RefreshRate: c.Float64("refresh-rate"),
		UnitCost:    c.Duration("unit-cost"),
		LogLevel:    level,
	}

	if addr := c.String("metrics-addr"); addr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector())

		m, err := metrics.New("frameperf", reg)
		if err != nil {
			return err
		}
		server, err := metrics.Serve(ctx, addr, reg)
		if err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
		defer server.Shutdown()
		opts.Metrics = m
	}

	return app.New(cfg, b, opts).Run(ctx)
}

// loadConfig reads the optional config file and applies flag overrides.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	if c.IsSet("fps") {
		cfg.FPS = c.Float64("fps")
	}
	if c.IsSet("samples") {
		cfg.Performances.SamplesCount = c.Int("samples")
	}
	if c.IsSet("sample-duration") {
		cfg.Performances.SampleDuration = c.Duration("sample-duration")
	}
	if c.Bool("no-perf") {
		cfg.Performances.Enabled = false
	}

	return cfg, cfg.Validate()
}

func newBackend(c *cli.Context) (backend.Backend, error) {
	if c.Bool("headless") {
		ticks := c.Int("ticks")
		if ticks <= 0 {
			return nil, errors.New("headless mode requires --ticks option with a positive value")
		}
		return headless.New(ticks, headless.HideCycle{
			After: c.Int("hide-after"),
			For:   c.Duration("hide-for"),
		}), nil
	}

	switch c.String("pacing") {
	case "adaptive":
		return terminal.New(nil, terminal.PacingAdaptive), nil
	case "ticker":
		return terminal.New(nil, terminal.PacingTicker), nil
	default:
		return nil, fmt.Errorf("unknown pacing %q", c.String("pacing"))
	}
}
