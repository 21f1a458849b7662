package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Swind/go-worksteal/core"
	obs "github.com/Swind/go-worksteal/observability/prometheus"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
	"go.uber.org/automaxprocs/maxprocs"
)

func newApp() *cli.App {
	return &cli.App{
		Name:     "stealbench",
		Usage:    "Benchmark a work-stealing task pool",
		Commands: []*cli.Command{runCommand()},
	}
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:    "run",
		Aliases: []string{"r"},
		Usage:   "Run K tasks on T workers and compare wall time with ceil(K/T) x d",

		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "threads",
				Aliases: []string{"t"},
				Usage:   "Number of workers (0 = GOMAXPROCS)",
			},
			&cli.IntFlag{
				Name:    "tasks",
				Aliases: []string{"k"},
				Value:   100,
				Usage:   "Number of tasks to run",
			},
			&cli.DurationFlag{
				Name:    "task-duration",
				Aliases: []string{"d"},
				Value:   10 * time.Millisecond,
				Usage:   "How long each task sleeps",
			},
			&cli.IntFlag{
				Name:  "producers",
				Value: 1,
				Usage: "Number of goroutines submitting from outside the pool",
			},
			&cli.BoolFlag{
				Name:  "skew",
				Usage: "Submit every task from inside one worker so peers must steal",
			},
			&cli.StringFlag{
				Name:  "routing",
				Value: "affinity",
				Usage: "Submission routing policy: affinity or random",
			},
			&cli.DurationFlag{
				Name:  "shutdown-timeout",
				Value: core.DefaultShutdownTimeout,
				Usage: "How long shutdown waits for workers",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Value: "info",
				Usage: "Log level: debug, info, warn or error",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Value: "text",
				Usage: "Log format: text or json",
			},
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "Serve Prometheus metrics on this address (e.g. :2112)",
			},
		},

		Action: runAction,
	}
}

func runAction(c *cli.Context) error {
	// 1. Get flags
	logger, err := newLogger(c.App.ErrWriter, c.String("log-level"), c.String("log-format"))
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	routing, err := core.ParseRoutingPolicy(c.String("routing"))
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	sc := scenario{
		Threads:         c.Int("threads"),
		Tasks:           c.Int("tasks"),
		TaskDuration:    c.Duration("task-duration"),
		Producers:       c.Int("producers"),
		Skew:            c.Bool("skew"),
		Routing:         routing,
		ShutdownTimeout: c.Duration("shutdown-timeout"),
	}

	// 2. Validate (format only)
	if err := sc.validate(); err != nil {
		return cli.Exit(err.Error(), 2)
	}

	undo, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
		logger.Debug(fmt.Sprintf(format, args...))
	}))
	defer undo()
	if err != nil {
		logger.Warn("failed to align GOMAXPROCS with CPU quota", "error", err)
	}

	opts := []core.Option{core.WithLogger(core.NewSlogLogger(logger))}

	// 3. Metrics endpoint
	if addr := c.String("metrics-addr"); addr != "" {
		m, err := serveMetrics(c.Context, addr, logger)
		if err != nil {
			return cli.Exit(fmt.Sprintf("Failed: %v", err), 1)
		}
		defer m.shutdown()
		opts = append(opts, core.WithID("stealbench"), core.WithMetrics(m.exporter))
		sc.Observe = m.watch
	}

	// 4. Run
	rep, err := runScenario(c.Context, sc, opts...)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed: %v", err), 1)
	}

	// 5. Format output
	rep.print(c.App.Writer)

	if rep.Wrong > 0 || rep.Failed > 0 {
		return cli.Exit(fmt.Sprintf("%d wrong and %d failed results", rep.Wrong, rep.Failed), 1)
	}
	if rep.ShutdownErr != nil {
		return cli.Exit(fmt.Sprintf("Failed: %v", rep.ShutdownErr), 1)
	}
	return nil
}

func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	switch strings.ToLower(format) {
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}
}

type metricsServer struct {
	exporter *obs.MetricsExporter
	poller   *obs.SnapshotPoller
	server   *http.Server
}

// serveMetrics exposes a fresh registry on addr.
func serveMetrics(ctx context.Context, addr string, logger *slog.Logger) (*metricsServer, error) {
	reg := prom.NewRegistry()

	exporter, err := obs.NewMetricsExporter("worksteal", reg, obs.ExporterOptions{})
	if err != nil {
		return nil, err
	}
	poller, err := obs.NewSnapshotPoller(reg, 100*time.Millisecond)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "addr", addr, "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", addr)

	poller.Start(ctx)

	return &metricsServer{exporter: exporter, poller: poller, server: server}, nil
}

// watch adds pool to the snapshot poller.
func (m *metricsServer) watch(pool *core.Pool) {
	m.poller.AddPool(pool.ID(), pool)
}

func (m *metricsServer) shutdown() {
	m.poller.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = m.server.Shutdown(ctx)
}
