// Command rws-panel is an interactive operator panel for a robot controller
// speaking the Robot Web Services protocol.
//
// It shares one subscription per RAPID variable or I/O signal between every
// watcher, takes edit mastership around writes and motion mastership while
// jogging.
//
// Usage:
//
//	rws-panel [flags]
//
// Flags:
//
//	-config string        Configuration file path (YAML)
//	-url string           Controller base URL (default "https://192.168.125.1")
//	-user string          Controller user name
//	-password string      Controller password
//	-log-level string     Log level: debug, info, warn, error (default "info")
//	-protocol-log string  Write protocol capture to this .rlog file
//	-metrics-addr string  Serve Prometheus metrics on this address
//	-interactive          Enable interactive command mode (default true)
//
// Examples:
//
//	# Connect to a virtual controller on the local machine
//	rws-panel -url http://127.0.0.1:80
//
//	# Capture traffic for later analysis with rws-log
//	rws-panel -url https://10.0.0.5 -protocol-log panel.rlog
//
//	# Headless: watch the variables listed in the config file and export metrics
//	rws-panel -config panel.yaml -interactive=false -metrics-addr :9090
//
// Configuration file:
//
//	url: https://192.168.125.1
//	username: Default User
//	password: robotics
//	timeout: 10s
//	priority: 1
//	watch:
//	  - T_ROB1/MainModule/counter
//	mastership:
//	  release_timeout: 5s
//	jog:
//	  interval: 200ms
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chzyer/readline"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/rws-panel/rws-go/cmd/rws-panel/interactive"
	rwslog "github.com/rws-panel/rws-go/pkg/log"
	"github.com/rws-panel/rws-go/pkg/metrics"
	"github.com/rws-panel/rws-go/pkg/panel"
	"github.com/rws-panel/rws-go/pkg/rws"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg, err := parseArgs(os.Args[1:], os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var rl *readline.Instance
	var logOut io.Writer = os.Stderr
	if cfg.Interactive {
		var err error
		rl, err = readline.NewEx(&readline.Config{
			Prompt:          "rws> ",
			InterruptPrompt: "^C",
			EOFPrompt:       "exit",
		})
		if err != nil {
			return fmt.Errorf("failed to create readline: %w", err)
		}
		// Log output goes through readline to keep the prompt intact.
		logOut = rl.Stderr()
	}

	level, _ := parseLogLevel(cfg.LogLevel)
	logger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: level}))

	clientCfg := cfg.ClientConfig()
	clientCfg.Logger = logger
	if cfg.ProtocolLog != "" {
		capture, err := rwslog.OpenCapture(cfg.ProtocolLog)
		if err != nil {
			return fmt.Errorf("failed to open protocol log: %w", err)
		}
		defer capture.Close()
		clientCfg.ProtocolLogger = capture
		if level <= slog.LevelDebug {
			clientCfg.ProtocolLogger = rwslog.Tee(capture, rwslog.NewSlogAdapter(logger, slog.LevelDebug))
		}
		logger.Info("protocol capture enabled", "path", cfg.ProtocolLog)
	}

	client, err := rws.NewClient(clientCfg)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	reg := newMetricsRegistry()

	panelCfg := cfg.PanelConfig()
	panelCfg.Logger = logger
	panelCfg.Recorder = client.Recorder()
	panelCfg.Metrics = metrics.New(reg)
	p := panel.New(client, panelCfg)

	logger.Info("rws panel started",
		"controller", client.BaseURL(),
		"session", client.Recorder().SessionID(),
		"interactive", cfg.Interactive)

	var shell *interactive.Shell
	if rl != nil {
		shell = interactive.New(p, rl)
	} else {
		shell = interactive.NewWithWriter(p, os.Stdout)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	if cfg.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           metricsHandler(reg),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			logger.Info("serving metrics", "addr", cfg.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer scancel()
			return srv.Shutdown(sctx)
		})
	}

	for _, ref := range cfg.Watch {
		shell.Execute(gctx, "watch "+ref)
	}

	if rl != nil {
		g.Go(func() error {
			shell.Run(gctx, cancel)
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shell.Interrupt()
		return nil
	})

	runErr := g.Wait()

	logger.Info("shutting down")
	sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer scancel()
	closeErr := errors.Join(
		shell.Close(sctx),
		p.Close(sctx),
		client.Close(sctx),
	)
	if closeErr != nil {
		logger.Warn("shutdown incomplete", "error", closeErr)
	}
	return runErr
}

func newMetricsRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func metricsHandler(reg *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	return mux
}
