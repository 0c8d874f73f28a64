package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rws-panel/rws-go/pkg/mastership"
	"github.com/rws-panel/rws-go/pkg/motion"
	"github.com/rws-panel/rws-go/pkg/panel"
	"github.com/rws-panel/rws-go/pkg/rws"
)

// Config holds the rws-panel configuration. Values come from an optional
// YAML file; flags given on the command line take precedence.
type Config struct {
	URL      string        `yaml:"url"`
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	Timeout  time.Duration `yaml:"timeout"`
	Priority int           `yaml:"priority"`

	RaiseInitial bool `yaml:"raise_initial"`
	Interactive  bool `yaml:"interactive"`

	LogLevel    string `yaml:"log_level"`
	ProtocolLog string `yaml:"protocol_log"`
	MetricsAddr string `yaml:"metrics_addr"`

	Mastership MastershipConfig `yaml:"mastership"`
	Jog        JogConfig        `yaml:"jog"`

	// Watch lists variables (task/module/name) subscribed at startup.
	Watch []string `yaml:"watch"`
}

// MastershipConfig tunes mastership negotiation.
type MastershipConfig struct {
	ReleaseTimeout time.Duration `yaml:"release_timeout"`
	PollInterval   time.Duration `yaml:"poll_interval"`
	MaxPolls       int           `yaml:"max_polls"`
}

// JogConfig tunes the jogging loop.
type JogConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	client := rws.DefaultConfig("https://192.168.125.1")
	ms := mastership.DefaultConfig()
	return Config{
		URL:          client.BaseURL,
		Username:     client.Username,
		Password:     client.Password,
		Timeout:      client.Timeout,
		Priority:     client.SubscriptionPriority,
		RaiseInitial: true,
		Interactive:  true,
		LogLevel:     "info",
		Mastership: MastershipConfig{
			ReleaseTimeout: ms.ReleaseTimeout,
			PollInterval:   ms.Negotiator.PollInterval,
			MaxPolls:       ms.Negotiator.MaxPolls,
		},
		Jog: JogConfig{Interval: motion.DefaultInterval},
	}
}

// LoadConfigFile reads a YAML file on top of cfg. Keys missing from the
// file keep their current values.
func LoadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// Validate checks the configuration for values the client cannot use.
func (c *Config) Validate() error {
	if c.URL == "" {
		return errors.New("controller url is required")
	}
	if c.Priority < 0 || c.Priority > 2 {
		return fmt.Errorf("priority %d out of range (0-2)", c.Priority)
	}
	if _, err := parseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ClientConfig builds the rws client configuration.
func (c *Config) ClientConfig() rws.Config {
	cc := rws.DefaultConfig(c.URL)
	cc.Username = c.Username
	cc.Password = c.Password
	if c.Timeout > 0 {
		cc.Timeout = c.Timeout
	}
	cc.SubscriptionPriority = c.Priority
	return cc
}

// PanelConfig builds the panel configuration.
func (c *Config) PanelConfig() panel.Config {
	pc := panel.DefaultConfig()
	pc.RaiseInitial = c.RaiseInitial
	if c.Mastership.ReleaseTimeout > 0 {
		pc.Mastership.ReleaseTimeout = c.Mastership.ReleaseTimeout
	}
	if c.Mastership.PollInterval > 0 {
		pc.Mastership.Negotiator.PollInterval = c.Mastership.PollInterval
	}
	if c.Mastership.MaxPolls > 0 {
		pc.Mastership.Negotiator.MaxPolls = c.Mastership.MaxPolls
	}
	if c.Jog.Interval > 0 {
		pc.Jog.Interval = c.Jog.Interval
	}
	return pc
}

// parseArgs builds the configuration from defaults, the -config file and
// explicitly set flags, in that order.
func parseArgs(args []string, stderr io.Writer) (Config, error) {
	cfg := DefaultConfig()
	flagged := cfg

	fs := flag.NewFlagSet("rws-panel", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "rws-panel - interactive RWS controller panel\n\nUsage:\n  rws-panel [flags]\n\nFlags:\n")
		fs.PrintDefaults()
	}

	configFile := fs.String("config", "", "Configuration file path (YAML)")
	fs.StringVar(&flagged.URL, "url", cfg.URL, "Controller base URL")
	fs.StringVar(&flagged.Username, "user", cfg.Username, "Controller user name")
	fs.StringVar(&flagged.Password, "password", cfg.Password, "Controller password")
	fs.DurationVar(&flagged.Timeout, "timeout", cfg.Timeout, "Per-request timeout")
	fs.IntVar(&flagged.Priority, "priority", cfg.Priority, "Subscription priority (0 low, 1 medium, 2 high)")
	fs.BoolVar(&flagged.RaiseInitial, "raise-initial", cfg.RaiseInitial, "Publish current values when subscribing")
	fs.BoolVar(&flagged.Interactive, "interactive", cfg.Interactive, "Enable interactive command mode")
	fs.StringVar(&flagged.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	fs.StringVar(&flagged.ProtocolLog, "protocol-log", cfg.ProtocolLog, "Write protocol capture to this .rlog file")
	fs.StringVar(&flagged.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "Serve Prometheus metrics on this address")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if fs.NArg() > 0 {
		return Config{}, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	if *configFile != "" {
		if err := LoadConfigFile(*configFile, &cfg); err != nil {
			return Config{}, err
		}
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "url":
			cfg.URL = flagged.URL
		case "user":
			cfg.Username = flagged.Username
		case "password":
			cfg.Password = flagged.Password
		case "timeout":
			cfg.Timeout = flagged.Timeout
		case "priority":
			cfg.Priority = flagged.Priority
		case "raise-initial":
			cfg.RaiseInitial = flagged.RaiseInitial
		case "interactive":
			cfg.Interactive = flagged.Interactive
		case "log-level":
			cfg.LogLevel = flagged.LogLevel
		case "protocol-log":
			cfg.ProtocolLog = flagged.ProtocolLog
		case "metrics-addr":
			cfg.MetricsAddr = flagged.MetricsAddr
		}
	})

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level: %s (use: debug, info, warn, error)", s)
	}
}
