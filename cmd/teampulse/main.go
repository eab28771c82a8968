// TeamPulse: team-health MCP server
//
// Computes vibe metrics, Way-of-Work session syntheses, maturity level
// progression and a combined health signal for teams, and serves them to
// any MCP host over stdio.
//
// Usage:
//
//	teampulse serve [flags]   # Start MCP server (stdio transport)
//	teampulse version         # Print the version
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/HendryAvila/teampulse/internal/config"
	"github.com/HendryAvila/teampulse/internal/logging"
	tpserver "github.com/HendryAvila/teampulse/internal/server"
	"github.com/HendryAvila/teampulse/internal/telemetry"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := run(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "--help", "-h", "help":
		printUsage()
		os.Exit(0)
	case "--version", "-v", "version":
		fmt.Printf("teampulse v%s\n", tpserver.Version)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	configPath := fs.String("config", "", "path to a YAML config file (default: $"+config.EnvConfig+")")
	dataDir := fs.String("data-dir", "", "directory holding teampulse.db")
	logLevel := fs.String("log-level", "", "debug, info, warn or error")
	metricsAddr := fs.String("metrics-addr", "", "serve Prometheus /metrics on this address (e.g. :9464)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(config.Path(*configPath))
	if err != nil {
		return err
	}
	if fs.Changed("data-dir") {
		cfg.DataDir = *dataDir
	}
	if fs.Changed("log-level") {
		cfg.LogLevel = *logLevel
	}
	if fs.Changed("metrics-addr") {
		cfg.MetricsAddr = *metricsAddr
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration:\n%w", err)
	}

	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := telemetry.NewMetrics()
	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr, log); err != nil {
				log.Error("metrics listener stopped", zap.Error(err))
			}
		}()
	}

	s, cleanup, err := tpserver.New(cfg, log, metrics)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer cleanup()

	return server.ServeStdio(s)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `TeamPulse v%s — team-health MCP server

Usage:
  teampulse serve [flags]   Start the MCP server (stdio transport)
  teampulse version         Print the version

Flags for serve:
  --config string         YAML config file (default: $%s)
  --data-dir string       Directory holding teampulse.db (default: ~/.teampulse)
  --log-level string      debug, info, warn or error (default: info)
  --metrics-addr string   Serve Prometheus /metrics on this address

Configuration:
  Add to your AI tool's MCP config:

  {
    "mcpServers": {
      "teampulse": {
        "command": "teampulse",
        "args": ["serve"]
      }
    }
  }
`, tpserver.Version, config.EnvConfig)
}
