// Package main is the entry point for the headless sysinfo agent.
// It loads configuration, starts the sampler, and serves snapshots over
// HTTP (pull) and WebSocket (push). On Windows it can also run as a service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/Guliveer/vitalis/sysinfo/internal/collector"
	"github.com/Guliveer/vitalis/sysinfo/internal/config"
	"github.com/Guliveer/vitalis/sysinfo/internal/host"
	"github.com/Guliveer/vitalis/sysinfo/internal/logging"
	"github.com/Guliveer/vitalis/sysinfo/internal/server"
	"github.com/Guliveer/vitalis/sysinfo/internal/service"
)

var (
	// version is set at build time via -ldflags.
	version = "dev"

	configPath  = flag.String("config", config.Locate(), "Path to configuration file")
	writeConfig = flag.String("write-config", "", "Write the effective configuration to this path and exit")
	showVersion = flag.Bool("version", false, "Show version and exit")
	install     = flag.Bool("install", false, "Register the agent as a Windows service and exit")
	uninstall   = flag.Bool("uninstall", false, "Remove the Windows service registration and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("sysinfo-agent %s\n", version)
		os.Exit(0)
	}

	if *install || *uninstall {
		if err := manageService(*install, *configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Service setup failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	if *writeConfig != "" {
		if err := config.WriteConfig(cfg, *writeConfig); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Configuration written to %s\n", *writeConfig)
		return
	}

	logger, cleanup, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	logger.Info("Starting sysinfo agent",
		zap.String("version", version),
		zap.String("config", *configPath),
		zap.String("listen", cfg.Server.Listen))

	if service.IsWindowsService() {
		logger.Info("Running as Windows service")
		svc := service.New(logger, func(ctx context.Context) {
			if err := runAgent(ctx, cfg, logger); err != nil {
				logger.Error("Agent failed", zap.Error(err))
			}
		})
		if err := svc.Run(); err != nil {
			logger.Fatal("Service failed", zap.Error(err))
		}
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Info("Received signal, shutting down",
			zap.String("signal", sig.String()))
		cancel()
	}()

	if err := runAgent(ctx, cfg, logger); err != nil {
		if errors.Is(err, collector.ErrUnavailable) {
			logger.Fatal("Host metrics are not available on this system", zap.Error(err))
		}
		logger.Fatal("Agent failed", zap.Error(err))
	}
	logger.Info("Agent stopped")
}

// runAgent builds the pipeline, starts the sampler and serves until the
// context is cancelled.
func runAgent(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	h, err := host.New(ctx, cfg, logger)
	if err != nil {
		return err
	}

	if err := h.Sampler.Start(ctx); err != nil {
		return err
	}
	defer h.Sampler.Stop()

	logger.Info("Agent running",
		zap.Duration("interval", cfg.Collection.Interval.Duration),
		zap.String("cadence", cfg.Collection.Cadence),
		zap.Bool("processes", cfg.Collection.Processes),
		zap.Bool("auth", cfg.Server.Token != ""))

	srv := server.New(h.Distributor, h.Sampler, cfg.Server.Token, logger)
	return srv.ListenAndServe(ctx, cfg.Server.Listen)
}

// manageService installs or removes the Windows service registration.
func manageService(install bool, cfgPath string) error {
	if !install {
		if err := service.Uninstall(); err != nil {
			return err
		}
		fmt.Println("Service removed")
		return nil
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolving executable path: %w", err)
	}
	args, err := serviceArgs(cfgPath)
	if err != nil {
		return err
	}
	if err := service.Install(exe, args...); err != nil {
		return err
	}
	fmt.Printf("Service installed: %s %s\n", exe, strings.Join(args, " "))
	return nil
}

// serviceArgs builds the arguments the SCM passes on every start. The SCM
// starts services in the system directory, so the config path is made absolute.
func serviceArgs(cfgPath string) ([]string, error) {
	if cfgPath == "" {
		return nil, nil
	}
	abs, err := filepath.Abs(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("resolving config path: %w", err)
	}
	return []string{"-config", abs}, nil
}
