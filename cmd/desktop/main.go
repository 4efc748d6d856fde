// Package main is the desktop host. It runs the sampler inside a wails
// window and pushes each snapshot to the frontend as an event.
package main

import (
	"context"
	"embed"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"go.uber.org/zap"

	"github.com/Guliveer/vitalis/sysinfo/internal/collector"
	"github.com/Guliveer/vitalis/sysinfo/internal/config"
	"github.com/Guliveer/vitalis/sysinfo/internal/desktop"
	"github.com/Guliveer/vitalis/sysinfo/internal/host"
	"github.com/Guliveer/vitalis/sysinfo/internal/logging"
)

//go:embed all:frontend/dist
var assets embed.FS

var (
	// version is set at build time via -ldflags.
	version = "dev"

	configPath = flag.String("config", config.Locate(), "Path to configuration file")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger, cleanup, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	h, err := host.New(context.Background(), cfg, logger)
	if err != nil {
		if errors.Is(err, collector.ErrUnavailable) {
			logger.Fatal("Host metrics are not available on this system", zap.Error(err))
		}
		logger.Fatal("Startup failed", zap.Error(err))
	}

	app := desktop.NewApp(h.Distributor, h.Sampler, logger)

	logger.Info("Starting sysinfo desktop", zap.String("version", version))
	err = wails.Run(&options.App{
		Title:  "System Info",
		Width:  960,
		Height: 720,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		OnStartup:  app.Startup,
		OnShutdown: app.Shutdown,
		Bind: []interface{}{
			app,
		},
	})
	if err != nil {
		logger.Error("Desktop app failed", zap.Error(err))
	}
}
