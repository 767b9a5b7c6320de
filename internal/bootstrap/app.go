package bootstrap

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// defaultConfigPath mirrors the teacher's /etc/<daemon>/config.yaml
// convention, adapted to Ghost's name.
const defaultConfigPath = "/etc/ghost/config.yaml"

// shutdownGrace bounds how long Shutdown may spend draining managed
// processes and flushing the Store before the process exits anyway.
const shutdownGrace = 30 * time.Second

// Run is cmd/ghostd's entire body: parse flags, initialize services via
// InitializeServices, and run until a termination signal arrives.
func Run() int {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	showVersion := flag.Bool("version", false, "show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("ghostd %s\n", Version)
		return 0
	}

	if err := RunWithConfig(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

// RunWithConfig executes the daemon's main loop against a specific
// config path. Exported for tests that want to bypass flag parsing.
func RunWithConfig(configPath string) error {
	services, err := InitializeServices(configPath)
	if err != nil {
		return fmt.Errorf("initializing services: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := services.Start(ctx); err != nil {
		services.Shutdown(ctx)
		return fmt.Errorf("starting services: %w", err)
	}
	if services.Logger != nil {
		services.Logger.Info("bootstrap", "ghost daemon started", map[string]any{
			"configPath": configPath, "version": services.Version,
		})
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	sig := <-sigCh
	if services.Logger != nil {
		services.Logger.Info("bootstrap", "received shutdown signal", map[string]any{"signal": sig.String()})
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer shutdownCancel()
	services.Shutdown(shutdownCtx)
	return nil
}
