package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/zeusync/voxphys/internal/config"
	"github.com/zeusync/voxphys/internal/injector"
)

func main() {
	path := flag.String("config", "", "path to a YAML or JSON config file")
	ticks := flag.Uint64("ticks", 0, "stop after this many ticks, overriding the config")
	telemetry := flag.Bool("telemetry", false, "serve the websocket telemetry stream")
	flag.Parse()

	if err := run(*path, *ticks, *telemetry); err != nil {
		fmt.Fprintln(os.Stderr, "voxphys:", err)
		os.Exit(1)
	}
}

func run(path string, ticks uint64, telemetry bool) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if ticks > 0 {
		cfg.Simulation.Ticks = ticks
	}
	if telemetry {
		cfg.Telemetry.Enabled = true
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := injector.InitializeApp(cfg)
	if err != nil {
		return err
	}
	return a.Run(ctx)
}
