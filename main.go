// Webhawk is a single-aircraft flight simulator rendered with one
// full-screen SDF raymarching shader.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"

	"github.com/mozabes/Webhawk/internal/config"
	"github.com/mozabes/Webhawk/internal/gpu"
	"github.com/mozabes/Webhawk/internal/log"
	"github.com/mozabes/Webhawk/internal/platform"
	"github.com/mozabes/Webhawk/internal/sim"
)

var configDir = flag.String("config", ".", "Directory containing webhawk.{yaml,json,toml} and .env")

func init() {
	// GLFW and OpenGL calls must come from the main thread.
	runtime.LockOSThread()
}

func main() {
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Webhawk: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(*configDir)
	if err != nil {
		return err
	}

	lg := log.New(cfg.Log.Level, cfg.Log.Dir)
	if cfg.File != "" {
		lg.Infof("Loaded configuration from %s", cfg.File)
	}

	controls := sim.NewControls()
	window, err := platform.New(platform.Config{
		Width:  cfg.Window.Width,
		Height: cfg.Window.Height,
		Title:  cfg.Window.Title,
		VSync:  cfg.Window.VSync,
	}, controls, lg)
	if err != nil {
		lg.Errorf("%v", err)
		return err
	}
	defer window.Dispose()

	if err := gpu.Init(lg); err != nil {
		lg.Errorf("%v", err)
		return err
	}
	backend, err := gpu.NewBackend(lg)
	if err != nil {
		lg.Errorf("%v", err)
		return err
	}

	metrics, err := sim.NewFrameMetrics(nil)
	if err != nil {
		backend.Dispose()
		return err
	}

	s := sim.NewSimulator(sim.Options{
		Flight:   cfg.FlightModel(),
		Camera:   cfg.ChaseCamera(),
		Loop:     cfg.LoopConfig(),
		Backend:  backend,
		Surface:  window,
		Controls: controls,
		Metrics:  metrics,
		Logger:   lg,
	})
	// Close runs before window.Dispose so the GL context is still current
	// when the backend releases its objects.
	defer s.Close()

	printControls()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	hud := newStatusLine(s, window, cfg.HUD.Interval, cfg.Telemetry.Interval, os.Stdout)
	if err := s.Run(ctx, hud.wrap(window)); err != nil && !errors.Is(err, context.Canceled) {
		lg.Errorf("%v", err)
		return err
	}
	fmt.Println()
	return nil
}

func printControls() {
	fmt.Println("=== WEBHAWK ===")
	fmt.Println("FLIGHT CONTROLS:")
	fmt.Println("  W/S or Up/Down    - Pitch up/down")
	fmt.Println("  A/D or Left/Right - Yaw left/right")
	fmt.Println("  Q/E               - Roll left/right")
	fmt.Println("  Shift/Ctrl        - Throttle up/down")
	fmt.Println("  Esc               - Quit")
	fmt.Println()
}
