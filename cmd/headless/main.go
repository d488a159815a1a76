// headless runs the flight simulation without a window, for CI and
// benchmarking. Controls given with -hold stay pressed for the whole run.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mozabes/Webhawk/internal/config"
	"github.com/mozabes/Webhawk/internal/log"
	"github.com/mozabes/Webhawk/internal/sim"
)

var (
	configDir = flag.String("config", ".", "Directory containing webhawk.{yaml,json,toml} and .env")
	frames    = flag.Int("frames", 600, "Number of fixed steps to run")
	fps       = flag.Int("fps", 60, "Fixed steps per simulated second")
	duration  = flag.Duration("duration", 0, "Run in real time for this long instead of a fixed number of steps")
	hold      = flag.String("hold", "", "Comma-separated controls held for the run, e.g. pitchup,throttleup")
	observe   = flag.Duration("observe", 0, "Snapshot print interval (default hud.interval)")
)

type runConfig struct {
	Frames   int
	FPS      int
	Duration time.Duration
	Observe  time.Duration
}

func main() {
	flag.Parse()

	if err := runMain(); err != nil {
		fmt.Fprintf(os.Stderr, "headless: %v\n", err)
		os.Exit(1)
	}
}

func runMain() error {
	cfg, err := config.Load(*configDir)
	if err != nil {
		return err
	}
	held, err := parseHold(*hold)
	if err != nil {
		return fmt.Errorf("-hold: %w", err)
	}

	lg := log.New(cfg.Log.Level, cfg.Log.Dir)

	rc := runConfig{Frames: *frames, FPS: *fps, Duration: *duration, Observe: *observe}
	if rc.Observe <= 0 {
		rc.Observe = cfg.HUD.Interval
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return execute(ctx, cfg, rc, held, lg, os.Stdout)
}

// execute builds a simulator from cfg, runs it with the held controls and
// prints a summary to out. The simulator is closed on every return path.
func execute(ctx context.Context, cfg *config.Config, rc runConfig, held []sim.Control, lg *log.Logger, out io.Writer) error {
	metrics, err := sim.NewFrameMetrics(nil)
	if err != nil {
		lg.Errorf("%v", err)
		return err
	}

	controls := sim.NewControls()
	for _, c := range held {
		controls.Set(c, true)
	}

	s := sim.NewSimulator(sim.Options{
		Flight:   cfg.FlightModel(),
		Camera:   cfg.ChaseCamera(),
		Loop:     cfg.LoopConfig(),
		Surface:  sim.FixedSurface{W: cfg.Window.Width, H: cfg.Window.Height},
		Controls: controls,
		Metrics:  metrics,
		Logger:   lg,
	})
	defer s.Close()

	start := time.Now()
	performed, err := run(ctx, s, rc, out)
	if err != nil {
		lg.Errorf("%v", err)
		return err
	}

	snap := s.Snapshot()
	p := snap.Aircraft.Position
	lg.Info("headless run complete",
		slog.Int("frames", performed),
		slog.Duration("wall", time.Since(start)),
		slog.Any("snapshot", snap),
		slog.Any("renderer", s.RendererStats()))
	fmt.Fprintf(out, "Completed %d frames in %s. pos=(%.2f, %.2f, %.2f) bank=%.1f°\n%s\n",
		performed, time.Since(start).Round(time.Millisecond), p.X, p.Y, p.Z,
		sim.RadToDeg(sim.BankAngle(snap.Aircraft.Rotation)), snap.HUD())
	return nil
}

// parseHold turns "pitchup,throttleup" into controls.
func parseHold(s string) ([]sim.Control, error) {
	var controls []sim.Control
	for _, name := range strings.Split(s, ",") {
		if strings.TrimSpace(name) == "" {
			continue
		}
		c, err := sim.ParseControl(name)
		if err != nil {
			return nil, err
		}
		controls = append(controls, c)
	}
	return controls, nil
}

// run steps the simulator while a second goroutine prints snapshots to out.
// It returns the number of frames performed.
func run(ctx context.Context, s *sim.Simulator, rc runConfig, out io.Writer) (int, error) {
	if rc.FPS <= 0 {
		return 0, errors.New("fps must be positive")
	}
	if rc.Observe <= 0 {
		rc.Observe = 100 * time.Millisecond
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	eg, gctx := errgroup.WithContext(ctx)

	performed := 0
	eg.Go(func() error {
		defer cancel()

		step := time.Second / time.Duration(rc.FPS)
		if rc.Duration <= 0 {
			for performed < rc.Frames {
				if gctx.Err() != nil {
					return nil
				}
				if err := s.Step(step.Seconds()); err != nil {
					return err
				}
				performed++
			}
			return nil
		}

		ticker := time.NewTicker(step)
		defer ticker.Stop()
		deadline := time.Now().Add(rc.Duration)
		for {
			select {
			case <-gctx.Done():
				return nil
			case now := <-ticker.C:
				if now.After(deadline) {
					return nil
				}
				if err := s.Tick(now); err != nil {
					return err
				}
				performed++
			}
		}
	})

	eg.Go(func() error {
		ticker := time.NewTicker(rc.Observe)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if _, err := fmt.Fprintln(out, s.Snapshot().HUD()); err != nil {
					return fmt.Errorf("writing snapshot: %w", err)
				}
			}
		}
	})

	err := eg.Wait()
	return performed, err
}
