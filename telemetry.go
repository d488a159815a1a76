package main

import (
	"fmt"
	"io"
	"time"

	"github.com/mozabes/Webhawk/internal/sim"
)

type statusSetter interface {
	SetStatus(s string)
}

// statusLine pulls snapshots at its own cadence: the window title is
// refreshed every hudInterval and a telemetry line is written to out every
// telemetryInterval.
type statusLine struct {
	sim   *sim.Simulator
	title statusSetter
	out   io.Writer
	now   func() time.Time

	hudInterval, telemetryInterval time.Duration
	lastHUD, lastTelemetry         time.Time
}

func newStatusLine(s *sim.Simulator, title statusSetter, hud, telemetry time.Duration, out io.Writer) *statusLine {
	now := time.Now()
	return &statusLine{
		sim:               s,
		title:             title,
		out:               out,
		now:               time.Now,
		hudInterval:       hud,
		telemetryInterval: telemetry,
		lastHUD:           now,
		lastTelemetry:     now,
	}
}

func (sl *statusLine) update() {
	now := sl.now()
	if now.Sub(sl.lastHUD) >= sl.hudInterval {
		sl.lastHUD = now
		sl.title.SetStatus(sl.sim.Snapshot().HUD())
	}
	if now.Sub(sl.lastTelemetry) >= sl.telemetryInterval {
		sl.lastTelemetry = now
		fmt.Fprint(sl.out, "\r\033[K"+telemetryLine(sl.sim.Snapshot()))
	}
}

func telemetryLine(s sim.Snapshot) string {
	p := s.Aircraft.Position
	return fmt.Sprintf("TELEMETRY | T+%.1fs | Alt: %.1fm | Speed: %.1fm/s | Throttle: %d%% | Bank: %.0f° | Pos: (%.0f, %.0f, %.0f) | %d FPS",
		s.Time, s.Altitude, s.Speed, s.ThrottlePercent(), sim.RadToDeg(sim.BankAngle(s.Aircraft.Rotation)),
		p.X, p.Y, p.Z, s.FPS)
}

// wrap returns a Display that refreshes the status after every presented
// frame.
func (sl *statusLine) wrap(d sim.Display) sim.Display {
	return statusDisplay{Display: d, sl: sl}
}

type statusDisplay struct {
	sim.Display
	sl *statusLine
}

func (d statusDisplay) PostRender() {
	d.Display.PostRender()
	d.sl.update()
}
