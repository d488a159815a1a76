package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mozabes/Webhawk/internal/log"
)

var ErrClosed = errors.New("simulator closed")

const (
	metersPerSecondToKnots = 1.944
	metersToFeet           = 3.281
)

type LoopConfig struct {
	// MaxFrameDelta bounds the step length after a stall so that the
	// integrator never sees a huge dt.
	MaxFrameDelta time.Duration
	// FPSWindow is the span over which frames are counted for the FPS
	// readout.
	FPSWindow time.Duration
}

func DefaultLoopConfig() LoopConfig {
	return LoopConfig{
		MaxFrameDelta: 100 * time.Millisecond,
		FPSWindow:     time.Second,
	}
}

// frameClock tracks wall-clock deltas, simulated time and the frame rate.
type frameClock struct {
	last    time.Time
	started bool

	elapsed    float64 // simulated seconds
	frames     int
	windowTime float64
	fps        int
}

// delta returns the clamped step since the previous call. The first call
// returns 0.
func (c *frameClock) delta(now time.Time, limit time.Duration) (dt float64, clamped bool) {
	if !c.started {
		c.started = true
		c.last = now
		return 0, false
	}
	d := now.Sub(c.last)
	c.last = now
	return clampDelta(d.Seconds(), limit)
}

func clampDelta(dt float64, limit time.Duration) (float64, bool) {
	switch {
	case math.IsNaN(dt), dt < 0:
		return 0, false
	case dt > limit.Seconds():
		return limit.Seconds(), true
	}
	return dt, false
}

// advance accumulates dt and publishes the frame count once a full window
// has elapsed.
func (c *frameClock) advance(dt float64, window time.Duration) {
	c.elapsed += dt
	c.frames++
	c.windowTime += dt
	if c.windowTime >= window.Seconds() {
		c.fps = c.frames
		c.frames = 0
		c.windowTime = 0
	}
}

// Snapshot is a copy of the simulation state as of the last completed tick.
type Snapshot struct {
	Aircraft AircraftState
	Camera   CameraState
	Time     float64 // seconds of simulated time
	FPS      int
	Speed    float64 // |velocity|, units/s
	Altitude float64 // aircraft Y
}

func (s Snapshot) SpeedKnots() float64   { return s.Speed * metersPerSecondToKnots }
func (s Snapshot) AltitudeFeet() float64 { return s.Altitude * metersToFeet }
func (s Snapshot) ThrottlePercent() int  { return int(s.Aircraft.Throttle*100 + 0.5) }

// HUD formats the snapshot as a single heads-up display line.
func (s Snapshot) HUD() string {
	return fmt.Sprintf("SPD %4.0f KTS | ALT %5.0f FT | THR %3d%% | %d FPS",
		s.SpeedKnots(), s.AltitudeFeet(), s.ThrottlePercent(), s.FPS)
}

func (s Snapshot) LogValue() slog.Value {
	p := s.Aircraft.Position
	return slog.GroupValue(
		slog.Float64("time", s.Time),
		slog.Int("fps", s.FPS),
		slog.Float64("speed", s.Speed),
		slog.Float64("altitude", s.Altitude),
		slog.Float64("throttle", s.Aircraft.Throttle),
		slog.Float64("bank", BankAngle(s.Aircraft.Rotation)),
		slog.Group("position",
			slog.Float64("x", p.X),
			slog.Float64("y", p.Y),
			slog.Float64("z", p.Z)))
}

// Display is the windowing side of the loop.
type Display interface {
	ShouldClose() bool
	// PostRender presents the frame that was just drawn.
	PostRender()
	ProcessEvents()
}

// Options configures a Simulator. Zero-valued model fields are replaced by
// their defaults; a nil Backend uses a NullBackend.
type Options struct {
	Flight   FlightModel
	Camera   ChaseCamera
	Loop     LoopConfig
	Backend  Backend
	Surface  Surface
	Controls *Controls
	Metrics  *FrameMetrics
	Logger   *log.Logger
}

// Simulator drives the per-frame pipeline: integrator, camera, renderer.
// Tick and Step must be called from a single goroutine; Snapshot may be
// called from any goroutine.
type Simulator struct {
	flight FlightModel
	chase  ChaseCamera
	loop   LoopConfig

	renderer *Renderer
	controls *Controls
	metrics  *FrameMetrics
	lg       *log.Logger

	// tickMu is held for the duration of a tick so that Close can wait for
	// an in-flight frame before releasing the GPU.
	tickMu   sync.Mutex
	clock    frameClock
	aircraft AircraftState
	camera   CameraState

	mu   sync.RWMutex
	snap Snapshot

	closed    atomic.Bool
	closeOnce sync.Once
}

func NewSimulator(opts Options) *Simulator {
	if opts.Flight == (FlightModel{}) {
		opts.Flight = DefaultFlightModel()
	}
	if opts.Camera == (ChaseCamera{}) {
		opts.Camera = DefaultChaseCamera()
	}
	if opts.Loop.MaxFrameDelta <= 0 {
		opts.Loop.MaxFrameDelta = DefaultLoopConfig().MaxFrameDelta
	}
	if opts.Loop.FPSWindow <= 0 {
		opts.Loop.FPSWindow = DefaultLoopConfig().FPSWindow
	}
	if opts.Backend == nil {
		opts.Backend = &NullBackend{}
	}
	if opts.Controls == nil {
		opts.Controls = NewControls()
	}

	s := &Simulator{
		flight:   opts.Flight,
		chase:    opts.Camera,
		loop:     opts.Loop,
		renderer: NewRenderer(opts.Backend, opts.Surface),
		controls: opts.Controls,
		metrics:  opts.Metrics,
		lg:       opts.Logger,
	}
	s.aircraft = s.flight.NewAircraft()
	s.camera = s.chase.Initial(s.aircraft)
	s.publish()

	s.lg.Info("simulator created", slog.Any("snapshot", s.snap))
	return s
}

func (s *Simulator) Controls() *Controls { return s.controls }

// Tick measures the wall-clock time since the previous tick, clamps it and
// steps the simulation. The first tick has zero length.
func (s *Simulator) Tick(now time.Time) error {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()
	if s.closed.Load() {
		return ErrClosed
	}

	dt, clamped := s.clock.delta(now, s.loop.MaxFrameDelta)
	if clamped {
		s.lg.Debugf("frame delta clamped to %s", s.loop.MaxFrameDelta)
	}
	s.step(dt, clamped)
	return nil
}

// Step advances the simulation by dt seconds regardless of wall-clock time.
// dt is clamped exactly as in Tick.
func (s *Simulator) Step(dt float64) error {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()
	if s.closed.Load() {
		return ErrClosed
	}

	dt, clamped := clampDelta(dt, s.loop.MaxFrameDelta)
	s.step(dt, clamped)
	return nil
}

func (s *Simulator) step(dt float64, clamped bool) {
	s.clock.advance(dt, s.loop.FPSWindow)

	input := s.controls.State()
	s.aircraft = s.flight.Advance(s.aircraft, input, dt)
	s.camera = s.chase.Advance(s.camera, s.aircraft, dt)

	before := s.renderer.Stats().BytesUploaded
	s.renderer.Render(s.camera, s.aircraft, s.clock.elapsed)
	uploaded := s.renderer.Stats().BytesUploaded - before

	s.metrics.RecordFrame(dt, clamped, uploaded, s.clock.fps)
	s.publish()
}

func (s *Simulator) publish() {
	snap := Snapshot{
		Aircraft: s.aircraft,
		Camera:   s.camera,
		Time:     s.clock.elapsed,
		FPS:      s.clock.fps,
		Speed:    s.aircraft.Velocity.Length(),
		Altitude: s.aircraft.Position.Y,
	}
	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
}

// Snapshot returns a copy of the state as of the last completed tick.
func (s *Simulator) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// RendererStats returns the renderer counters, waiting for any tick in
// progress.
func (s *Simulator) RendererStats() RendererStats {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()
	return s.renderer.Stats()
}

// Run ticks, presents and polls events until ctx is done or the display
// asks to close. It returns nil when the loop ends because of the display
// or Close.
func (s *Simulator) Run(ctx context.Context, display Display) error {
	if s.closed.Load() {
		return ErrClosed
	}

	for !display.ShouldClose() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.Tick(time.Now()); err != nil {
			if errors.Is(err, ErrClosed) {
				return nil
			}
			return err
		}
		display.PostRender()
		display.ProcessEvents()
	}
	return nil
}

// RunHeadless performs frames fixed steps of dt seconds and returns the
// number performed, which is less than frames only if the simulator was
// closed.
func (s *Simulator) RunHeadless(frames int, dt float64) int {
	performed := 0
	for performed < frames {
		if err := s.Step(dt); err != nil {
			break
		}
		performed++
	}
	return performed
}

// Close stops ticking, releases the GPU resources and detaches input, in
// that order. Only the first call has any effect.
func (s *Simulator) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)

		s.tickMu.Lock()
		s.renderer.Dispose()
		stats := s.renderer.Stats()
		s.tickMu.Unlock()

		s.controls.Detach()

		s.lg.Info("simulator closed",
			slog.Any("renderer", stats),
			slog.Any("snapshot", s.Snapshot()))
	})
}

func (s *Simulator) Closed() bool { return s.closed.Load() }
