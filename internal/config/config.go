// Package config loads Webhawk settings from defaults, an optional
// webhawk.{yaml,json,toml} file, a .env file and WEBHAWK_* environment
// variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/mozabes/Webhawk/internal/sim"
)

const (
	configName = "webhawk"
	envPrefix  = "WEBHAWK"
)

type LogConfig struct {
	Level string `mapstructure:"level"`
	Dir   string `mapstructure:"dir"`
}

type WindowConfig struct {
	Width  int    `mapstructure:"width"`
	Height int    `mapstructure:"height"`
	Title  string `mapstructure:"title"`
	VSync  bool   `mapstructure:"vsync"`
}

type LoopConfig struct {
	MaxFrameDelta time.Duration `mapstructure:"maxFrameDelta"`
	FPSWindow     time.Duration `mapstructure:"fpsWindow"`
}

type SpawnConfig struct {
	X          float64 `mapstructure:"x"`
	Y          float64 `mapstructure:"y"`
	Z          float64 `mapstructure:"z"`
	HeadingDeg float64 `mapstructure:"headingDeg"`
	Throttle   float64 `mapstructure:"throttle"`
}

// FlightConfig holds the flight model constants. Rates are in rad/s.
type FlightConfig struct {
	PitchRate      float64     `mapstructure:"pitchRate"`
	YawRate        float64     `mapstructure:"yawRate"`
	RollRate       float64     `mapstructure:"rollRate"`
	MinSpeed       float64     `mapstructure:"minSpeed"`
	MaxSpeed       float64     `mapstructure:"maxSpeed"`
	ThrottleAccel  float64     `mapstructure:"throttleAccel"`
	RollDamping    float64     `mapstructure:"rollDamping"`
	AutoBank       bool        `mapstructure:"autoBank"`
	AutoBankFactor float64     `mapstructure:"autoBankFactor"`
	MaxAutoBankDeg float64     `mapstructure:"maxAutoBankDeg"`
	Spawn          SpawnConfig `mapstructure:"spawn"`
}

type CameraConfig struct {
	Distance   float64 `mapstructure:"distance"`
	Height     float64 `mapstructure:"height"`
	LookAhead  float64 `mapstructure:"lookAhead"`
	Smoothing  float64 `mapstructure:"smoothing"`
	TargetLead float64 `mapstructure:"targetLead"`
	UpLag      float64 `mapstructure:"upLag"`
	UpEpsilon  float64 `mapstructure:"upEpsilon"`
	FOVDeg     float64 `mapstructure:"fovDeg"`
	Near       float64 `mapstructure:"near"`
	Far        float64 `mapstructure:"far"`
}

type IntervalConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

type Config struct {
	Log       LogConfig      `mapstructure:"log"`
	Window    WindowConfig   `mapstructure:"window"`
	Loop      LoopConfig     `mapstructure:"loop"`
	Flight    FlightConfig   `mapstructure:"flight"`
	Camera    CameraConfig   `mapstructure:"camera"`
	HUD       IntervalConfig `mapstructure:"hud"`
	Telemetry IntervalConfig `mapstructure:"telemetry"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.dir", "")

	v.SetDefault("window.width", 1280)
	v.SetDefault("window.height", 720)
	v.SetDefault("window.title", "Webhawk")
	v.SetDefault("window.vsync", true)

	loop := sim.DefaultLoopConfig()
	v.SetDefault("loop.maxFrameDelta", loop.MaxFrameDelta.String())
	v.SetDefault("loop.fpsWindow", loop.FPSWindow.String())

	fm := sim.DefaultFlightModel()
	v.SetDefault("flight.pitchRate", fm.PitchRate)
	v.SetDefault("flight.yawRate", fm.YawRate)
	v.SetDefault("flight.rollRate", fm.RollRate)
	v.SetDefault("flight.minSpeed", fm.MinSpeed)
	v.SetDefault("flight.maxSpeed", fm.MaxSpeed)
	v.SetDefault("flight.throttleAccel", fm.ThrottleAccel)
	v.SetDefault("flight.rollDamping", fm.RollDamping)
	v.SetDefault("flight.autoBank", fm.AutoBank)
	v.SetDefault("flight.autoBankFactor", fm.AutoBankFactor)
	v.SetDefault("flight.maxAutoBankDeg", math.Round(sim.RadToDeg(fm.MaxAutoBank)))
	v.SetDefault("flight.spawn.x", fm.SpawnPosition.X)
	v.SetDefault("flight.spawn.y", fm.SpawnPosition.Y)
	v.SetDefault("flight.spawn.z", fm.SpawnPosition.Z)
	v.SetDefault("flight.spawn.headingDeg", sim.RadToDeg(fm.SpawnHeading))
	v.SetDefault("flight.spawn.throttle", fm.SpawnThrottle)

	cc := sim.DefaultChaseCamera()
	v.SetDefault("camera.distance", cc.Distance)
	v.SetDefault("camera.height", cc.Height)
	v.SetDefault("camera.lookAhead", cc.LookAhead)
	v.SetDefault("camera.smoothing", cc.Smoothing)
	v.SetDefault("camera.targetLead", cc.TargetLead)
	v.SetDefault("camera.upLag", cc.UpLag)
	v.SetDefault("camera.upEpsilon", cc.UpEpsilon)
	v.SetDefault("camera.fovDeg", math.Round(sim.RadToDeg(cc.FOV)))
	v.SetDefault("camera.near", cc.Near)
	v.SetDefault("camera.far", cc.Far)

	v.SetDefault("hud.interval", "100ms")
	v.SetDefault("telemetry.interval", "2s")
}

// Load reads the configuration from dir. A missing config file or .env
// file is not an error; a malformed one is.
func Load(dir string) (*Config, error) {
	if dir == "" {
		dir = "."
	}

	if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName(configName)
	v.AddConfigPath(dir)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	c.File = v.ConfigFileUsed()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Default returns the configuration with no file or environment applied.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		panic(fmt.Sprintf("decoding default config: %v", err))
	}
	return &c
}

func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Window.Width >= 0 && c.Window.Height >= 0, "window size %dx%d must not be negative",
		c.Window.Width, c.Window.Height)
	check(c.Loop.MaxFrameDelta > 0, "loop.maxFrameDelta %s must be positive", c.Loop.MaxFrameDelta)
	check(c.Loop.FPSWindow > 0, "loop.fpsWindow %s must be positive", c.Loop.FPSWindow)

	f := c.Flight
	check(f.MinSpeed >= 0 && f.MaxSpeed >= f.MinSpeed, "flight speeds [%g, %g] are not a valid range",
		f.MinSpeed, f.MaxSpeed)
	check(f.ThrottleAccel >= 0, "flight.throttleAccel %g must not be negative", f.ThrottleAccel)
	check(f.RollDamping >= 0, "flight.rollDamping %g must not be negative", f.RollDamping)
	check(f.Spawn.Throttle >= 0 && f.Spawn.Throttle <= 1, "flight.spawn.throttle %g must be in [0, 1]",
		f.Spawn.Throttle)

	cam := c.Camera
	check(cam.Smoothing > 0, "camera.smoothing %g must be positive", cam.Smoothing)
	check(cam.FOVDeg > 0 && cam.FOVDeg < 180, "camera.fovDeg %g must be in (0, 180)", cam.FOVDeg)
	check(cam.Near > 0 && cam.Far > cam.Near, "camera clip planes [%g, %g] are not a valid range",
		cam.Near, cam.Far)

	check(c.HUD.Interval > 0, "hud.interval %s must be positive", c.HUD.Interval)
	check(c.Telemetry.Interval > 0, "telemetry.interval %s must be positive", c.Telemetry.Interval)

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func (c *Config) FlightModel() sim.FlightModel {
	f := c.Flight
	return sim.FlightModel{
		PitchRate:      f.PitchRate,
		YawRate:        f.YawRate,
		RollRate:       f.RollRate,
		MinSpeed:       f.MinSpeed,
		MaxSpeed:       f.MaxSpeed,
		ThrottleAccel:  f.ThrottleAccel,
		RollDamping:    f.RollDamping,
		AutoBank:       f.AutoBank,
		AutoBankFactor: f.AutoBankFactor,
		MaxAutoBank:    sim.DegToRad(f.MaxAutoBankDeg),
		SpawnPosition:  sim.Vec3{X: f.Spawn.X, Y: f.Spawn.Y, Z: f.Spawn.Z},
		SpawnHeading:   sim.DegToRad(f.Spawn.HeadingDeg),
		SpawnThrottle:  f.Spawn.Throttle,
	}
}

func (c *Config) ChaseCamera() sim.ChaseCamera {
	cam := c.Camera
	return sim.ChaseCamera{
		Distance:   cam.Distance,
		Height:     cam.Height,
		LookAhead:  cam.LookAhead,
		Smoothing:  cam.Smoothing,
		TargetLead: cam.TargetLead,
		UpLag:      cam.UpLag,
		UpEpsilon:  cam.UpEpsilon,
		FOV:        sim.DegToRad(cam.FOVDeg),
		Near:       cam.Near,
		Far:        cam.Far,
	}
}

func (c *Config) LoopConfig() sim.LoopConfig {
	return sim.LoopConfig{
		MaxFrameDelta: c.Loop.MaxFrameDelta,
		FPSWindow:     c.Loop.FPSWindow,
	}
}
