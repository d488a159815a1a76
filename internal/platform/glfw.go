// Package platform provides the GLFW window, GL context and keyboard input.
package platform

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/mozabes/Webhawk/internal/log"
	"github.com/mozabes/Webhawk/internal/sim"
)

var ErrInit = errors.New("platform initialization failed")

type Config struct {
	Width, Height int
	Title         string
	VSync         bool
}

// Window is a GLFW window with a current OpenGL 4.1 core context. It must
// be created and used on the main OS thread.
type Window struct {
	window   *glfw.Window
	controls *sim.Controls
	title    string
	lg       *log.Logger
}

var (
	_ sim.Surface = (*Window)(nil)
	_ sim.Display = (*Window)(nil)
)

// New initializes GLFW and opens a window. Key and focus events are
// forwarded to controls.
func New(config Config, controls *sim.Controls, lg *log.Logger) (*Window, error) {
	lg.Info("Starting GLFW initialization")
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("%w: glfw: %w", ErrInit, err)
	}
	lg.Infof("GLFW: %s", glfw.GetVersionString())

	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.ScaleToMonitor, glfw.True)

	if config.Width <= 0 || config.Height <= 0 {
		var vm *glfw.VidMode
		if monitor := glfw.GetPrimaryMonitor(); monitor != nil {
			vm = monitor.GetVideoMode()
		}
		config.Width, config.Height = defaultWindowSize(vm)
	}

	window, err := glfw.CreateWindow(config.Width, config.Height, config.Title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("%w: creating window: %w", ErrInit, err)
	}
	window.MakeContextCurrent()
	if config.VSync {
		glfw.SwapInterval(1)
	} else {
		glfw.SwapInterval(0)
	}

	w := &Window{
		window:   window,
		controls: controls,
		title:    config.Title,
		lg:       lg,
	}
	w.installCallbacks()

	fw, fh := window.GetFramebufferSize()
	lg.Info("Finished GLFW initialization",
		slog.Int("width", config.Width),
		slog.Int("height", config.Height),
		slog.Int("framebuffer_width", fw),
		slog.Int("framebuffer_height", fh))
	return w, nil
}

const fallbackWidth, fallbackHeight = 1280, 720

// defaultWindowSize is three quarters of the monitor's video mode, or a
// fixed size when there is no monitor.
func defaultWindowSize(vm *glfw.VidMode) (int, int) {
	if vm == nil || vm.Width <= 0 || vm.Height <= 0 {
		return fallbackWidth, fallbackHeight
	}
	return vm.Width * 3 / 4, vm.Height * 3 / 4
}

func (w *Window) installCallbacks() {
	w.window.SetKeyCallback(w.keyCallback)
	w.window.SetFocusCallback(func(_ *glfw.Window, focused bool) {
		if !focused {
			w.controls.Reset()
		}
	})
	w.controls.OnDetach(func() {
		w.window.SetKeyCallback(nil)
		w.window.SetFocusCallback(nil)
	})
}

func (w *Window) keyCallback(window *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if key == glfw.KeyEscape && action == glfw.Press {
		window.SetShouldClose(true)
		return
	}
	ctl, ok := ControlForKey(key)
	if !ok {
		return
	}
	switch action {
	case glfw.Press:
		w.controls.Set(ctl, true)
	case glfw.Release:
		w.controls.Set(ctl, false)
	}
}

// FramebufferSize is the drawable size in pixels, which differs from the
// window size on high-DPI displays.
func (w *Window) FramebufferSize() (int, int) {
	return w.window.GetFramebufferSize()
}

func (w *Window) ShouldClose() bool { return w.window.ShouldClose() }

func (w *Window) PostRender() { w.window.SwapBuffers() }

func (w *Window) ProcessEvents() { glfw.PollEvents() }

// SetStatus shows s after the window title.
func (w *Window) SetStatus(s string) {
	if s == "" {
		w.window.SetTitle(w.title)
	} else {
		w.window.SetTitle(w.title + " | " + s)
	}
}

func (w *Window) Dispose() {
	w.window.Destroy()
	glfw.Terminate()
	w.lg.Info("GLFW terminated")
}
