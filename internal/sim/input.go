package sim

import (
	"fmt"
	"strings"
	"sync"
)

// InputState is the set of held flight controls, polled once per tick.
type InputState struct {
	PitchUp, PitchDown       bool
	YawLeft, YawRight        bool
	RollLeft, RollRight      bool
	ThrottleUp, ThrottleDown bool
}

type Control int

const (
	ControlPitchUp Control = iota
	ControlPitchDown
	ControlYawLeft
	ControlYawRight
	ControlRollLeft
	ControlRollRight
	ControlThrottleUp
	ControlThrottleDown
	NumControls
)

var controlNames = [NumControls]string{
	"pitchup", "pitchdown", "yawleft", "yawright", "rollleft", "rollright", "throttleup", "throttledown",
}

func (c Control) String() string {
	if c < 0 || c >= NumControls {
		return fmt.Sprintf("Control(%d)", int(c))
	}
	return controlNames[c]
}

// ParseControl maps a control name such as "pitchup" (case-insensitive,
// dashes and underscores ignored) to its Control.
func ParseControl(name string) (Control, error) {
	n := strings.ToLower(strings.NewReplacer("-", "", "_", "", " ", "").Replace(name))
	for i, cn := range controlNames {
		if n == cn {
			return Control(i), nil
		}
	}
	return 0, fmt.Errorf("%q: unknown control", name)
}

// With returns a copy of s with control c set to pressed.
func (s InputState) With(c Control, pressed bool) InputState {
	switch c {
	case ControlPitchUp:
		s.PitchUp = pressed
	case ControlPitchDown:
		s.PitchDown = pressed
	case ControlYawLeft:
		s.YawLeft = pressed
	case ControlYawRight:
		s.YawRight = pressed
	case ControlRollLeft:
		s.RollLeft = pressed
	case ControlRollRight:
		s.RollRight = pressed
	case ControlThrottleUp:
		s.ThrottleUp = pressed
	case ControlThrottleDown:
		s.ThrottleDown = pressed
	}
	return s
}

func (s InputState) Any() bool { return s != InputState{} }

// Controls hands input from the event-handling side to the tick loop.
// Event callbacks call Set and Reset; the simulator reads State once per
// tick.
type Controls struct {
	mu     sync.Mutex
	state  InputState
	detach func()
}

func NewControls() *Controls { return &Controls{} }

// Set records the latest press or release of c.
func (c *Controls) Set(ctl Control, pressed bool) {
	c.mu.Lock()
	c.state = c.state.With(ctl, pressed)
	c.mu.Unlock()
}

// Reset releases every control; it is called when the window loses focus
// so that no key stays stuck down.
func (c *Controls) Reset() {
	c.mu.Lock()
	c.state = InputState{}
	c.mu.Unlock()
}

func (c *Controls) State() InputState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// OnDetach registers the function that removes the input listeners.
func (c *Controls) OnDetach(f func()) {
	c.mu.Lock()
	c.detach = f
	c.mu.Unlock()
}

// Detach removes the input listeners (at most once) and releases all
// controls.
func (c *Controls) Detach() {
	c.mu.Lock()
	f := c.detach
	c.detach = nil
	c.state = InputState{}
	c.mu.Unlock()

	if f != nil {
		f()
	}
}
