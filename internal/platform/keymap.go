package platform

import (
	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/mozabes/Webhawk/internal/sim"
)

var keyControls = map[glfw.Key]sim.Control{
	glfw.KeyW:            sim.ControlPitchUp,
	glfw.KeyUp:           sim.ControlPitchUp,
	glfw.KeyS:            sim.ControlPitchDown,
	glfw.KeyDown:         sim.ControlPitchDown,
	glfw.KeyA:            sim.ControlYawLeft,
	glfw.KeyLeft:         sim.ControlYawLeft,
	glfw.KeyD:            sim.ControlYawRight,
	glfw.KeyRight:        sim.ControlYawRight,
	glfw.KeyQ:            sim.ControlRollLeft,
	glfw.KeyE:            sim.ControlRollRight,
	glfw.KeyLeftShift:    sim.ControlThrottleUp,
	glfw.KeyRightShift:   sim.ControlThrottleUp,
	glfw.KeyLeftControl:  sim.ControlThrottleDown,
	glfw.KeyRightControl: sim.ControlThrottleDown,
}

// ControlForKey returns the flight control bound to key.
func ControlForKey(key glfw.Key) (sim.Control, bool) {
	c, ok := keyControls[key]
	return c, ok
}
