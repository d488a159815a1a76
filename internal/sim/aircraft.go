package sim

import (
	"math"
)

// AircraftState is the complete pose of the aircraft. Values are replaced,
// never mutated, once per tick.
type AircraftState struct {
	Position Vec3
	Rotation Quat
	Velocity Vec3
	Throttle float64 // 0..1
}

// FlightModel holds the constants of the flight integrator. Throttle maps
// directly to airspeed; there are no forces.
type FlightModel struct {
	PitchRate     float64 // rad/s
	YawRate       float64 // rad/s
	RollRate      float64 // rad/s
	MinSpeed      float64 // units/s at zero throttle
	MaxSpeed      float64 // units/s at full throttle
	ThrottleAccel float64 // throttle fraction per second

	// RollDamping is the exponential rate (1/s) at which bank decays back
	// to wings-level while no attitude control is held. Zero disables it.
	RollDamping float64

	// AutoBank rolls the aircraft into the turn while yaw is held, up to
	// MaxAutoBank radians of bank.
	AutoBank       bool
	AutoBankFactor float64 // fraction of RollRate
	MaxAutoBank    float64

	SpawnPosition Vec3
	SpawnHeading  float64 // radians, positive turns left of -Z
	SpawnThrottle float64
}

func DefaultFlightModel() FlightModel {
	return FlightModel{
		PitchRate:      1.5,
		YawRate:        1.0,
		RollRate:       2.5,
		MinSpeed:       20,
		MaxSpeed:       150,
		ThrottleAccel:  0.5,
		RollDamping:    1.8,
		AutoBank:       false,
		AutoBankFactor: 0.3,
		MaxAutoBank:    math.Pi / 3,
		SpawnPosition:  Vec3{0, 100, 0},
		SpawnHeading:   0,
		SpawnThrottle:  0.3,
	}
}

// NewAircraft returns the aircraft at its spawn point, flying forward at the
// speed implied by the spawn throttle.
func (m FlightModel) NewAircraft() AircraftState {
	rot := QuatFromEuler(0, m.SpawnHeading, 0).Normalize()
	throttle := Clamp(m.SpawnThrottle, 0, 1)
	return AircraftState{
		Position: m.SpawnPosition,
		Rotation: rot,
		Velocity: rot.Mat4().Forward().Normalize().Mul(m.MinSpeed),
		Throttle: throttle,
	}
}

// Speed is the airspeed for the given throttle setting.
func (m FlightModel) Speed(throttle float64) float64 {
	return m.MinSpeed + (m.MaxSpeed-m.MinSpeed)*throttle
}

// AxisDeltas are the signed control rotations for one tick, in radians.
// Positive pitch raises the nose, positive yaw turns left and positive roll
// lowers the right wing.
type AxisDeltas struct {
	Pitch, Yaw, Roll float64
}

// ControlDeltas converts the held controls into per-axis rotation angles
// for a tick of length dt. Opposing controls cancel.
func (m FlightModel) ControlDeltas(in InputState, dt float64) AxisDeltas {
	var d AxisDeltas
	if in.PitchUp {
		d.Pitch += m.PitchRate * dt
	}
	if in.PitchDown {
		d.Pitch -= m.PitchRate * dt
	}
	if in.YawLeft {
		d.Yaw += m.YawRate * dt
	}
	if in.YawRight {
		d.Yaw -= m.YawRate * dt
	}
	if in.RollRight {
		d.Roll += m.RollRate * dt
	}
	if in.RollLeft {
		d.Roll -= m.RollRate * dt
	}
	return d
}

// ApplyLocalRotation rotates q by angle radians about one of its own body
// axes. The body axis is carried into world space by q and the resulting
// rotation is composed on the left.
func ApplyLocalRotation(q Quat, localAxis Vec3, angle float64) Quat {
	if angle == 0 {
		return q
	}
	axis := q.Rotate(localAxis)
	return QuatFromAxisAngle(axis, angle).Mul(q).Normalize()
}

// BankAngle returns the roll of q relative to the horizon in radians,
// positive with the right wing low. It is zero when the nose points
// straight up or down.
func BankAngle(q Quat) float64 {
	m := q.Mat4()
	right, up := m.Right(), m.Up()
	if right.Y == 0 && up.Y == 0 {
		return 0
	}
	if b := math.Atan2(-right.Y, up.Y); b != 0 {
		return b
	}
	return 0 // not -0
}

// Advance integrates one tick of flight. It is a pure function of its
// arguments; dt must already be clamped by the caller.
func (m FlightModel) Advance(s AircraftState, in InputState, dt float64) AircraftState {
	d := m.ControlDeltas(in, dt)

	rot := s.Rotation
	rot = ApplyLocalRotation(rot, LocalRight, d.Pitch)
	rot = ApplyLocalRotation(rot, LocalUp, d.Yaw)
	rot = ApplyLocalRotation(rot, LocalForward, d.Roll)

	pitching := in.PitchUp || in.PitchDown
	turning := in.YawLeft || in.YawRight
	rolling := in.RollLeft || in.RollRight
	if !pitching && !turning && !rolling && m.RollDamping > 0 {
		rot = m.dampRoll(rot, dt)
	}
	if m.AutoBank && turning && d.Yaw != 0 {
		rot = m.autoBank(rot, d.Yaw, dt)
	}
	rot = rot.Normalize()

	throttle := s.Throttle
	if in.ThrottleUp {
		throttle += m.ThrottleAccel * dt
	}
	if in.ThrottleDown {
		throttle -= m.ThrottleAccel * dt
	}
	throttle = Clamp(throttle, 0, 1)

	forward := rot.Mat4().Forward().Normalize()
	velocity := forward.Mul(m.Speed(throttle))

	return AircraftState{
		Position: s.Position.Add(velocity.Mul(dt)),
		Rotation: rot,
		Velocity: velocity,
		Throttle: throttle,
	}
}

// dampRoll levels the wings at rate RollDamping, scaled down as the nose
// approaches vertical where the bank angle is ill-conditioned. With the nose
// straight up or down it does nothing.
func (m FlightModel) dampRoll(rot Quat, dt float64) Quat {
	level := Clamp(1-math.Abs(rot.Mat4().Forward().Y), 0, 1)
	bank := BankAngle(rot)
	decay := 1 - math.Exp(-m.RollDamping*level*dt)
	return ApplyLocalRotation(rot, LocalForward, -bank*decay)
}

// autoBank rolls toward the inside of the turn at a limited rate, settling
// at MaxAutoBank. A left turn (positive yaw) banks left.
func (m FlightModel) autoBank(rot Quat, yaw, dt float64) Quat {
	goal := m.MaxAutoBank
	if yaw > 0 {
		goal = -m.MaxAutoBank
	}
	bank := BankAngle(rot)
	return ApplyLocalRotation(rot, LocalForward, approach(bank, goal, m.RollRate*m.AutoBankFactor*dt)-bank)
}

// approach moves x toward goal by at most step.
func approach(x, goal, step float64) float64 {
	if x > goal {
		return math.Max(x-step, goal)
	}
	return math.Min(x+step, goal)
}

// AircraftMatrix is the model matrix of the aircraft: its rotation followed
// by a translation to its position.
func AircraftMatrix(s AircraftState) Mat4 {
	m := s.Rotation.Mat4()
	m[12], m[13], m[14] = s.Position.X, s.Position.Y, s.Position.Z
	return m
}

func ForwardVector(s AircraftState) Vec3 { return s.Rotation.Mat4().Forward().Normalize() }
func UpVector(s AircraftState) Vec3      { return s.Rotation.Mat4().Up().Normalize() }
func RightVector(s AircraftState) Vec3   { return s.Rotation.Mat4().Right().Normalize() }
