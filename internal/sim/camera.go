package sim

import (
	"math"
)

type CameraState struct {
	Position Vec3
	Target   Vec3
	Up       Vec3
	FOV      float64 // vertical, radians
	Near     float64
	Far      float64
}

// ChaseCamera follows the aircraft from behind and above, smoothing its
// motion exponentially so that convergence does not depend on frame rate.
type ChaseCamera struct {
	Distance  float64 // behind the aircraft along -forward
	Height    float64 // above the aircraft along its up vector
	LookAhead float64 // target distance in front of the aircraft
	Smoothing float64 // position smoothing rate k, 1/s

	// TargetLead and UpLag scale the smoothing factor for the look-at
	// target and the up vector respectively.
	TargetLead float64
	UpLag      float64

	// UpEpsilon is the smallest smoothed up-vector length that is trusted;
	// anything shorter falls back to WorldUp.
	UpEpsilon float64

	FOV, Near, Far float64
}

const (
	spawnCameraDistance = 20.0
	spawnCameraHeight   = 5.0
)

func DefaultChaseCamera() ChaseCamera {
	return ChaseCamera{
		Distance:   15,
		Height:     5,
		LookAhead:  20,
		Smoothing:  5,
		TargetLead: 1.5,
		UpLag:      0.5,
		UpEpsilon:  0.01,
		FOV:        math.Pi / 3,
		Near:       0.5,
		Far:        5000,
	}
}

// Initial places the camera behind and slightly above the aircraft,
// looking at it.
func (c ChaseCamera) Initial(ac AircraftState) CameraState {
	forward := ForwardVector(ac)
	return CameraState{
		Position: ac.Position.Sub(forward.Mul(spawnCameraDistance)).Add(WorldUp.Mul(spawnCameraHeight)),
		Target:   ac.Position,
		Up:       WorldUp,
		FOV:      c.FOV,
		Near:     c.Near,
		Far:      c.Far,
	}
}

// SmoothingFactor is the fraction of the remaining distance covered in dt
// by exponential smoothing at rate k.
func SmoothingFactor(k, dt float64) float64 {
	return 1 - math.Exp(-k*dt)
}

// IdealPosition is where the camera would sit with no smoothing.
func (c ChaseCamera) IdealPosition(ac AircraftState) Vec3 {
	return ac.Position.Add(ForwardVector(ac).Mul(-c.Distance)).Add(UpVector(ac).Mul(c.Height))
}

// IdealTarget is the look-at point the camera converges on.
func (c ChaseCamera) IdealTarget(ac AircraftState) Vec3 {
	return ac.Position.Add(ForwardVector(ac).Mul(c.LookAhead))
}

// Advance moves the camera one tick toward its ideal pose behind ac. It is
// a pure function of its arguments.
func (c ChaseCamera) Advance(cam CameraState, ac AircraftState, dt float64) CameraState {
	f := SmoothingFactor(c.Smoothing, dt)

	next := cam
	next.Position = cam.Position.Lerp(c.IdealPosition(ac), f)
	next.Target = cam.Target.Lerp(c.IdealTarget(ac), Clamp(f*c.TargetLead, 0, 1))

	rawUp := cam.Up.Lerp(UpVector(ac), f*c.UpLag)
	if rawUp.Length() < c.UpEpsilon {
		next.Up = WorldUp
	} else {
		next.Up = rawUp.Normalize()
	}
	return next
}

func (cam CameraState) ViewMatrix() Mat4 {
	return LookAtMat4(cam.Position, cam.Target, cam.Up)
}

func (cam CameraState) ProjectionMatrix(aspect float64) Mat4 {
	if aspect <= 0 {
		aspect = 1
	}
	return PerspectiveMat4(cam.FOV, aspect, cam.Near, cam.Far)
}

func (cam CameraState) ViewProjection(aspect float64) Mat4 {
	return cam.ProjectionMatrix(aspect).Mul(cam.ViewMatrix())
}
