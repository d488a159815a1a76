package sim

import (
	"encoding/binary"
	"math"
	"unsafe"
)

// FrameUniforms is the GPU-aligned per-frame uniform block read by the SDF
// shader (see the Frame block in internal/gpu/shaders/sdf.frag). Every vec3
// is followed by a scalar or padding so each row is 16 bytes.
// Size: 80 bytes, little-endian float32.
type FrameUniforms struct {
	CameraPos     [3]float32 // offset  0
	Time          float32    // offset 12: seconds since start
	CameraForward [3]float32 // offset 16
	FOV           float32    // offset 28: vertical, radians
	CameraRight   [3]float32 // offset 32
	AspectRatio   float32    // offset 44: width / height
	CameraUp      [3]float32 // offset 48
	_pad0         float32    // offset 60
	AircraftPos   [3]float32 // offset 64
	_pad1         float32    // offset 76
}

const FrameUniformsSize = 80

// CameraBasis derives an orthonormal basis from the camera. The up vector is
// re-orthogonalized against forward rather than taken from cam.Up.
func CameraBasis(cam CameraState) (forward, right, up Vec3) {
	forward = cam.Target.Sub(cam.Position).Normalize()
	right = orthogonalRight(forward, cam.Up)
	up = right.Cross(forward)
	return
}

// NewFrameUniforms packs the camera, aircraft and time into the layout the
// shader expects.
func NewFrameUniforms(cam CameraState, ac AircraftState, time, aspect float64) FrameUniforms {
	forward, right, up := CameraBasis(cam)
	return FrameUniforms{
		CameraPos:     vec3f(cam.Position),
		Time:          float32(time),
		CameraForward: vec3f(forward),
		FOV:           float32(cam.FOV),
		CameraRight:   vec3f(right),
		AspectRatio:   float32(aspect),
		CameraUp:      vec3f(up),
		AircraftPos:   vec3f(ac.Position),
	}
}

func vec3f(v Vec3) [3]float32 { return [3]float32{float32(v.X), float32(v.Y), float32(v.Z)} }

func (u *FrameUniforms) Size() int {
	return int(unsafe.Sizeof(*u))
}

// Marshal serializes the block into a new buffer suitable for GPU upload.
func (u *FrameUniforms) Marshal() []byte {
	buf := make([]byte, FrameUniformsSize)
	u.MarshalTo(buf)
	return buf
}

// MarshalTo serializes the block into buf, which must hold at least
// FrameUniformsSize bytes.
func (u *FrameUniforms) MarshalTo(buf []byte) {
	_ = buf[FrameUniformsSize-1]

	rows := [5]struct {
		v [3]float32
		w float32
	}{
		{u.CameraPos, u.Time},
		{u.CameraForward, u.FOV},
		{u.CameraRight, u.AspectRatio},
		{u.CameraUp, 0},
		{u.AircraftPos, 0},
	}
	for i, r := range rows {
		off := i * 16
		binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(r.v[0]))
		binary.LittleEndian.PutUint32(buf[off+4:], math.Float32bits(r.v[1]))
		binary.LittleEndian.PutUint32(buf[off+8:], math.Float32bits(r.v[2]))
		binary.LittleEndian.PutUint32(buf[off+12:], math.Float32bits(r.w))
	}
}

// RayDirection reconstructs the primary ray through the normalized device
// coordinates (ndcX, ndcY) ∈ [-1,1]² exactly as the fragment shader does.
func RayDirection(u FrameUniforms, ndcX, ndcY float64) Vec3 {
	f := Vec3{float64(u.CameraForward[0]), float64(u.CameraForward[1]), float64(u.CameraForward[2])}
	r := Vec3{float64(u.CameraRight[0]), float64(u.CameraRight[1]), float64(u.CameraRight[2])}
	up := Vec3{float64(u.CameraUp[0]), float64(u.CameraUp[1]), float64(u.CameraUp[2])}

	h := math.Tan(float64(u.FOV) / 2)
	return f.Add(r.Mul(ndcX * h * float64(u.AspectRatio))).Add(up.Mul(ndcY * h)).Normalize()
}
