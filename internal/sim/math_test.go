package sim_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"

	"github.com/mozabes/Webhawk/internal/sim"
)

const eps = 1e-9

func toMgl(v sim.Vec3) mgl64.Vec3 { return mgl64.Vec3{v.X, v.Y, v.Z} }

func quatToMgl(q sim.Quat) mgl64.Quat {
	return mgl64.Quat{W: q.W, V: mgl64.Vec3{q.X, q.Y, q.Z}}
}

func assertVec3InDelta(t *testing.T, want, got sim.Vec3, delta float64, msgAndArgs ...any) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, delta, msgAndArgs...)
	assert.InDelta(t, want.Y, got.Y, delta, msgAndArgs...)
	assert.InDelta(t, want.Z, got.Z, delta, msgAndArgs...)
}

func assertMat4InDelta(t *testing.T, want mgl64.Mat4, got sim.Mat4, delta float64) {
	t.Helper()
	for i := range want {
		assert.InDelta(t, want[i], got[i], delta, "element %d", i)
	}
}

func randomUnitVec(r *rand.Rand) sim.Vec3 {
	for {
		v := sim.Vec3{X: r.Float64()*2 - 1, Y: r.Float64()*2 - 1, Z: r.Float64()*2 - 1}
		if l := v.Length(); l > 0.1 && l <= 1 {
			return v.Normalize()
		}
	}
}

func TestVec3Ops(t *testing.T) {
	a := sim.Vec3{X: 1, Y: 2, Z: 3}
	b := sim.Vec3{X: -3, Y: 0, Z: 5}

	assert.Equal(t, sim.Vec3{X: -2, Y: 2, Z: 8}, a.Add(b))
	assert.Equal(t, sim.Vec3{X: 4, Y: 2, Z: -2}, a.Sub(b))
	assert.Equal(t, sim.Vec3{X: 2, Y: 4, Z: 6}, a.Mul(2))
	assert.Equal(t, 12.0, a.Dot(b))
	assert.Equal(t, sim.Vec3{X: 10, Y: -14, Z: 6}, a.Cross(b))
	assert.InDelta(t, math.Sqrt(14), a.Length(), eps)
	assert.InDelta(t, 1, a.Normalize().Length(), eps)
	assert.Equal(t, sim.Vec3{X: -1, Y: 1, Z: 4}, a.Lerp(b, 0.5))
}

func TestVec3NormalizeZero(t *testing.T) {
	assert.Equal(t, sim.Vec3{}, sim.Vec3{}.Normalize())
	assert.Equal(t, sim.Vec3{}, sim.Vec3{X: 1e-12}.NormalizeSafe(1e-8))
	assert.Equal(t, sim.Vec3{X: 1}, sim.Vec3{X: 3}.NormalizeSafe(1e-8))
}

func TestVec3IsFinite(t *testing.T) {
	assert.True(t, sim.Vec3{X: 1, Y: 2, Z: 3}.IsFinite())
	assert.False(t, sim.Vec3{X: math.NaN()}.IsFinite())
	assert.False(t, sim.Vec3{Z: math.Inf(-1)}.IsFinite())
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.0, sim.Clamp(-0.5, 0.0, 1.0))
	assert.Equal(t, 1.0, sim.Clamp(1.5, 0.0, 1.0))
	assert.Equal(t, 0.25, sim.Clamp(0.25, 0.0, 1.0))
	assert.Equal(t, 3, sim.Clamp(7, -3, 3))
	assert.Equal(t, float32(-1), sim.Clamp(float32(-2), -1, 1))
}

func TestDegRad(t *testing.T) {
	assert.InDelta(t, math.Pi/3, sim.DegToRad(60), eps)
	assert.InDelta(t, 90, sim.RadToDeg(math.Pi/2), eps)
}

func TestQuatNormalizeUnitNorm(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		q := sim.Quat{
			X: (r.Float64()*2 - 1) * 100,
			Y: (r.Float64()*2 - 1) * 1e-3,
			Z: (r.Float64()*2 - 1) * 10,
			W: r.Float64()*2 - 1,
		}
		if q == (sim.Quat{}) {
			continue
		}
		assert.InDelta(t, 1, q.Normalize().Length(), 1e-12)
	}
}

func TestQuatNormalizeZeroIsIdentity(t *testing.T) {
	assert.Equal(t, sim.Quat{X: 0, Y: 0, Z: 0, W: 1}, sim.Quat{}.Normalize())
	assert.Equal(t, sim.QuatIdentity(), sim.Quat{}.Normalize())
}

func TestQuatFromAxisAngleMatchesMathgl(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	for i := 0; i < 100; i++ {
		axis := randomUnitVec(r)
		angle := (r.Float64()*2 - 1) * math.Pi
		q := sim.QuatFromAxisAngle(axis.Mul(3), angle)
		want := mgl64.QuatRotate(angle, toMgl(axis))

		assert.InDelta(t, want.W, q.W, eps)
		assert.InDelta(t, want.V[0], q.X, eps)
		assert.InDelta(t, want.V[1], q.Y, eps)
		assert.InDelta(t, want.V[2], q.Z, eps)
	}
}

func TestQuatFromAxisAngleZeroAxis(t *testing.T) {
	assert.Equal(t, sim.QuatIdentity(), sim.QuatFromAxisAngle(sim.Vec3{}, 1.2))
}

func TestQuatMulMatchesMathgl(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	for i := 0; i < 100; i++ {
		a := sim.QuatFromAxisAngle(randomUnitVec(r), r.Float64()*math.Pi)
		b := sim.QuatFromAxisAngle(randomUnitVec(r), r.Float64()*math.Pi)

		got := a.Mul(b)
		want := quatToMgl(a).Mul(quatToMgl(b))
		assert.InDelta(t, want.W, got.W, eps)
		assert.InDelta(t, want.V[0], got.X, eps)
		assert.InDelta(t, want.V[1], got.Y, eps)
		assert.InDelta(t, want.V[2], got.Z, eps)

		// a*b applies b first.
		v := randomUnitVec(r)
		assertVec3InDelta(t, a.Rotate(b.Rotate(v)), got.Rotate(v), eps)
	}
}

func TestQuatRotateMatchesMathgl(t *testing.T) {
	r := rand.New(rand.NewSource(4))
	for i := 0; i < 100; i++ {
		q := sim.QuatFromAxisAngle(randomUnitVec(r), (r.Float64()*2-1)*math.Pi)
		v := randomUnitVec(r).Mul(5)
		want := quatToMgl(q).Rotate(toMgl(v))
		assertVec3InDelta(t, sim.Vec3{X: want[0], Y: want[1], Z: want[2]}, q.Rotate(v), eps)
	}
}

func TestQuatMat4MatchesMathgl(t *testing.T) {
	r := rand.New(rand.NewSource(5))
	for i := 0; i < 100; i++ {
		q := sim.QuatFromAxisAngle(randomUnitVec(r), (r.Float64()*2-1)*math.Pi)
		assertMat4InDelta(t, quatToMgl(q).Mat4(), q.Mat4(), eps)
	}
}

func TestQuatMat4Basis(t *testing.T) {
	m := sim.QuatIdentity().Mat4()
	assert.Equal(t, sim.Vec3{X: 1}, m.Right())
	assert.Equal(t, sim.Vec3{Y: 1}, m.Up())
	assert.Equal(t, sim.Vec3{Z: -1}, m.Forward())

	q := sim.QuatFromAxisAngle(sim.Vec3{Y: 1}, math.Pi/2)
	assertVec3InDelta(t, sim.Vec3{X: -1}, q.Mat4().Forward(), eps)
	assertVec3InDelta(t, sim.Vec3{Z: -1}, q.Mat4().Right(), eps)
}

func TestQuatFromEuler(t *testing.T) {
	assert.Equal(t, sim.QuatIdentity(), sim.QuatFromEuler(0, 0, 0))

	yaw := sim.QuatFromEuler(0, math.Pi/2, 0)
	assertVec3InDelta(t, sim.Vec3{X: -1}, yaw.Rotate(sim.LocalForward), eps)

	pitch := sim.QuatFromEuler(math.Pi/6, 0, 0)
	assertVec3InDelta(t, sim.Vec3{Y: 0.5, Z: -math.Sqrt(3) / 2}, pitch.Rotate(sim.LocalForward), eps)

	// Roll is applied first, then pitch, then yaw.
	p, y, r := 0.3, -0.7, 1.1
	want := sim.QuatFromAxisAngle(sim.LocalUp, y).
		Mul(sim.QuatFromAxisAngle(sim.LocalRight, p)).
		Mul(sim.QuatFromAxisAngle(sim.Vec3{Z: 1}, r))
	got := sim.QuatFromEuler(p, y, r)
	v := sim.Vec3{X: 0.2, Y: -0.4, Z: 0.9}
	assertVec3InDelta(t, want.Rotate(v), got.Rotate(v), eps)
}

func TestPerspectiveMatchesMathgl(t *testing.T) {
	want := mgl64.Perspective(math.Pi/3, 16.0/9.0, 0.5, 5000)
	assertMat4InDelta(t, want, sim.PerspectiveMat4(math.Pi/3, 16.0/9.0, 0.5, 5000), eps)

	// OpenGL depth: near maps to -1, far to +1.
	p := sim.PerspectiveMat4(math.Pi/3, 1, 0.5, 5000)
	assert.InDelta(t, -1, p.MulPoint(sim.Vec3{Z: -0.5}).Z, 1e-9)
	assert.InDelta(t, 1, p.MulPoint(sim.Vec3{Z: -5000}).Z, 1e-9)
}

func TestLookAtMatchesMathgl(t *testing.T) {
	eye := sim.Vec3{X: 3, Y: 105, Z: 20}
	center := sim.Vec3{X: -1, Y: 100, Z: -4}
	up := sim.Vec3{X: 0.1, Y: 1, Z: 0}

	want := mgl64.LookAtV(toMgl(eye), toMgl(center), toMgl(up).Normalize())
	got := sim.LookAtMat4(eye, center, up)
	assertMat4InDelta(t, want, got, 1e-9)

	// The target lands on the -Z axis in view space.
	p := got.MulPoint(center)
	assert.InDelta(t, 0, p.X, 1e-9)
	assert.InDelta(t, 0, p.Y, 1e-9)
	assert.InDelta(t, -center.Sub(eye).Length(), p.Z, 1e-9)
}

func TestLookAtParallelUpFallback(t *testing.T) {
	m := sim.LookAtMat4(sim.Vec3{}, sim.Vec3{Y: -10}, sim.Vec3{Y: 1})
	for _, x := range m {
		assert.False(t, math.IsNaN(x))
	}
	assert.InDelta(t, 1, m.Inverse().Mul(m)[0], 1e-9)

	// The rotation part stays orthonormal.
	right := sim.Vec3{X: m[0], Y: m[4], Z: m[8]}
	up := sim.Vec3{X: m[1], Y: m[5], Z: m[9]}
	assert.InDelta(t, 1, right.Length(), eps)
	assert.InDelta(t, 1, up.Length(), eps)
	assert.InDelta(t, 0, right.Dot(up), eps)
}

func TestMat4MulMatchesMathgl(t *testing.T) {
	a := sim.PerspectiveMat4(1, 1.5, 0.1, 100)
	b := sim.LookAtMat4(sim.Vec3{X: 1, Y: 2, Z: 3}, sim.Vec3{}, sim.Vec3{Y: 1})
	want := mgl64.Mat4(a).Mul4(mgl64.Mat4(b))
	assertMat4InDelta(t, want, a.Mul(b), eps)

	assert.Equal(t, a, a.Mul(sim.IdentityMat4()))
	assert.Equal(t, a, sim.IdentityMat4().Mul(a))
}

func TestMat4InverseMatchesMathgl(t *testing.T) {
	m := sim.PerspectiveMat4(1, 1.5, 0.1, 100).Mul(
		sim.LookAtMat4(sim.Vec3{X: 1, Y: 2, Z: 3}, sim.Vec3{}, sim.Vec3{Y: 1}))
	assertMat4InDelta(t, mgl64.Mat4(m).Inv(), m.Inverse(), 1e-7)
	assertMat4InDelta(t, mgl64.Ident4(), m.Mul(m.Inverse()), 1e-9)
}

func TestMat4InverseSingularIsIdentity(t *testing.T) {
	assert.Equal(t, sim.IdentityMat4(), sim.Mat4{}.Inverse())
}

func TestTranslationAndTransforms(t *testing.T) {
	m := sim.TranslationMat4(sim.Vec3{X: 1, Y: 2, Z: 3})
	assert.Equal(t, sim.Vec3{X: 2, Y: 2, Z: 3}, m.MulPoint(sim.Vec3{X: 1}))
	assert.Equal(t, sim.Vec4{X: 1, Y: 2, Z: 3, W: 1}, m.MulVec4(sim.Vec4{W: 1}))
}
