package sim

import (
	"math"

	"golang.org/x/exp/constraints"
)

type Vec3 struct {
	X, Y, Z float64
}

var (
	WorldUp      = Vec3{0, 1, 0}
	LocalRight   = Vec3{1, 0, 0}
	LocalUp      = Vec3{0, 1, 0}
	LocalForward = Vec3{0, 0, -1}
)

func (v Vec3) Add(other Vec3) Vec3     { return Vec3{v.X + other.X, v.Y + other.Y, v.Z + other.Z} }
func (v Vec3) Sub(other Vec3) Vec3     { return Vec3{v.X - other.X, v.Y - other.Y, v.Z - other.Z} }
func (v Vec3) Mul(scalar float64) Vec3 { return Vec3{v.X * scalar, v.Y * scalar, v.Z * scalar} }

func (v Vec3) Dot(other Vec3) float64 {
	return v.X*other.X + v.Y*other.Y + v.Z*other.Z
}

func (v Vec3) Cross(other Vec3) Vec3 {
	return Vec3{
		v.Y*other.Z - v.Z*other.Y,
		v.Z*other.X - v.X*other.Z,
		v.X*other.Y - v.Y*other.X,
	}
}

func (v Vec3) Length() float64 { return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z) }

// Normalize returns the unit vector in the direction of v; the zero vector
// normalizes to itself.
func (v Vec3) Normalize() Vec3 {
	length := v.Length()
	if length == 0 {
		return Vec3{0, 0, 0}
	}
	return Vec3{v.X / length, v.Y / length, v.Z / length}
}

// NormalizeSafe normalizes unless |v| < eps, in which case it returns (0,0,0).
func (v Vec3) NormalizeSafe(eps float64) Vec3 {
	if v.Length() < eps {
		return Vec3{0, 0, 0}
	}
	return v.Normalize()
}

// Lerp moves v toward target by the fraction t.
func (v Vec3) Lerp(target Vec3, t float64) Vec3 {
	return v.Add(target.Sub(v).Mul(t))
}

func (v Vec3) IsFinite() bool {
	return isFinite(v.X) && isFinite(v.Y) && isFinite(v.Z)
}

type Vec4 struct {
	X, Y, Z, W float64
}

func DegToRad(deg float64) float64 { return deg * math.Pi / 180.0 }
func RadToDeg(rad float64) float64 { return rad * 180.0 / math.Pi }

func Clamp[T constraints.Integer | constraints.Float](x, low, high T) T {
	if x < low {
		return low
	} else if x > high {
		return high
	}
	return x
}

func isFinite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

///////////////////////////////////////////////////////////////////////////
// Quat

// Quat is a rotation quaternion with vector part (X, Y, Z) and scalar W.
type Quat struct {
	X, Y, Z, W float64
}

func QuatIdentity() Quat { return Quat{0, 0, 0, 1} }

// QuatFromAxisAngle returns the rotation of angle radians about axis. The
// axis need not be normalized; a zero axis gives the identity.
func QuatFromAxisAngle(axis Vec3, angle float64) Quat {
	a := axis.Normalize()
	if a == (Vec3{}) {
		return QuatIdentity()
	}
	s, c := math.Sincos(angle * 0.5)
	return Quat{a.X * s, a.Y * s, a.Z * s, c}
}

// QuatFromEuler builds an orientation from aircraft angles, applying roll
// about Z, then pitch about X, then yaw about Y.
func QuatFromEuler(pitch, yaw, roll float64) Quat {
	sy, cy := math.Sincos(yaw * 0.5)
	sp, cp := math.Sincos(pitch * 0.5)
	sr, cr := math.Sincos(roll * 0.5)

	return Quat{
		X: cy*sp*cr + sy*cp*sr,
		Y: sy*cp*cr - cy*sp*sr,
		Z: cy*cp*sr - sy*sp*cr,
		W: cy*cp*cr + sy*sp*sr,
	}
}

// Mul returns the Hamilton product q*r: the rotation r followed by q.
func (q Quat) Mul(r Quat) Quat {
	return Quat{
		X: q.W*r.X + q.X*r.W + q.Y*r.Z - q.Z*r.Y,
		Y: q.W*r.Y - q.X*r.Z + q.Y*r.W + q.Z*r.X,
		Z: q.W*r.Z + q.X*r.Y - q.Y*r.X + q.Z*r.W,
		W: q.W*r.W - q.X*r.X - q.Y*r.Y - q.Z*r.Z,
	}
}

func (q Quat) Length() float64 {
	return math.Sqrt(q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W)
}

// Normalize returns q scaled to unit length, or the identity rotation if q
// is zero.
func (q Quat) Normalize() Quat {
	l := q.Length()
	if l == 0 {
		return QuatIdentity()
	}
	return Quat{q.X / l, q.Y / l, q.Z / l, q.W / l}
}

// Rotate applies the rotation q to v.
func (q Quat) Rotate(v Vec3) Vec3 {
	// v' = v + 2w(u x v) + 2u x (u x v), u = vector part
	u := Vec3{q.X, q.Y, q.Z}
	t := u.Cross(v).Mul(2)
	return v.Add(t.Mul(q.W)).Add(u.Cross(t))
}

// Mat4 converts q into a column-major rotation matrix whose first three
// columns are the local right, up and -forward axes.
func (q Quat) Mat4() Mat4 {
	x2, y2, z2 := q.X+q.X, q.Y+q.Y, q.Z+q.Z
	xx, xy, xz := q.X*x2, q.X*y2, q.X*z2
	yy, yz, zz := q.Y*y2, q.Y*z2, q.Z*z2
	wx, wy, wz := q.W*x2, q.W*y2, q.W*z2

	return Mat4{
		1 - (yy + zz), xy + wz, xz - wy, 0,
		xy - wz, 1 - (xx + zz), yz + wx, 0,
		xz + wy, yz - wx, 1 - (xx + yy), 0,
		0, 0, 0, 1,
	}
}

///////////////////////////////////////////////////////////////////////////
// Mat4

// Mat4 is a 4x4 matrix in column-major order (OpenGL-style).
type Mat4 [16]float64

func IdentityMat4() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// PerspectiveMat4 builds a right-handed OpenGL projection.
// fovy is in radians, aspect = width/height, NDC z ∈ [-1,1].
func PerspectiveMat4(fovy, aspect, near, far float64) Mat4 {
	f := 1.0 / math.Tan(fovy/2)
	nf := 1.0 / (near - far)

	return Mat4{
		f / aspect, 0, 0, 0,
		0, f, 0, 0,
		0, 0, (far + near) * nf, -1,
		0, 0, 2 * far * near * nf, 0,
	}
}

// LookAtMat4 creates a right-handed view matrix.
func LookAtMat4(eye, center, up Vec3) Mat4 {
	f := center.Sub(eye).NormalizeSafe(basisEpsilon)
	s := orthogonalRight(f, up)
	u := s.Cross(f)

	return Mat4{
		s.X, u.X, -f.X, 0,
		s.Y, u.Y, -f.Y, 0,
		s.Z, u.Z, -f.Z, 0,
		-s.Dot(eye), -u.Dot(eye), f.Dot(eye), 1,
	}
}

const basisEpsilon = 1e-8

// orthogonalRight returns normalize(f x up), choosing an alternate up if
// the two are too close to parallel.
func orthogonalRight(f, up Vec3) Vec3 {
	s := f.Cross(up)
	if s.Length() < basisEpsilon {
		var altUp Vec3
		if math.Abs(f.X) < 0.9 {
			altUp = Vec3{1, 0, 0}
		} else {
			altUp = Vec3{0, 1, 0}
		}
		s = f.Cross(altUp)
	}
	return s.Normalize()
}

func TranslationMat4(v Vec3) Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		v.X, v.Y, v.Z, 1,
	}
}

func (m Mat4) Right() Vec3   { return Vec3{m[0], m[1], m[2]} }
func (m Mat4) Up() Vec3      { return Vec3{m[4], m[5], m[6]} }
func (m Mat4) Forward() Vec3 { return Vec3{-m[8], -m[9], -m[10]} }

// Mul performs column-major matrix multiplication: result = m * other.
func (m Mat4) Mul(other Mat4) Mat4 {
	var result Mat4
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			sum := 0.0
			for k := 0; k < 4; k++ {
				sum += m[k*4+row] * other[col*4+k]
			}
			result[col*4+row] = sum
		}
	}
	return result
}

// MulVec4 multiplies matrix by a column vector v: r = m * v.
func (m Mat4) MulVec4(v Vec4) Vec4 {
	r0 := m[0*4+0]*v.X + m[1*4+0]*v.Y + m[2*4+0]*v.Z + m[3*4+0]*v.W
	r1 := m[0*4+1]*v.X + m[1*4+1]*v.Y + m[2*4+1]*v.Z + m[3*4+1]*v.W
	r2 := m[0*4+2]*v.X + m[1*4+2]*v.Y + m[2*4+2]*v.Z + m[3*4+2]*v.W
	r3 := m[0*4+3]*v.X + m[1*4+3]*v.Y + m[2*4+3]*v.Z + m[3*4+3]*v.W
	return Vec4{r0, r1, r2, r3}
}

// MulPoint transforms a point (w=1) and applies perspective divide if w != 0.
func (m Mat4) MulPoint(p Vec3) Vec3 {
	r := m.MulVec4(Vec4{p.X, p.Y, p.Z, 1})
	if r.W != 0 {
		inv := 1.0 / r.W
		return Vec3{r.X * inv, r.Y * inv, r.Z * inv}
	}
	return Vec3{r.X, r.Y, r.Z}
}

// Inverse returns the inverse of m computed from its adjugate. A singular
// matrix (determinant exactly zero) yields the identity.
func (m Mat4) Inverse() Mat4 {
	var inv Mat4

	inv[0] = m[5]*m[10]*m[15] - m[5]*m[11]*m[14] - m[9]*m[6]*m[15] +
		m[9]*m[7]*m[14] + m[13]*m[6]*m[11] - m[13]*m[7]*m[10]
	inv[4] = -m[4]*m[10]*m[15] + m[4]*m[11]*m[14] + m[8]*m[6]*m[15] -
		m[8]*m[7]*m[14] - m[12]*m[6]*m[11] + m[12]*m[7]*m[10]
	inv[8] = m[4]*m[9]*m[15] - m[4]*m[11]*m[13] - m[8]*m[5]*m[15] +
		m[8]*m[7]*m[13] + m[12]*m[5]*m[11] - m[12]*m[7]*m[9]
	inv[12] = -m[4]*m[9]*m[14] + m[4]*m[10]*m[13] + m[8]*m[5]*m[14] -
		m[8]*m[6]*m[13] - m[12]*m[5]*m[10] + m[12]*m[6]*m[9]
	inv[1] = -m[1]*m[10]*m[15] + m[1]*m[11]*m[14] + m[9]*m[2]*m[15] -
		m[9]*m[3]*m[14] - m[13]*m[2]*m[11] + m[13]*m[3]*m[10]
	inv[5] = m[0]*m[10]*m[15] - m[0]*m[11]*m[14] - m[8]*m[2]*m[15] +
		m[8]*m[3]*m[14] + m[12]*m[2]*m[11] - m[12]*m[3]*m[10]
	inv[9] = -m[0]*m[9]*m[15] + m[0]*m[11]*m[13] + m[8]*m[1]*m[15] -
		m[8]*m[3]*m[13] - m[12]*m[1]*m[11] + m[12]*m[3]*m[9]
	inv[13] = m[0]*m[9]*m[14] - m[0]*m[10]*m[13] - m[8]*m[1]*m[14] +
		m[8]*m[2]*m[13] + m[12]*m[1]*m[10] - m[12]*m[2]*m[9]
	inv[2] = m[1]*m[6]*m[15] - m[1]*m[7]*m[14] - m[5]*m[2]*m[15] +
		m[5]*m[3]*m[14] + m[13]*m[2]*m[7] - m[13]*m[3]*m[6]
	inv[6] = -m[0]*m[6]*m[15] + m[0]*m[7]*m[14] + m[4]*m[2]*m[15] -
		m[4]*m[3]*m[14] - m[12]*m[2]*m[7] + m[12]*m[3]*m[6]
	inv[10] = m[0]*m[5]*m[15] - m[0]*m[7]*m[13] - m[4]*m[1]*m[15] +
		m[4]*m[3]*m[13] + m[12]*m[1]*m[7] - m[12]*m[3]*m[5]
	inv[14] = -m[0]*m[5]*m[14] + m[0]*m[6]*m[13] + m[4]*m[1]*m[14] -
		m[4]*m[2]*m[13] - m[12]*m[1]*m[6] + m[12]*m[2]*m[5]
	inv[3] = -m[1]*m[6]*m[11] + m[1]*m[7]*m[10] + m[5]*m[2]*m[11] -
		m[5]*m[3]*m[10] - m[9]*m[2]*m[7] + m[9]*m[3]*m[6]
	inv[7] = m[0]*m[6]*m[11] - m[0]*m[7]*m[10] - m[4]*m[2]*m[11] +
		m[4]*m[3]*m[10] + m[8]*m[2]*m[7] - m[8]*m[3]*m[6]
	inv[11] = -m[0]*m[5]*m[11] + m[0]*m[7]*m[9] + m[4]*m[1]*m[11] -
		m[4]*m[3]*m[9] - m[8]*m[1]*m[7] + m[8]*m[3]*m[5]
	inv[15] = m[0]*m[5]*m[10] - m[0]*m[6]*m[9] - m[4]*m[1]*m[10] +
		m[4]*m[2]*m[9] + m[8]*m[1]*m[6] - m[8]*m[2]*m[5]

	det := m[0]*inv[0] + m[1]*inv[4] + m[2]*inv[8] + m[3]*inv[12]
	if det == 0 {
		return IdentityMat4()
	}

	invDet := 1.0 / det
	for i := range inv {
		inv[i] *= invDet
	}
	return inv
}
