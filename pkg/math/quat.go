package math

import "math"

// Quat represents a rotation quaternion.
// Components are stored as X, Y, Z, W where W is the scalar part,
// matching the glTF node rotation layout.
type Quat struct {
	X, Y, Z, W float32
}

// QuatIdentity returns an identity quaternion (no rotation).
func QuatIdentity() Quat {
	return Quat{W: 1}
}

// QuatFromAxisAngle creates a quaternion from axis-angle rotation.
// axis should be normalized, angle is in radians.
func QuatFromAxisAngle(axis Vec3, angle float32) Quat {
	s, c := math.Sincos(float64(angle) / 2)
	return Quat{
		X: axis.X * float32(s),
		Y: axis.Y * float32(s),
		Z: axis.Z * float32(s),
		W: float32(c),
	}
}

// QuatFromEuler creates a quaternion from intrinsic XYZ Euler angles in radians.
func QuatFromEuler(e Vec3) Quat {
	sx, cx := math.Sincos(float64(e.X) / 2)
	sy, cy := math.Sincos(float64(e.Y) / 2)
	sz, cz := math.Sincos(float64(e.Z) / 2)
	return Quat{
		X: float32(sx*cy*cz + cx*sy*sz),
		Y: float32(cx*sy*cz - sx*cy*sz),
		Z: float32(cx*cy*sz + sx*sy*cz),
		W: float32(cx*cy*cz - sx*sy*sz),
	}
}

// QuatFromMat3 extracts a rotation from a column-major, unscaled 3x3 matrix.
func QuatFromMat3(r [9]float32) Quat {
	m00, m10, m20 := float64(r[0]), float64(r[1]), float64(r[2])
	m01, m11, m21 := float64(r[3]), float64(r[4]), float64(r[5])
	m02, m12, m22 := float64(r[6]), float64(r[7]), float64(r[8])

	var q Quat
	switch trace := m00 + m11 + m22; {
	case trace > 0:
		s := 0.5 / math.Sqrt(trace+1)
		q = Quat{
			X: float32((m21 - m12) * s),
			Y: float32((m02 - m20) * s),
			Z: float32((m10 - m01) * s),
			W: float32(0.25 / s),
		}
	case m00 > m11 && m00 > m22:
		s := 2 * math.Sqrt(1+m00-m11-m22)
		q = Quat{
			X: float32(0.25 * s),
			Y: float32((m01 + m10) / s),
			Z: float32((m02 + m20) / s),
			W: float32((m21 - m12) / s),
		}
	case m11 > m22:
		s := 2 * math.Sqrt(1+m11-m00-m22)
		q = Quat{
			X: float32((m01 + m10) / s),
			Y: float32(0.25 * s),
			Z: float32((m12 + m21) / s),
			W: float32((m02 - m20) / s),
		}
	default:
		s := 2 * math.Sqrt(1+m22-m00-m11)
		q = Quat{
			X: float32((m02 + m20) / s),
			Y: float32((m12 + m21) / s),
			Z: float32(0.25 * s),
			W: float32((m10 - m01) / s),
		}
	}
	return q.Normalize()
}

// Normalize returns a normalized quaternion.
func (q Quat) Normalize() Quat {
	length := float32(math.Sqrt(float64(q.Dot(q))))
	if length < 0.0001 {
		return QuatIdentity()
	}
	inv := 1 / length
	return Quat{q.X * inv, q.Y * inv, q.Z * inv, q.W * inv}
}

// Dot returns the dot product of two quaternions.
func (q Quat) Dot(other Quat) float32 {
	return q.X*other.X + q.Y*other.Y + q.Z*other.Z + q.W*other.W
}

// Slerp performs spherical linear interpolation between two quaternions.
// t should be in range [0, 1].
func (q Quat) Slerp(other Quat, t float32) Quat {
	dot := q.Dot(other)

	// Take the shorter path.
	if dot < 0 {
		other = Quat{-other.X, -other.Y, -other.Z, -other.W}
		dot = -dot
	}

	// Nearly parallel: sin(theta) approaches zero.
	if dot > 0.9995 {
		return Quat{
			X: q.X + t*(other.X-q.X),
			Y: q.Y + t*(other.Y-q.Y),
			Z: q.Z + t*(other.Z-q.Z),
			W: q.W + t*(other.W-q.W),
		}.Normalize()
	}

	theta0 := math.Acos(float64(dot))
	sinTheta0 := math.Sin(theta0)
	s0 := float32(math.Sin((1-float64(t))*theta0) / sinTheta0)
	s1 := float32(math.Sin(float64(t)*theta0) / sinTheta0)

	return Quat{
		X: q.X*s0 + other.X*s1,
		Y: q.Y*s0 + other.Y*s1,
		Z: q.Z*s0 + other.Z*s1,
		W: q.W*s0 + other.W*s1,
	}
}

// ToMat4 converts the quaternion to a 4x4 rotation matrix.
func (q Quat) ToMat4() Mat4 {
	q = q.Normalize()

	xx, xy, xz, xw := q.X*q.X, q.X*q.Y, q.X*q.Z, q.X*q.W
	yy, yz, yw := q.Y*q.Y, q.Y*q.Z, q.Y*q.W
	zz, zw := q.Z*q.Z, q.Z*q.W

	return Mat4{
		1 - 2*(yy+zz), 2 * (xy + zw), 2 * (xz - yw), 0,
		2 * (xy - zw), 1 - 2*(xx+zz), 2 * (yz + xw), 0,
		2 * (xz + yw), 2 * (yz - xw), 1 - 2*(xx+yy), 0,
		0, 0, 0, 1,
	}
}

// Mul multiplies two quaternions (applies other, then q).
func (q Quat) Mul(other Quat) Quat {
	return Quat{
		X: q.W*other.X + q.X*other.W + q.Y*other.Z - q.Z*other.Y,
		Y: q.W*other.Y - q.X*other.Z + q.Y*other.W + q.Z*other.X,
		Z: q.W*other.Z + q.X*other.Y - q.Y*other.X + q.Z*other.W,
		W: q.W*other.W - q.X*other.X - q.Y*other.Y - q.Z*other.Z,
	}
}

// Array returns the components in glTF order (x, y, z, w).
func (q Quat) Array() [4]float32 {
	return [4]float32{q.X, q.Y, q.Z, q.W}
}
