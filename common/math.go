package common

import (
	"github.com/chewxy/math32"
)

// IdentityMatrix returns a 4x4 identity matrix in column-major order.
//
// Returns:
//   - [16]float32: the identity matrix
func IdentityMatrix() [16]float32 {
	var m [16]float32
	Identity(m[:])
	return m
}

// Identity resets a 4x4 matrix (flat slice) to the identity matrix.
// The matrix is stored in column-major order.
//
// Parameters:
//   - m: destination slice (must be at least 16 elements)
func Identity(m []float32) {
	for i := range m {
		m[i] = 0
	}
	m[0], m[5], m[10], m[15] = 1, 1, 1, 1
}

// Mul4 multiplies two 4x4 matrices and stores the result in out.
// All matrices are stored in column-major order.
// Result: out = a * b
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - a: left-hand matrix (16 elements)
//   - b: right-hand matrix (16 elements)
func Mul4(out, a, b []float32) {
	var buf [16]float32
	for i := 0; i < 4; i++ { // column of B
		for j := 0; j < 4; j++ { // row of A
			sum := float32(0)
			for k := 0; k < 4; k++ {
				sum += a[k*4+j] * b[i*4+k]
			}
			buf[i*4+j] = sum
		}
	}
	copy(out, buf[:])
}

// ComposeMatrix builds a column-major 4x4 matrix from a TRS transform (T * R * S).
//
// Parameters:
//   - t: the transform to compose
//
// Returns:
//   - [16]float32: the composed matrix
func ComposeMatrix(t Transform) [16]float32 {
	x, y, z, w := t.Rotation[0], t.Rotation[1], t.Rotation[2], t.Rotation[3]
	sx, sy, sz := t.Scale[0], t.Scale[1], t.Scale[2]

	return [16]float32{
		(1 - 2*(y*y+z*z)) * sx, 2 * (x*y + z*w) * sx, 2 * (x*z - y*w) * sx, 0,
		2 * (x*y - z*w) * sy, (1 - 2*(x*x+z*z)) * sy, 2 * (y*z + x*w) * sy, 0,
		2 * (x*z + y*w) * sz, 2 * (y*z - x*w) * sz, (1 - 2*(x*x+y*y)) * sz, 0,
		t.Translation[0], t.Translation[1], t.Translation[2], 1,
	}
}

// DecomposeMatrix extracts translation, rotation and scale from a column-major 4x4 matrix.
// Shear is discarded. A negative determinant is folded into the X scale.
//
// Parameters:
//   - m: the matrix to decompose
//
// Returns:
//   - Transform: the decomposed transform
func DecomposeMatrix(m [16]float32) Transform {
	t := Transform{Translation: [3]float32{m[12], m[13], m[14]}}

	sx := Length3([3]float32{m[0], m[1], m[2]})
	sy := Length3([3]float32{m[4], m[5], m[6]})
	sz := Length3([3]float32{m[8], m[9], m[10]})

	det := m[0]*(m[5]*m[10]-m[9]*m[6]) - m[4]*(m[1]*m[10]-m[9]*m[2]) + m[8]*(m[1]*m[6]-m[5]*m[2])
	if det < 0 {
		sx = -sx
	}
	t.Scale = [3]float32{sx, sy, sz}

	if math32.Abs(sx) < 1e-6 || sy < 1e-6 || sz < 1e-6 {
		t.Rotation = [4]float32{0, 0, 0, 1}
		return t
	}

	r := [9]float32{
		m[0] / sx, m[1] / sx, m[2] / sx,
		m[4] / sy, m[5] / sy, m[6] / sy,
		m[8] / sz, m[9] / sz, m[10] / sz,
	}
	t.Rotation = RotationToQuaternion(r)
	return t
}

// RotationToQuaternion converts a column-major 3x3 rotation matrix into a unit quaternion (x, y, z, w).
//
// Parameters:
//   - r: the rotation matrix, columns stored consecutively
//
// Returns:
//   - [4]float32: the quaternion
func RotationToQuaternion(r [9]float32) [4]float32 {
	// r[col*3+row]
	m00, m10, m20 := r[0], r[1], r[2]
	m01, m11, m21 := r[3], r[4], r[5]
	m02, m12, m22 := r[6], r[7], r[8]

	trace := m00 + m11 + m22
	var x, y, z, w float32

	switch {
	case trace > 0:
		s := math32.Sqrt(trace+1) * 2
		w = 0.25 * s
		x = (m21 - m12) / s
		y = (m02 - m20) / s
		z = (m10 - m01) / s
	case m00 > m11 && m00 > m22:
		s := math32.Sqrt(1+m00-m11-m22) * 2
		w = (m21 - m12) / s
		x = 0.25 * s
		y = (m01 + m10) / s
		z = (m02 + m20) / s
	case m11 > m22:
		s := math32.Sqrt(1+m11-m00-m22) * 2
		w = (m02 - m20) / s
		x = (m01 + m10) / s
		y = 0.25 * s
		z = (m12 + m21) / s
	default:
		s := math32.Sqrt(1+m22-m00-m11) * 2
		w = (m10 - m01) / s
		x = (m02 + m20) / s
		y = (m12 + m21) / s
		z = 0.25 * s
	}

	return NormalizeQuaternion([4]float32{x, y, z, w})
}

// NormalizeQuaternion scales a quaternion to unit length. Degenerate input yields the identity rotation.
//
// Parameters:
//   - q: the quaternion to normalize
//
// Returns:
//   - [4]float32: the unit quaternion
func NormalizeQuaternion(q [4]float32) [4]float32 {
	l := math32.Sqrt(q[0]*q[0] + q[1]*q[1] + q[2]*q[2] + q[3]*q[3])
	if l < 1e-6 {
		return [4]float32{0, 0, 0, 1}
	}
	return [4]float32{q[0] / l, q[1] / l, q[2] / l, q[3] / l}
}

// QuaternionDot returns the four-component dot product of two quaternions.
func QuaternionDot(a, b [4]float32) float32 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] + a[3]*b[3]
}

// Sub3 returns a - b.
func Sub3(a, b [3]float32) [3]float32 {
	return [3]float32{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

// Cross3 returns the cross product a x b.
func Cross3(a, b [3]float32) [3]float32 {
	return [3]float32{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

// Dot3 returns the dot product of a and b.
func Dot3(a, b [3]float32) float32 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

// Length3 returns the Euclidean length of v.
func Length3(v [3]float32) float32 {
	return math32.Sqrt(Dot3(v, v))
}

// Normalize3 returns v scaled to unit length, or false when v is degenerate.
//
// Parameters:
//   - v: the vector to normalize
//
// Returns:
//   - [3]float32: the unit vector (zero when degenerate)
//   - bool: false if the vector length was below 1e-6
func Normalize3(v [3]float32) ([3]float32, bool) {
	l := Length3(v)
	if l < 1e-6 {
		return [3]float32{}, false
	}
	return [3]float32{v[0] / l, v[1] / l, v[2] / l}, true
}

// --- Handedness conversion ---
//
// glTF is right-handed. Converting to a left-handed target mirrors the Z axis:
// positions and directions negate Z, quaternions negate Z and W, matrices are conjugated by diag(1, 1, -1, 1).

// FlipVec3Z mirrors a position or direction across the XY plane.
func FlipVec3Z(v [3]float32) [3]float32 {
	return [3]float32{v[0], v[1], -v[2]}
}

// FlipTangentZ mirrors a tangent (xyz + handedness w) across the XY plane.
func FlipTangentZ(t [4]float32) [4]float32 {
	return [4]float32{t[0], t[1], -t[2], -t[3]}
}

// FlipQuaternionZ mirrors a rotation quaternion across the XY plane.
func FlipQuaternionZ(q [4]float32) [4]float32 {
	return [4]float32{q[0], q[1], -q[2], -q[3]}
}

// FlipMatrixZ conjugates a column-major matrix by the Z mirror, returning S * m * S.
//
// Parameters:
//   - m: the matrix to convert
//
// Returns:
//   - [16]float32: the converted matrix
func FlipMatrixZ(m [16]float32) [16]float32 {
	// Elements with exactly one index on the Z row or Z column change sign.
	m[2], m[6], m[14] = -m[2], -m[6], -m[14]
	m[8], m[9], m[11] = -m[8], -m[9], -m[11]
	return m
}

// FlipTransformZ mirrors a TRS transform across the XY plane.
func FlipTransformZ(t Transform) Transform {
	return Transform{
		Translation: FlipVec3Z(t.Translation),
		Rotation:    FlipQuaternionZ(t.Rotation),
		Scale:       t.Scale,
	}
}
