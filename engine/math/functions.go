package math

import (
	m "math"
)

const (
	/** @brief An approximate representation of PI. */
	K_PI float32 = 3.14159265358979323846
	/** @brief An approximate representation of PI multiplied by 2. */
	K_PI_2 float32 = 2.0 * K_PI
	/** @brief An approximate representation of PI divided by 2. */
	K_HALF_PI float32 = 0.5 * K_PI
	/** @brief A multiplier used to convert degrees to radians. */
	K_DEG2RAD_MULTIPLIER float32 = K_PI / 180.0
	/** @brief A multiplier used to convert radians to degrees. */
	K_RAD2DEG_MULTIPLIER float32 = 180.0 / K_PI
	/** @brief Smallest positive number where 1.0 + FLOAT_EPSILON != 0 */
	K_FLOAT_EPSILON float32 = 1.192092896e-07
)

func ksin(x float32) float32 {
	return float32(m.Sin(float64(x)))
}

func kcos(x float32) float32 {
	return float32(m.Cos(float64(x)))
}

func kabs(x float32) float32 {
	return float32(m.Abs(float64(x)))
}

// DegToRad converts degrees to radians.
func DegToRad(degrees float32) float32 {
	return degrees * K_DEG2RAD_MULTIPLIER
}

// ------------------------------------------
// Vector 2
// ------------------------------------------

func NewVec2(x, y float32) Vec2 {
	return Vec2{X: x, Y: y}
}

func NewVec2One() Vec2 {
	return Vec2{X: 1.0, Y: 1.0}
}

func (v Vec2) Add(other Vec2) Vec2 {
	return Vec2{X: v.X + other.X, Y: v.Y + other.Y}
}

func (v Vec2) Mul(other Vec2) Vec2 {
	return Vec2{X: v.X * other.X, Y: v.Y * other.Y}
}

func (v Vec2) MulScalar(s float32) Vec2 {
	return Vec2{X: v.X * s, Y: v.Y * s}
}

// ------------------------------------------
// Vector 3
// ------------------------------------------

func NewVec3(x, y, z float32) Vec3 {
	return Vec3{X: x, Y: y, Z: z}
}

// Array returns the components as an array, ready to be copied into GPU memory.
func (v Vec3) Array() [3]float32 {
	return [3]float32{v.X, v.Y, v.Z}
}

// ------------------------------------------
// Vector 4
// ------------------------------------------

func NewVec4(x, y, z, w float32) Vec4 {
	return Vec4{X: x, Y: y, Z: z, W: w}
}

/**
 * @brief Creates and returns a 4-component vector with all components set to 1.0f.
 * Used as the neutral (white, opaque) tint.
 */
func NewVec4One() Vec4 {
	return Vec4{X: 1.0, Y: 1.0, Z: 1.0, W: 1.0}
}

func (v Vec4) Array() [4]float32 {
	return [4]float32{v.X, v.Y, v.Z, v.W}
}

/**
 * @brief Linearly interpolates every component between v and other.
 *
 * @param other The target vector.
 * @param t The interpolation factor, 0 returns v and 1 returns other.
 */
func (v Vec4) Lerp(other Vec4, t float32) Vec4 {
	return Vec4{
		X: v.X + (other.X-v.X)*t,
		Y: v.Y + (other.Y-v.Y)*t,
		Z: v.Z + (other.Z-v.Z)*t,
		W: v.W + (other.W-v.W)*t,
	}
}

// ------------------------------------------
// Matrix 3
// ------------------------------------------

/**
 * @brief Creates and returns an identity matrix:
 *
 * {
 *   {1, 0, 0},
 *   {0, 1, 0},
 *   {0, 0, 1}
 * }
 */
func NewMat3Identity() Mat3 {
	return Mat3{Data: [9]float32{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	}}
}

func NewMat3Translation(position Vec2) Mat3 {
	out := NewMat3Identity()
	out.Data[2] = position.X
	out.Data[5] = position.Y
	return out
}

func NewMat3Scale(scale Vec2) Mat3 {
	out := NewMat3Identity()
	out.Data[0] = scale.X
	out.Data[4] = scale.Y
	return out
}

// NewMat3Rotation creates a counter-clockwise rotation around the origin.
func NewMat3Rotation(angle_radians float32) Mat3 {
	c := kcos(angle_radians)
	s := ksin(angle_radians)
	out := NewMat3Identity()
	out.Data[0] = c
	out.Data[1] = -s
	out.Data[3] = s
	out.Data[4] = c
	return out
}

/**
 * @brief Composes translation * rotation * scale, the usual order for
 * placing a sprite in the world.
 */
func NewMat3TRS(position Vec2, angle_radians float32, scale Vec2) Mat3 {
	return NewMat3Translation(position).Mul(NewMat3Rotation(angle_radians)).Mul(NewMat3Scale(scale))
}

/**
 * @brief Returns the result of multiplying mt by other (mt applied last).
 */
func (mt Mat3) Mul(other Mat3) Mat3 {
	out := Mat3{}
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			sum := float32(0)
			for i := 0; i < 3; i++ {
				sum += mt.Data[row*3+i] * other.Data[i*3+col]
			}
			out.Data[row*3+col] = sum
		}
	}
	return out
}

// Row returns the given row (0..2) of the matrix.
func (mt Mat3) Row(row int) Vec3 {
	return Vec3{X: mt.Data[row*3], Y: mt.Data[row*3+1], Z: mt.Data[row*3+2]}
}

// MulVec3 returns mt * v.
func (mt Mat3) MulVec3(v Vec3) Vec3 {
	return Vec3{
		X: mt.Data[0]*v.X + mt.Data[1]*v.Y + mt.Data[2]*v.Z,
		Y: mt.Data[3]*v.X + mt.Data[4]*v.Y + mt.Data[5]*v.Z,
		Z: mt.Data[6]*v.X + mt.Data[7]*v.Y + mt.Data[8]*v.Z,
	}
}

func (mt Mat3) Determinant() float32 {
	d := mt.Data
	return d[0]*(d[4]*d[8]-d[5]*d[7]) -
		d[1]*(d[3]*d[8]-d[5]*d[6]) +
		d[2]*(d[3]*d[7]-d[4]*d[6])
}

/**
 * @brief Creates and returns an inverse of the provided matrix.
 *
 * @return The inverted matrix and false when the matrix is singular.
 */
func (mt Mat3) Inverse() (Mat3, bool) {
	det := mt.Determinant()
	if kabs(det) < K_FLOAT_EPSILON {
		return Mat3{}, false
	}
	d := mt.Data
	inv := 1.0 / det
	return Mat3{Data: [9]float32{
		(d[4]*d[8] - d[5]*d[7]) * inv,
		(d[2]*d[7] - d[1]*d[8]) * inv,
		(d[1]*d[5] - d[2]*d[4]) * inv,
		(d[5]*d[6] - d[3]*d[8]) * inv,
		(d[0]*d[8] - d[2]*d[6]) * inv,
		(d[2]*d[3] - d[0]*d[5]) * inv,
		(d[3]*d[7] - d[4]*d[6]) * inv,
		(d[1]*d[6] - d[0]*d[7]) * inv,
		(d[0]*d[4] - d[1]*d[3]) * inv,
	}}, true
}

// ------------------------------------------
// Matrix 4
// ------------------------------------------

func NewMat4Identity() Mat4 {
	out_matrix := Mat4{}
	out_matrix.Data[0] = 1.0
	out_matrix.Data[5] = 1.0
	out_matrix.Data[10] = 1.0
	out_matrix.Data[15] = 1.0
	return out_matrix
}

/**
 * @brief Creates and returns an orthographic projection matrix for a
 * zero-to-one depth range. A point at z=near_clip lands on depth 0 and
 * z=far_clip on depth 1, so passing near_clip > far_clip makes larger z
 * values draw in front.
 *
 * @param left The left side of the view frustum.
 * @param right The right side of the view frustum.
 * @param bottom The bottom side of the view frustum.
 * @param top The top side of the view frustum.
 * @param near_clip The z value mapped to depth 0.
 * @param far_clip The z value mapped to depth 1.
 * @return A new orthographic projection matrix.
 */
func NewMat4Orthographic(left, right, bottom, top, near_clip, far_clip float32) Mat4 {
	out_matrix := NewMat4Identity()

	rl := 1.0 / (right - left)
	tb := 1.0 / (top - bottom)
	fn := 1.0 / (far_clip - near_clip)

	out_matrix.Data[0] = 2.0 * rl
	out_matrix.Data[5] = 2.0 * tb
	out_matrix.Data[10] = fn

	out_matrix.Data[12] = -(right + left) * rl
	out_matrix.Data[13] = -(top + bottom) * tb
	out_matrix.Data[14] = -near_clip * fn
	return out_matrix
}

// MulVec4 returns mt * v for a column-major matrix.
func (mt Mat4) MulVec4(v Vec4) Vec4 {
	d := mt.Data
	return Vec4{
		X: d[0]*v.X + d[4]*v.Y + d[8]*v.Z + d[12]*v.W,
		Y: d[1]*v.X + d[5]*v.Y + d[9]*v.Z + d[13]*v.W,
		Z: d[2]*v.X + d[6]*v.Y + d[10]*v.Z + d[14]*v.W,
		W: d[3]*v.X + d[7]*v.Y + d[11]*v.Z + d[15]*v.W,
	}
}
