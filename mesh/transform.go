package mesh

import "math"

// AffineMatrix for 2D transforms: x' = ax + by + tx, y' = cx + dy + ty
type AffineMatrix struct {
	A  float64 `json:"a"`
	B  float64 `json:"b"`
	Tx float64 `json:"tx"`
	C  float64 `json:"c"`
	D  float64 `json:"d"`
	Ty float64 `json:"ty"`
}

// Identity returns an identity matrix (no transformation)
func Identity() AffineMatrix {
	return AffineMatrix{A: 1, D: 1}
}

// TransformPoint applies an affine transform to a point
// x' = a*x + b*y + tx
// y' = c*x + d*y + ty
func TransformPoint(p Point, m AffineMatrix) Point {
	return Point{
		X: m.A*p.X + m.B*p.Y + m.Tx,
		Y: m.C*p.X + m.D*p.Y + m.Ty,
	}
}

// TransformPoints applies an affine transform to multiple points
func TransformPoints(points []Point, m AffineMatrix) []Point {
	result := make([]Point, len(points))
	for i, p := range points {
		result[i] = TransformPoint(p, m)
	}
	return result
}

// Rotation creates a counter-clockwise rotation transform (radians, around origin)
func Rotation(angle float64) AffineMatrix {
	cos := math.Cos(angle)
	sin := math.Sin(angle)
	return AffineMatrix{A: cos, B: -sin, C: sin, D: cos}
}

// ClockwiseRotationDeg creates a rotation that turns points clockwise by
// degrees: x' = x cos + y sin, y' = -x sin + y cos.
// Angles below 1e-6 degrees yield the identity.
func ClockwiseRotationDeg(degrees float64) AffineMatrix {
	if math.Abs(degrees) < minDist {
		return Identity()
	}
	return Rotation(-degrees * math.Pi / 180.0)
}

// RotateVector rotates a 2D vector counter-clockwise by angle radians.
func RotateVector(v Point, angle float64) Point {
	return TransformPoint(v, Rotation(angle))
}

// NormalizeAngle maps an angle in radians into (-π, π].
func NormalizeAngle(angle float64) float64 {
	angle = math.Mod(angle, 2*math.Pi)
	if angle <= -math.Pi {
		angle += 2 * math.Pi
	} else if angle > math.Pi {
		angle -= 2 * math.Pi
	}
	return angle
}

// RotateXY applies a 2D transform to the X/Y components of v; Z is kept.
func RotateXY(v Vec3, m AffineMatrix) Vec3 {
	p := TransformPoint(Point{X: v.X, Y: v.Y}, m)
	return Vec3{X: p.X, Y: p.Y, Z: v.Z}
}

// Distance returns the Euclidean distance between two points
func Distance(p1, p2 Point) float64 {
	return math.Hypot(p2.X-p1.X, p2.Y-p1.Y)
}

// normalize2D returns (x,y) scaled to unit length, or (1,0) when its length
// is below 1e-6.
func normalize2D(x, y float64) Point {
	n := math.Hypot(x, y)
	if n < minDist {
		return Point{X: 1, Y: 0}
	}
	return Point{X: x / n, Y: y / n}
}
