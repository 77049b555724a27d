package mesh

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// minDist is the normalization and near-zero threshold used throughout.
	minDist = 1e-6
	// refSwitch is the |tangent.z| above which the reference axis becomes +Y.
	refSwitch = 0.9
)

var (
	fallbackAxis = Vec3{X: 1}
	refZ         = Vec3{Z: 1}
	refY         = Vec3{Y: 1}
)

// NormalizeVec returns v scaled to unit length, or the fallback axis (1,0,0)
// when |v| < 1e-6.
func NormalizeVec(v Vec3) Vec3 {
	n := r3.Norm(v)
	if n < minDist {
		return fallbackAxis
	}
	return r3.Scale(1/n, v)
}

// ComputeTangents returns one unit tangent per point using a 3-point moving
// average of first differences. Endpoints inherit the adjacent interior
// tangent. Requires len(points) >= 2; shorter input yields fallback axes.
func ComputeTangents(points []Vec3) []Vec3 {
	n := len(points)
	t := make([]Vec3, n)
	if n < 2 {
		for i := range t {
			t[i] = fallbackAxis
		}
		return t
	}

	v := make([]Vec3, n)
	v[0] = r3.Sub(points[1], points[0])
	v[n-1] = r3.Sub(points[n-1], points[n-2])
	for i := 1; i < n-1; i++ {
		v[i] = r3.Scale(0.5, r3.Sub(points[i+1], points[i-1]))
	}

	if n == 2 {
		t[0] = NormalizeVec(v[0])
		t[1] = NormalizeVec(v[1])
		return t
	}

	for i := 1; i < n-1; i++ {
		t[i] = NormalizeVec(r3.Scale(1.0/3.0, r3.Add(r3.Add(v[i-1], v[i]), v[i+1])))
	}
	t[0] = t[1]
	t[n-1] = t[n-2]
	return t
}

// ReferenceAxes builds the in-plane basis (t_axis, b_axis) for a unit
// tangent. The reference is +Z unless the tangent is within the refSwitch
// band of Z, then +Y.
//
// With the +Z reference the XY part of tangent × ref is sign-flipped, so
// t_axis is the tangent rotated +90° in the XY plane (for a tangent along
// +X it is +Y). With the +Y reference the cross product has no Y part and
// is used as is. Both keep {tangent, t_axis, b_axis} orthonormal and
// right-handed. Paths that cross the reference switch more than once are
// not rotation continuous across the switch.
func ReferenceAxes(tangent Vec3) (tAxis, bAxis Vec3) {
	var c Vec3
	if math.Abs(tangent.Z) >= refSwitch {
		c = r3.Cross(tangent, refY)
	} else {
		c = r3.Cross(refZ, tangent)
	}
	tAxis = NormalizeVec(c)
	bAxis = NormalizeVec(r3.Cross(tangent, tAxis))
	return tAxis, bAxis
}

// BuildFrames computes one Frame per sample.
func BuildFrames(samples []CenterlineSample) []Frame {
	tangents := ComputeTangents(SamplePositions(samples))
	frames := make([]Frame, len(tangents))
	for i, t := range tangents {
		frames[i] = NewFrame(t)
	}
	return frames
}

// NewFrame builds the frame for a single tangent.
func NewFrame(tangent Vec3) Frame {
	tangent = NormalizeVec(tangent)
	tAxis, bAxis := ReferenceAxes(tangent)
	return Frame{Tangent: tangent, TAxis: tAxis, BAxis: bAxis}
}

// InPlaneNormal returns the sagittal-plane normal of the frame: the XY
// components of t_axis, normalized in 2D, falling back to (1,0).
func (f Frame) InPlaneNormal() Point {
	return normalize2D(f.TAxis.X, f.TAxis.Y)
}
