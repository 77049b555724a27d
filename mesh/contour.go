package mesh

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
	"gonum.org/v1/gonum/spatial/r3"
)

// MinPointsPerSlice is the default minimum number of intersection points
// for a cut to count as a section.
const MinPointsPerSlice = 3

// ProjectContour expresses raw points in the local (t_axis, b_axis) basis
// of a plane through origin: y = (p-o)·t_axis, z = (p-o)·b_axis.
func ProjectContour(raw RawContour, origin Vec3, f Frame) []Point {
	out := make([]Point, len(raw))
	for i, p := range raw {
		d := r3.Sub(p, origin)
		out[i] = Point{X: r3.Dot(d, f.TAxis), Y: r3.Dot(d, f.BAxis)}
	}
	return out
}

// SortByAngle orders points by atan2(z, y) ascending (counter-clockwise),
// or descending when clockwise is set. The sort is stable, so sorting an
// already sorted contour leaves it unchanged.
//
// This only orders points within one contour; it does not align vertex
// count or start index between sections.
func SortByAngle(points []Point, clockwise bool) []Point {
	out := make([]Point, len(points))
	copy(out, points)
	angles := make([]float64, len(out))
	for i, p := range out {
		angles[i] = math.Atan2(p.Y, p.X)
	}
	idx := make([]int, len(out))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		if clockwise {
			return angles[idx[a]] > angles[idx[b]]
		}
		return angles[idx[a]] < angles[idx[b]]
	})
	sorted := make([]Point, len(out))
	for i, j := range idx {
		sorted[i] = out[j]
	}
	return sorted
}

// ZCenter returns (min(z)+max(z))/2 over the contour bound.
func ZCenter(points []Point) float64 {
	if len(points) == 0 {
		return 0
	}
	b := toRing(points).Bound()
	return (b.Min[1] + b.Max[1]) / 2
}

// CenterZ subtracts zc from every local z value; y is untouched.
func CenterZ(points []Point, zc float64) []Point {
	out := make([]Point, len(points))
	for i, p := range points {
		out[i] = Point{X: p.X, Y: p.Y - zc}
	}
	return out
}

// SignedArea returns the shoelace area of the (y,z) polygon. The polygon
// needs no closing duplicate. Fewer than 3 points yield 0.
func SignedArea(points []Point) float64 {
	n := len(points)
	if n < 3 {
		return 0
	}
	area := 0.0
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		area += points[i].X*points[j].Y - points[j].X*points[i].Y
	}
	return 0.5 * area
}

// Orientation returns the sign of a signed area: +1, -1, or 0.
func Orientation(area float64) int8 {
	switch {
	case area > 0:
		return 1
	case area < 0:
		return -1
	}
	return 0
}

// OrderedContour is the output of the orderer for one cut.
type OrderedContour struct {
	Points         []Point // sorted and z-centered, not yet normalized
	ZCenter        float64
	CenterAdjusted Vec3
	Normal         Point
}

// ContourOrderer turns raw cuts into ordered, centered local polygons.
type ContourOrderer struct {
	Clockwise       bool
	RotateLocalDeg  float64
	RotateGlobalDeg float64
	ScaleIn         float64
}

// Order projects, rotates, sorts and z-centers a raw contour cut at origin
// with frame f.
func (o ContourOrderer) Order(raw RawContour, origin Vec3, f Frame) OrderedContour {
	local := ProjectContour(raw, origin, f)
	if math.Abs(o.RotateLocalDeg) >= minDist {
		local = TransformPoints(local, ClockwiseRotationDeg(o.RotateLocalDeg))
	}
	local = SortByAngle(local, o.Clockwise)

	zc := ZCenter(local)
	scale := o.ScaleIn
	if scale == 0 {
		scale = 1
	}

	global := ClockwiseRotationDeg(o.RotateGlobalDeg)
	normal := TransformPoint(f.InPlaneNormal(), global)
	center := RotateXY(origin, global)
	shift := zc * scale
	center.X += shift * normal.X
	center.Y += shift * normal.Y

	return OrderedContour{
		Points:         CenterZ(local, zc),
		ZCenter:        zc,
		CenterAdjusted: center,
		Normal:         normal,
	}
}

func toRing(points []Point) orb.Ring {
	ring := make(orb.Ring, 0, len(points)+1)
	for _, p := range points {
		ring = append(ring, orb.Point{p.X, p.Y})
	}
	if len(ring) > 0 && !ring.Closed() {
		ring = append(ring, ring[0])
	}
	return ring
}
