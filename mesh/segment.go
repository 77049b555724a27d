package mesh

import "math"

// Curvature returns the signed osculating radius and turn angle between
// inlet (p1, n1) and outlet (p2, n2) frames in the sagittal plane.
// Near-parallel normals yield an infinite radius and a zero angle.
func Curvature(p1, n1, p2, n2 Point) (radius, angle float64) {
	crossPN2 := (p2.X-p1.X)*n2.Y - (p2.Y-p1.Y)*n2.X
	crossN2N1 := n2.X*n1.Y - n2.Y*n1.X

	if math.Abs(crossN2N1) > minDist {
		radius = -crossPN2 / crossN2N1
	} else {
		radius = math.Inf(1)
	}

	angle = NormalizeAngle(math.Atan2(n2.Y, n2.X) - math.Atan2(n1.Y, n1.X))
	if math.IsInf(radius, 0) {
		angle = 0
	}
	return radius, angle
}

// OutletGeometry returns the outlet point and normal of a segment that
// starts at pIn with normal nIn and has the given length, radius and angle.
func OutletGeometry(pIn, nIn Point, length, radius, angle float64) (Point, Point) {
	out := RotateVector(nIn, angle)
	nOut := normalize2D(out.X, out.Y)

	if length <= minDist {
		return pIn, nOut
	}

	if math.Abs(angle) < minDist || math.IsInf(radius, 0) {
		// tangent is the normal turned -90°
		return Point{X: pIn.X + length*nIn.Y, Y: pIn.Y - length*nIn.X}, nOut
	}

	c := Point{X: pIn.X + radius*nIn.X, Y: pIn.Y + radius*nIn.Y}
	v := RotateVector(Point{X: -radius * nIn.X, Y: -radius * nIn.Y}, -angle)
	return Point{X: c.X + v.X, Y: c.Y + v.Y}, nOut
}

// ComputeSegment derives the tube segment between two adjacent sections.
func ComputeSegment(a, b *Section) Segment {
	p1 := Point{X: a.CenterAdjusted.X, Y: a.CenterAdjusted.Y}
	p2 := Point{X: b.CenterAdjusted.X, Y: b.CenterAdjusted.Y}
	n1 := normalize2D(a.Normal.X, a.Normal.Y)
	n2 := normalize2D(b.Normal.X, b.Normal.Y)

	length := Distance(p1, p2)
	radius, angle := Curvature(p1, n1, p2, n2)
	outP, outN := OutletGeometry(p1, n1, length, radius, angle)

	return Segment{
		From:            a.Sample.Index,
		To:              b.Sample.Index,
		Length:          length,
		CurvatureRadius: radius,
		CurvatureAngle:  angle,
		InletPoint:      p1,
		InletNormal:     n1,
		OutletPoint:     outP,
		OutletNormal:    outN,
	}
}

// DuctQuad holds the four sagittal-plane corners of a tube segment.
type DuctQuad struct {
	InMin, InMax, OutMin, OutMax Point
}

// Ring returns the corners in drawing order.
func (q DuctQuad) Ring() []Point {
	return []Point{q.InMin, q.OutMin, q.OutMax, q.InMax}
}

// DuctCorners offsets the inlet and outlet points along their normals by the
// section's centered z extent, scaled by the inlet and outlet scales.
func DuctCorners(s *Section, seg Segment) DuctQuad {
	zmin, zmax := s.ZExtent()
	at := func(p, n Point, z, scale float64) Point {
		return Point{X: p.X + n.X*z*scale, Y: p.Y + n.Y*z*scale}
	}
	return DuctQuad{
		InMin:  at(seg.InletPoint, seg.InletNormal, zmin, s.ScaleIn),
		InMax:  at(seg.InletPoint, seg.InletNormal, zmax, s.ScaleIn),
		OutMin: at(seg.OutletPoint, seg.OutletNormal, zmin, s.ScaleOut),
		OutMax: at(seg.OutletPoint, seg.OutletNormal, zmax, s.ScaleOut),
	}
}
