package mesh

import (
	"context"
	"math"

	"github.com/paulmach/orb/planar"
)

// AreaFunc returns the area enclosed by a local polygon.
type AreaFunc interface {
	Area(ctx context.Context, polygon []Point) (float64, error)
}

// PlanarArea computes polygon area with orb/planar.
type PlanarArea struct{}

// Area implements AreaFunc.
func (PlanarArea) Area(_ context.Context, polygon []Point) (float64, error) {
	if len(polygon) < 3 {
		return 0, nil
	}
	return math.Abs(planar.Area(toRing(polygon))), nil
}

// EquivalentRadius returns sqrt(area/π), or 1.0 for a non-positive area.
func EquivalentRadius(area float64) float64 {
	if area <= 0 {
		return 1.0
	}
	return math.Sqrt(area / math.Pi)
}

// RadiusNormalizer rescales local coordinates by the equivalent radius.
type RadiusNormalizer struct {
	Enabled bool
	Area    AreaFunc
}

// Normalize returns the (possibly rescaled) points and their scale. When
// enabled the scale is the equivalent radius in world units; output units
// are applied at serialization. When disabled it returns the points
// untouched and the upstream scale.
func (n RadiusNormalizer) Normalize(ctx context.Context, points []Point, upstream float64) ([]Point, float64, error) {
	if !n.Enabled {
		return points, upstream, nil
	}
	af := n.Area
	if af == nil {
		af = PlanarArea{}
	}
	area, err := af.Area(ctx, points)
	if err != nil {
		return nil, 0, err
	}

	r := EquivalentRadius(area)
	out := points
	if r > minDist {
		out = make([]Point, len(points))
		for i, p := range points {
			out[i] = Point{X: p.X / r, Y: p.Y / r}
		}
	}
	return out, r, nil
}
