package mesh

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// SectionCutter intersects the lumen surface with a plane. The returned
// points carry no ordering guarantee.
type SectionCutter interface {
	Cut(ctx context.Context, origin, normal Vec3) (RawContour, error)
}

// SurfaceProvider resolves the lumen surface once at pipeline start.
type SurfaceProvider interface {
	Surface() (SectionCutter, error)
}

// CutterFunc adapts a function to SectionCutter.
type CutterFunc func(ctx context.Context, origin, normal Vec3) (RawContour, error)

// Cut implements SectionCutter.
func (f CutterFunc) Cut(ctx context.Context, origin, normal Vec3) (RawContour, error) {
	return f(ctx, origin, normal)
}

// Triangle is a surface facet.
type Triangle [3]Vec3

// TriangleMesh is a closed triangle soup that can be cut by planes.
type TriangleMesh struct {
	Triangles []Triangle
}

// Surface implements SurfaceProvider.
func (m *TriangleMesh) Surface() (SectionCutter, error) {
	if m == nil || len(m.Triangles) == 0 {
		return nil, fmt.Errorf("%w: surface has no triangles", ErrInput)
	}
	return m, nil
}

// planeEps is the distance below which a vertex is treated as lying on the plane.
const planeEps = 1e-12

// dedupGrid is the cell size used to merge coincident intersection points.
const dedupGrid = 1e-9

// Cut implements SectionCutter. Each triangle edge that crosses the plane
// contributes one point; vertices on the plane contribute themselves.
// Points shared by neighbouring triangles are merged.
func (m *TriangleMesh) Cut(ctx context.Context, origin, normal Vec3) (RawContour, error) {
	n := NormalizeVec(normal)
	seen := make(map[[3]int64]struct{})
	var out RawContour

	add := func(p Vec3) {
		key := [3]int64{
			int64(math.Round(p.X / dedupGrid)),
			int64(math.Round(p.Y / dedupGrid)),
			int64(math.Round(p.Z / dedupGrid)),
		}
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}

	for i, tri := range m.Triangles {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		var d [3]float64
		for k := range tri {
			d[k] = r3.Dot(r3.Sub(tri[k], origin), n)
		}
		for k := 0; k < 3; k++ {
			a, b := k, (k+1)%3
			da, db := d[a], d[b]
			switch {
			case math.Abs(da) <= planeEps:
				add(tri[a])
			case math.Abs(db) <= planeEps:
				// picked up as vertex a of the next edge
			case (da < 0) != (db < 0):
				t := da / (da - db)
				add(r3.Add(tri[a], r3.Scale(t, r3.Sub(tri[b], tri[a]))))
			}
		}
	}
	return out, nil
}

// NewCylinderMesh builds a closed cylinder of the given radius around the
// X axis between x0 and x1 with n facets around the circumference.
func NewCylinderMesh(radius, x0, x1 float64, n int) *TriangleMesh {
	if n < 3 {
		n = 3
	}
	ring := func(x float64) []Vec3 {
		pts := make([]Vec3, n)
		for k := 0; k < n; k++ {
			a := 2 * math.Pi * float64(k) / float64(n)
			pts[k] = Vec3{X: x, Y: radius * math.Cos(a), Z: radius * math.Sin(a)}
		}
		return pts
	}
	r0, r1 := ring(x0), ring(x1)
	c0, c1 := Vec3{X: x0}, Vec3{X: x1}

	tris := make([]Triangle, 0, 4*n)
	for k := 0; k < n; k++ {
		j := (k + 1) % n
		tris = append(tris,
			Triangle{r0[k], r1[k], r1[j]},
			Triangle{r0[k], r1[j], r0[j]},
			Triangle{c0, r0[j], r0[k]},
			Triangle{c1, r1[k], r1[j]},
		)
	}
	return &TriangleMesh{Triangles: tris}
}
