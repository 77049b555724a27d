package mesh

import "fmt"

// MinSamples is the smallest centerline the tangent math can work with.
const MinSamples = 3

// CenterlineProvider supplies the ordered interior centerline points and an
// optional explicit endpoint pair (nil or empty when absent).
type CenterlineProvider interface {
	Centerline() (interior []Vec3, endpoints []Vec3, err error)
}

// StaticCenterline is a CenterlineProvider backed by fixed slices.
type StaticCenterline struct {
	Interior  []Vec3
	Endpoints []Vec3
}

// Centerline implements CenterlineProvider.
func (s StaticCenterline) Centerline() ([]Vec3, []Vec3, error) {
	return s.Interior, s.Endpoints, nil
}

// BuildSamples assembles the ordered sample list.
//
// With an explicit endpoint pair the result is start, interior..., end.
// When useCurveEndpoints is false the interior list first drops its own
// first and last points (only if it has more than two).
func BuildSamples(interior, endpoints []Vec3, useCurveEndpoints bool) ([]CenterlineSample, error) {
	if len(interior) == 0 {
		return nil, fmt.Errorf("%w: centerline has no points", ErrInput)
	}
	if len(endpoints) != 0 && len(endpoints) != 2 {
		return nil, fmt.Errorf("%w: endpoint list must have exactly 2 points, got %d", ErrInput, len(endpoints))
	}

	pts := interior
	if !useCurveEndpoints && len(pts) > 2 {
		pts = pts[1 : len(pts)-1]
	}

	all := make([]Vec3, 0, len(pts)+len(endpoints))
	if len(endpoints) == 2 {
		all = append(all, endpoints[0])
	}
	all = append(all, pts...)
	if len(endpoints) == 2 {
		all = append(all, endpoints[1])
	}

	if len(all) < MinSamples {
		return nil, fmt.Errorf("%w: got %d, need %d", ErrInsufficientSamples, len(all), MinSamples)
	}

	samples := make([]CenterlineSample, len(all))
	for i, p := range all {
		samples[i] = CenterlineSample{Position: p, Index: i}
	}
	return samples, nil
}

// SamplePositions returns the positions of samples in order.
func SamplePositions(samples []CenterlineSample) []Vec3 {
	out := make([]Vec3, len(samples))
	for i, s := range samples {
		out[i] = s.Position
	}
	return out
}
