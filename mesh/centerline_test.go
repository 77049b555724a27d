package mesh

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func line(xs ...float64) []Vec3 {
	pts := make([]Vec3, len(xs))
	for i, x := range xs {
		pts[i] = Vec3{X: x}
	}
	return pts
}

func TestBuildSamples(t *testing.T) {
	tests := []struct {
		name              string
		interior          []Vec3
		endpoints         []Vec3
		useCurveEndpoints bool
		wantX             []float64
	}{
		{
			name:              "interior only",
			interior:          line(1, 2, 3),
			useCurveEndpoints: true,
			wantX:             []float64{1, 2, 3},
		},
		{
			name:              "explicit endpoints wrap interior",
			interior:          line(1, 2, 3),
			endpoints:         line(0, 4),
			useCurveEndpoints: true,
			wantX:             []float64{0, 1, 2, 3, 4},
		},
		{
			name:              "curve endpoints stripped",
			interior:          line(1, 2, 3, 4),
			endpoints:         line(0, 5),
			useCurveEndpoints: false,
			wantX:             []float64{0, 2, 3, 5},
		},
		{
			name:              "two interior points are not stripped",
			interior:          line(1, 2),
			endpoints:         line(0, 3),
			useCurveEndpoints: false,
			wantX:             []float64{0, 1, 2, 3},
		},
		{
			name:              "stripping without endpoints",
			interior:          line(1, 2, 3, 4, 5),
			useCurveEndpoints: false,
			wantX:             []float64{2, 3, 4},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			samples, err := BuildSamples(tt.interior, tt.endpoints, tt.useCurveEndpoints)
			require.NoError(t, err)
			require.Len(t, samples, len(tt.wantX))
			for i, s := range samples {
				assert.Equal(t, i, s.Index)
				assert.Equal(t, tt.wantX[i], s.Position.X)
			}
		})
	}
}

func TestBuildSamples_Errors(t *testing.T) {
	tests := []struct {
		name         string
		interior     []Vec3
		endpoints    []Vec3
		strip        bool
		insufficient bool
	}{
		{name: "empty interior", interior: nil},
		{name: "single endpoint", interior: line(1, 2, 3), endpoints: line(0)},
		{name: "three endpoints", interior: line(1, 2, 3), endpoints: line(0, 4, 5)},
		{name: "two points", interior: line(1, 2), insufficient: true},
		{name: "stripped below minimum", interior: line(1, 2, 3, 4), strip: true, insufficient: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildSamples(tt.interior, tt.endpoints, !tt.strip)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInput), "want ErrInput, got %v", err)
			assert.Equal(t, tt.insufficient, errors.Is(err, ErrInsufficientSamples))
		})
	}
}

func TestStaticCenterline(t *testing.T) {
	c := StaticCenterline{Interior: line(1, 2, 3), Endpoints: line(0, 4)}
	interior, endpoints, err := c.Centerline()
	require.NoError(t, err)
	assert.Len(t, interior, 3)
	assert.Len(t, endpoints, 2)
}
