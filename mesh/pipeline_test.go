package mesh

import (
	"bytes"
	"context"
	"errors"
	"log"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// straightTube is a unit-radius cylinder along X sampled at x = -10, 0, 10.
func straightTube(opts Options) *Pipeline {
	return &Pipeline{
		Surface:    NewCylinderMesh(1, -20, 20, 64),
		Centerline: StaticCenterline{Interior: line(-10, 0, 10)},
		Options:    opts,
		Logger:     log.New(&bytes.Buffer{}, "", 0),
	}
}

// surfaceFunc adapts a CutterFunc to SurfaceProvider.
type surfaceFunc CutterFunc

func (f surfaceFunc) Surface() (SectionCutter, error) {
	return CutterFunc(f), nil
}

// degenerateAt wraps the cylinder cutter and returns only two points for
// the plane through x.
func degenerateAt(x float64) surfaceFunc {
	cyl := NewCylinderMesh(1, -20, 20, 64)
	return func(ctx context.Context, origin, normal Vec3) (RawContour, error) {
		raw, err := cyl.Cut(ctx, origin, normal)
		if err != nil {
			return nil, err
		}
		if origin.X == x {
			return raw[:2], nil
		}
		return raw, nil
	}
}

type mockArea struct {
	mock.Mock
}

func (m *mockArea) Area(ctx context.Context, polygon []Point) (float64, error) {
	args := m.Called(ctx, polygon)
	return args.Get(0).(float64), args.Error(1)
}

func TestPipeline_StraightCylinder(t *testing.T) {
	opts := DefaultOptions()
	opts.ScaleByRadius = true
	opts.Workers = 2

	res, err := straightTube(opts).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Sections, 3)
	require.Len(t, res.Segments, 2)
	assert.Empty(t, res.Skipped)

	for i, s := range res.Sections {
		assert.Equal(t, i, s.Sample.Index)
		assert.Equal(t, 128, s.VertexCount())
		assert.InDelta(t, 1.0, s.ScaleIn, 0.01, "equivalent radius")
		assert.Equal(t, s.ScaleIn, s.ScaleOut)
		assert.InDelta(t, 0.0, s.ZCenter, 1e-9)
		assert.InDelta(t, float64(i*10-10), s.CenterAdjusted.X, 1e-9)
		assert.InDelta(t, 0.0, s.CenterAdjusted.Y, 1e-9)
		assert.True(t, pointsEqual(s.Normal, Point{X: 0, Y: 1}), "normal %v", s.Normal)
		assert.Equal(t, int8(1), s.Orientation)
		assert.Empty(t, s.Issues)

		// normalized contour has unit equivalent radius
		area := math.Abs(SignedArea(s.LocalPoints))
		assert.InDelta(t, math.Pi, area, 1e-9)
	}
	for k, seg := range res.Segments {
		assert.Equal(t, k, seg.From)
		assert.Equal(t, k+1, seg.To)
		assert.True(t, seg.IsStraight())
		assert.InDelta(t, 10.0, seg.Length, 1e-9)
		assert.Equal(t, 0.0, seg.CurvatureAngle)
	}
	assert.Equal(t, 0, res.IssueCount())
}

func TestPipeline_SkipsDegenerateSection(t *testing.T) {
	var logs bytes.Buffer
	p := &Pipeline{
		Surface:    degenerateAt(0),
		Centerline: StaticCenterline{Interior: line(-10, 0, 10)},
		Options:    DefaultOptions(),
		Logger:     log.New(&logs, "", 0),
	}

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Sections, 2)
	assert.Equal(t, 0, res.Sections[0].Sample.Index)
	assert.Equal(t, 2, res.Sections[1].Sample.Index)

	require.Len(t, res.Skipped, 1)
	assert.Equal(t, 1, res.Skipped[0].Index)
	assert.Equal(t, 2, res.Skipped[0].Points)
	assert.Contains(t, res.Skipped[0].Reason, ErrDegenerateSection.Error())

	require.Len(t, res.Segments, 1)
	assert.Equal(t, 0, res.Segments[0].From)
	assert.Equal(t, 2, res.Segments[0].To)
	assert.InDelta(t, 20.0, res.Segments[0].Length, 1e-9)

	assert.Contains(t, logs.String(), "[Pipeline] Slice 001: degenerate section: 2 of 3 points, skipped")
}

func TestPipeline_CutterError(t *testing.T) {
	boom := errors.New("mesh backend failed")
	surface := surfaceFunc(func(_ context.Context, origin, _ Vec3) (RawContour, error) {
		if origin.X == 10 {
			return nil, boom
		}
		return RawContour{{X: origin.X, Y: 1}, {X: origin.X, Z: 1}, {X: origin.X, Y: -1}}, nil
	})
	p := &Pipeline{Surface: surface, Centerline: StaticCenterline{Interior: line(-10, 0, 10)}, Logger: log.New(&bytes.Buffer{}, "", 0)}

	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	var se *SampleError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 2, se.Index)
}

func TestPipeline_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := straightTube(DefaultOptions()).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPipeline_CallTimeout(t *testing.T) {
	blocking := surfaceFunc(func(ctx context.Context, _, _ Vec3) (RawContour, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	opts := DefaultOptions()
	opts.CallTimeout = 20 * time.Millisecond
	p := &Pipeline{
		Surface:    blocking,
		Centerline: StaticCenterline{Interior: line(-10, 0, 10)},
		Options:    opts,
		Logger:     log.New(&bytes.Buffer{}, "", 0),
	}

	_, err := p.Run(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPipeline_AreaFunc(t *testing.T) {
	tests := []struct {
		name         string
		useCm        bool
		wantCSVScale float64
	}{
		{"millimetres", false, 2},
		{"centimetres", true, 0.2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			area := &mockArea{}
			area.On("Area", mock.Anything, mock.Anything).Return(4*math.Pi, nil)

			opts := DefaultOptions()
			opts.ScaleByRadius = true
			opts.UseCmUnit = tt.useCm
			p := straightTube(opts)
			p.Area = area

			res, err := p.Run(context.Background())
			require.NoError(t, err)
			area.AssertNumberOfCalls(t, "Area", 3)
			for _, s := range res.Sections {
				// sections keep the radius in world units
				assert.InDelta(t, 2.0, s.ScaleIn, 1e-12)
				assert.InDelta(t, 2.0, s.ScaleOut, 1e-12)
				_, zmax := s.ZExtent()
				assert.InDelta(t, 0.5, zmax, 1e-9)
			}

			var buf bytes.Buffer
			require.NoError(t, WriteTubeCSV(&buf, res.Sections, opts))
			records, err := ReadTubeCSV(&buf)
			require.NoError(t, err)
			for _, rec := range records {
				assert.InDelta(t, tt.wantCSVScale, rec.ScaleIn, 1e-12)
				assert.InDelta(t, tt.wantCSVScale, rec.ScaleOut, 1e-12)
			}
		})
	}
}

// ductAspect returns height over length of the first duct quad.
func ductAspect(t *testing.T, sections []Section, segments []Segment) float64 {
	t.Helper()
	require.NotEmpty(t, segments)
	q := DuctCorners(&sections[0], segments[0])
	return Distance(q.InMin, q.InMax) / segments[0].Length
}

func TestPipeline_CmUnitKeepsDuctProportions(t *testing.T) {
	for _, useCm := range []bool{false, true} {
		opts := DefaultOptions()
		opts.ScaleByRadius = true
		opts.UseCmUnit = useCm

		res, err := straightTube(opts).Run(context.Background())
		require.NoError(t, err)
		extracted := ductAspect(t, res.Sections, res.Segments)
		// unit radius over a 10 mm segment
		assert.InDelta(t, 0.2, extracted, 1e-3, "cm=%v", useCm)

		var buf bytes.Buffer
		require.NoError(t, WriteTubeCSV(&buf, res.Sections, opts))
		records, err := ReadTubeCSV(&buf)
		require.NoError(t, err)
		reread := SectionsFromRecords(records)
		segments, err := AnalyzeSections(context.Background(), reread, 1)
		require.NoError(t, err)

		assert.InDelta(t, extracted, ductAspect(t, reread, segments), 1e-9, "cm=%v", useCm)
	}
}

func TestPipeline_MinPointsNeverBelowThree(t *testing.T) {
	opts := DefaultOptions()
	opts.MinPointsPerSlice = 2
	p := &Pipeline{
		Surface:    degenerateAt(0),
		Centerline: StaticCenterline{Interior: line(-10, 0, 10)},
		Options:    opts,
		Logger:     log.New(&bytes.Buffer{}, "", 0),
	}

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Sections, 2)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, 1, res.Skipped[0].Index)
}

// circleCutter returns a unit circle of n points in the cutting plane.
func circleCutter(n int) surfaceFunc {
	return func(_ context.Context, origin, normal Vec3) (RawContour, error) {
		f := NewFrame(NormalizeVec(normal))
		raw := make(RawContour, n)
		for k := range raw {
			a := 2 * math.Pi * float64(k) / float64(n)
			raw[k] = Vec3{
				X: origin.X + math.Cos(a)*f.TAxis.X + math.Sin(a)*f.BAxis.X,
				Y: origin.Y + math.Cos(a)*f.TAxis.Y + math.Sin(a)*f.BAxis.Y,
				Z: origin.Z + math.Cos(a)*f.TAxis.Z + math.Sin(a)*f.BAxis.Z,
			}
		}
		return raw, nil
	}
}

func TestPipeline_BentTube(t *testing.T) {
	// quarter arc of radius 10 around the origin, counter-clockwise in XY
	const bend = 10.0
	const step = math.Pi / 12
	var centerline []Vec3
	for i := 0; i <= 6; i++ {
		a := float64(i) * step
		centerline = append(centerline, Vec3{X: bend * math.Cos(a), Y: bend * math.Sin(a)})
	}
	p := &Pipeline{
		Surface:    circleCutter(16),
		Centerline: StaticCenterline{Interior: centerline},
		Options:    DefaultOptions(),
		Logger:     log.New(&bytes.Buffer{}, "", 0),
	}

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Sections, 7)
	require.Len(t, res.Segments, 6)
	assert.Equal(t, 0, res.IssueCount())

	for k, seg := range res.Segments {
		next := res.Sections[k+1].Normal
		assert.True(t, pointsEqual(seg.OutletNormal, normalize2D(next.X, next.Y)), "segment %d outlet normal %v", k, seg.OutletNormal)
		if k == 0 || k == len(res.Segments)-1 {
			assert.True(t, seg.IsStraight(), "end samples share the neighbouring tangent")
			continue
		}
		assert.False(t, seg.IsStraight(), "segment %d", k)
		assert.Greater(t, seg.CurvatureRadius, 0.0, "segment %d turns left", k)
		assert.Greater(t, seg.CurvatureAngle, 0.0, "segment %d", k)
	}

	// samples 2..4 have exact arc tangents, so pairs between them recover
	// the bend radius and the sample spacing
	for _, k := range []int{2, 3} {
		assert.InDelta(t, bend, res.Segments[k].CurvatureRadius, 1e-6, "segment %d", k)
		assert.InDelta(t, step, res.Segments[k].CurvatureAngle, 1e-9, "segment %d", k)
	}

	// the in-plane normal points at the bend centre
	s := res.Sections[3]
	assert.InDelta(t, -s.CenterAdjusted.X/bend, s.Normal.X, 1e-9)
	assert.InDelta(t, -s.CenterAdjusted.Y/bend, s.Normal.Y, 1e-9)
}

func TestPipeline_AreaError(t *testing.T) {
	down := errors.New("area service down")
	area := &mockArea{}
	area.On("Area", mock.Anything, mock.Anything).Return(0.0, down)

	opts := DefaultOptions()
	opts.ScaleByRadius = true
	p := straightTube(opts)
	p.Area = area

	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, down)
	assert.Contains(t, err.Error(), "area")
}

func TestPipeline_InputErrors(t *testing.T) {
	tests := []struct {
		name string
		p    *Pipeline
		want error
	}{
		{"no surface", &Pipeline{Centerline: StaticCenterline{Interior: line(0, 1, 2)}}, ErrInput},
		{"no centerline", &Pipeline{Surface: NewCylinderMesh(1, 0, 1, 8)}, ErrInput},
		{"empty surface", &Pipeline{Surface: &TriangleMesh{}, Centerline: StaticCenterline{Interior: line(0, 1, 2)}}, ErrInput},
		{"short centerline", &Pipeline{Surface: NewCylinderMesh(1, 0, 1, 8), Centerline: StaticCenterline{Interior: line(0, 1)}}, ErrInsufficientSamples},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.p.Run(context.Background())
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestPipeline_WorkersAreDeterministic(t *testing.T) {
	opts := DefaultOptions()
	opts.ScaleByRadius = true
	serial, err := straightTube(opts).Run(context.Background())
	require.NoError(t, err)

	opts.Workers = 4
	parallel, err := straightTube(opts).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, serial.Sections, parallel.Sections)
	assert.Equal(t, serial.Segments, parallel.Segments)
}

func TestAnalyzeSections(t *testing.T) {
	sections := []Section{
		sectionAt(0, 0, 0, Point{X: 0, Y: 1}),
		sectionAt(1, 10, 0, Point{X: 0, Y: 1}),
		sectionAt(2, 20, 0, Point{X: 0, Y: 1}),
	}
	sections[2].SignedArea, sections[2].Orientation = -2, -1

	segments, err := AnalyzeSections(context.Background(), sections, 3)
	require.NoError(t, err)
	require.Len(t, segments, 2)
	assert.Empty(t, sections[0].Issues)
	assert.Equal(t, []Issue{IssueOrientationFlip}, sections[1].Issues)
	assert.Empty(t, sections[2].Issues, "last section carries no pair issues")

	segments, err = AnalyzeSections(context.Background(), sections[:1], 1)
	assert.NoError(t, err)
	assert.Nil(t, segments)
}

func TestWriteResult(t *testing.T) {
	res, err := straightTube(DefaultOptions()).Run(context.Background())
	require.NoError(t, err)

	dir := t.TempDir()
	out := OutputConfig{
		TubeCSV:       filepath.Join(dir, "tube.csv"),
		CenterlineCSV: filepath.Join(dir, "centerline.csv"),
	}
	require.NoError(t, WriteResult(res, out, DefaultOptions()))

	records, err := ParseTubeFile(out.TubeCSV)
	require.NoError(t, err)
	assert.Len(t, records, 3)

	pts, err := ParsePointsFile(out.CenterlineCSV)
	require.NoError(t, err)
	assert.Len(t, pts, 3)

	_, err = os.Stat(out.CenterlineCSV)
	require.NoError(t, err)

	err = WriteResult(res, OutputConfig{}, DefaultOptions())
	assert.ErrorIs(t, err, ErrInput)
}
