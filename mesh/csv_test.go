package mesh

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func csvSections() []Section {
	a := Section{
		Sample:         CenterlineSample{Index: 0},
		CenterAdjusted: Vec3{X: 12.5, Y: -3.25, Z: 1},
		Normal:         Point{X: 0.6, Y: 0.8},
		LocalPoints:    []Point{{X: 0.1, Y: -1.0 / 3.0}, {X: 1e-7, Y: 2}, {X: -4.75, Y: 1}},
		ScaleIn:        1.2345678901234567,
		ScaleOut:       0.5,
	}
	b := Section{
		Sample:         CenterlineSample{Index: 1},
		CenterAdjusted: Vec3{X: 22.5, Y: -3.25},
		Normal:         Point{X: 0, Y: 1},
		LocalPoints:    []Point{{X: 1, Y: 0}, {X: 0, Y: 1}, {X: -1, Y: 0}, {X: 0, Y: -1}},
		ScaleIn:        1,
		ScaleOut:       1,
	}
	return []Section{a, b}
}

func TestTubeRows(t *testing.T) {
	s := csvSections()[1]

	a, b := TubeRows(&s, RowFormat{Unit: 1})
	assert.Equal(t, []string{"22.5", "0", "1", "1", "0", "-1", "0"}, a)
	assert.Equal(t, []string{"-3.25", "1", "1", "0", "1", "0", "-1"}, b)

	a, b = TubeRows(&s, RowFormat{Unit: 10, SwapYZ: true})
	assert.Equal(t, []string{"2.25", "0", "1", "0", "1", "0", "-1"}, a)
	assert.Equal(t, []string{"-0.325", "1", "1", "1", "0", "-1", "0"}, b)

	// equivalent radii are lengths and follow the output unit
	a, b = TubeRows(&s, RowFormat{Unit: 10, ScaleIsLength: true})
	assert.Equal(t, "0.1", a[2])
	assert.Equal(t, "0.1", b[2])
}

func TestTubeCSV_RoundTrip(t *testing.T) {
	sections := csvSections()
	var buf bytes.Buffer
	require.NoError(t, WriteTubeCSV(&buf, sections, DefaultOptions()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4, "two rows per section")
	assert.Equal(t, 5, strings.Count(lines[0], ";"), "3+m fields")

	records, err := ReadTubeCSV(&buf)
	require.NoError(t, err)
	require.Len(t, records, 2)

	for k, rec := range records {
		s := sections[k]
		assert.Equal(t, s.CenterAdjusted.X, rec.Center.X)
		assert.Equal(t, s.CenterAdjusted.Y, rec.Center.Y)
		assert.Equal(t, s.Normal, rec.Normal)
		assert.Equal(t, s.ScaleIn, rec.ScaleIn)
		assert.Equal(t, s.ScaleOut, rec.ScaleOut)
		require.Len(t, rec.Y, len(s.LocalPoints))
		for i, p := range s.LocalPoints {
			assert.Equal(t, p.X, rec.Y[i], "section %d y[%d]", k, i)
			assert.Equal(t, p.Y, rec.Z[i], "section %d z[%d]", k, i)
		}
	}
}

func TestTubeWriter_Count(t *testing.T) {
	var buf bytes.Buffer
	tw := NewTubeWriter(&buf, DefaultOptions())
	for _, s := range csvSections() {
		require.NoError(t, tw.WriteSection(&s))
	}
	assert.Equal(t, 2, tw.Count())
}

type failingWriter struct {
	failAfter int
	writes    int
	buf       bytes.Buffer
}

func (w *failingWriter) Write(p []byte) (int, error) {
	if w.writes >= w.failAfter {
		return 0, errors.New("disk full")
	}
	w.writes++
	return w.buf.Write(p)
}

func TestTubeWriter_FailureKeepsWholeRows(t *testing.T) {
	w := &failingWriter{failAfter: 1}
	err := WriteTubeCSV(w, csvSections(), DefaultOptions())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSerialization))

	var se *SampleError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 1, se.Index)

	// only the first section reached the writer, and both of its rows
	assert.Equal(t, 2, strings.Count(w.buf.String(), "\n"))
}

func TestWriteCenterlineCSV(t *testing.T) {
	var buf bytes.Buffer
	opts := DefaultOptions()
	opts.UseCmUnit = true
	require.NoError(t, WriteCenterlineCSV(&buf, csvSections(), opts))

	assert.Equal(t, "X;Y;Z\n1.25;-0.325;0.1\n2.25;-0.325;0\n", buf.String())
}

func TestReadTubeCSV_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantMsg string
	}{
		{"odd rows", "1;0;1;1;2\n2;1;1;3;4\n3;0;1;5;6\n", "odd row count"},
		{"too few fields", "1;0;1\n2;1;1\n", "line 1"},
		{"count mismatch", "1;0;1;1;2;3\n2;1;1;3;4\n", "line 1"},
		{"bad number", "1;0;1;1;2\n2;x;1;3;4\n", "line 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadTubeCSV(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInput))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestSectionsFromRecords(t *testing.T) {
	records := []TubeRecord{
		{
			Center:   Point{X: 10, Y: 0},
			Normal:   Point{X: 0, Y: 2},
			ScaleIn:  2,
			ScaleOut: 2,
			Y:        []float64{1, -1, -1, 1},
			Z:        []float64{1, 1, 3, 3},
		},
	}
	sections := SectionsFromRecords(records)
	require.Len(t, sections, 1)
	s := sections[0]

	assert.InDelta(t, 2.0, s.ZCenter, 1e-12)
	assert.True(t, pointsEqual(s.Normal, Point{X: 0, Y: 1}))
	// shifted by z_center * scale_in along the normal
	assert.True(t, vecsEqual(s.CenterAdjusted, Vec3{X: 10, Y: 4}), "center %v", s.CenterAdjusted)
	assert.InDelta(t, -4.0, s.SignedArea, 1e-12)
	assert.Equal(t, int8(-1), s.Orientation)
	assert.Equal(t, 0, s.Sample.Index)
}

func TestSectionsFromRecords_RoundTripIsStable(t *testing.T) {
	sections := csvSections()
	for i := range sections {
		sections[i].LocalPoints = CenterZ(sections[i].LocalPoints, ZCenter(sections[i].LocalPoints))
	}
	var buf bytes.Buffer
	require.NoError(t, WriteTubeCSV(&buf, sections, DefaultOptions()))
	records, err := ReadTubeCSV(&buf)
	require.NoError(t, err)

	back := SectionsFromRecords(records)
	for i := range sections {
		assert.InDelta(t, sections[i].CenterAdjusted.X, back[i].CenterAdjusted.X, 1e-12)
		assert.InDelta(t, sections[i].CenterAdjusted.Y, back[i].CenterAdjusted.Y, 1e-12)
		require.Len(t, back[i].LocalPoints, len(sections[i].LocalPoints))
		for j, p := range sections[i].LocalPoints {
			assert.InDelta(t, p.X, back[i].LocalPoints[j].X, 1e-12)
			assert.InDelta(t, p.Y, back[i].LocalPoints[j].Y, 1e-12)
		}
	}
}
