package mesh

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// csvDelimiter separates fields in every CSV this package reads or writes.
const csvDelimiter = ';'

// formatFloat uses the shortest representation that parses back exactly.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// RowFormat controls how a section is written as a row pair.
type RowFormat struct {
	Unit          float64 // Divisor for world lengths (10 for cm output)
	ScaleIsLength bool    // Scales are equivalent radii and get the unit divisor too
	SwapYZ        bool
}

func (o Options) rowFormat() RowFormat {
	return RowFormat{Unit: o.unitFactor(), ScaleIsLength: o.ScaleByRadius, SwapYZ: o.SwapLocalYZ}
}

// TubeRows returns the two CSV records for a section:
//
//	center.X ; normal.X ; scaleIn  ; y_0 ... y_(m-1)
//	center.Y ; normal.Y ; scaleOut ; z_0 ... z_(m-1)
//
// With SwapYZ the local y list goes to the second row and z to the first.
// Center coordinates are divided by Unit, scales only when ScaleIsLength.
func TubeRows(s *Section, f RowFormat) ([]string, []string) {
	unit := f.Unit
	if unit == 0 {
		unit = 1
	}
	scaleUnit := 1.0
	if f.ScaleIsLength {
		scaleUnit = unit
	}
	m := len(s.LocalPoints)
	a := make([]string, 0, 3+m)
	b := make([]string, 0, 3+m)
	a = append(a, formatFloat(s.CenterAdjusted.X/unit), formatFloat(s.Normal.X), formatFloat(s.ScaleIn/scaleUnit))
	b = append(b, formatFloat(s.CenterAdjusted.Y/unit), formatFloat(s.Normal.Y), formatFloat(s.ScaleOut/scaleUnit))
	for _, p := range s.LocalPoints {
		y, z := p.X, p.Y
		if f.SwapYZ {
			y, z = z, y
		}
		a = append(a, formatFloat(y))
		b = append(b, formatFloat(z))
	}
	return a, b
}

// TubeWriter streams section row pairs to w. Each pair is encoded in
// memory and handed to w in a single Write, so a failing writer never
// receives half a section.
type TubeWriter struct {
	w      io.Writer
	format RowFormat
	buf    bytes.Buffer
	count  int
}

// NewTubeWriter creates a TubeWriter using the unit, scale and swap options.
func NewTubeWriter(w io.Writer, opts Options) *TubeWriter {
	return &TubeWriter{w: w, format: opts.rowFormat()}
}

// WriteSection appends one section's row pair.
func (tw *TubeWriter) WriteSection(s *Section) error {
	tw.buf.Reset()
	cw := csv.NewWriter(&tw.buf)
	cw.Comma = csvDelimiter
	a, b := TubeRows(s, tw.format)
	if err := cw.Write(a); err != nil {
		return atSample(s.Sample.Index, fmt.Errorf("%w: encoding row: %v", ErrSerialization, err))
	}
	if err := cw.Write(b); err != nil {
		return atSample(s.Sample.Index, fmt.Errorf("%w: encoding row: %v", ErrSerialization, err))
	}
	cw.Flush()
	if _, err := tw.w.Write(tw.buf.Bytes()); err != nil {
		return atSample(s.Sample.Index, fmt.Errorf("%w: %v", ErrSerialization, err))
	}
	tw.count++
	return nil
}

// Count returns the number of sections written so far.
func (tw *TubeWriter) Count() int {
	return tw.count
}

// WriteTubeCSV writes all sections in order.
func WriteTubeCSV(w io.Writer, sections []Section, opts Options) error {
	tw := NewTubeWriter(w, opts)
	for i := range sections {
		if err := tw.WriteSection(&sections[i]); err != nil {
			return err
		}
	}
	return nil
}

// WriteCenterlineCSV writes the X;Y;Z header and one adjusted center per section.
func WriteCenterlineCSV(w io.Writer, sections []Section, opts Options) error {
	cw := csv.NewWriter(w)
	cw.Comma = csvDelimiter
	unit := opts.unitFactor()
	if err := cw.Write([]string{"X", "Y", "Z"}); err != nil {
		return fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	for i := range sections {
		c := sections[i].CenterAdjusted
		row := []string{formatFloat(c.X / unit), formatFloat(c.Y / unit), formatFloat(c.Z / unit)}
		if err := cw.Write(row); err != nil {
			return atSample(sections[i].Sample.Index, fmt.Errorf("%w: %v", ErrSerialization, err))
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return nil
}

// TubeRecord is one parsed row pair of a tube CSV.
type TubeRecord struct {
	Center   Point     `json:"center"`
	Normal   Point     `json:"normal"`
	ScaleIn  float64   `json:"scaleIn"`
	ScaleOut float64   `json:"scaleOut"`
	Y        []float64 `json:"y"`
	Z        []float64 `json:"z"`
}

// ReadTubeCSV parses a tube CSV back into row-pair records.
func ReadTubeCSV(r io.Reader) ([]TubeRecord, error) {
	cr := csv.NewReader(r)
	cr.Comma = csvDelimiter
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: reading tube CSV: %v", ErrInput, err)
	}
	if len(rows)%2 != 0 {
		return nil, fmt.Errorf("%w: tube CSV has odd row count %d", ErrInput, len(rows))
	}

	records := make([]TubeRecord, 0, len(rows)/2)
	for i := 0; i+1 < len(rows); i += 2 {
		ca, na, sa, ys, err := parseTubeRow(rows[i], i+1)
		if err != nil {
			return nil, err
		}
		cb, nb, sb, zs, err := parseTubeRow(rows[i+1], i+2)
		if err != nil {
			return nil, err
		}
		if len(ys) != len(zs) {
			return nil, fmt.Errorf("%w: line %d: contour point count mismatch (%d vs %d)", ErrInput, i+1, len(ys), len(zs))
		}
		records = append(records, TubeRecord{
			Center:   Point{X: ca, Y: cb},
			Normal:   Point{X: na, Y: nb},
			ScaleIn:  sa,
			ScaleOut: sb,
			Y:        ys,
			Z:        zs,
		})
	}
	return records, nil
}

func parseTubeRow(fields []string, line int) (center, normal, scale float64, coords []float64, err error) {
	if len(fields) < 4 {
		return 0, 0, 0, nil, fmt.Errorf("%w: line %d: need at least 4 fields, got %d", ErrInput, line, len(fields))
	}
	head := make([]float64, 3)
	for k := 0; k < 3; k++ {
		if head[k], err = strconv.ParseFloat(strings.TrimSpace(fields[k]), 64); err != nil {
			return 0, 0, 0, nil, fmt.Errorf("%w: line %d field %d: %v", ErrInput, line, k+1, err)
		}
	}
	for k, f := range fields[3:] {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		v, perr := strconv.ParseFloat(f, 64)
		if perr != nil {
			return 0, 0, 0, nil, fmt.Errorf("%w: line %d field %d: %v", ErrInput, line, k+4, perr)
		}
		coords = append(coords, v)
	}
	return head[0], head[1], head[2], coords, nil
}

// SectionsFromRecords rebuilds sections from parsed CSV records: the
// contour is z-centered, the center moved along the normal by the
// z offset times the inlet scale, and area and orientation recomputed.
func SectionsFromRecords(records []TubeRecord) []Section {
	sections := make([]Section, len(records))
	for k, rec := range records {
		pts := make([]Point, len(rec.Y))
		for i := range rec.Y {
			pts[i] = Point{X: rec.Y[i], Y: rec.Z[i]}
		}
		zc := ZCenter(pts)
		pts = CenterZ(pts, zc)
		n := normalize2D(rec.Normal.X, rec.Normal.Y)
		shift := zc * rec.ScaleIn
		area := SignedArea(pts)

		sections[k] = Section{
			Sample:         CenterlineSample{Position: Vec3{X: rec.Center.X, Y: rec.Center.Y}, Index: k},
			Origin:         Vec3{X: rec.Center.X, Y: rec.Center.Y},
			CenterAdjusted: Vec3{X: rec.Center.X + shift*n.X, Y: rec.Center.Y + shift*n.Y},
			Normal:         n,
			LocalPoints:    pts,
			ZCenter:        zc,
			ScaleIn:        rec.ScaleIn,
			ScaleOut:       rec.ScaleOut,
			SignedArea:     area,
			Orientation:    Orientation(area),
		}
	}
	return sections
}
