package mesh

import (
	"fmt"
	"io"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/simplify"
)

// Feature kinds written to the "kind" property.
const (
	FeatureKindDuct       = "duct"
	FeatureKindCenterline = "centerline"
	FeatureKindSection    = "section"
)

// SectionsToFeatureCollection exports the sagittal-plane tube model:
// one Polygon per segment (the duct quad), one Point per section center and
// a LineString through the adjusted centers. Coordinates are world units.
// A positive tolerance simplifies the centerline with Douglas-Peucker.
func SectionsToFeatureCollection(sections []Section, segments []Segment, tolerance float64) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	for k, seg := range segments {
		if k >= len(sections) {
			break
		}
		q := DuctCorners(&sections[k], seg)
		f := geojson.NewFeature(orb.Polygon{toRing(q.Ring())})
		f.Properties["kind"] = FeatureKindDuct
		f.Properties["from"] = seg.From
		f.Properties["to"] = seg.To
		f.Properties["length"] = seg.Length
		f.Properties["angleDeg"] = seg.CurvatureAngle * 180 / math.Pi
		f.Properties["straight"] = seg.IsStraight()
		f.Properties["issues"] = issueStrings(sections[k].Issues)
		fc.Append(f)
	}

	line := make(orb.LineString, 0, len(sections))
	for i := range sections {
		s := &sections[i]
		c := orb.Point{s.CenterAdjusted.X, s.CenterAdjusted.Y}
		line = append(line, c)

		f := geojson.NewFeature(c)
		f.Properties["kind"] = FeatureKindSection
		f.Properties["index"] = s.Sample.Index
		f.Properties["vertices"] = s.VertexCount()
		f.Properties["area"] = math.Abs(s.SignedArea)
		f.Properties["orientation"] = s.Orientation
		f.Properties["scaleIn"] = s.ScaleIn
		f.Properties["scaleOut"] = s.ScaleOut
		f.Properties["issues"] = issueStrings(s.Issues)
		fc.Append(f)
	}

	if len(line) >= 2 {
		if tolerance > 0 {
			line = simplifyLineString(line, tolerance)
		}
		f := geojson.NewFeature(line)
		f.Properties["kind"] = FeatureKindCenterline
		f.Properties["points"] = len(line)
		fc.Append(f)
	}
	return fc
}

// simplifyLineString reduces points while keeping both endpoints.
func simplifyLineString(ls orb.LineString, tolerance float64) orb.LineString {
	simplified := simplify.DouglasPeucker(tolerance).Simplify(ls.Clone())
	result, ok := simplified.(orb.LineString)
	if !ok || len(result) < 2 {
		return ls
	}
	return result
}

func issueStrings(issues []Issue) []string {
	out := make([]string, len(issues))
	for i, is := range issues {
		out[i] = string(is)
	}
	return out
}

// WriteGeoJSON writes the feature collection for a result.
func WriteGeoJSON(w io.Writer, res *Result, tolerance float64) error {
	fc := SectionsToFeatureCollection(res.Sections, res.Segments, tolerance)
	data, err := fc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("%w: marshaling GeoJSON: %v", ErrSerialization, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return nil
}
