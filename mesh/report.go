package mesh

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"time"
)

// SectionReport summarizes one serialized section. Area is the local
// contour area; Radius is in center units.
type SectionReport struct {
	Index       int     `json:"index"`
	Vertices    int     `json:"vertices"`
	Area        float64 `json:"area"`
	Radius      float64 `json:"equivalentRadius"`
	ScaleIn     float64 `json:"scaleIn"`
	ScaleOut    float64 `json:"scaleOut"`
	Orientation int8    `json:"orientation"`
	Issues      []Issue `json:"issues,omitempty"`
}

// PairReport summarizes one segment and the issues found between its
// sections. CurvatureRadius is omitted for straight segments.
type PairReport struct {
	From              int      `json:"from"`
	To                int      `json:"to"`
	Length            float64  `json:"length"`
	CurvatureRadius   *float64 `json:"curvatureRadius,omitempty"`
	CurvatureAngleDeg float64  `json:"curvatureAngleDeg"`
	Issues            []Issue  `json:"issues,omitempty"`
}

// Summary is the compact form of a report, published over MQTT.
type Summary struct {
	Sections   int           `json:"sections"`
	Skipped    int           `json:"skipped"`
	Issues     int           `json:"issues"`
	IssueKinds map[Issue]int `json:"issueKinds,omitempty"`
	Length     float64       `json:"totalLength"`
	Timestamp  int64         `json:"timestamp"`
}

// Report is the JSON inspection report for a run.
type Report struct {
	GeneratedAt time.Time       `json:"generatedAt"`
	DurationMs  int64           `json:"durationMs"`
	Sections    []SectionReport `json:"sections"`
	Pairs       []PairReport    `json:"pairs"`
	Skipped     []SkippedSample `json:"skipped,omitempty"`
	Summary     Summary         `json:"summary"`
}

// ReportFromResult builds the inspection report for res.
func ReportFromResult(res *Result) *Report {
	now := time.Now()
	r := &Report{
		GeneratedAt: now,
		DurationMs:  res.Duration.Milliseconds(),
		Sections:    make([]SectionReport, len(res.Sections)),
		Pairs:       make([]PairReport, len(res.Segments)),
		Skipped:     res.Skipped,
	}

	kinds := make(map[Issue]int)
	for i := range res.Sections {
		s := &res.Sections[i]
		area := math.Abs(s.SignedArea)
		r.Sections[i] = SectionReport{
			Index:       s.Sample.Index,
			Vertices:    s.VertexCount(),
			Area:        area,
			Radius:      s.EquivalentRadius(),
			ScaleIn:     s.ScaleIn,
			ScaleOut:    s.ScaleOut,
			Orientation: s.Orientation,
			Issues:      s.Issues,
		}
		for _, is := range s.Issues {
			kinds[is]++
		}
	}

	var total float64
	for k, seg := range res.Segments {
		pr := PairReport{
			From:              seg.From,
			To:                seg.To,
			Length:            seg.Length,
			CurvatureAngleDeg: seg.CurvatureAngle * 180 / math.Pi,
		}
		if !math.IsInf(seg.CurvatureRadius, 0) {
			radius := seg.CurvatureRadius
			pr.CurvatureRadius = &radius
		}
		if k < len(res.Sections) {
			pr.Issues = res.Sections[k].Issues
		}
		r.Pairs[k] = pr
		total += seg.Length
	}

	r.Summary = Summary{
		Sections:  len(res.Sections),
		Skipped:   len(res.Skipped),
		Issues:    res.IssueCount(),
		Length:    total,
		Timestamp: now.Unix(),
	}
	if len(kinds) > 0 {
		r.Summary.IssueKinds = kinds
	}
	return r
}

// FlaggedPairs returns the pairs that carry at least one issue, ordered by
// issue count (most first), then by position along the centerline.
func (r *Report) FlaggedPairs() []PairReport {
	var out []PairReport
	for _, p := range r.Pairs {
		if len(p.Issues) > 0 {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return len(out[i].Issues) > len(out[j].Issues)
	})
	return out
}

// WriteReport writes r as indented JSON.
func WriteReport(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("%w: encoding report: %v", ErrSerialization, err)
	}
	return nil
}
