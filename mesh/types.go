package mesh

import (
	"math"
	"time"

	"gonum.org/v1/gonum/spatial/r3"
)

// Vec3 is a point or direction in model (world) space.
type Vec3 = r3.Vec

// Point represents a 2D coordinate. It is used both for local contour
// vertices (X = local y, Y = local z) and for sagittal-plane geometry.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// CenterlineSample is one ordered sample of the input centerline.
type CenterlineSample struct {
	Position Vec3 `json:"position"`
	Index    int  `json:"index"`
}

// Frame is the orthonormal (tangent, t_axis, b_axis) basis at a sample.
type Frame struct {
	Tangent Vec3 `json:"tangent"`
	TAxis   Vec3 `json:"tAxis"`
	BAxis   Vec3 `json:"bAxis"`
}

// RawContour is the unordered point set returned by a cutter for one plane.
type RawContour []Vec3

// Issue is an advisory anomaly detected between adjacent sections.
type Issue string

const (
	IssueVertexCountMismatch     Issue = "VertexCountMismatch"
	IssueAreaRatioDrift          Issue = "AreaRatioDrift"
	IssueOrientationFlip         Issue = "OrientationFlip"
	IssueSharpTurnOnShortSegment Issue = "SharpTurnOnShortSegment"
)

// Section is the persisted per-sample record.
//
// CenterAdjusted and Normal are expressed in the output frame: the global
// XY rotation (if any) has been applied, unit conversion has not.
type Section struct {
	Sample         CenterlineSample `json:"sample"`
	Frame          Frame            `json:"frame"`
	Origin         Vec3             `json:"origin"`
	CenterAdjusted Vec3             `json:"centerAdjusted"`
	Normal         Point            `json:"normal"`
	LocalPoints    []Point          `json:"localPoints"`
	ZCenter        float64          `json:"zCenter"`
	ScaleIn        float64          `json:"scaleIn"`
	ScaleOut       float64          `json:"scaleOut"`
	SignedArea     float64          `json:"signedArea"`
	Orientation    int8             `json:"orientation"`
	Issues         []Issue          `json:"issues,omitempty"`
}

// VertexCount returns the number of contour vertices.
func (s *Section) VertexCount() int {
	return len(s.LocalPoints)
}

// EquivalentRadius returns the radius of the circle with the section's area
// in the units of its center: the local polygon radius times ScaleIn. For a
// radius-normalized section this is ScaleIn itself.
func (s *Section) EquivalentRadius() float64 {
	scale := s.ScaleIn
	if scale == 0 {
		scale = 1
	}
	return math.Sqrt(math.Abs(s.SignedArea)/math.Pi) * scale
}

// ZExtent returns the min and max of the centered local z values.
func (s *Section) ZExtent() (zmin, zmax float64) {
	if len(s.LocalPoints) == 0 {
		return 0, 0
	}
	zmin, zmax = math.Inf(1), math.Inf(-1)
	for _, p := range s.LocalPoints {
		zmin = math.Min(zmin, p.Y)
		zmax = math.Max(zmax, p.Y)
	}
	return zmin, zmax
}

// Segment is the derived tube geometry between two consecutive sections.
type Segment struct {
	From            int     `json:"from"`
	To              int     `json:"to"`
	Length          float64 `json:"length"`
	CurvatureRadius float64 `json:"curvatureRadius"`
	CurvatureAngle  float64 `json:"curvatureAngle"`
	InletPoint      Point   `json:"inletPoint"`
	InletNormal     Point   `json:"inletNormal"`
	OutletPoint     Point   `json:"outletPoint"`
	OutletNormal    Point   `json:"outletNormal"`
}

// IsStraight reports whether the segment has no measurable turn.
func (s Segment) IsStraight() bool {
	return math.IsInf(s.CurvatureRadius, 0) || math.Abs(s.CurvatureAngle) < minDist
}

// SkippedSample records a sample that produced no section.
type SkippedSample struct {
	Index  int    `json:"index"`
	Points int    `json:"points"`
	Reason string `json:"reason"`
}

// Result is the output of one pipeline run.
type Result struct {
	Sections []Section       `json:"sections"`
	Segments []Segment       `json:"segments"`
	Skipped  []SkippedSample `json:"skipped,omitempty"`
	Duration time.Duration   `json:"duration"`
}

// IssueCount returns the total number of issues across all sections.
func (r *Result) IssueCount() int {
	n := 0
	for i := range r.Sections {
		n += len(r.Sections[i].Issues)
	}
	return n
}

// Options controls the contour extraction and serialization pipeline.
type Options struct {
	ClockwiseContour  bool    `yaml:"clockwiseContour" json:"clockwiseContour"`
	UseCmUnit         bool    `yaml:"useCmUnit" json:"useCmUnit"`
	ScaleByRadius     bool    `yaml:"scaleByRadius" json:"scaleByRadius"`
	UseCurveEndpoints bool    `yaml:"useCurveEndpoints" json:"useCurveEndpoints"`
	MinPointsPerSlice int     `yaml:"minPointsPerSlice" json:"minPointsPerSlice"`
	RotateLocalDeg    float64 `yaml:"rotateLocalDeg,omitempty" json:"rotateLocalDeg,omitempty"`   // Clockwise-positive rotation of local (y,z)
	RotateGlobalDeg   float64 `yaml:"rotateGlobalDeg,omitempty" json:"rotateGlobalDeg,omitempty"` // Clockwise-positive rotation of center/normal XY
	SwapLocalYZ       bool    `yaml:"swapLocalYZ,omitempty" json:"swapLocalYZ,omitempty"`
	ScaleIn           float64 `yaml:"scaleIn,omitempty" json:"scaleIn,omitempty"`   // Upstream scale, used when scaleByRadius is off
	ScaleOut          float64 `yaml:"scaleOut,omitempty" json:"scaleOut,omitempty"` // Upstream scale, used when scaleByRadius is off

	Workers     int           `yaml:"workers,omitempty" json:"workers,omitempty"`
	CallTimeout time.Duration `yaml:"callTimeout,omitempty" json:"callTimeout,omitempty"`
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		UseCurveEndpoints: true,
		MinPointsPerSlice: MinPointsPerSlice,
		ScaleIn:           1.0,
		ScaleOut:          1.0,
		Workers:           1,
	}
}

// withDefaults fills zero values that have a non-zero default.
func (o Options) withDefaults() Options {
	if o.MinPointsPerSlice < MinPointsPerSlice {
		o.MinPointsPerSlice = MinPointsPerSlice
	}
	if o.ScaleIn == 0 {
		o.ScaleIn = 1.0
	}
	if o.ScaleOut == 0 {
		o.ScaleOut = 1.0
	}
	if o.Workers <= 0 {
		o.Workers = 1
	}
	return o
}

// unitFactor is the divisor applied to world lengths on output.
func (o Options) unitFactor() float64 {
	if o.UseCmUnit {
		return 10.0
	}
	return 1.0
}

// OutputConfig names the files a run produces. Empty paths are skipped.
type OutputConfig struct {
	TubeCSV       string `yaml:"tubeCsv" json:"tubeCsv"`
	CenterlineCSV string `yaml:"centerlineCsv,omitempty" json:"centerlineCsv,omitempty"`
	Report        string `yaml:"report,omitempty" json:"report,omitempty"`
	GeoJSON       string `yaml:"geojson,omitempty" json:"geojson,omitempty"`
	Render        string `yaml:"render,omitempty" json:"render,omitempty"`
}

// InputConfig names the surface and centerline sources.
type InputConfig struct {
	Surface    string `yaml:"surface" json:"surface"`
	Centerline string `yaml:"centerline" json:"centerline"`
	Endpoints  string `yaml:"endpoints,omitempty" json:"endpoints,omitempty"`
}

// RenderConfig controls the vector renderer.
type RenderConfig struct {
	Resolution float64 `yaml:"resolution,omitempty" json:"resolution,omitempty"` // PNG DPI (default 150)
	Padding    float64 `yaml:"padding,omitempty" json:"padding,omitempty"`
	Simplify   float64 `yaml:"simplify,omitempty" json:"simplify,omitempty"` // Douglas-Peucker tolerance for the exported centerline
}

// MQTTConfig holds MQTT connection settings
type MQTTConfig struct {
	Broker        string `yaml:"broker" json:"broker"`
	PublishPrefix string `yaml:"publishPrefix" json:"publishPrefix"`
	ClientID      string `yaml:"clientId" json:"clientId"`
	Username      string `yaml:"username,omitempty" json:"username,omitempty"`
	Password      string `yaml:"password,omitempty" json:"password,omitempty"`
}

// Config represents the full configuration file
type Config struct {
	Input   InputConfig  `yaml:"input" json:"input"`
	Output  OutputConfig `yaml:"output" json:"output"`
	Options Options      `yaml:"options" json:"options"`
	Render  RenderConfig `yaml:"render,omitempty" json:"render,omitempty"`
	MQTT    MQTTConfig   `yaml:"mqtt,omitempty" json:"mqtt,omitempty"`
}
