package mesh

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"golang.org/x/sync/errgroup"
)

// Pipeline extracts sections along a centerline and derives tube geometry.
// Surface and Centerline are resolved once per Run.
type Pipeline struct {
	Surface    SurfaceProvider
	Centerline CenterlineProvider
	Area       AreaFunc // nil uses PlanarArea
	Options    Options
	Logger     *log.Logger // nil uses log.Default()
}

func (p *Pipeline) logf(format string, args ...interface{}) {
	l := p.Logger
	if l == nil {
		l = log.Default()
	}
	l.Printf("[Pipeline] "+format, args...)
}

// callContext bounds a single external call by Options.CallTimeout.
func (p *Pipeline) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.Options.CallTimeout > 0 {
		return context.WithTimeout(ctx, p.Options.CallTimeout)
	}
	return context.WithCancel(ctx)
}

// Run executes the pipeline. Degenerate cuts are skipped and reported in
// Result.Skipped; malformed inputs, cutter or area failures and
// cancellation abort the run.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	opts := p.Options.withDefaults()

	if p.Surface == nil {
		return nil, fmt.Errorf("%w: no surface provider", ErrInput)
	}
	if p.Centerline == nil {
		return nil, fmt.Errorf("%w: no centerline provider", ErrInput)
	}
	cutter, err := p.Surface.Surface()
	if err != nil {
		return nil, fmt.Errorf("resolving surface: %w", err)
	}
	interior, endpoints, err := p.Centerline.Centerline()
	if err != nil {
		return nil, fmt.Errorf("resolving centerline: %w", err)
	}

	samples, err := BuildSamples(interior, endpoints, opts.UseCurveEndpoints)
	if err != nil {
		return nil, err
	}
	frames := BuildFrames(samples)
	p.logf("%d samples, workers=%d, scaleByRadius=%v, cm=%v", len(samples), opts.Workers, opts.ScaleByRadius, opts.UseCmUnit)

	orderer := ContourOrderer{
		Clockwise:       opts.ClockwiseContour,
		RotateLocalDeg:  opts.RotateLocalDeg,
		RotateGlobalDeg: opts.RotateGlobalDeg,
		ScaleIn:         opts.ScaleIn,
	}
	normalizer := RadiusNormalizer{Enabled: opts.ScaleByRadius, Area: p.Area}

	slots := make([]*Section, len(samples))
	skipped := make([]*SkippedSample, len(samples))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i := range samples {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sec, skip, err := p.buildSection(gctx, cutter, samples[i], frames[i], orderer, normalizer, opts)
			if err != nil {
				return atSample(samples[i].Index, err)
			}
			slots[i], skipped[i] = sec, skip
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{}
	for i := range slots {
		if skipped[i] != nil {
			res.Skipped = append(res.Skipped, *skipped[i])
			p.logf("Slice %03d: %s, skipped", skipped[i].Index, skipped[i].Reason)
			continue
		}
		res.Sections = append(res.Sections, *slots[i])
	}

	segments, err := AnalyzeSections(ctx, res.Sections, opts.Workers)
	if err != nil {
		return nil, err
	}
	res.Segments = segments
	res.Duration = time.Since(start)

	for i := range res.Sections {
		if len(res.Sections[i].Issues) > 0 {
			p.logf("Section %03d -> %03d: issues %v", res.Sections[i].Sample.Index, res.Segments[i].To, res.Sections[i].Issues)
		}
	}
	p.logf("%d sections, %d skipped, %d issues in %v", len(res.Sections), len(res.Skipped), res.IssueCount(), res.Duration)
	return res, nil
}

func (p *Pipeline) buildSection(ctx context.Context, cutter SectionCutter, sample CenterlineSample, f Frame,
	orderer ContourOrderer, normalizer RadiusNormalizer, opts Options) (*Section, *SkippedSample, error) {

	cctx, cancel := p.callContext(ctx)
	raw, err := cutter.Cut(cctx, sample.Position, f.Tangent)
	cancel()
	if err != nil {
		return nil, nil, fmt.Errorf("cutting: %w", err)
	}
	if len(raw) < opts.MinPointsPerSlice {
		return nil, &SkippedSample{
			Index:  sample.Index,
			Points: len(raw),
			Reason: fmt.Sprintf("%v: %d of %d points", ErrDegenerateSection, len(raw), opts.MinPointsPerSlice),
		}, nil
	}

	oc := orderer.Order(raw, sample.Position, f)

	actx, cancel := p.callContext(ctx)
	pts, scale, err := normalizer.Normalize(actx, oc.Points, opts.ScaleIn)
	cancel()
	if err != nil {
		return nil, nil, fmt.Errorf("area: %w", err)
	}
	scaleOut := opts.ScaleOut
	if opts.ScaleByRadius {
		scaleOut = scale
	}

	area := SignedArea(pts)
	return &Section{
		Sample:         sample,
		Frame:          f,
		Origin:         sample.Position,
		CenterAdjusted: oc.CenterAdjusted,
		Normal:         oc.Normal,
		LocalPoints:    pts,
		ZCenter:        oc.ZCenter,
		ScaleIn:        scale,
		ScaleOut:       scaleOut,
		SignedArea:     area,
		Orientation:    Orientation(area),
	}, nil, nil
}

// AnalyzeSections computes the segment and validation issues for every
// adjacent pair. Issues are attached to the first section of each pair.
// Pairs are independent and are processed with up to workers goroutines.
func AnalyzeSections(ctx context.Context, sections []Section, workers int) ([]Segment, error) {
	if len(sections) < 2 {
		return nil, nil
	}
	if workers <= 0 {
		workers = 1
	}
	segments := make([]Segment, len(sections)-1)
	issues := make([][]Issue, len(sections)-1)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for k := 0; k < len(sections)-1; k++ {
		k := k
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			segments[k] = ComputeSegment(&sections[k], &sections[k+1])
			issues[k] = AnalyzePair(&sections[k], &sections[k+1], segments[k])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for k := range issues {
		sections[k].Issues = issues[k]
	}
	return segments, nil
}

// WriteResult writes the tube CSV and, if configured, the centerline CSV.
// Each file is replaced atomically.
func WriteResult(res *Result, out OutputConfig, opts Options) error {
	if out.TubeCSV == "" {
		return fmt.Errorf("%w: no tube CSV output path", ErrInput)
	}
	err := WriteFileAtomic(out.TubeCSV, func(w io.Writer) error {
		return WriteTubeCSV(w, res.Sections, opts)
	})
	if err != nil {
		return fmt.Errorf("writing %s: %w", out.TubeCSV, err)
	}
	log.Printf("[CSV] Wrote %d sections to %s", len(res.Sections), out.TubeCSV)

	if out.CenterlineCSV != "" {
		err := WriteFileAtomic(out.CenterlineCSV, func(w io.Writer) error {
			return WriteCenterlineCSV(w, res.Sections, opts)
		})
		if err != nil {
			return fmt.Errorf("writing %s: %w", out.CenterlineCSV, err)
		}
		log.Printf("[CSV] Wrote centerline to %s", out.CenterlineCSV)
	}
	return nil
}
