package mesh

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"
	"github.com/tdewolff/canvas/renderers/svg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// TubeColors holds the palette used by the renderer
type TubeColors struct {
	Duct       color.NRGBA
	Flagged    color.NRGBA
	Outline    color.NRGBA
	Centerline color.NRGBA
	Contour    color.NRGBA
}

// DefaultTubeColors returns the default palette
func DefaultTubeColors() TubeColors {
	return TubeColors{
		Duct:       color.NRGBA{100, 149, 237, 180}, // Cornflower blue
		Flagged:    color.NRGBA{255, 99, 71, 200},   // Tomato
		Outline:    color.NRGBA{0, 0, 139, 255},     // Dark blue
		Centerline: color.NRGBA{40, 40, 40, 255},
		Contour:    color.NRGBA{0, 100, 0, 255}, // Dark green
	}
}

// nrgbaToRGBA converts color.NRGBA to color.RGBA by premultiplying alpha
// This is needed for the canvas library which expects premultiplied RGBA
func nrgbaToRGBA(c color.NRGBA) color.RGBA {
	if c.A == 0 {
		return color.RGBA{0, 0, 0, 0}
	}
	if c.A == 255 {
		return color.RGBA{c.R, c.G, c.B, 255}
	}
	alpha32 := uint32(c.A)
	return color.RGBA{
		R: uint8((uint32(c.R) * alpha32) / 255),
		G: uint8((uint32(c.G) * alpha32) / 255),
		B: uint8((uint32(c.B) * alpha32) / 255),
		A: c.A,
	}
}

// VectorRenderer draws the sagittal tube model (duct quads and centerline)
// above a strip of the per-section local contours.
type VectorRenderer struct {
	Sections    []Section
	Segments    []Segment
	Colors      TubeColors
	Padding     float64           // Padding in world units
	StrokeWidth float64           // Outline width in world units
	Resolution  canvas.Resolution // Resolution for PNG output (default: 150 DPI)
	Labels      bool              // Section index labels on PNG output
}

// NewVectorRenderer creates a vector renderer with default settings
func NewVectorRenderer(res *Result) *VectorRenderer {
	return &VectorRenderer{
		Sections:    res.Sections,
		Segments:    res.Segments,
		Colors:      DefaultTubeColors(),
		Padding:     5.0,
		StrokeWidth: 0.2,
		Resolution:  canvas.DPI(150),
		Labels:      true,
	}
}

// canvasRenderer is an interface that both svg and rasterizer renderers implement
type canvasRenderer interface {
	RenderPath(path *canvas.Path, style canvas.Style, m canvas.Matrix)
}

// layout is the placement of both panels in canvas space (y up).
type layout struct {
	minX, minY     float64 // sagittal bounds origin
	sagHeight      float64
	cell           float64 // contour strip cell size
	width, height  float64
	stripBaseline  float64
	contourScale   []float64
	contourCenters []Point
}

func (r *VectorRenderer) computeLayout() (layout, error) {
	if len(r.Sections) == 0 {
		return layout{}, fmt.Errorf("no sections to render")
	}
	minX, minY := math.MaxFloat64, math.MaxFloat64
	maxX, maxY := -math.MaxFloat64, -math.MaxFloat64
	grow := func(p Point) {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	for i := range r.Sections {
		c := r.Sections[i].CenterAdjusted
		grow(Point{X: c.X, Y: c.Y})
	}
	for k, seg := range r.Segments {
		if k >= len(r.Sections) {
			break
		}
		for _, p := range DuctCorners(&r.Sections[k], seg).Ring() {
			grow(p)
		}
	}

	l := layout{minX: minX, minY: minY, sagHeight: maxY - minY}
	l.contourScale = make([]float64, len(r.Sections))
	l.contourCenters = make([]Point, len(r.Sections))
	for i := range r.Sections {
		s := &r.Sections[i]
		scale := s.ScaleIn
		if scale <= 0 {
			scale = 1
		}
		l.contourScale[i] = scale
		b := toRing(s.LocalPoints).Bound()
		l.cell = math.Max(l.cell, math.Max(b.Max[0]-b.Min[0], b.Max[1]-b.Min[1])*scale)
		l.contourCenters[i] = Point{X: b.Center()[0] * scale, Y: b.Center()[1] * scale}
	}
	if l.cell <= 0 {
		l.cell = 1
	}
	l.cell *= 1.2

	stripWidth := l.cell * float64(len(r.Sections))
	l.width = math.Max(maxX-minX, stripWidth) + 2*r.Padding
	l.height = l.sagHeight + l.cell + 3*r.Padding
	l.stripBaseline = r.Padding
	return l, nil
}

// RenderToSVG writes the tube model as an SVG to the provided writer
func (r *VectorRenderer) RenderToSVG(w io.Writer) error {
	l, err := r.computeLayout()
	if err != nil {
		return err
	}
	svgRenderer := svg.New(w, l.width, l.height, nil)
	r.renderToCanvas(svgRenderer, l)
	return svgRenderer.Close()
}

// RenderToPNG writes the tube model as a PNG to the provided writer
func (r *VectorRenderer) RenderToPNG(w io.Writer) error {
	l, err := r.computeLayout()
	if err != nil {
		return err
	}
	rast := rasterizer.New(l.width, l.height, r.Resolution, canvas.DefaultColorSpace)
	r.renderToCanvas(rast, l)
	if r.Labels {
		r.drawLabels(rast, l)
	}
	return png.Encode(w, rast)
}

// renderToCanvas renders both panels (shared logic for SVG and PNG)
func (r *VectorRenderer) renderToCanvas(renderer canvasRenderer, l layout) {
	bgStyle := canvas.DefaultStyle
	bgStyle.Fill = canvas.Paint{Color: canvas.White}
	renderer.RenderPath(canvas.Rectangle(l.width, l.height), bgStyle, canvas.Identity)

	sagBase := l.stripBaseline + l.cell + r.Padding
	toCanvas := func(p Point) (float64, float64) {
		return (p.X - l.minX) + r.Padding, (p.Y - l.minY) + sagBase
	}

	ductStyle := canvas.DefaultStyle
	ductStyle.Stroke = canvas.Paint{Color: nrgbaToRGBA(r.Colors.Outline)}
	ductStyle.StrokeWidth = r.StrokeWidth

	for k, seg := range r.Segments {
		if k >= len(r.Sections) {
			break
		}
		fill := r.Colors.Duct
		if len(r.Sections[k].Issues) > 0 {
			fill = r.Colors.Flagged
		}
		ductStyle.Fill = canvas.Paint{Color: nrgbaToRGBA(fill)}

		cp := &canvas.Path{}
		for i, p := range DuctCorners(&r.Sections[k], seg).Ring() {
			cx, cy := toCanvas(p)
			if i == 0 {
				cp.MoveTo(cx, cy)
			} else {
				cp.LineTo(cx, cy)
			}
		}
		cp.Close()
		renderer.RenderPath(cp, ductStyle, canvas.Identity)
	}

	lineStyle := canvas.DefaultStyle
	lineStyle.Fill = canvas.Paint{Color: canvas.Transparent}
	lineStyle.Stroke = canvas.Paint{Color: nrgbaToRGBA(r.Colors.Centerline)}
	lineStyle.StrokeWidth = r.StrokeWidth
	lineStyle.Dashes = []float64{4 * r.StrokeWidth, 2 * r.StrokeWidth}

	centerline := &canvas.Path{}
	for i := range r.Sections {
		c := r.Sections[i].CenterAdjusted
		cx, cy := toCanvas(Point{X: c.X, Y: c.Y})
		if i == 0 {
			centerline.MoveTo(cx, cy)
		} else {
			centerline.LineTo(cx, cy)
		}
	}
	renderer.RenderPath(centerline, lineStyle, canvas.Identity)

	contourStyle := canvas.DefaultStyle
	contourStyle.Fill = canvas.Paint{Color: canvas.Transparent}
	contourStyle.Stroke = canvas.Paint{Color: nrgbaToRGBA(r.Colors.Contour)}
	contourStyle.StrokeWidth = r.StrokeWidth

	for i := range r.Sections {
		s := &r.Sections[i]
		if len(s.LocalPoints) < 2 {
			continue
		}
		ox := r.Padding + l.cell*(float64(i)+0.5) - l.contourCenters[i].X
		oy := l.stripBaseline + l.cell/2 - l.contourCenters[i].Y
		scale := l.contourScale[i]

		if len(s.Issues) > 0 {
			contourStyle.Stroke = canvas.Paint{Color: nrgbaToRGBA(r.Colors.Flagged)}
		} else {
			contourStyle.Stroke = canvas.Paint{Color: nrgbaToRGBA(r.Colors.Contour)}
		}

		cp := &canvas.Path{}
		for j, p := range s.LocalPoints {
			x, y := ox+p.X*scale, oy+p.Y*scale
			if j == 0 {
				cp.MoveTo(x, y)
			} else {
				cp.LineTo(x, y)
			}
		}
		cp.Close()
		renderer.RenderPath(cp, contourStyle, canvas.Identity)
	}
}

// drawLabels writes section indices under each contour cell.
func (r *VectorRenderer) drawLabels(img draw.Image, l layout) {
	dpmm := r.Resolution.DPMM()
	labelColor := nrgbaToRGBA(r.Colors.Centerline)
	for i := range r.Sections {
		x := (r.Padding + l.cell*float64(i) + l.cell*0.1) * dpmm
		y := (l.height - l.stripBaseline + r.Padding*0.5) * dpmm
		drawText(img, int(x), int(y), fmt.Sprintf("%03d", r.Sections[i].Sample.Index), labelColor)
	}
}

// drawText draws text onto an image using the basic font
func drawText(img draw.Image, x, y int, text string, c color.RGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}
