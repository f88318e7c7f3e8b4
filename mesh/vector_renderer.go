package mesh

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulmach/orb"
	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"
	"github.com/tdewolff/canvas/renderers/svg"
)

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

// VectorRenderer renders placed scanners as a top-down vector drawing
type VectorRenderer struct {
	Scanners     []*Scanner
	Colors       []ScannerColor
	Padding      float64           // Padding in world units
	BeaconRadius float64           // World units
	OriginRadius float64           // World units
	GridSpacing  float64           // Grid line spacing in world units; 0 disables
	Resolution   canvas.Resolution // Resolution for PNG output
}

// NewVectorRenderer creates a vector renderer with default settings
func NewVectorRenderer(scanners []*Scanner) *VectorRenderer {
	return &VectorRenderer{
		Scanners:     scanners,
		Colors:       DefaultColors(),
		Padding:      100.0,
		BeaconRadius: 12.0,
		OriginRadius: 30.0,
		GridSpacing:  500.0,
		Resolution:   canvas.DPI(25.4), // one pixel per world unit
	}
}

// canvasRenderer is an interface that both svg and rasterizer renderers implement
type canvasRenderer interface {
	RenderPath(path *canvas.Path, style canvas.Style, m canvas.Matrix)
}

// RenderToSVG writes the drawing as an SVG to the provided writer
func (r *VectorRenderer) RenderToSVG(w io.Writer) error {
	bound := PlanarBounds(r.Scanners, r.Padding)
	width, height := bound.Right()-bound.Left(), bound.Top()-bound.Bottom()

	svgRenderer := svg.New(w, width, height, nil)
	r.renderToCanvas(svgRenderer, bound)

	return svgRenderer.Close()
}

// RenderToPNG writes the drawing as a PNG to the provided writer
func (r *VectorRenderer) RenderToPNG(w io.Writer) error {
	bound := PlanarBounds(r.Scanners, r.Padding)
	width, height := bound.Right()-bound.Left(), bound.Top()-bound.Bottom()

	dpmm := fitScale(r.Resolution.DPMM(), math.Max(width, height), 1)
	px := func(v float64) int { return max(1, int(v*dpmm+0.5)) }
	img := image.NewRGBA(image.Rect(0, 0, px(width), px(height)))
	rast := rasterizer.FromImage(img, canvas.DPMM(dpmm), canvas.DefaultColorSpace)
	r.renderToCanvas(rast, bound)

	return png.Encode(w, rast)
}

// RenderToFile picks SVG or PNG output from the file extension
func (r *VectorRenderer) RenderToFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		err = r.RenderToPNG(f)
	default:
		err = r.RenderToSVG(f)
	}
	if err != nil {
		return fmt.Errorf("rendering %s: %w", path, err)
	}
	return nil
}

// maxGridLines bounds the grid lines drawn along either axis.
const maxGridLines = 64

// gridStep widens spacing to a multiple of itself so span holds at most
// maxGridLines lines.
func gridStep(spacing, span float64) float64 {
	if n := span / spacing; n > maxGridLines {
		return spacing * math.Ceil(n/maxGridLines)
	}
	return spacing
}

// renderToCanvas draws grid, beacons and scanner origins (shared logic for SVG and PNG)
func (r *VectorRenderer) renderToCanvas(renderer canvasRenderer, bound orb.Bound) {
	width, height := bound.Right()-bound.Left(), bound.Top()-bound.Bottom()

	bgStyle := canvas.DefaultStyle
	bgStyle.Fill = canvas.Paint{Color: canvas.White}
	renderer.RenderPath(canvas.Rectangle(width, height), bgStyle, canvas.Identity)

	toCanvas := func(v Vec3) (float64, float64) {
		return float64(v.X) - bound.Left(), float64(v.Y) - bound.Bottom()
	}

	if r.GridSpacing > 0 {
		gridStyle := canvas.DefaultStyle
		gridStyle.Fill = canvas.Paint{Color: canvas.Transparent}
		gridStyle.Stroke = canvas.Paint{Color: canvas.Gray}
		gridStyle.StrokeWidth = 1.0
		step := gridStep(r.GridSpacing, math.Max(width, height))
		dash := 8.0 * step / r.GridSpacing
		gridStyle.Dashes = []float64{dash, dash}

		for x := math.Ceil(bound.Left()/step) * step; x <= bound.Right(); x += step {
			gridPath := &canvas.Path{}
			gridPath.MoveTo(x-bound.Left(), 0)
			gridPath.LineTo(x-bound.Left(), height)
			renderer.RenderPath(gridPath, gridStyle, canvas.Identity)
		}
		for y := math.Ceil(bound.Bottom()/step) * step; y <= bound.Top(); y += step {
			gridPath := &canvas.Path{}
			gridPath.MoveTo(0, y-bound.Bottom())
			gridPath.LineTo(width, y-bound.Bottom())
			renderer.RenderPath(gridPath, gridStyle, canvas.Identity)
		}
	}

	for i, s := range r.Scanners {
		vc := colorFor(r.Colors, i)

		beaconStyle := canvas.DefaultStyle
		beaconStyle.Fill = canvas.Paint{Color: nrgbaToRGBA(vc.Beacon)}
		beaconStyle.Stroke = canvas.Paint{Color: canvas.Transparent}

		for _, b := range s.Beacons() {
			cx, cy := toCanvas(b)
			renderer.RenderPath(canvas.Circle(r.BeaconRadius).Translate(cx, cy), beaconStyle, canvas.Identity)
		}
	}

	// Origins last so they sit above beacons
	for i, s := range r.Scanners {
		vc := colorFor(r.Colors, i)
		cx, cy := toCanvas(s.Origin())

		originStyle := canvas.DefaultStyle
		originStyle.Fill = canvas.Paint{Color: nrgbaToRGBA(vc.Origin)}
		originStyle.Stroke = canvas.Paint{Color: canvas.Black}
		originStyle.StrokeWidth = 3.0

		renderer.RenderPath(canvas.Circle(r.OriginRadius).Translate(cx, cy), originStyle, canvas.Identity)
	}
}
