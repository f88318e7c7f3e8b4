package mesh

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// ScannerColor defines the colors used for one scanner's beacons and origin
type ScannerColor struct {
	Beacon color.NRGBA
	Origin color.NRGBA
}

// DefaultColors returns a palette; scanners beyond its length reuse colors
func DefaultColors() []ScannerColor {
	return []ScannerColor{
		{ // Reference - Blue
			Beacon: color.NRGBA{100, 149, 237, 255}, // Cornflower blue
			Origin: color.NRGBA{0, 0, 139, 255},     // Dark blue
		},
		{ // Red
			Beacon: color.NRGBA{255, 99, 71, 255}, // Tomato
			Origin: color.NRGBA{139, 0, 0, 255},   // Dark red
		},
		{ // Green
			Beacon: color.NRGBA{60, 179, 113, 255}, // Medium sea green
			Origin: color.NRGBA{0, 100, 0, 255},    // Dark green
		},
		{ // Yellow
			Beacon: color.NRGBA{238, 201, 0, 255}, // Gold
			Origin: color.NRGBA{184, 134, 11, 255}, // Dark goldenrod
		},
		{ // Purple
			Beacon: color.NRGBA{186, 85, 211, 255}, // Medium orchid
			Origin: color.NRGBA{75, 0, 130, 255},   // Indigo
		},
	}
}

// colorFor returns the palette entry for the i-th scanner
func colorFor(palette []ScannerColor, i int) ScannerColor {
	if len(palette) == 0 {
		palette = DefaultColors()
	}
	return palette[i%len(palette)]
}

// RasterRenderer draws a top-down (XY) view of placed scanners as a bitmap
type RasterRenderer struct {
	Scanners   []*Scanner
	Colors     []ScannerColor
	Scale      float64 // Pixels per world unit (default 0.25)
	Padding    int     // Padding around the image in pixels
	ShowLabels bool
}

// MaxImageDimension bounds the width and height of rendered PNG maps in pixels.
const MaxImageDimension = 4096

// fitScale shrinks scale so span*scale plus reserved pixels stays within
// MaxImageDimension.
func fitScale(scale, span float64, reserved int) float64 {
	room := float64(MaxImageDimension - reserved)
	if span <= 0 || room <= 0 || span*scale <= room {
		return scale
	}
	return room / span
}

// NewRasterRenderer creates a renderer with default settings
func NewRasterRenderer(scanners []*Scanner) *RasterRenderer {
	return &RasterRenderer{
		Scanners:   scanners,
		Colors:     DefaultColors(),
		Scale:      0.25,
		Padding:    20,
		ShowLabels: true,
	}
}

// Render draws every beacon and scanner origin. +Y points up in the image.
func (r *RasterRenderer) Render() *image.RGBA {
	bound := PlanarBounds(r.Scanners, 0)
	spanX, spanY := bound.Right()-bound.Left(), bound.Top()-bound.Bottom()
	scale := fitScale(r.Scale, math.Max(spanX, spanY), 2*r.Padding+2)
	width := int(math.Ceil(spanX*scale)) + 2*r.Padding + 1
	height := int(math.Ceil(spanY*scale)) + 2*r.Padding + 1

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)

	toPixel := func(v Vec3) (int, int) {
		px := r.Padding + int(math.Round((float64(v.X)-bound.Left())*scale))
		py := r.Padding + int(math.Round((bound.Top()-float64(v.Y))*scale))
		return px, py
	}

	for i, s := range r.Scanners {
		c := colorFor(r.Colors, i)
		for _, b := range s.Beacons() {
			x, y := toPixel(b)
			fillSquare(img, x, y, 1, c.Beacon)
		}
	}

	for i, s := range r.Scanners {
		c := colorFor(r.Colors, i)
		x, y := toPixel(s.Origin())
		fillSquare(img, x, y, 3, c.Origin)
		if r.ShowLabels {
			drawText(img, x+6, y-4, s.Label, color.RGBA{0, 0, 0, 255})
		}
	}

	return img
}

// RenderToFile renders and writes a PNG
func (r *RasterRenderer) RenderToFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, r.Render()); err != nil {
		return fmt.Errorf("encoding PNG: %w", err)
	}
	return nil
}

// fillSquare fills a (2*half+1)-pixel square centred on (x, y), clipped to the image
func fillSquare(img *image.RGBA, x, y, half int, c color.Color) {
	rect := image.Rect(x-half, y-half, x+half+1, y+half+1).Intersect(img.Bounds())
	draw.Draw(img, rect, &image.Uniform{C: c}, image.Point{}, draw.Src)
}

// drawText renders text onto an image at the specified position
func drawText(img *image.RGBA, x, y int, text string, c color.RGBA) {
	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}
