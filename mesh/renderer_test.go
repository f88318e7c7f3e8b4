package mesh

import (
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestRasterRenderer_Render(t *testing.T) {
	scanners := placedChain(t)
	r := NewRasterRenderer(scanners)
	r.ShowLabels = false

	img := r.Render()

	bound := PlanarBounds(scanners, 0)
	wantW := int(math.Ceil((bound.Right()-bound.Left())*r.Scale)) + 2*r.Padding + 1
	if img.Bounds().Dx() != wantW {
		t.Errorf("width = %d, want %d", img.Bounds().Dx(), wantW)
	}

	// Reference origin is drawn in the first palette color
	px := r.Padding + int(math.Round((0-bound.Left())*r.Scale))
	py := r.Padding + int(math.Round((bound.Top()-0)*r.Scale))
	want := DefaultColors()[0].Origin
	got := color.NRGBAModel.Convert(img.At(px, py)).(color.NRGBA)
	if got != want {
		t.Errorf("pixel at reference origin = %v, want %v", got, want)
	}

	// Corners stay background
	if c := color.NRGBAModel.Convert(img.At(0, 0)).(color.NRGBA); c != (color.NRGBA{255, 255, 255, 255}) {
		t.Errorf("corner pixel = %v, want white", c)
	}
}

// spreadReport parses a report whose beacons span two billion units on each axis.
func spreadReport(t *testing.T) []*Scanner {
	t.Helper()
	scanners, err := ParseScanners([]byte("--- a ---\n1000000000,1000000000,0\n-1000000000,-1000000000,0\n"))
	if err != nil {
		t.Fatalf("ParseScanners() error: %v", err)
	}
	return scanners
}

func TestRasterRenderer_RenderClampsWideSpread(t *testing.T) {
	r := NewRasterRenderer(spreadReport(t))

	img := r.Render()

	if w, h := img.Bounds().Dx(), img.Bounds().Dy(); w > MaxImageDimension || h > MaxImageDimension {
		t.Fatalf("image is %dx%d, want at most %d on each side", w, h, MaxImageDimension)
	}
	// The far beacon still lands just inside the padding
	x := img.Bounds().Dx() - 1 - r.Padding
	if c := color.NRGBAModel.Convert(img.At(x, r.Padding)).(color.NRGBA); c == (color.NRGBA{255, 255, 255, 255}) {
		t.Errorf("top-right beacon pixel is background")
	}
}

func TestFitScale(t *testing.T) {
	if got := fitScale(0.25, 1000, 41); got != 0.25 {
		t.Errorf("fitScale(small span) = %v, want 0.25", got)
	}
	got := fitScale(1, 1e9, 1)
	if span := 1e9 * got; span > float64(MaxImageDimension-1) {
		t.Errorf("fitScale(wide span) leaves %v pixels", span)
	}
}

func TestRasterRenderer_RenderToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "map.png")
	r := NewRasterRenderer(placedChain(t))
	if err := r.RenderToFile(path); err != nil {
		t.Fatalf("RenderToFile() error = %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	if _, err := png.Decode(f); err != nil {
		t.Errorf("output is not a PNG: %v", err)
	}
}

func TestColorFor_Wraps(t *testing.T) {
	palette := DefaultColors()
	if colorFor(palette, len(palette)) != palette[0] {
		t.Error("colorFor should wrap around the palette")
	}
	if colorFor(nil, 1) != palette[1] {
		t.Error("colorFor with empty palette should use defaults")
	}
}
