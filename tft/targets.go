package tft

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"

	"github.com/golang/freetype/truetype"
	"github.com/llgcode/draw2d/draw2dimg"
	"github.com/llgcode/draw2d/draw2dkit"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/display"
)

// Colors used by the capture screens.
var (
	Black = color.RGBA{A: 0xFF}
	White = color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
)

// LoadFace parses the TrueType font at path and returns a face of size
// points at 72 DPI.
func LoadFace(path string, size float64) (font.Face, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := truetype.Parse(b)
	if err != nil {
		return nil, fmt.Errorf("tft: parse %s: %w", path, err)
	}
	return truetype.NewFace(f, &truetype.Options{Size: size, DPI: 72}), nil
}

// TargetView is the screen shown while capturing calibration points.
type TargetView struct {
	Size    image.Point
	Targets [3]image.Point
	// Done is the number of targets already captured.
	Done  int
	Label string
	// Face renders Label. Nil selects basicfont.Face7x13.
	Face   font.Face
	FG, BG color.Color
}

// NewTargetView returns a black on white view of the given targets.
func NewTargetView(size image.Point, targets [3]image.Point) *TargetView {
	return &TargetView{Size: size, Targets: targets, FG: Black, BG: White}
}

// Render draws the view. Captured targets are filled, the next one is drawn
// as a ring with a crosshair.
func (v *TargetView) Render() *image.RGBA {
	img := image.NewRGBA(image.Rectangle{Max: v.Size})
	draw.Draw(img, img.Bounds(), image.NewUniform(v.BG), image.Point{}, draw.Src)

	gc := draw2dimg.NewGraphicContext(img)
	gc.SetStrokeColor(v.FG)
	gc.SetFillColor(v.FG)
	gc.SetLineWidth(2)
	for i, t := range v.Targets {
		cx, cy := float64(t.X), float64(t.Y)
		gc.BeginPath()
		draw2dkit.Circle(gc, cx, cy, 8)
		if i < v.Done {
			gc.Fill()
		} else {
			gc.Stroke()
		}
		gc.BeginPath()
		gc.MoveTo(cx-12, cy)
		gc.LineTo(cx+12, cy)
		gc.MoveTo(cx, cy-12)
		gc.LineTo(cx, cy+12)
		gc.Stroke()
	}
	if v.Label != "" {
		Text(img, v.Size.X/2-len(v.Label)*7/2, v.Size.Y/2, v.Label, v.FG, v.Face)
	}
	return img
}

// Text draws s with its baseline starting at x, y.
func Text(dst draw.Image, x, y int, s string, c color.Color, face font.Face) {
	if face == nil {
		face = basicfont.Face7x13
	}
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

// Dot draws a filled circle of radius r at p.
func Dot(dst draw.Image, p image.Point, r float64, c color.Color) {
	gc := draw2dimg.NewGraphicContext(dst)
	gc.SetFillColor(c)
	gc.BeginPath()
	draw2dkit.Circle(gc, float64(p.X), float64(p.Y), r)
	gc.Fill()
}

// Show pushes img to the whole of d.
func Show(d display.Drawer, img image.Image) error {
	return d.Draw(d.Bounds(), img, img.Bounds().Min)
}
