package visualizer

import (
	"fmt"
	"image"
	"io"
	"math"

	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"
)

// Surface is the drawing canvas. Its backing image is the layout size times
// the pixel ratio; all drawing is done in layout units.
type Surface struct {
	w, h    float64
	ratio   float64
	dc      *gg.Context
	caption string
}

// NewSurface allocates a w×h layout-unit canvas at the given pixel ratio.
func NewSurface(w, h int, ratio float64) (*Surface, error) {
	s := &Surface{}
	if err := s.Resize(w, h, ratio); err != nil {
		return nil, err
	}
	return s, nil
}

// Resize rebuilds the backing context for a new layout size or density.
func (s *Surface) Resize(w, h int, ratio float64) error {
	if w <= 0 || h <= 0 {
		return fmt.Errorf("visualizer: invalid size %dx%d", w, h)
	}
	if ratio <= 0 || math.IsNaN(ratio) {
		ratio = 1
	}
	pw := int(math.Round(float64(w) * ratio))
	ph := int(math.Round(float64(h) * ratio))
	dc := gg.NewContext(max(pw, 1), max(ph, 1))
	dc.Scale(ratio, ratio)
	dc.SetFontFace(basicfont.Face7x13)
	s.w, s.h, s.ratio, s.dc = float64(w), float64(h), ratio, dc
	return nil
}

// Size returns the layout size and pixel ratio.
func (s *Surface) Size() (w, h, ratio float64) {
	return s.w, s.h, s.ratio
}

// SetCaption sets the text drawn in the top-left corner.
func (s *Surface) SetCaption(text string) {
	s.caption = text
}

// Draw paints one frame for the snapshot at time t.
func (s *Surface) Draw(bins []byte, t float64) {
	dc := s.dc

	grad := gg.NewLinearGradient(0, 0, s.w, s.h)
	for _, st := range Background(t) {
		grad.AddColorStop(st.Offset, HSL(st.Hue, st.Saturation, st.Lightness))
	}
	dc.SetFillStyle(grad)
	dc.DrawRectangle(0, 0, s.w, s.h)
	dc.Fill()

	for _, b := range Layout(bins, s.w, s.h, t) {
		dc.SetColor(HSLA(b.Hue, 100, 70, 60))
		dc.DrawRectangle(b.X-1, b.Y-2, b.W+2, b.H+2)
		dc.Fill()

		dc.SetColor(HSL(b.Hue, 100, b.Lightness))
		dc.DrawRectangle(b.X, b.Y, b.W, b.H)
		dc.Fill()
	}

	if s.caption != "" {
		dc.SetRGBA(1, 1, 1, 0.8)
		dc.DrawStringAnchored(s.caption, 8, 8, 0, 1)
	}
}

// Image returns the backing image.
func (s *Surface) Image() image.Image {
	return s.dc.Image()
}

// EncodePNG writes the backing image as PNG.
func (s *Surface) EncodePNG(w io.Writer) error {
	return s.dc.EncodePNG(w)
}
