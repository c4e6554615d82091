// Package visualizer paints the analyser's frequency snapshot as a bar
// chart on a repeating, cancellable draw loop.
package visualizer

import "math"

// Bar geometry constants, in layout units.
const (
	HeightCeiling = 0.8
	WidthFactor   = 1.6
	BarGap        = 1.0
	MinBarHeight  = 5.0
)

// Bar is one painted rectangle in layout units. Hue is in degrees,
// Lightness in percent.
type Bar struct {
	Index     int
	X, Y      float64
	W, H      float64
	Hue       float64
	Lightness float64
}

// Layout maps a byte magnitude snapshot onto bars for a w×h canvas at time t
// (seconds). Magnitudes are squared after normalisation so quiet content is
// suppressed harder than loud content. Bars shorter than MinBarHeight are
// dropped and the next drawn bar takes their place.
func Layout(bins []byte, w, h, t float64) []Bar {
	if len(bins) == 0 || w <= 0 || h <= 0 {
		return nil
	}
	barW := w / float64(len(bins)) * WidthFactor
	bars := make([]Bar, 0, len(bins))
	x := 0.0
	for i, raw := range bins {
		norm := float64(raw) / 255
		bh := norm * norm * h * HeightCeiling
		if bh < MinBarHeight {
			continue
		}
		bars = append(bars, Bar{
			Index:     i,
			X:         x,
			Y:         h - bh,
			W:         barW,
			H:         bh,
			Hue:       260 + math.Mod(t*10+float64(i)*2, 40),
			Lightness: math.Min(4+bh/4, 50),
		})
		x += barW + BarGap
	}
	return bars
}

// Stop is one background gradient stop.
type Stop struct {
	Offset     float64
	Hue        float64
	Saturation float64
	Lightness  float64
}

// Background returns the diagonal gradient stops at time t.
func Background(t float64) []Stop {
	rot := t * 20
	return []Stop{
		{Offset: 0, Hue: math.Mod(rot+300, 360), Saturation: 100, Lightness: 10},
		{Offset: 0.6, Hue: math.Mod(rot+200, 360), Saturation: 80, Lightness: 20},
		{Offset: 1, Hue: math.Mod(rot+330, 360), Saturation: 85, Lightness: 25},
	}
}
