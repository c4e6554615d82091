package visualizer

import (
	"image/color"
	"math"
)

// HSL converts hue (degrees), saturation and lightness (percent) to RGBA.
func HSL(h, s, l float64) color.RGBA {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	s = clamp01(s / 100)
	l = clamp01(l / 100)

	c := (1 - math.Abs(2*l-1)) * s
	hp := h / 60
	x := c * (1 - math.Abs(math.Mod(hp, 2)-1))
	var r, g, b float64
	switch {
	case hp < 1:
		r, g = c, x
	case hp < 2:
		r, g = x, c
	case hp < 3:
		g, b = c, x
	case hp < 4:
		g, b = x, c
	case hp < 5:
		r, b = x, c
	default:
		r, b = c, x
	}
	m := l - c/2
	return color.RGBA{
		R: uint8(math.Round((r + m) * 255)),
		G: uint8(math.Round((g + m) * 255)),
		B: uint8(math.Round((b + m) * 255)),
		A: 255,
	}
}

// HSLA is HSL with a straight (non-premultiplied) alpha.
func HSLA(h, s, l float64, a uint8) color.NRGBA {
	c := HSL(h, s, l)
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: a}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
