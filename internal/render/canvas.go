package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"
)

var (
	colorDim   = color.NRGBA{R: 0x33, G: 0x33, B: 0x33, A: 0xff}
	colorWhite = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
)

func red(alpha float64) color.NRGBA {
	alpha = min(max(alpha, 0), 1)
	return color.NRGBA{R: 0xff, A: uint8(math.Round(alpha * 0xff))}
}

func pixelRect(x, y, w, h float64) image.Rectangle {
	return image.Rect(
		int(math.Round(x)), int(math.Round(y)),
		int(math.Round(x+w)), int(math.Round(y+h)),
	)
}

func clearRaster(dst *image.RGBA) {
	draw.Draw(dst, dst.Bounds(), image.Transparent, image.Point{}, draw.Src)
}

func fillRect(dst *image.RGBA, x, y, w, h float64, c color.Color) {
	r := pixelRect(x, y, w, h).Intersect(dst.Bounds())
	if r.Empty() {
		return
	}
	draw.Draw(dst, r, image.NewUniform(c), image.Point{}, draw.Over)
}

// strokeRect outlines a rectangle with a line of the given width centered
// on its edges. Edges do not overlap so translucent strokes blend evenly.
func strokeRect(dst *image.RGBA, x, y, w, h, lineWidth float64, c color.Color) {
	half := lineWidth / 2
	fillRect(dst, x-half, y-half, w+lineWidth, lineWidth, c)
	fillRect(dst, x-half, y+h-half, w+lineWidth, lineWidth, c)
	if h > lineWidth {
		fillRect(dst, x-half, y+half, lineWidth, h-lineWidth, c)
		fillRect(dst, x+w-half, y+half, lineWidth, h-lineWidth, c)
	}
}

func hline(dst *image.RGBA, x, y, w, lineWidth float64, c color.Color) {
	fillRect(dst, x, y-lineWidth/2, w, lineWidth, c)
}
