package pdffigures

import (
	"image"
	"math"

	"golang.org/x/image/draw"
)

// pixelRect maps a region in points onto the pixel grid of a page render.
// Edges are rounded outwards and the result is clipped to bounds.
func pixelRect(r Region, ratio float64, bounds image.Rectangle) image.Rectangle {
	px := image.Rect(
		int(math.Floor(r.Left*ratio)),
		int(math.Floor(r.Top*ratio)),
		int(math.Ceil(r.Right*ratio)),
		int(math.Ceil(r.Bottom*ratio)),
	).Add(bounds.Min)
	return px.Intersect(bounds)
}

// flattenOnWhite copies the rect of src into a new opaque buffer, compositing
// any transparency onto white.
func flattenOnWhite(src image.Image, r image.Rectangle) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(out, out.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(out, out.Bounds(), src, r.Min, draw.Over)
	return out
}

// renderDPI is the resolution that gives a linear magnification of zoom
// over the 72 points-per-inch page space.
func renderDPI(zoom float64) int {
	return int(math.Round(72 * zoom))
}
