package pdffigures

import (
	"image"

	"golang.org/x/image/draw"
)

// TrimSettings controls the pixel trimming passes. Intensities are 0-255 grey levels
// and distances are pixels of the rendered image.
type TrimSettings struct {
	// DarkRowThreshold marks a row as part of a header bar (mean below it).
	DarkRowThreshold float64 `toml:"dark_row_threshold" yaml:"dark_row_threshold" validate:"gte=0,lte=255"`

	// WhiteRowThreshold stops header-bar removal once a row mean exceeds it.
	WhiteRowThreshold float64 `toml:"white_row_threshold" yaml:"white_row_threshold" validate:"gte=0,lte=255"`

	// InkThreshold is the level below which a pixel counts as content.
	InkThreshold uint8 `toml:"ink_threshold" yaml:"ink_threshold"`

	// ColumnThreshold is the level a column minimum must fall below to count as content
	// when trimming blank columns on the right.
	ColumnThreshold uint8 `toml:"column_threshold" yaml:"column_threshold"`

	// Padding surrounds the content box.
	Padding int `toml:"padding" yaml:"padding" validate:"gte=0"`

	// ColumnPadding is kept to the right of the last content column.
	ColumnPadding int `toml:"column_padding" yaml:"column_padding" validate:"gte=0"`

	// MinSize is the smallest width or height of a usable image.
	MinSize int `toml:"min_size" yaml:"min_size" validate:"gt=0"`
}

// DefaultTrimSettings returns the thresholds tuned for 4x renders of journal pages.
func DefaultTrimSettings() TrimSettings {
	return TrimSettings{
		DarkRowThreshold:  200,
		WhiteRowThreshold: 240,
		InkThreshold:      245,
		ColumnThreshold:   220,
		Padding:           10,
		ColumnPadding:     12,
		MinSize:           20,
	}
}

// trimState is the buffer flowing through the trim passes together with the
// crop accumulated so far. Coordinates are relative to the buffer origin.
type trimState struct {
	gray    *image.Gray
	top     int             // first row kept after header-bar removal
	content image.Rectangle // tight box of content pixels
}

// Trim crops a rendered region to its visual content. It returns false when
// the region is blank or the result is smaller than the minimum size.
func Trim(img *image.RGBA, s TrimSettings) (*image.RGBA, bool) {
	state := trimState{gray: toGray(img)}
	state = removeHeaderBar(state, s)
	state, ok := boundContent(state, s)
	if !ok {
		return nil, false
	}
	state = trimRightColumns(state, s)

	crop := state.crop(s.Padding)
	if crop.Dx() < s.MinSize || crop.Dy() < s.MinSize {
		return nil, false
	}
	return copyRect(img, crop.Add(img.Bounds().Min)), true
}

// removeHeaderBar advances the top past dark rows, such as a grey running
// header bar, until a clearly white row is reached.
func removeHeaderBar(st trimState, s TrimSettings) trimState {
	b := st.gray.Bounds()
	for y := 0; y < b.Dy(); y++ {
		mean := rowMean(st.gray, y)
		if mean < s.DarkRowThreshold {
			st.top = y + 1
		} else if mean > s.WhiteRowThreshold {
			break
		}
	}
	return st
}

// boundContent finds the tight box of pixels darker than the ink threshold
// below the current top.
func boundContent(st trimState, s TrimSettings) (trimState, bool) {
	b := st.gray.Bounds()
	w, h := b.Dx(), b.Dy()
	x0, y0, x1, y1 := w, h, -1, -1
	for y := st.top; y < h; y++ {
		row := st.gray.Pix[y*st.gray.Stride : y*st.gray.Stride+w]
		for x, v := range row {
			if v >= s.InkThreshold {
				continue
			}
			x0 = min(x0, x)
			x1 = max(x1, x)
			y0 = min(y0, y)
			y1 = max(y1, y)
		}
	}
	if x1 < 0 {
		return st, false
	}
	st.content = image.Rect(x0, y0, x1+1, y1+1)
	return st, true
}

// trimRightColumns pulls the right edge in to the last column holding solid
// content, which drops blank space beside a figure that fills one column of
// a two-column page. Rows above the top are ignored so a full-width header
// bar cannot hold the edge open.
func trimRightColumns(st trimState, s TrimSettings) trimState {
	w := st.gray.Bounds().Dx()
	right := st.content.Max.X - 1
	for x := w - 1; x > st.content.Min.X; x-- {
		if columnMin(st.gray, x, st.top) < s.ColumnThreshold {
			right = x
			break
		}
	}
	st.content.Max.X = min(right+s.ColumnPadding, w-1) + 1
	return st
}

// crop returns the content box grown by pad and clipped to the buffer.
func (st trimState) crop(pad int) image.Rectangle {
	b := st.gray.Bounds()
	r := image.Rect(
		st.content.Min.X-pad, st.content.Min.Y-pad,
		st.content.Max.X+pad, st.content.Max.Y+pad,
	)
	return r.Intersect(image.Rect(0, 0, b.Dx(), b.Dy()))
}

// toGray converts to 8-bit luma using the ITU-R 601 weights.
func toGray(img *image.RGBA) *image.Gray {
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		src := img.Pix[img.PixOffset(b.Min.X, b.Min.Y+y):]
		dst := gray.Pix[y*gray.Stride:]
		for x := 0; x < b.Dx(); x++ {
			r, g, bl := uint32(src[4*x]), uint32(src[4*x+1]), uint32(src[4*x+2])
			dst[x] = uint8((19595*r + 38470*g + 7471*bl + 1<<15) >> 16)
		}
	}
	return gray
}

func rowMean(g *image.Gray, y int) float64 {
	w := g.Bounds().Dx()
	if w == 0 {
		return 0
	}
	var sum int
	for _, v := range g.Pix[y*g.Stride : y*g.Stride+w] {
		sum += int(v)
	}
	return float64(sum) / float64(w)
}

// columnMin returns the darkest value in column x from row top downwards.
func columnMin(g *image.Gray, x, top int) uint8 {
	m := uint8(255)
	for y := top; y < g.Bounds().Dy(); y++ {
		if v := g.Pix[y*g.Stride+x]; v < m {
			m = v
		}
	}
	return m
}

func copyRect(img *image.RGBA, r image.Rectangle) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(out, out.Bounds(), img, r.Min, draw.Src)
	return out
}
