package pdffigures

import (
	"strings"

	"github.com/pkg/errors"
)

// Rect represents a bounding box in PDF coordinates.
type Rect struct {
	X0 float64 // Left
	Y0 float64 // Top (after conversion from PDF coordinates)
	X1 float64 // Right
	Y1 float64 // Bottom (after conversion from PDF coordinates)
}

// Width returns the width of the rectangle.
func (r Rect) Width() float64 {
	return r.X1 - r.X0
}

// Height returns the height of the rectangle.
func (r Rect) Height() float64 {
	return r.Y1 - r.Y0
}

// CenterX returns the horizontal center of the rectangle.
func (r Rect) CenterX() float64 {
	return (r.X0 + r.X1) / 2
}

// CenterY returns the vertical center of the rectangle.
func (r Rect) CenterY() float64 {
	return (r.Y0 + r.Y1) / 2
}

// TextBlock is a block of text on a page: a paragraph-like group of lines.
type TextBlock struct {
	Box  Rect
	Text string
}

// Drawing is a vector path object on a page.
type Drawing struct {
	Box    Rect
	Dashes []float64 // Dash pattern, empty for solid strokes
}

// IsDashed reports whether the drawing is stroked with a non-trivial dash pattern.
func (d Drawing) IsDashed() bool {
	for _, v := range d.Dashes {
		if v > 0 {
			return true
		}
	}
	return false
}

// PageLayout is the immutable snapshot of one page used for boundary resolution.
type PageLayout struct {
	Index    int // 0-indexed
	Width    float64
	Height   float64
	Blocks   []TextBlock
	Drawings []Drawing
}

// Mode selects the caption grammar and boundary rules for a run.
type Mode int

const (
	// ModeMain processes a primary article body.
	ModeMain Mode = iota
	// ModeSupplementary processes a supplementary-information file.
	ModeSupplementary
)

func (m Mode) String() string {
	if m == ModeSupplementary {
		return "supplementary"
	}
	return "main"
}

// ParseMode parses "main" or "supplementary" (also "si").
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "main":
		return ModeMain, nil
	case "supplementary", "si":
		return ModeSupplementary, nil
	}
	return ModeMain, errors.Errorf("unknown mode %q", s)
}

// CaptionKind is the content type a caption labels.
type CaptionKind int

const (
	KindFigure CaptionKind = iota
	KindTable
)

func (k CaptionKind) String() string {
	if k == KindTable {
		return "table"
	}
	return "figure"
}

// Caption is a detected caption block.
type Caption struct {
	Page   int    // 0-indexed page
	Label  string // Normalized key, e.g. "figure3" or "stable2"
	Kind   CaptionKind
	Number string // Digits as printed, without any "S" prefix
	Box    Rect
	Text   string
}

// Region is a resolved page area in PDF points.
type Region struct {
	Top    float64
	Bottom float64
	Left   float64
	Right  float64
}

// Width returns the width of the region.
func (r Region) Width() float64 {
	return r.Right - r.Left
}

// Height returns the height of the region.
func (r Region) Height() float64 {
	return r.Bottom - r.Top
}

// ManifestEntry is one extracted image as recorded in manifest.json.
type ManifestEntry struct {
	Label       string `json:"label"`
	Type        string `json:"type"`
	Path        string `json:"path"`
	CaptionText string `json:"caption_text"`
}
