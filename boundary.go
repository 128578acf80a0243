package pdffigures

import (
	"math"
	"strings"
)

// LayoutSettings holds the geometric thresholds used to resolve figure regions.
// All distances are in PDF points.
type LayoutSettings struct {
	// PageInset keeps regions this far inside the page edges.
	PageInset float64 `toml:"page_inset" yaml:"page_inset" validate:"gte=0"`

	// DefaultTopMargin is the top boundary when nothing else bounds a region.
	DefaultTopMargin float64 `toml:"default_top_margin" yaml:"default_top_margin" validate:"gte=0"`

	// HeaderBand is how close to the page top a running-header block must start.
	HeaderBand float64 `toml:"header_band" yaml:"header_band" validate:"gte=0"`

	// HeaderKeywords identify running-header blocks (case-insensitive substrings).
	HeaderKeywords []string `toml:"header_keywords" yaml:"header_keywords"`

	// CaptionGap separates a region from a neighbouring caption.
	CaptionGap float64 `toml:"caption_gap" yaml:"caption_gap" validate:"gte=0"`

	// SeparatorGap is added below headers, dashed separators and section titles.
	SeparatorGap float64 `toml:"separator_gap" yaml:"separator_gap" validate:"gte=0"`

	// BodyTextGap is the blank gap between body text and a supplementary caption
	// above which the text is excluded from the region.
	BodyTextGap float64 `toml:"body_text_gap" yaml:"body_text_gap" validate:"gte=0"`

	// OverlapTolerance admits blocks ending slightly below a caption top.
	OverlapTolerance float64 `toml:"overlap_tolerance" yaml:"overlap_tolerance" validate:"gte=0"`

	// BottomMargin bounds a below-caption region when no caption follows it.
	BottomMargin float64 `toml:"bottom_margin" yaml:"bottom_margin" validate:"gte=0"`

	// MinRegionSize is the smallest width or height worth rendering.
	MinRegionSize float64 `toml:"min_region_size" yaml:"min_region_size" validate:"gt=0"`
}

// DefaultLayoutSettings returns the thresholds tuned for two-column journal layouts.
func DefaultLayoutSettings() LayoutSettings {
	return LayoutSettings{
		PageInset:        3,
		DefaultTopMargin: 10,
		HeaderBand:       40,
		HeaderKeywords:   []string{"www.", "doi", "nature", "scientific", "journal"},
		CaptionGap:       3,
		SeparatorGap:     2,
		BodyTextGap:      30,
		OverlapTolerance: 5,
		BottomMargin:     5,
		MinRegionSize:    20,
	}
}

// ResolveAbove computes the region holding the content above a caption.
// prevBottom is the bottom of the previously extracted caption on the same
// page, or nil. It returns false when the region is too small.
func ResolveAbove(page *PageLayout, caption Caption, prevBottom *float64, mode Mode, s LayoutSettings) (Region, bool) {
	var top, bottom float64
	if mode == ModeSupplementary {
		top = supplementaryTop(page, caption, prevBottom, s)
		bottom = supplementaryBottom(page, caption, s)
	} else {
		top = mainTop(page, caption, prevBottom, s)
		bottom = caption.Box.Y0 - s.CaptionGap
	}
	return clipRegion(page, Region{Top: top, Bottom: bottom}, s)
}

// ResolveBelow computes the region under a caption, for layouts where a
// table title precedes its body. The region extends to the next caption of
// the same kind on the page or to the page bottom.
func ResolveBelow(page *PageLayout, caption Caption, mode Mode, s LayoutSettings) (Region, bool) {
	bottom := page.Height - s.BottomMargin
	nextTop := math.Inf(1)
	for _, b := range page.Blocks {
		if b.Box.Y0 <= caption.Box.Y1+s.OverlapTolerance {
			continue
		}
		if head, ok := parseCaption(strings.TrimSpace(b.Text), mode); ok && head.kind == caption.Kind {
			nextTop = math.Min(nextTop, b.Box.Y0)
		}
	}
	if !math.IsInf(nextTop, 1) {
		bottom = nextTop - s.CaptionGap
	}
	return clipRegion(page, Region{Top: caption.Box.Y1 + s.CaptionGap, Bottom: bottom}, s)
}

func baselineTop(prevBottom *float64, fallback float64, s LayoutSettings) float64 {
	if prevBottom != nil {
		return *prevBottom + s.CaptionGap
	}
	return fallback
}

func mainTop(page *PageLayout, caption Caption, prevBottom *float64, s LayoutSettings) float64 {
	top := baselineTop(prevBottom, contentTop(page, s), s)
	if y, ok := dashedSeparatorY(page, caption.Box.Y0); ok && y > top {
		top = y + s.SeparatorGap
	}
	return top
}

// contentTop returns where content starts below a running header, if any.
func contentTop(page *PageLayout, s LayoutSettings) float64 {
	headerBottom := 0.0
	for _, b := range page.Blocks {
		if b.Box.Y0 >= s.HeaderBand || !hasHeaderKeyword(b.Text, s.HeaderKeywords) {
			continue
		}
		headerBottom = math.Max(headerBottom, b.Box.Y1)
	}
	if headerBottom > 0 {
		return headerBottom + s.SeparatorGap
	}
	return s.DefaultTopMargin
}

func hasHeaderKeyword(text string, keywords []string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// dashedSeparatorY returns the lowest dashed drawing starting above y.
func dashedSeparatorY(page *PageLayout, y float64) (float64, bool) {
	found := false
	best := 0.0
	for _, d := range page.Drawings {
		if !d.IsDashed() || d.Box.Y0 >= y {
			continue
		}
		if !found || d.Box.Y0 > best {
			best = d.Box.Y0
			found = true
		}
	}
	return best, found
}

func supplementaryTop(page *PageLayout, caption Caption, prevBottom *float64, s LayoutSettings) float64 {
	capTop := caption.Box.Y0
	top := baselineTop(prevBottom, s.DefaultTopMargin, s)

	headerBottom := 0.0
	for _, b := range page.Blocks {
		if b.Box.Y1 < capTop && isSectionTitle(strings.TrimSpace(b.Text)) {
			headerBottom = math.Max(headerBottom, b.Box.Y1)
		}
	}
	if headerBottom > top {
		top = headerBottom + s.SeparatorGap
	}

	scanTop := top
	if headerBottom > 0 {
		scanTop = headerBottom
	}
	lastText := scanTop
	for _, b := range page.Blocks {
		if b.Box.Y0 < scanTop || b.Box.Y1 >= capTop-s.OverlapTolerance {
			continue
		}
		if isBodyText(b.Text, ModeSupplementary) {
			lastText = math.Max(lastText, b.Box.Y1)
		}
	}
	if lastText > scanTop && capTop-lastText > s.BodyTextGap {
		top = math.Max(top, lastText+s.CaptionGap)
	}
	return top
}

// supplementaryBottom extends the region down to content blocks that overlap
// the caption's own box, such as axis labels set beside the caption. It is
// never above the caption top plus the separator gap.
func supplementaryBottom(page *PageLayout, caption Caption, s LayoutSettings) float64 {
	capTop := caption.Box.Y0
	lastContent := 0.0
	for _, b := range page.Blocks {
		if b.Box.Y1 > capTop+s.OverlapTolerance {
			continue
		}
		text := strings.TrimSpace(b.Text)
		if _, ok := parseCaption(text, ModeSupplementary); ok || isSectionTitle(text) {
			continue
		}
		lastContent = math.Max(lastContent, b.Box.Y1)
	}
	return math.Max(capTop+s.SeparatorGap, lastContent)
}

// isBodyText reports whether a block is ordinary prose: not empty, not a
// caption and not a section title.
func isBodyText(text string, mode Mode) bool {
	text = strings.TrimSpace(text)
	if text == "" || isSectionTitle(text) {
		return false
	}
	_, isCaption := parseCaption(text, mode)
	return !isCaption
}

// clipRegion pins a region inside the page and rejects it when too small.
func clipRegion(page *PageLayout, r Region, s LayoutSettings) (Region, bool) {
	r.Left = s.PageInset
	r.Right = page.Width - s.PageInset
	r.Top = math.Max(r.Top, s.PageInset)
	r.Bottom = math.Min(r.Bottom, page.Height-s.PageInset)
	if r.Height() < s.MinRegionSize || r.Width() < s.MinRegionSize {
		return Region{}, false
	}
	return r, true
}
