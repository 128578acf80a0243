package pdffigures

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// captionLabel is the parsed head of a caption block.
type captionLabel struct {
	kind   CaptionKind
	number string
}

// CaptionOptions controls caption scanning.
type CaptionOptions struct {
	// SkipSupplementaryCover excludes page 0 of a supplementary document,
	// which is assumed to be a cover or table of contents.
	SkipSupplementaryCover bool
}

// DetectCaptions scans the pages in order and returns every caption block
// matching the grammar of mode. Labels are not deduplicated.
func DetectCaptions(pages []*PageLayout, mode Mode, opts CaptionOptions) []Caption {
	var captions []Caption
	for _, page := range pages {
		if mode == ModeSupplementary && opts.SkipSupplementaryCover && page.Index == 0 {
			continue
		}
		for _, block := range page.Blocks {
			text := strings.TrimSpace(block.Text)
			head, ok := parseCaption(text, mode)
			if !ok {
				continue
			}
			captions = append(captions, Caption{
				Page:   page.Index,
				Label:  head.label(mode),
				Kind:   head.kind,
				Number: head.number,
				Box:    block.Box,
				Text:   text,
			})
		}
	}
	return captions
}

func (c captionLabel) label(mode Mode) string {
	if mode == ModeSupplementary {
		return "s" + c.kind.String() + c.number
	}
	return c.kind.String() + c.number
}

func parseCaption(text string, mode Mode) (captionLabel, bool) {
	if mode == ModeSupplementary {
		return parseSupplementaryCaption(text)
	}
	return parseMainCaption(text)
}

// parseMainCaption accepts "Figure N" or "Table N" followed by a period or whitespace.
func parseMainCaption(text string) (captionLabel, bool) {
	kind, rest, ok := cutKeyword(text, "figure", "table")
	if !ok {
		return captionLabel{}, false
	}
	rest, ok = cutSpace(rest)
	if !ok {
		return captionLabel{}, false
	}
	number, rest := cutDigits(rest)
	if number == "" {
		return captionLabel{}, false
	}
	r, _ := utf8.DecodeRuneInString(rest)
	if rest == "" || (r != '.' && !unicode.IsSpace(r)) {
		return captionLabel{}, false
	}
	return captionLabel{kind: kindOf(kind), number: number}, true
}

// parseSupplementaryCaption accepts "Fig.", "Fig", "Figure" or "Table", an
// optional period, whitespace, an optional "S" and digits, then either a
// period or whitespace followed by caption text. Inline references such as
// "Figure S1 (a) shows" are rejected.
func parseSupplementaryCaption(text string) (captionLabel, bool) {
	kind, rest, ok := cutKeyword(text, "figure", "fig", "table")
	if !ok {
		return captionLabel{}, false
	}
	rest = strings.TrimPrefix(rest, ".")
	rest, ok = cutSpace(rest)
	if !ok {
		return captionLabel{}, false
	}
	if rest != "" && (rest[0] == 'S' || rest[0] == 's') {
		rest = rest[1:]
	}
	number, rest := cutDigits(rest)
	if number == "" {
		return captionLabel{}, false
	}
	if strings.HasPrefix(rest, ".") {
		return captionLabel{kind: kindOf(kind), number: number}, true
	}
	after, ok := cutSpace(rest)
	if !ok || after == "" || after[0] == '(' {
		return captionLabel{}, false
	}
	return captionLabel{kind: kindOf(kind), number: number}, true
}

var sectionNouns = []string{"figure", "table", "note", "text", "method", "discussion", "information"}

// isSectionTitle matches supplementary section headings such as
// "Supplementary Figure 3" or "Supplementary Methods", and numbered
// headings of the form "S2. Title".
func isSectionTitle(text string) bool {
	if rest, ok := cutPrefixFold(text, "supplementary"); ok {
		rest, ok = cutSpace(rest)
		if !ok {
			return false
		}
		for _, noun := range sectionNouns {
			if _, ok := cutPrefixFold(rest, noun); ok {
				return true
			}
		}
		return false
	}
	if text == "" || (text[0] != 'S' && text[0] != 's') {
		return false
	}
	number, rest := cutDigits(text[1:])
	if number == "" || !strings.HasPrefix(rest, ".") {
		return false
	}
	after, ok := cutSpace(rest[1:])
	return ok && after != ""
}

// kindOf maps a matched keyword to its caption kind.
func kindOf(keyword string) CaptionKind {
	if keyword == "table" {
		return KindTable
	}
	return KindFigure
}

// cutKeyword strips the first keyword that prefixes s, ignoring case.
// Longer keywords must be listed before their prefixes.
func cutKeyword(s string, keywords ...string) (string, string, bool) {
	for _, kw := range keywords {
		if rest, ok := cutPrefixFold(s, kw); ok {
			return kw, rest, true
		}
	}
	return "", s, false
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) < len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
		return s, false
	}
	return s[len(prefix):], true
}

// cutSpace strips leading whitespace and reports whether there was any.
func cutSpace(s string) (string, bool) {
	trimmed := strings.TrimLeftFunc(s, unicode.IsSpace)
	return trimmed, len(trimmed) < len(s)
}

func cutDigits(s string) (string, string) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return s[:i], s[i:]
}
