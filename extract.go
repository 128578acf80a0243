package pdffigures

import (
	"math"
	"strings"

	"github.com/klippa-app/go-pdfium"
	"github.com/klippa-app/go-pdfium/references"
	"github.com/klippa-app/go-pdfium/requests"
)

// EnrichedChar represents a single character with the metadata needed for layout.
type EnrichedChar struct {
	Text     rune
	Box      Rect
	FontSize float64
	Angle    float32
}

// EnrichedWord represents a word with aggregated style information.
type EnrichedWord struct {
	Text     string
	Box      Rect
	FontSize float64 // Average font size
	Baseline float64 // Y-coordinate of the text baseline
	XHeight  float64 // Height of lowercase letters
	Rotation float64 // Rotation angle in degrees (0, 90, 180, 270, etc.)
}

// ExtractPageLayout reads the text blocks and vector drawings of a loaded page.
func ExtractPageLayout(instance pdfium.Pdfium, page references.FPDF_PAGE, pageIndex int) (*PageLayout, error) {
	pageWidth, err := instance.FPDF_GetPageWidthF(&requests.FPDF_GetPageWidthF{
		Page: requests.Page{
			ByReference: &page,
		},
	})
	if err != nil {
		return nil, accessError("get page width", pageIndex, err)
	}

	pageHeight, err := instance.FPDF_GetPageHeightF(&requests.FPDF_GetPageHeightF{
		Page: requests.Page{
			ByReference: &page,
		},
	})
	if err != nil {
		return nil, accessError("get page height", pageIndex, err)
	}

	layout := &PageLayout{
		Index:  pageIndex,
		Width:  float64(pageWidth.PageWidth),
		Height: float64(pageHeight.PageHeight),
	}

	textPage, err := instance.FPDFText_LoadPage(&requests.FPDFText_LoadPage{
		Page: requests.Page{
			ByReference: &page,
		},
	})
	if err != nil {
		return nil, accessError("load text page", pageIndex, err)
	}
	defer instance.FPDFText_ClosePage(&requests.FPDFText_ClosePage{
		TextPage: textPage.TextPage,
	})

	charCount, err := instance.FPDFText_CountChars(&requests.FPDFText_CountChars{
		TextPage: textPage.TextPage,
	})
	if err != nil {
		return nil, accessError("count characters", pageIndex, err)
	}

	if charCount.Count > 0 {
		chars := extractEnrichedChars(instance, textPage.TextPage, charCount.Count, layout.Height)
		words := expandLigatures(groupCharsIntoWords(chars))
		layout.Blocks = buildTextBlocks(words, layout.Width)
	}

	drawings, err := extractDrawings(instance, page, layout.Height)
	if err != nil {
		return nil, accessError("read page objects", pageIndex, err)
	}
	layout.Drawings = drawings

	return layout, nil
}

// extractEnrichedChars extracts all characters with their metadata. Characters
// whose text or box cannot be read are skipped.
func extractEnrichedChars(instance pdfium.Pdfium, textPage references.FPDF_TEXTPAGE, count int, pageHeight float64) []EnrichedChar {
	chars := make([]EnrichedChar, 0, count)

	for i := range count {
		unicodeRes, err := instance.FPDFText_GetUnicode(&requests.FPDFText_GetUnicode{
			TextPage: textPage,
			Index:    i,
		})
		if err != nil || unicodeRes.Unicode == 0 {
			continue
		}

		charBox, err := instance.FPDFText_GetCharBox(&requests.FPDFText_GetCharBox{
			TextPage: textPage,
			Index:    i,
		})
		if err != nil {
			continue
		}

		// Convert PDF coordinates (origin bottom-left) to standard (origin top-left)
		box := Rect{
			X0: charBox.Left,
			Y0: pageHeight - charBox.Top,
			X1: charBox.Right,
			Y1: pageHeight - charBox.Bottom,
		}

		fontSizeVal := 12.0
		if fontSize, err := instance.FPDFText_GetFontSize(&requests.FPDFText_GetFontSize{
			TextPage: textPage,
			Index:    i,
		}); err == nil {
			fontSizeVal = fontSize.FontSize
		}

		angleVal := float32(0)
		if angle, err := instance.FPDFText_GetCharAngle(&requests.FPDFText_GetCharAngle{
			TextPage: textPage,
			Index:    i,
		}); err == nil {
			angleVal = angle.CharAngle
		}

		chars = append(chars, EnrichedChar{
			Text:     rune(unicodeRes.Unicode),
			Box:      box,
			FontSize: fontSizeVal,
			Angle:    angleVal,
		})
	}

	return chars
}

func isWhitespace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

// groupCharsIntoWords splits the character stream on whitespace. pdfium emits
// generated spaces and line breaks between words, so no gap analysis is needed.
func groupCharsIntoWords(chars []EnrichedChar) []EnrichedWord {
	var words []EnrichedWord
	var current []EnrichedChar

	flush := func() {
		if len(current) > 0 {
			words = append(words, aggregateWord(current))
			current = nil
		}
	}

	for _, char := range chars {
		if isWhitespace(char.Text) {
			flush()
			continue
		}
		// pdfium reports zero-area boxes for some generated characters
		if char.Box.Width() <= 0 && char.Box.Height() <= 0 {
			continue
		}
		current = append(current, char)
	}
	flush()

	return words
}

// aggregateWord creates an EnrichedWord from a slice of characters.
func aggregateWord(chars []EnrichedChar) EnrichedWord {
	var text strings.Builder
	box := chars[0].Box
	var totalFontSize, totalAngle float64
	for _, char := range chars {
		text.WriteRune(char.Text)
		box.X0 = math.Min(box.X0, char.Box.X0)
		box.Y0 = math.Min(box.Y0, char.Box.Y0)
		box.X1 = math.Max(box.X1, char.Box.X1)
		box.Y1 = math.Max(box.Y1, char.Box.Y1)
		totalFontSize += char.FontSize
		totalAngle += float64(char.Angle)
	}

	word := EnrichedWord{
		Text:     text.String(),
		Box:      box,
		FontSize: totalFontSize / float64(len(chars)),
		Rotation: totalAngle / float64(len(chars)) * 180 / math.Pi,
	}
	word.Baseline = calculateBaseline(word)
	word.XHeight = calculateXHeight(word)

	return word
}

// ligatureMap maps ligature unicode codepoints to their expanded forms
var ligatureMap = map[rune]string{
	0xFB00: "ff",
	0xFB01: "fi",
	0xFB02: "fl",
	0xFB03: "ffi",
	0xFB04: "ffl",
	0xFB05: "ft",
	0xFB06: "st",
}

// expandLigatures expands ligature characters into their component letters
func expandLigatures(words []EnrichedWord) []EnrichedWord {
	for i := range words {
		if !strings.ContainsFunc(words[i].Text, isLigature) {
			continue
		}
		var expanded strings.Builder
		for _, r := range words[i].Text {
			if expansion, ok := ligatureMap[r]; ok {
				expanded.WriteString(expansion)
			} else {
				expanded.WriteRune(r)
			}
		}
		words[i].Text = expanded.String()
	}
	return words
}

func isLigature(r rune) bool {
	_, ok := ligatureMap[r]
	return ok
}
