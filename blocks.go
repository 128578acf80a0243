package pdffigures

import (
	"math"
	"sort"
	"strings"
)

// Line represents a horizontal line of text.
type Line struct {
	Words    []EnrichedWord
	Box      Rect
	Baseline float64 // Y-coordinate of the baseline
}

// Column is a vertical band of the page holding words.
type Column struct {
	Box   Rect
	Words []EnrichedWord
	Index int
}

// buildTextBlocks groups words into paragraph-like blocks. Columns are
// grouped independently so blocks never bridge the gutter of a two-column page.
// Rotated words, such as vertical axis labels, become blocks of their own.
func buildTextBlocks(words []EnrichedWord, pageWidth float64) []TextBlock {
	var horizontal []EnrichedWord
	var blocks []TextBlock
	for _, word := range words {
		if isRotated(word.Rotation) {
			blocks = append(blocks, TextBlock{Box: word.Box, Text: word.Text})
			continue
		}
		horizontal = append(horizontal, word)
	}

	for _, column := range detectColumns(horizontal, pageWidth) {
		blocks = append(blocks, groupLinesIntoBlocks(groupWordsIntoLines(column.Words))...)
	}

	sort.SliceStable(blocks, func(i, j int) bool {
		if blocks[i].Box.Y0 != blocks[j].Box.Y0 {
			return blocks[i].Box.Y0 < blocks[j].Box.Y0
		}
		return blocks[i].Box.X0 < blocks[j].Box.X0
	})
	return blocks
}

// isRotated reports whether an angle in degrees is away from horizontal.
func isRotated(angle float64) bool {
	a := normalizeAngle(quantizeAngle(angle, 90))
	return a != 0
}

// detectColumns detects multi-column layout using vertical projection profile
func detectColumns(words []EnrichedWord, pageWidth float64) []Column {
	if len(words) == 0 {
		return nil
	}

	// Build vertical projection profile (histogram of text density), 1pt bins
	numBins := int(math.Ceil(pageWidth))
	bins := make([]int, numBins)
	for _, word := range words {
		start := max(int(word.Box.X0), 0)
		end := min(int(math.Ceil(word.Box.X1)), numBins)
		for bin := start; bin < end; bin++ {
			bins[bin]++
		}
	}

	valleys := findSignificantValleys(bins, pageWidth)
	if len(valleys) == 0 {
		return []Column{{
			Box:   Rect{X0: 0, Y0: 0, X1: pageWidth, Y1: findMaxY(words)},
			Words: words,
		}}
	}

	columns := make([]Column, 0, len(valleys)+1)
	edges := append(append([]float64{0}, valleys...), pageWidth)
	for i := 0; i < len(edges)-1; i++ {
		colWords := filterWordsByXRange(words, edges[i], edges[i+1])
		if len(colWords) == 0 {
			continue
		}
		columns = append(columns, Column{
			Box:   Rect{X0: edges[i], Y0: 0, X1: edges[i+1], Y1: findMaxY(colWords)},
			Words: colWords,
			Index: i,
		})
	}
	return columns
}

// findSignificantValleys identifies gaps in the text density histogram
func findSignificantValleys(bins []int, pageWidth float64) []float64 {
	var sum, nonZero int
	for _, count := range bins {
		sum += count
		if count > 0 {
			nonZero++
		}
	}
	if nonZero == 0 {
		return nil
	}

	const (
		minValleyWidth  = 20.0 // points
		valleyThreshold = 0.2  // fraction of average density
		edgeMargin      = 50.0 // ignore valleys this close to the page edges
	)
	threshold := int(float64(sum) / float64(nonZero) * valleyThreshold)

	var valleys []float64
	valleyStart := -1
	for i, count := range bins {
		if count <= threshold {
			if valleyStart == -1 {
				valleyStart = i
			}
			continue
		}
		if valleyStart != -1 {
			if float64(i-valleyStart) >= minValleyWidth {
				center := float64(valleyStart+i) / 2
				if center > edgeMargin && center < pageWidth-edgeMargin {
					valleys = append(valleys, center)
				}
			}
			valleyStart = -1
		}
	}
	return valleys
}

// filterWordsByXRange returns words whose horizontal center is within the X range
func filterWordsByXRange(words []EnrichedWord, xStart, xEnd float64) []EnrichedWord {
	var filtered []EnrichedWord
	for _, word := range words {
		center := word.Box.CenterX()
		if center >= xStart && center < xEnd {
			filtered = append(filtered, word)
		}
	}
	return filtered
}

func findMaxY(words []EnrichedWord) float64 {
	maxY := 0.0
	for _, word := range words {
		maxY = math.Max(maxY, word.Box.Y1)
	}
	return maxY
}

// groupWordsIntoLines sorts words into visual order and groups them by
// vertical center, falling back to baseline proximity.
func groupWordsIntoLines(words []EnrichedWord) []Line {
	if len(words) == 0 {
		return nil
	}

	sorted := make([]EnrichedWord, len(words))
	copy(sorted, words)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].Box, sorted[j].Box
		overlap := math.Min(a.Y1, b.Y1) - math.Max(a.Y0, b.Y0)
		if overlap > math.Min(a.Height(), b.Height())*0.3 {
			return a.X0 < b.X0
		}
		return a.Y0 < b.Y0
	})

	var lines []Line
	current := Line{Words: []EnrichedWord{sorted[0]}, Box: sorted[0].Box, Baseline: sorted[0].Baseline}
	xHeight := sorted[0].XHeight

	for _, word := range sorted[1:] {
		centerDistance := math.Abs(word.Box.CenterY() - current.Box.CenterY())
		avgHeight := (current.Box.Height() + word.Box.Height()) / 2

		threshold := 0.6 * xHeight
		if threshold == 0 {
			threshold = 5.0
		}

		if centerDistance < avgHeight || math.Abs(word.Baseline-current.Baseline) < threshold {
			current.Words = append(current.Words, word)
			current.Box = mergeRects(current.Box, word.Box)
			n := float64(len(current.Words))
			current.Baseline = (current.Baseline*(n-1) + word.Baseline) / n
			continue
		}

		lines = append(lines, current)
		current = Line{Words: []EnrichedWord{word}, Box: word.Box, Baseline: word.Baseline}
		xHeight = word.XHeight
	}
	lines = append(lines, current)

	for i := range lines {
		sort.SliceStable(lines[i].Words, func(a, b int) bool {
			return lines[i].Words[a].Box.X0 < lines[i].Words[b].Box.X0
		})
	}
	return lines
}

// groupLinesIntoBlocks groups lines into blocks using adaptive spacing
func groupLinesIntoBlocks(lines []Line) []TextBlock {
	if len(lines) == 0 {
		return nil
	}

	threshold := calculateDynamicThreshold(lines)

	var blocks []TextBlock
	current := []Line{lines[0]}
	box := lines[0].Box

	flush := func() {
		blocks = append(blocks, TextBlock{Box: box, Text: linesText(current)})
	}

	for _, line := range lines[1:] {
		prev := current[len(current)-1]
		avgFontSize := getAverageFontSize(current)
		fontSizeRatio := getLineFontSize(line) / avgFontSize
		significantFontChange := fontSizeRatio < 0.8 || fontSizeRatio > 1.2

		// A new line that sits left of the block and starts a caption is
		// always a break, even when tightly set.
		startsCaption := strings.HasPrefix(strings.ToLower(line.Words[0].Text), "fig") ||
			strings.HasPrefix(strings.ToLower(line.Words[0].Text), "table")

		gap := (line.Box.Y0 - prev.Box.Y1) / avgFontSize
		if gap > threshold || significantFontChange || (startsCaption && line.Box.X0 <= box.X0+1) {
			flush()
			current = []Line{line}
			box = line.Box
			continue
		}
		current = append(current, line)
		box = mergeRects(box, line.Box)
	}
	flush()

	return blocks
}

func linesText(lines []Line) string {
	var sb strings.Builder
	for i, line := range lines {
		if i > 0 {
			sb.WriteByte('\n')
		}
		for j, word := range line.Words {
			if j > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(word.Text)
		}
	}
	return sb.String()
}

// calculateDynamicThreshold calculates adaptive paragraph spacing threshold
func calculateDynamicThreshold(lines []Line) float64 {
	if len(lines) < 3 {
		return 0.9 // Fallback to default
	}

	var gaps, fontSizes []float64
	for i := 0; i < len(lines)-1; i++ {
		gaps = append(gaps, lines[i+1].Box.Y0-lines[i].Box.Y1)
		fontSizes = append(fontSizes, getLineFontSize(lines[i]))
	}

	medianFontSize := calculateMedian(fontSizes)
	if medianFontSize == 0 {
		medianFontSize = 12.0
	}

	// Paragraph break threshold: median + 1.5 * stdDev, normalized by font size
	threshold := (calculateMedian(gaps) + 1.5*calculateStdDev(gaps)) / medianFontSize
	return clamp(threshold, 0.6, 1.5)
}

func getAverageFontSize(lines []Line) float64 {
	var sizes []float64
	for _, line := range lines {
		sizes = append(sizes, getLineFontSize(line))
	}
	if avg := average(sizes); avg > 0 {
		return avg
	}
	return 12.0
}

func getLineFontSize(line Line) float64 {
	var sizes []float64
	for _, word := range line.Words {
		sizes = append(sizes, word.FontSize)
	}
	if avg := average(sizes); avg > 0 {
		return avg
	}
	return 12.0
}
