package pdffigures

import (
	"math"
	"sort"
)

// calculateMedian calculates the median value of a float64 slice
func calculateMedian(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// calculateStdDev calculates the standard deviation of a float64 slice
func calculateStdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	mean := average(values)
	var sumSquares float64
	for _, v := range values {
		diff := v - mean
		sumSquares += diff * diff
	}
	return math.Sqrt(sumSquares / float64(len(values)))
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// calculateBaseline estimates the baseline Y-coordinate for a word
func calculateBaseline(word EnrichedWord) float64 {
	// Baseline sits slightly above the box bottom to allow for descenders
	return word.Box.Y1 - (word.FontSize * 0.15)
}

// calculateXHeight estimates the x-height (height of lowercase letters) for a word
func calculateXHeight(word EnrichedWord) float64 {
	for _, r := range word.Text {
		if r >= 'a' && r <= 'z' {
			return word.Box.Height() * 0.7
		}
	}
	return word.FontSize * 0.5
}

// quantizeAngle rounds an angle to the nearest multiple of step degrees
func quantizeAngle(angle, step float64) float64 {
	return math.Round(angle/step) * step
}

// normalizeAngle normalizes an angle to [0, 360) range
func normalizeAngle(angle float64) float64 {
	angle = math.Mod(angle, 360)
	if angle < 0 {
		angle += 360
	}
	return angle
}

// mergeRects merges two rectangles into their bounding box
func mergeRects(r1, r2 Rect) Rect {
	return Rect{
		X0: math.Min(r1.X0, r2.X0),
		Y0: math.Min(r1.Y0, r2.Y0),
		X1: math.Max(r1.X1, r2.X1),
		Y1: math.Max(r1.Y1, r2.Y1),
	}
}

// clamp restricts a value to a range
func clamp(value, lo, hi float64) float64 {
	return math.Max(lo, math.Min(value, hi))
}
