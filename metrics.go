package pdffigures

import (
	"fmt"
	"strings"
	"time"

	"github.com/phuslu/log"
)

// ProcessingMetrics contains timing and statistics for one extraction run
type ProcessingMetrics struct {
	TotalTime    time.Duration
	DocumentOpen time.Duration
	PageLoads    []PageMetrics
	Statistics   RunStatistics
}

// PageMetrics contains timing for a single page
type PageMetrics struct {
	PageNumber int
	Duration   time.Duration
}

// RunStatistics counts what a run found and produced
type RunStatistics struct {
	TotalPages       int
	TotalBlocks      int
	TotalDrawings    int
	Captions         int
	Written          int
	SkippedDuplicate int
	SkippedTooSmall  int
	FallbacksUsed    int
}

func calculateRunStatistics(pages []*PageLayout, captions int, outcomes []CaptionOutcome) RunStatistics {
	stats := RunStatistics{
		TotalPages: len(pages),
		Captions:   captions,
	}
	for _, page := range pages {
		stats.TotalBlocks += len(page.Blocks)
		stats.TotalDrawings += len(page.Drawings)
	}
	for _, o := range outcomes {
		switch o.Status {
		case StatusWritten:
			stats.Written++
			if o.Source == SourceBelow {
				stats.FallbacksUsed++
			}
		case StatusSkippedDuplicate:
			stats.SkippedDuplicate++
		case StatusSkippedTooSmall:
			stats.SkippedTooSmall++
		}
	}
	return stats
}

// logProcessingMetrics logs the processing metrics as a boxed table
func logProcessingMetrics(logger *log.Logger, metrics ProcessingMetrics) {
	var lines []string
	row := func(format string, args ...any) {
		lines = append(lines, fmt.Sprintf(format, args...))
	}
	rule := "├─────────────────────────────────────────────┤"

	lines = append(lines, "┌─────────────────────────────────────────────┐")
	row("│ Figure Extraction Metrics                   │")
	lines = append(lines, rule)
	row("│ Total Time: %-31v │", metrics.TotalTime.Round(time.Millisecond))
	row("│ Open:       %-31v │", metrics.DocumentOpen.Round(time.Millisecond))
	lines = append(lines, rule)
	row("│ Run Statistics                              │")
	lines = append(lines, rule)
	row("│   Pages:      %-29d │", metrics.Statistics.TotalPages)
	row("│   Blocks:     %-29d │", metrics.Statistics.TotalBlocks)
	row("│   Drawings:   %-29d │", metrics.Statistics.TotalDrawings)
	row("│   Captions:   %-29d │", metrics.Statistics.Captions)
	row("│   Written:    %-29d │", metrics.Statistics.Written)
	row("│   Duplicates: %-29d │", metrics.Statistics.SkippedDuplicate)
	row("│   Too small:  %-29d │", metrics.Statistics.SkippedTooSmall)
	row("│   Fallbacks:  %-29d │", metrics.Statistics.FallbacksUsed)
	lines = append(lines, rule)
	row("│ Per-Page Timing                             │")
	lines = append(lines, rule)
	for _, pm := range metrics.PageLoads {
		row("│   Page %2d: %-31v │", pm.PageNumber, pm.Duration.Round(time.Millisecond))
	}
	if len(metrics.PageLoads) > 0 {
		avgTime := metrics.TotalTime / time.Duration(len(metrics.PageLoads))
		lines = append(lines, rule)
		row("│ Avg per page: %-29v │", avgTime.Round(time.Millisecond))
	}
	lines = append(lines, "└─────────────────────────────────────────────┘")

	logger.Info().Msg("metrics\n" + strings.Join(lines, "\n"))
}
