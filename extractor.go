package pdffigures

import (
	"image"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/klippa-app/go-pdfium"
	"github.com/phuslu/log"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Status is the final state of a caption in a run.
type Status string

const (
	StatusWritten          Status = "written"
	StatusSkippedDuplicate Status = "skipped_duplicate"
	StatusSkippedTooSmall  Status = "skipped_too_small"
)

// Source tells which side of its caption an image was taken from.
type Source string

const (
	SourceAbove Source = "above"
	SourceBelow Source = "below"
)

// CaptionOutcome records what happened to one detected caption.
type CaptionOutcome struct {
	Caption Caption
	Status  Status
	Source  Source // set when written
	Region  Region // region the image was rendered from, when written
	Width   int    // trimmed image size in pixels, when written
	Height  int
	Err     error // ErrDuplicateLabel or ErrRegionTooSmall when skipped
}

// Result is the outcome of an extraction run.
type Result struct {
	RunID        string
	Mode         Mode
	Manifest     []ManifestEntry
	ManifestPath string
	IndexPath    string // empty unless Config.MarkdownIndex is set
	Outcomes     []CaptionOutcome
	Notices      []error // non-fatal conditions, in document order
	Metrics      ProcessingMetrics
}

// Extractor extracts figure and table images from PDFs.
type Extractor struct {
	instance pdfium.Pdfium
	config   Config
}

// NewExtractor creates an extractor using a pdfium instance for page access.
func NewExtractor(instance pdfium.Pdfium, config Config) *Extractor {
	return &Extractor{
		instance: instance,
		config:   config,
	}
}

// ExtractFile extracts every captioned figure and table of a PDF file into outDir.
func (e *Extractor) ExtractFile(filePath, outDir string) (*Result, error) {
	if e.config.ValidateInput {
		if _, err := Preflight(filePath, true); err != nil {
			return nil, err
		}
	}

	openStart := time.Now()
	doc, err := OpenDocument(e.instance, filePath)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	return e.extract(doc, outDir, time.Since(openStart))
}

// Extract runs extraction over an open document. Images and manifest.json are
// written to outDir, which is created if missing. A failure of the document
// aborts the run before the manifest is written.
func (e *Extractor) Extract(doc Document, outDir string) (*Result, error) {
	return e.extract(doc, outDir, 0)
}

// GetDocumentInfo returns basic information about a PDF without extracting it.
func (e *Extractor) GetDocumentInfo(filePath string) (*DocumentInfo, error) {
	return Preflight(filePath, e.config.ValidateInput)
}

// pageGroup is a page together with the captions detected on it.
type pageGroup struct {
	page     *PageLayout
	captions []Caption
}

// pageResult holds the outcomes for one page, and the trimmed image of every
// written outcome at the same index.
type pageResult struct {
	outcomes []CaptionOutcome
	images   []*image.RGBA
}

func (e *Extractor) extract(doc Document, outDir string, openTime time.Duration) (*Result, error) {
	if err := e.config.Validate(); err != nil {
		return nil, err
	}

	startTime := time.Now()
	result := &Result{
		RunID: uuid.NewString(),
		Mode:  e.config.Mode,
	}
	logger := runLogger(e.config.logger(), result.RunID)

	pages, pageMetrics, err := loadPages(doc)
	if err != nil {
		return nil, err
	}

	captions := DetectCaptions(pages, e.config.Mode, CaptionOptions{
		SkipSupplementaryCover: e.config.SkipSupplementaryCover,
	})
	logger.Info().Str("mode", e.config.Mode.String()).Int("pages", len(pages)).Int("captions", len(captions)).Msg("captions detected")
	if len(captions) == 0 {
		result.Notices = append(result.Notices, ErrNoCaptionsFound)
		logger.Warn().Err(ErrNoCaptionsFound).Msg("nothing to extract")
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create output directory")
	}

	groups := groupByPage(pages, captions)
	results, err := e.speculate(doc, groups)
	if err != nil {
		return nil, err
	}

	// Lock-in happens here, in document order, whatever the worker count.
	locked := make(map[string]bool)
	for i, group := range groups {
		res := results[i]
		if res == nil || !res.consistentWith(locked) {
			if res, err = e.processPage(doc, group.page, group.captions, locked); err != nil {
				return nil, err
			}
		}

		for j, outcome := range res.outcomes {
			if outcome.Status == StatusSkippedTooSmall && locked[outcome.Caption.Label] {
				outcome.Status = StatusSkippedDuplicate
				outcome.Err = ErrDuplicateLabel
			}

			c := outcome.Caption
			switch outcome.Status {
			case StatusWritten:
				path := imagePath(outDir, c.Label)
				if err := writeImage(path, res.images[j]); err != nil {
					return nil, err
				}
				locked[c.Label] = true
				result.Manifest = append(result.Manifest, ManifestEntry{
					Label:       c.Label,
					Type:        c.Kind.String(),
					Path:        path,
					CaptionText: c.Text,
				})
				logger.Info().Str("label", c.Label).Int("page", c.Page+1).Int("width", outcome.Width).Int("height", outcome.Height).Str("source", string(outcome.Source)).Msg("extracted")
				if outcome.Source == SourceBelow {
					logger.Info().Str("label", c.Label).Int("page", c.Page+1).Msg("used region below caption")
				}
			case StatusSkippedDuplicate:
				result.Notices = append(result.Notices, errors.Wrapf(ErrDuplicateLabel, "%s on page %d", c.Label, c.Page+1))
				logger.Info().Str("label", c.Label).Int("page", c.Page+1).Msg("skipped duplicate")
			case StatusSkippedTooSmall:
				result.Notices = append(result.Notices, errors.Wrapf(ErrRegionTooSmall, "%s on page %d", c.Label, c.Page+1))
				logger.Info().Str("label", c.Label).Int("page", c.Page+1).Msg("skipped, region too small")
			}
			result.Outcomes = append(result.Outcomes, outcome)
		}
	}

	manifestPath, err := writeManifest(outDir, result.Manifest)
	if err != nil {
		return nil, err
	}
	result.ManifestPath = manifestPath
	logger.Info().Str("path", manifestPath).Int("entries", len(result.Manifest)).Msg("manifest written")

	if e.config.MarkdownIndex {
		if result.IndexPath, err = writeIndex(outDir, result.Manifest, e.config.Mode); err != nil {
			return nil, err
		}
	}

	result.Metrics = ProcessingMetrics{
		TotalTime:    time.Since(startTime) + openTime,
		DocumentOpen: openTime,
		PageLoads:    pageMetrics,
		Statistics:   calculateRunStatistics(pages, len(captions), result.Outcomes),
	}
	if e.config.EnableMetricsLogging {
		logProcessingMetrics(logger, result.Metrics)
	}

	return result, nil
}

// runLogger returns a copy of base that tags every line with the run ID.
func runLogger(base *log.Logger, runID string) *log.Logger {
	logger := *base
	logger.Context = log.NewContext(nil).Str("run", runID).Value()
	return &logger
}

// loadPages reads every page's layout before any region is resolved.
func loadPages(doc Document) ([]*PageLayout, []PageMetrics, error) {
	count := doc.PageCount()
	pages := make([]*PageLayout, 0, count)
	metrics := make([]PageMetrics, 0, count)
	for i := 0; i < count; i++ {
		pageStart := time.Now()
		page, err := doc.Page(i)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "failed to extract page %d", i+1)
		}
		pages = append(pages, page)
		metrics = append(metrics, PageMetrics{PageNumber: i + 1, Duration: time.Since(pageStart)})
	}
	return pages, metrics, nil
}

// groupByPage splits captions, which are in document order, by page.
// Pages without captions are omitted.
func groupByPage(pages []*PageLayout, captions []Caption) []pageGroup {
	var groups []pageGroup
	for _, c := range captions {
		if len(groups) == 0 || groups[len(groups)-1].page.Index != c.Page {
			groups = append(groups, pageGroup{page: pages[c.Page]})
		}
		last := &groups[len(groups)-1]
		last.captions = append(last.captions, c)
	}
	return groups
}

// speculate processes pages in parallel, each as if no label had been locked
// in on an earlier page. With a single worker it returns no results and
// every page is processed during lock-in.
func (e *Extractor) speculate(doc Document, groups []pageGroup) ([]*pageResult, error) {
	results := make([]*pageResult, len(groups))
	if e.config.Workers <= 1 {
		return results, nil
	}

	var g errgroup.Group
	g.SetLimit(e.config.Workers)
	for i, group := range groups {
		g.Go(func() error {
			res, err := e.processPage(doc, group.page, group.captions, nil)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// consistentWith reports whether a speculative page result matches what a
// sequential run would have produced given the labels already locked in.
// Captions that failed anyway only change from too small to duplicate; a
// written caption with a locked label would have shifted later regions.
func (r *pageResult) consistentWith(locked map[string]bool) bool {
	for _, o := range r.outcomes {
		if o.Status == StatusWritten && locked[o.Caption.Label] {
			return false
		}
	}
	return true
}

// processPage runs the caption lifecycle for the captions of one page, in
// order. locked holds labels extracted on earlier pages and is not modified.
func (e *Extractor) processPage(doc Document, page *PageLayout, captions []Caption, locked map[string]bool) (*pageResult, error) {
	res := &pageResult{
		outcomes: make([]CaptionOutcome, len(captions)),
		images:   make([]*image.RGBA, len(captions)),
	}
	written := make(map[string]bool)
	var prevBottom *float64

	for i, c := range captions {
		if locked[c.Label] || written[c.Label] {
			res.outcomes[i] = CaptionOutcome{Caption: c, Status: StatusSkippedDuplicate, Err: ErrDuplicateLabel}
			continue
		}

		img, region, source, err := e.extractCaption(doc, page, c, prevBottom)
		if err != nil {
			return nil, err
		}
		if img == nil {
			res.outcomes[i] = CaptionOutcome{Caption: c, Status: StatusSkippedTooSmall, Err: ErrRegionTooSmall}
			continue
		}

		bottom := c.Box.Y1
		prevBottom = &bottom
		written[c.Label] = true
		res.images[i] = img
		res.outcomes[i] = CaptionOutcome{
			Caption: c,
			Status:  StatusWritten,
			Source:  source,
			Region:  region,
			Width:   img.Bounds().Dx(),
			Height:  img.Bounds().Dy(),
		}
	}
	return res, nil
}

// extractCaption renders and trims the region above a caption, falling back
// to the region below it in supplementary mode. It returns a nil image when
// neither yields usable content.
func (e *Extractor) extractCaption(doc Document, page *PageLayout, c Caption, prevBottom *float64) (*image.RGBA, Region, Source, error) {
	if region, ok := ResolveAbove(page, c, prevBottom, e.config.Mode, e.config.Layout); ok {
		img, err := e.renderTrimmed(doc, page.Index, region)
		if err != nil || img != nil {
			return img, region, SourceAbove, err
		}
	}

	if e.config.Mode != ModeSupplementary {
		return nil, Region{}, "", nil
	}

	if region, ok := ResolveBelow(page, c, e.config.Mode, e.config.Layout); ok {
		img, err := e.renderTrimmed(doc, page.Index, region)
		if err != nil || img != nil {
			return img, region, SourceBelow, err
		}
	}
	return nil, Region{}, "", nil
}

func (e *Extractor) renderTrimmed(doc Document, pageIndex int, region Region) (*image.RGBA, error) {
	raw, err := doc.RenderRegion(pageIndex, region, e.config.Zoom)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to render page %d", pageIndex+1)
	}
	img, ok := Trim(raw, e.config.Trim)
	if !ok {
		return nil, nil
	}
	return img, nil
}
