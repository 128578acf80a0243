package pdffigures

import (
	"image"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/phuslu/log"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePage is a page layout plus the rectangles that render as solid ink.
type fakePage struct {
	layout *PageLayout
	ink    []Rect
}

type fakeDocument struct {
	pages     []fakePage
	renderErr error
	pageErr   error

	mu      sync.Mutex
	renders int
}

func (d *fakeDocument) PageCount() int { return len(d.pages) }

func (d *fakeDocument) Page(index int) (*PageLayout, error) {
	if d.pageErr != nil {
		return nil, accessError("load page", index, d.pageErr)
	}
	return d.pages[index].layout, nil
}

func (d *fakeDocument) RenderRegion(pageIndex int, r Region, zoom float64) (*image.RGBA, error) {
	if d.renderErr != nil {
		return nil, accessError("render page", pageIndex, d.renderErr)
	}
	d.mu.Lock()
	d.renders++
	d.mu.Unlock()

	img := whiteImage(int(math.Ceil(r.Width()*zoom)), int(math.Ceil(r.Height()*zoom)))
	for _, ink := range d.pages[pageIndex].ink {
		px := image.Rect(
			int((ink.X0-r.Left)*zoom), int((ink.Y0-r.Top)*zoom),
			int((ink.X1-r.Left)*zoom), int((ink.Y1-r.Top)*zoom),
		)
		fill(img, px.Intersect(img.Bounds()), 0)
	}
	return img, nil
}

func (d *fakeDocument) Close() error { return nil }

func newFakePage(index int, blocks []TextBlock, ink ...Rect) fakePage {
	return fakePage{
		layout: &PageLayout{Index: index, Width: 300, Height: 400, Blocks: blocks},
		ink:    ink,
	}
}

func testConfig(mode Mode) Config {
	config := DefaultConfig()
	config.Mode = mode
	config.Zoom = 2
	config.Logger = &log.Logger{Writer: &log.IOWriter{Writer: io.Discard}}
	return config
}

func statuses(outcomes []CaptionOutcome) []Status {
	var out []Status
	for _, o := range outcomes {
		out = append(out, o.Status)
	}
	return out
}

func TestExtract_SingleFigure(t *testing.T) {
	doc := &fakeDocument{pages: []fakePage{
		newFakePage(0, []TextBlock{
			{Box: Rect{X0: 20, Y0: 300, X1: 280, Y1: 315}, Text: "Figure 1. Growth over time."},
		}, Rect{X0: 50, Y0: 80, X1: 250, Y1: 280}),
	}}
	outDir := t.TempDir()

	result, err := NewExtractor(nil, testConfig(ModeMain)).Extract(doc, outDir)
	require.NoError(t, err)

	require.Len(t, result.Manifest, 1)
	entry := result.Manifest[0]
	assert.Equal(t, "figure1", entry.Label)
	assert.Equal(t, "figure", entry.Type)
	assert.Equal(t, filepath.Join(outDir, "figure1.png"), entry.Path)
	assert.Equal(t, "Figure 1. Growth over time.", entry.CaptionText)
	assert.NotEmpty(t, result.RunID)
	assert.Empty(t, result.Notices)

	require.Len(t, result.Outcomes, 1)
	outcome := result.Outcomes[0]
	assert.Equal(t, StatusWritten, outcome.Status)
	assert.Equal(t, SourceAbove, outcome.Source)
	assert.Equal(t, Region{Top: 10, Bottom: 297, Left: 3, Right: 297}, outcome.Region)
	assert.Equal(t, 432, outcome.Width)
	assert.Equal(t, 420, outcome.Height)

	f, err := os.Open(entry.Path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 432, img.Bounds().Dx())
	assert.Equal(t, 420, img.Bounds().Dy())

	manifest, err := ReadManifest(result.ManifestPath)
	require.NoError(t, err)
	assert.Equal(t, result.Manifest, manifest)
}

func TestExtract_NoCaptions(t *testing.T) {
	doc := &fakeDocument{pages: []fakePage{
		newFakePage(0, []TextBlock{
			{Box: Rect{X0: 20, Y0: 50, X1: 280, Y1: 200}, Text: "Introduction\nThis paper has no figures."},
		}, Rect{X0: 20, Y0: 50, X1: 280, Y1: 200}),
	}}
	outDir := filepath.Join(t.TempDir(), "out")

	result, err := NewExtractor(nil, testConfig(ModeMain)).Extract(doc, outDir)
	require.NoError(t, err)

	assert.Empty(t, result.Manifest)
	require.Len(t, result.Notices, 1)
	assert.ErrorIs(t, result.Notices[0], ErrNoCaptionsFound)

	data, err := os.ReadFile(filepath.Join(outDir, "manifest.json"))
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(data))

	files, err := os.ReadDir(outDir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "manifest.json", files[0].Name())
}

func TestExtract_DuplicateLabelLockIn(t *testing.T) {
	doc := &fakeDocument{pages: []fakePage{
		// Contents page: nothing fits above the caption
		newFakePage(0, []TextBlock{
			{Box: Rect{X0: 20, Y0: 25, X1: 280, Y1: 35}, Text: "Figure 1. Growth over time ........ 3"},
		}),
		newFakePage(1, []TextBlock{
			{Box: Rect{X0: 20, Y0: 300, X1: 280, Y1: 315}, Text: "Figure 1. Growth over time."},
		}, Rect{X0: 50, Y0: 80, X1: 250, Y1: 280}),
		newFakePage(2, []TextBlock{
			{Box: Rect{X0: 20, Y0: 300, X1: 280, Y1: 315}, Text: "Figure 1. Repeated on a later page."},
		}, Rect{X0: 50, Y0: 80, X1: 250, Y1: 280}),
	}}

	result, err := NewExtractor(nil, testConfig(ModeMain)).Extract(doc, t.TempDir())
	require.NoError(t, err)

	require.Len(t, result.Manifest, 1)
	assert.Equal(t, "Figure 1. Growth over time.", result.Manifest[0].CaptionText)
	assert.Equal(t, []Status{StatusSkippedTooSmall, StatusWritten, StatusSkippedDuplicate}, statuses(result.Outcomes))
	assert.Equal(t, 1, result.Outcomes[1].Caption.Page)

	require.Len(t, result.Notices, 2)
	assert.ErrorIs(t, result.Notices[0], ErrRegionTooSmall)
	assert.ErrorIs(t, result.Notices[1], ErrDuplicateLabel)
}

func TestExtract_BlankRegionSkipped(t *testing.T) {
	doc := &fakeDocument{pages: []fakePage{
		newFakePage(0, []TextBlock{
			{Box: Rect{X0: 20, Y0: 300, X1: 280, Y1: 315}, Text: "Table 1. Nothing rendered above."},
		}),
	}}
	outDir := t.TempDir()

	result, err := NewExtractor(nil, testConfig(ModeMain)).Extract(doc, outDir)
	require.NoError(t, err)

	assert.Empty(t, result.Manifest)
	assert.Equal(t, []Status{StatusSkippedTooSmall}, statuses(result.Outcomes))
	assert.ErrorIs(t, result.Outcomes[0].Err, ErrRegionTooSmall)
	assert.NoFileExists(t, filepath.Join(outDir, "table1.png"))
	// Main mode never falls back below the caption
	assert.Equal(t, 1, doc.renders)
}

func TestExtract_PreviousCaptionBoundsNextRegion(t *testing.T) {
	doc := &fakeDocument{pages: []fakePage{
		newFakePage(0, []TextBlock{
			{Box: Rect{X0: 20, Y0: 150, X1: 280, Y1: 165}, Text: "Figure 1. Upper."},
			{Box: Rect{X0: 20, Y0: 300, X1: 280, Y1: 315}, Text: "Figure 2. Lower."},
		}, Rect{X0: 50, Y0: 40, X1: 250, Y1: 140}, Rect{X0: 50, Y0: 200, X1: 250, Y1: 290}),
	}}

	result, err := NewExtractor(nil, testConfig(ModeMain)).Extract(doc, t.TempDir())
	require.NoError(t, err)

	require.Len(t, result.Outcomes, 2)
	assert.Equal(t, 168.0, result.Outcomes[1].Region.Top)
	assert.Equal(t, []string{"figure1", "figure2"}, []string{result.Manifest[0].Label, result.Manifest[1].Label})
}

func TestExtract_SupplementaryFallbackBelow(t *testing.T) {
	doc := &fakeDocument{pages: []fakePage{
		newFakePage(0, []TextBlock{
			{Box: Rect{X0: 20, Y0: 100, X1: 280, Y1: 112}, Text: "Table S1. Primer sequences"},
		}),
		newFakePage(1, []TextBlock{
			{Box: Rect{X0: 20, Y0: 50, X1: 280, Y1: 62}, Text: "Table S1. Primer sequences used for qPCR"},
		}, Rect{X0: 30, Y0: 80, X1: 270, Y1: 200}),
	}}

	result, err := NewExtractor(nil, testConfig(ModeSupplementary)).Extract(doc, t.TempDir())
	require.NoError(t, err)

	require.Len(t, result.Outcomes, 1)
	outcome := result.Outcomes[0]
	assert.Equal(t, StatusWritten, outcome.Status)
	assert.Equal(t, SourceBelow, outcome.Source)
	assert.Equal(t, 65.0, outcome.Region.Top)
	assert.Equal(t, 395.0, outcome.Region.Bottom)

	require.Len(t, result.Manifest, 1)
	assert.Equal(t, "stable1", result.Manifest[0].Label)
	assert.Equal(t, "table", result.Manifest[0].Type)
	assert.Equal(t, "Table S1. Primer sequences used for qPCR", result.Manifest[0].CaptionText)
	assert.Equal(t, 1, result.Metrics.Statistics.FallbacksUsed)
}

func TestExtract_SupplementaryFallbackEmpty(t *testing.T) {
	doc := &fakeDocument{pages: []fakePage{
		newFakePage(0, nil),
		newFakePage(1, []TextBlock{
			{Box: Rect{X0: 20, Y0: 150, X1: 280, Y1: 162}, Text: "Figure S2. Missing artwork"},
		}),
	}}

	result, err := NewExtractor(nil, testConfig(ModeSupplementary)).Extract(doc, t.TempDir())
	require.NoError(t, err)

	assert.Empty(t, result.Manifest)
	assert.Equal(t, []Status{StatusSkippedTooSmall}, statuses(result.Outcomes))
	assert.Equal(t, 2, doc.renders)
}

func TestExtract_Deterministic(t *testing.T) {
	doc := &fakeDocument{pages: []fakePage{
		newFakePage(0, []TextBlock{
			{Box: Rect{X0: 20, Y0: 150, X1: 280, Y1: 165}, Text: "Figure 1. Upper."},
			{Box: Rect{X0: 20, Y0: 300, X1: 280, Y1: 315}, Text: "Table 1. Lower."},
		}, Rect{X0: 50, Y0: 40, X1: 250, Y1: 140}, Rect{X0: 60, Y0: 200, X1: 200, Y1: 290}),
	}}
	extractor := NewExtractor(nil, testConfig(ModeMain))

	first, err := extractor.Extract(doc, t.TempDir())
	require.NoError(t, err)
	second, err := extractor.Extract(doc, t.TempDir())
	require.NoError(t, err)

	require.Equal(t, len(first.Manifest), len(second.Manifest))
	for i := range first.Manifest {
		a, b := first.Manifest[i], second.Manifest[i]
		assert.Equal(t, a.Label, b.Label)
		assert.Equal(t, a.Type, b.Type)
		assert.Equal(t, a.CaptionText, b.CaptionText)

		dataA, err := os.ReadFile(a.Path)
		require.NoError(t, err)
		dataB, err := os.ReadFile(b.Path)
		require.NoError(t, err)
		assert.Equal(t, dataA, dataB)
	}
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestExtract_ParallelMatchesSequential(t *testing.T) {
	doc := &fakeDocument{pages: []fakePage{
		newFakePage(0, []TextBlock{
			{Box: Rect{X0: 20, Y0: 300, X1: 280, Y1: 315}, Text: "Figure 1. First."},
		}, Rect{X0: 50, Y0: 80, X1: 250, Y1: 280}),
		// The repeated label would bound Figure 2 if it were extracted here
		newFakePage(1, []TextBlock{
			{Box: Rect{X0: 20, Y0: 150, X1: 280, Y1: 165}, Text: "Figure 1. Repeated."},
			{Box: Rect{X0: 20, Y0: 300, X1: 280, Y1: 315}, Text: "Figure 2. Second."},
		}, Rect{X0: 50, Y0: 40, X1: 250, Y1: 140}, Rect{X0: 50, Y0: 200, X1: 250, Y1: 290}),
		newFakePage(2, []TextBlock{
			{Box: Rect{X0: 20, Y0: 300, X1: 280, Y1: 315}, Text: "Table 1. Third."},
		}, Rect{X0: 50, Y0: 80, X1: 250, Y1: 280}),
	}}

	sequential, err := NewExtractor(nil, testConfig(ModeMain)).Extract(doc, t.TempDir())
	require.NoError(t, err)

	config := testConfig(ModeMain)
	config.Workers = 4
	parallel, err := NewExtractor(nil, config).Extract(doc, t.TempDir())
	require.NoError(t, err)

	require.Len(t, parallel.Outcomes, len(sequential.Outcomes))
	for i := range sequential.Outcomes {
		s, p := sequential.Outcomes[i], parallel.Outcomes[i]
		assert.Equal(t, s.Caption.Label, p.Caption.Label)
		assert.Equal(t, s.Status, p.Status)
		assert.Equal(t, s.Region, p.Region)
		assert.Equal(t, s.Width, p.Width)
		assert.Equal(t, s.Height, p.Height)
	}

	assert.Equal(t, []Status{StatusWritten, StatusSkippedDuplicate, StatusWritten, StatusWritten}, statuses(parallel.Outcomes))
	assert.Equal(t, 10.0, parallel.Outcomes[2].Region.Top)
}

func TestExtract_AccessErrorAborts(t *testing.T) {
	t.Run("render", func(t *testing.T) {
		doc := &fakeDocument{
			pages: []fakePage{newFakePage(0, []TextBlock{
				{Box: Rect{X0: 20, Y0: 300, X1: 280, Y1: 315}, Text: "Figure 1. Growth."},
			})},
			renderErr: errors.New("bitmap allocation failed"),
		}
		outDir := t.TempDir()

		_, err := NewExtractor(nil, testConfig(ModeMain)).Extract(doc, outDir)
		require.Error(t, err)
		assert.True(t, IsAccessError(err))
		assert.NoFileExists(t, filepath.Join(outDir, "manifest.json"))
	})

	t.Run("page", func(t *testing.T) {
		doc := &fakeDocument{
			pages:   []fakePage{newFakePage(0, nil)},
			pageErr: errors.New("corrupt page tree"),
		}
		outDir := t.TempDir()

		_, err := NewExtractor(nil, testConfig(ModeMain)).Extract(doc, outDir)
		require.Error(t, err)
		assert.True(t, IsAccessError(err))
		assert.Contains(t, err.Error(), "page 1")
		assert.NoFileExists(t, filepath.Join(outDir, "manifest.json"))
	})
}

func TestExtract_InvalidConfig(t *testing.T) {
	config := testConfig(ModeMain)
	config.Zoom = 0

	_, err := NewExtractor(nil, config).Extract(&fakeDocument{}, t.TempDir())
	require.Error(t, err)
	assert.False(t, IsAccessError(err))
}

func TestInspect(t *testing.T) {
	doc := &fakeDocument{pages: []fakePage{
		newFakePage(0, []TextBlock{
			{Box: Rect{X0: 20, Y0: 25, X1: 280, Y1: 35}, Text: "Figure 1. Contents entry"},
			{Box: Rect{X0: 20, Y0: 300, X1: 280, Y1: 315}, Text: "Figure 2. Lower."},
		}),
	}}

	reports, err := NewExtractor(nil, testConfig(ModeMain)).Inspect(doc)
	require.NoError(t, err)
	require.Len(t, reports, 2)

	assert.False(t, reports[0].Resolved)
	assert.True(t, reports[1].Resolved)
	assert.Equal(t, 38.0, reports[1].Region.Top)
	assert.Equal(t, 297.0, reports[1].Region.Bottom)
	assert.Zero(t, doc.renders)
}
