package pdffigures_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ivanvanderbyl/pdffigures"
)

func TestDebug_PageLayout(t *testing.T) {
	path := testPDF(t, "article.pdf")
	instance := setupPDFium(t)

	doc, err := pdffigures.OpenDocument(instance, path)
	require.NoError(t, err)
	defer doc.Close()

	page, err := doc.Page(0)
	require.NoError(t, err)

	t.Logf("Page 1: %.1f x %.1f pt, %d blocks, %d drawings", page.Width, page.Height, len(page.Blocks), len(page.Drawings))
	for i, b := range page.Blocks {
		t.Logf("Block %d at (%.1f,%.1f)-(%.1f,%.1f): %q", i, b.Box.X0, b.Box.Y0, b.Box.X1, b.Box.Y1, firstLine(b.Text))
	}
	for i, d := range page.Drawings {
		if d.IsDashed() {
			t.Logf("Dashed drawing %d at Y=%.1f pattern=%v", i, d.Box.Y0, d.Dashes)
		}
	}

	for _, b := range page.Blocks {
		require.LessOrEqual(t, b.Box.X0, b.Box.X1)
		require.LessOrEqual(t, b.Box.Y0, b.Box.Y1)
	}
}

func TestDebug_RenderRegion(t *testing.T) {
	path := testPDF(t, "article.pdf")
	instance := setupPDFium(t)

	doc, err := pdffigures.OpenDocument(instance, path)
	require.NoError(t, err)
	defer doc.Close()

	page, err := doc.Page(0)
	require.NoError(t, err)

	region := pdffigures.Region{Top: 10, Bottom: page.Height / 2, Left: 3, Right: page.Width - 3}
	img, err := doc.RenderRegion(0, region, 2)
	require.NoError(t, err)

	t.Logf("Rendered %.1f x %.1f pt region to %dx%d px", region.Width(), region.Height(), img.Bounds().Dx(), img.Bounds().Dy())
	require.InDelta(t, region.Width()*2, img.Bounds().Dx(), 2)
	require.InDelta(t, region.Height()*2, img.Bounds().Dy(), 2)
}
