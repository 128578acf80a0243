package pdffigures

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteManifest_Empty(t *testing.T) {
	dir := t.TempDir()

	path, err := writeManifest(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "manifest.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))

	entries, err := ReadManifest(path)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWriteManifest_Entries(t *testing.T) {
	dir := t.TempDir()
	entries := []ManifestEntry{
		{Label: "figure1", Type: "figure", Path: imagePath(dir, "figure1"), CaptionText: "Figure 1. Growth <24 h> & beyond"},
		{Label: "table1", Type: "table", Path: imagePath(dir, "table1"), CaptionText: "Table 1. Strains\nused in this study"},
	}

	path, err := writeManifest(dir, entries)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, `"caption_text": "Figure 1. Growth <24 h> & beyond"`)
	assert.Contains(t, content, `"label": "table1"`)
	assert.Contains(t, content, `Strains\nused`)
	assert.True(t, strings.HasPrefix(content, "[\n  {"))

	read, err := ReadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, entries, read)
}

func TestReadManifest_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadManifest(filepath.Join(dir, "missing.json"))
	assert.ErrorContains(t, err, "failed to read manifest")

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o644))
	_, err = ReadManifest(bad)
	assert.ErrorContains(t, err, "failed to parse manifest")
}

func TestImagePath(t *testing.T) {
	assert.Equal(t, filepath.Join("out", "sfigure2.png"), imagePath("out", "sfigure2"))
}

func TestRenderIndex(t *testing.T) {
	entries := []ManifestEntry{
		{Label: "figure1", Type: "figure", Path: filepath.Join("out", "figure1.png"), CaptionText: "Figure 1. Growth\nover time"},
		{Label: "table1", Type: "table", Path: filepath.Join("out", "table1.png"), CaptionText: "Table 1. A | B"},
	}

	content, err := renderIndex(entries, ModeMain)
	require.NoError(t, err)

	assert.Contains(t, content, "# Figures and tables")
	assert.Contains(t, content, "**figure1**")
	assert.Contains(t, content, "`figure1.png`")
	assert.Contains(t, content, "Figure 1. Growth over time")
	assert.Contains(t, content, `Table 1. A \| B`)
	assert.NotContains(t, content, "out/")
}

func TestRenderIndex_Empty(t *testing.T) {
	content, err := renderIndex(nil, ModeSupplementary)
	require.NoError(t, err)

	assert.Contains(t, content, "# Supplementary figures and tables")
	assert.Contains(t, content, "No figure or table captions were found.")
}

func TestWriteIndex(t *testing.T) {
	dir := t.TempDir()

	path, err := writeIndex(dir, []ManifestEntry{{Label: "figure1", Type: "figure", Path: imagePath(dir, "figure1"), CaptionText: "Figure 1. A"}}, ModeMain)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "figures.md"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "**figure1**")
}

func TestTableCell(t *testing.T) {
	assert.Equal(t, "a b c", tableCell("  a\n b\t\tc "))
	assert.Equal(t, `x \| y`, tableCell("x | y"))
}
