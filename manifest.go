package pdffigures

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/ivanvanderbyl/markdown"
	"github.com/pkg/errors"
)

const (
	manifestFile = "manifest.json"
	indexFile    = "figures.md"
)

// imagePath returns the output path of a label's image.
func imagePath(outDir, label string) string {
	return filepath.Join(outDir, label+".png")
}

// writeImage encodes img as PNG at path.
func writeImage(path string, img image.Image) error {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return errors.Wrapf(err, "failed to encode %s", path)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return nil
}

// writeManifest writes the entries as an indented JSON array. An empty run
// still produces "[]".
func writeManifest(outDir string, entries []ManifestEntry) (string, error) {
	if entries == nil {
		entries = []ManifestEntry{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entries); err != nil {
		return "", errors.Wrap(err, "failed to encode manifest")
	}

	path := filepath.Join(outDir, manifestFile)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", errors.Wrap(err, "failed to write manifest")
	}
	return path, nil
}

// ReadManifest loads a manifest written by a previous run.
func ReadManifest(path string) ([]ManifestEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read manifest")
	}
	var entries []ManifestEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, errors.Wrap(err, "failed to parse manifest")
	}
	return entries, nil
}

// renderIndex builds the markdown index of extracted images.
func renderIndex(entries []ManifestEntry, mode Mode) (string, error) {
	var buf bytes.Buffer
	md := markdown.NewMarkdown(&buf)

	if mode == ModeSupplementary {
		md.H1("Supplementary figures and tables")
	} else {
		md.H1("Figures and tables")
	}
	md.LF()

	if len(entries) == 0 {
		md.PlainText("No figure or table captions were found.")
	} else {
		rows := make([][]string, 0, len(entries))
		for _, e := range entries {
			file := filepath.Base(e.Path)
			rows = append(rows, []string{
				markdown.Bold(e.Label),
				e.Type,
				markdown.Code(file),
				tableCell(e.CaptionText),
			})
		}
		md.Table(markdown.TableSet{
			Header: []string{"Label", "Type", "File", "Caption"},
			Rows:   rows,
		})
	}

	if err := md.Build(); err != nil {
		return "", errors.Wrap(err, "failed to build markdown index")
	}
	return buf.String(), nil
}

// tableCell flattens caption text so it fits a single table cell.
func tableCell(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	return strings.ReplaceAll(text, "|", `\|`)
}

func writeIndex(outDir string, entries []ManifestEntry, mode Mode) (string, error) {
	content, err := renderIndex(entries, mode)
	if err != nil {
		return "", err
	}
	path := filepath.Join(outDir, indexFile)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", errors.Wrap(err, "failed to write markdown index")
	}
	return path, nil
}
