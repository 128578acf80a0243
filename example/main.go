package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/klippa-app/go-pdfium/webassembly"
	"github.com/urfave/cli/v3"

	"github.com/ivanvanderbyl/pdffigures"
)

// Extracts the figures of an article and, optionally, of its supplementary
// file into sibling directories.
func main() {
	cmd := &cli.Command{
		Name:  "pdffigures-example",
		Usage: "Extract figures from an article and its supplementary information",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "article",
				Aliases:  []string{"a"},
				Usage:    "Article PDF file path",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "supplementary",
				Aliases: []string{"s"},
				Usage:   "Supplementary information PDF file path",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output directory",
				Value:   "figures",
			},
		},
		Action: extractPaper,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

type job struct {
	path string
	mode pdffigures.Mode
	dir  string
}

func extractPaper(_ context.Context, cmd *cli.Command) error {
	outDir := cmd.String("output")

	// Initialise pdfium
	pool, err := webassembly.Init(webassembly.Config{
		MinIdle:  1,
		MaxIdle:  1,
		MaxTotal: 1,
	})
	if err != nil {
		return fmt.Errorf("failed to initialise pdfium: %w", err)
	}
	defer pool.Close()

	instance, err := pool.GetInstance(time.Second * 30)
	if err != nil {
		return fmt.Errorf("failed to get pdfium instance: %w", err)
	}

	jobs := []job{
		{cmd.String("article"), pdffigures.ModeMain, filepath.Join(outDir, "main")},
	}
	if si := cmd.String("supplementary"); si != "" {
		jobs = append(jobs, job{si, pdffigures.ModeSupplementary, filepath.Join(outDir, "si")})
	}

	for _, j := range jobs {
		config := pdffigures.DefaultConfig()
		config.Mode = j.mode
		config.MarkdownIndex = true
		extractor := pdffigures.NewExtractor(instance, config)

		info, err := extractor.GetDocumentInfo(j.path)
		if err != nil {
			return fmt.Errorf("failed to get document info: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Processing %s (%s, %d pages)...\n", j.path, j.mode, info.PageCount)

		result, err := extractor.ExtractFile(j.path, j.dir)
		if err != nil {
			return fmt.Errorf("failed to extract %s: %w", j.path, err)
		}

		for _, entry := range result.Manifest {
			fmt.Printf("%-10s %s\n", entry.Label, entry.Path)
		}
		fmt.Fprintf(os.Stderr, "Manifest written to %s\n", result.ManifestPath)
	}

	return nil
}
