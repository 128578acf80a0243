package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/klippa-app/go-pdfium"
	"github.com/klippa-app/go-pdfium/webassembly"
	"github.com/phuslu/log"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"

	"github.com/ivanvanderbyl/pdffigures"
)

// configFlags returns the flags shared by every command.
func configFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "input",
			Aliases:  []string{"i"},
			Usage:    "Input PDF file path",
			Required: true,
		},
		&cli.BoolFlag{
			Name:    "supplementary",
			Aliases: []string{"si"},
			Usage:   "Treat the input as a supplementary-information file",
		},
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "TOML or YAML file overriding the default thresholds",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level (debug, info, warn, error)",
			Value: "info",
		},
	}
}

func main() {
	cmd := &cli.Command{
		Name:  "pdffigures",
		Usage: "Extract figure and table images from PDF files",
		Commands: []*cli.Command{
			{
				Name:  "extract",
				Usage: "Write one PNG per figure or table caption and a manifest.json",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:     "output",
						Aliases:  []string{"o"},
						Usage:    "Output directory",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Pages processed in parallel",
						Value: 1,
					},
					&cli.BoolFlag{
						Name:  "markdown-index",
						Usage: "Also write figures.md listing the extracted images",
					},
					&cli.BoolFlag{
						Name:  "validate",
						Usage: "Validate the PDF with pdfcpu before extracting",
					},
					&cli.BoolFlag{
						Name:  "metrics",
						Usage: "Log timing and statistics",
					},
				}, configFlags()...),
				Action: extractFigures,
			},
			{
				Name:   "inspect",
				Usage:  "List detected captions and their regions without writing files",
				Flags:  configFlags(),
				Action: inspectPDF,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal().Err(err).Msg("pdffigures failed")
	}
}

// loadConfig builds the run configuration from the config file and flags.
func loadConfig(cmd *cli.Command) (pdffigures.Config, error) {
	config := pdffigures.DefaultConfig()
	if path := cmd.String("config"); path != "" {
		var err error
		if config, err = pdffigures.LoadConfig(path); err != nil {
			return config, err
		}
	}

	if cmd.Bool("supplementary") {
		config.Mode = pdffigures.ModeSupplementary
	}
	if cmd.IsSet("workers") {
		config.Workers = int(cmd.Int("workers"))
	}
	if cmd.Bool("markdown-index") {
		config.MarkdownIndex = true
	}
	if cmd.Bool("validate") {
		config.ValidateInput = true
	}
	if cmd.Bool("metrics") {
		config.EnableMetricsLogging = true
	}

	config.Logger = &log.Logger{
		Level:  log.ParseLevel(cmd.String("log-level")),
		Writer: &log.ConsoleWriter{ColorOutput: true, Writer: os.Stderr},
	}
	return config, config.Validate()
}

// withPdfium runs fn with an instance from a single-instance WebAssembly pool.
func withPdfium(fn func(instance pdfium.Pdfium) error) error {
	pool, err := webassembly.Init(webassembly.Config{
		MinIdle:  1,
		MaxIdle:  1,
		MaxTotal: 1,
	})
	if err != nil {
		return errors.Wrap(err, "failed to initialise pdfium")
	}
	defer pool.Close()

	instance, err := pool.GetInstance(time.Second * 30)
	if err != nil {
		return errors.Wrap(err, "failed to get pdfium instance")
	}
	defer instance.Close()

	return fn(instance)
}

func extractFigures(_ context.Context, cmd *cli.Command) error {
	config, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	inputPath := cmd.String("input")
	outputDir := cmd.String("output")

	return withPdfium(func(instance pdfium.Pdfium) error {
		extractor := pdffigures.NewExtractor(instance, config)

		info, err := extractor.GetDocumentInfo(inputPath)
		if err != nil {
			return errors.Wrap(err, "failed to get document info")
		}
		fmt.Fprintf(os.Stderr, "Processing %s PDF with %d pages...\n", config.Mode, info.PageCount)

		result, err := extractor.ExtractFile(inputPath, outputDir)
		if err != nil {
			return errors.Wrap(err, "failed to extract figures")
		}

		for _, entry := range result.Manifest {
			fmt.Printf("%s\t%s\n", entry.Label, entry.Path)
		}
		fmt.Fprintf(os.Stderr, "%d images, manifest written to %s\n", len(result.Manifest), result.ManifestPath)
		return nil
	})
}

func inspectPDF(_ context.Context, cmd *cli.Command) error {
	config, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	inputPath := cmd.String("input")

	info, err := pdffigures.Preflight(inputPath, true)
	if err != nil {
		return err
	}
	fmt.Printf("Pages: %d\n", info.PageCount)
	for i, size := range info.PageSizes {
		fmt.Printf("  page %d: %.1f x %.1f pt\n", i+1, size.Width, size.Height)
	}

	return withPdfium(func(instance pdfium.Pdfium) error {
		reports, err := pdffigures.NewExtractor(instance, config).InspectFile(inputPath)
		if err != nil {
			return errors.Wrap(err, "failed to inspect PDF")
		}

		fmt.Printf("Captions (%s mode): %d\n", config.Mode, len(reports))
		for _, r := range reports {
			c := r.Caption
			if !r.Resolved {
				fmt.Printf("  %-10s page %d  region too small\n", c.Label, c.Page+1)
				continue
			}
			fmt.Printf("  %-10s page %d  top %.1f bottom %.1f  %q\n",
				c.Label, c.Page+1, r.Region.Top, r.Region.Bottom, firstLine(c.Text))
		}
		return nil
	})
}

func firstLine(text string) string {
	line, _, _ := strings.Cut(text, "\n")
	return line
}
