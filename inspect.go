package pdffigures

// CaptionReport is a detected caption with the region resolved above it.
type CaptionReport struct {
	Caption  Caption
	Region   Region
	Resolved bool // false when the region is too small
}

// Inspect detects captions and resolves their above-caption regions without
// rendering anything. Each caption is bounded by the previous caption on its
// page, as if every earlier extraction had succeeded.
func (e *Extractor) Inspect(doc Document) ([]CaptionReport, error) {
	pages, _, err := loadPages(doc)
	if err != nil {
		return nil, err
	}

	captions := DetectCaptions(pages, e.config.Mode, CaptionOptions{
		SkipSupplementaryCover: e.config.SkipSupplementaryCover,
	})

	reports := make([]CaptionReport, 0, len(captions))
	prevBottom := make(map[int]float64)
	for _, c := range captions {
		var prev *float64
		if y, ok := prevBottom[c.Page]; ok {
			prev = &y
		}
		region, ok := ResolveAbove(pages[c.Page], c, prev, e.config.Mode, e.config.Layout)
		reports = append(reports, CaptionReport{Caption: c, Region: region, Resolved: ok})
		prevBottom[c.Page] = c.Box.Y1
	}
	return reports, nil
}

// InspectFile opens a PDF and inspects it.
func (e *Extractor) InspectFile(filePath string) ([]CaptionReport, error) {
	doc, err := OpenDocument(e.instance, filePath)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	return e.Inspect(doc)
}
