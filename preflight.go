package pdffigures

import (
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pkg/errors"
)

// DocumentInfo contains basic information about a PDF document.
type DocumentInfo struct {
	PageCount int
	PageSizes []PageSize
	Validated bool
}

// PageSize is a page's media box size in points.
type PageSize struct {
	Width  float64
	Height float64
}

// Preflight reads the page structure of a PDF with pdfcpu, independently of
// pdfium. With validate set, the file is also validated by pdfcpu in
// relaxed mode.
func Preflight(filePath string, validate bool) (*DocumentInfo, error) {
	info := &DocumentInfo{}

	if validate {
		conf := model.NewDefaultConfiguration()
		conf.ValidationMode = model.ValidationRelaxed
		if err := api.ValidateFile(filePath, conf); err != nil {
			return nil, errors.Wrap(err, "PDF validation failed")
		}
		info.Validated = true
	}

	pageCount, err := api.PageCountFile(filePath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get page count")
	}
	info.PageCount = pageCount

	dims, err := api.PageDimsFile(filePath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get page dimensions")
	}
	for _, dim := range dims {
		info.PageSizes = append(info.PageSizes, PageSize{Width: dim.Width, Height: dim.Height})
	}

	return info, nil
}
