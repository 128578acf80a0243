package pdffigures

import (
	"image"
	"sync"

	"github.com/klippa-app/go-pdfium"
	"github.com/klippa-app/go-pdfium/references"
	"github.com/klippa-app/go-pdfium/requests"
	"github.com/klippa-app/go-pdfium/responses"
)

// Document is the page-level view of a PDF that extraction works against.
// Implementations must be safe for concurrent use.
type Document interface {
	// PageCount returns the number of pages.
	PageCount() int

	// Page returns the text blocks and drawings of a page (0-indexed).
	Page(index int) (*PageLayout, error)

	// RenderRegion rasterizes a region of a page at the given linear
	// magnification and returns an opaque RGB buffer.
	RenderRegion(pageIndex int, r Region, zoom float64) (*image.RGBA, error)

	// Close releases the document.
	Close() error
}

// pdfiumDocument is a Document backed by a pdfium instance.
type pdfiumDocument struct {
	instance  pdfium.Pdfium
	doc       references.FPDF_DOCUMENT
	pageCount int

	mu     sync.Mutex
	cached *pageRender
}

// pageRender is a full-page render kept while captions of the same page are processed.
type pageRender struct {
	page  int
	dpi   int
	img   *image.RGBA
	ratio float64
}

// OpenDocument opens a PDF file with pdfium.
func OpenDocument(instance pdfium.Pdfium, filePath string) (Document, error) {
	doc, err := instance.OpenDocument(&requests.OpenDocument{
		FilePath: &filePath,
	})
	if err != nil {
		return nil, accessError("open document", -1, err)
	}

	pageCount, err := instance.FPDF_GetPageCount(&requests.FPDF_GetPageCount{
		Document: doc.Document,
	})
	if err != nil {
		instance.FPDF_CloseDocument(&requests.FPDF_CloseDocument{
			Document: doc.Document,
		})
		return nil, accessError("get page count", -1, err)
	}

	return &pdfiumDocument{
		instance:  instance,
		doc:       doc.Document,
		pageCount: pageCount.PageCount,
	}, nil
}

func (d *pdfiumDocument) PageCount() int {
	return d.pageCount
}

func (d *pdfiumDocument) Page(index int) (*PageLayout, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	pageResp, err := d.instance.FPDF_LoadPage(&requests.FPDF_LoadPage{
		Document: d.doc,
		Index:    index,
	})
	if err != nil {
		return nil, accessError("load page", index, err)
	}
	defer d.instance.FPDF_ClosePage(&requests.FPDF_ClosePage{
		Page: pageResp.Page,
	})

	return ExtractPageLayout(d.instance, pageResp.Page, index)
}

func (d *pdfiumDocument) RenderRegion(pageIndex int, r Region, zoom float64) (*image.RGBA, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	dpi := renderDPI(zoom)
	if d.cached == nil || d.cached.page != pageIndex || d.cached.dpi != dpi {
		render, err := d.renderPage(pageIndex, dpi)
		if err != nil {
			return nil, err
		}
		d.cached = render
	}

	rect := pixelRect(r, d.cached.ratio, d.cached.img.Bounds())
	if rect.Empty() {
		return image.NewRGBA(image.Rect(0, 0, 0, 0)), nil
	}
	return copyRect(d.cached.img, rect), nil
}

// renderPage renders a whole page and copies the result out of pdfium's memory,
// flattened onto white.
func (d *pdfiumDocument) renderPage(pageIndex, dpi int) (*pageRender, error) {
	resp, err := d.instance.RenderPageInDPI(&requests.RenderPageInDPI{
		Page: requests.Page{
			ByIndex: &requests.PageByIndex{
				Document: d.doc,
				Index:    pageIndex,
			},
		},
		DPI: dpi,
	})
	if err != nil {
		return nil, accessError("render page", pageIndex, err)
	}
	defer resp.Cleanup()

	return copyRender(pageIndex, dpi, resp.Result), nil
}

func copyRender(pageIndex, dpi int, result responses.RenderPage) *pageRender {
	return &pageRender{
		page:  pageIndex,
		dpi:   dpi,
		img:   flattenOnWhite(result.Image, result.Image.Bounds()),
		ratio: result.PointToPixelRatio,
	}
}

func (d *pdfiumDocument) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.cached = nil
	_, err := d.instance.FPDF_CloseDocument(&requests.FPDF_CloseDocument{
		Document: d.doc,
	})
	if err != nil {
		return accessError("close document", -1, err)
	}
	return nil
}
