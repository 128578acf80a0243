package pdffigures

import (
	"github.com/klippa-app/go-pdfium"
	"github.com/klippa-app/go-pdfium/enums"
	"github.com/klippa-app/go-pdfium/references"
	"github.com/klippa-app/go-pdfium/requests"
)

// extractDrawings extracts the path objects of a page with their bounds and
// dash patterns. Objects that cannot be read are skipped.
func extractDrawings(instance pdfium.Pdfium, page references.FPDF_PAGE, pageHeight float64) ([]Drawing, error) {
	countResp, err := instance.FPDFPage_CountObjects(&requests.FPDFPage_CountObjects{
		Page: requests.Page{
			ByReference: &page,
		},
	})
	if err != nil {
		return nil, err
	}

	var drawings []Drawing
	for i := 0; i < countResp.Count; i++ {
		objResp, err := instance.FPDFPage_GetObject(&requests.FPDFPage_GetObject{
			Page: requests.Page{
				ByReference: &page,
			},
			Index: i,
		})
		if err != nil {
			continue
		}

		typeResp, err := instance.FPDFPageObj_GetType(&requests.FPDFPageObj_GetType{
			PageObject: objResp.PageObject,
		})
		if err != nil || typeResp.Type != enums.FPDF_PAGEOBJ_PATH {
			continue
		}

		boundsResp, err := instance.FPDFPageObj_GetBounds(&requests.FPDFPageObj_GetBounds{
			PageObject: objResp.PageObject,
		})
		if err != nil {
			continue
		}

		segCountResp, err := instance.FPDFPath_CountSegments(&requests.FPDFPath_CountSegments{
			PageObject: objResp.PageObject,
		})
		if err != nil || segCountResp.Count < 2 {
			continue
		}

		// Convert PDF coordinates (origin bottom-left) to standard (origin top-left)
		drawings = append(drawings, Drawing{
			Box: Rect{
				X0: float64(boundsResp.Left),
				Y0: pageHeight - float64(boundsResp.Top),
				X1: float64(boundsResp.Right),
				Y1: pageHeight - float64(boundsResp.Bottom),
			},
			Dashes: dashPattern(instance, objResp.PageObject),
		})
	}

	return drawings, nil
}

// dashPattern reads the dash array of a path object. A missing or unreadable
// pattern is treated as a solid stroke.
func dashPattern(instance pdfium.Pdfium, obj references.FPDF_PAGEOBJECT) []float64 {
	countResp, err := instance.FPDFPageObj_GetDashCount(&requests.FPDFPageObj_GetDashCount{
		PageObject: obj,
	})
	if err != nil || countResp.DashCount <= 0 {
		return nil
	}

	arrayResp, err := instance.FPDFPageObj_GetDashArray(&requests.FPDFPageObj_GetDashArray{
		PageObject: obj,
	})
	if err != nil {
		return nil
	}

	dashes := make([]float64, len(arrayResp.DashArray))
	for i, v := range arrayResp.DashArray {
		dashes[i] = float64(v)
	}
	return dashes
}
