package extract

import (
	"fmt"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PDFInfo describes a PDF's structure ahead of text extraction.
type PDFInfo struct {
	Pages int
	// ImagePages lists 1-based pages that carry image XObjects. PDF images
	// have no cell anchors, so they are reported but never attached to rows.
	ImagePages []int
}

// InspectPDF validates the PDF at path in relaxed mode and counts its pages
// and image-bearing pages.
func InspectPDF(path string) (*PDFInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	ctx, err := api.ReadValidateAndOptimize(f, conf)
	if err != nil {
		return nil, fmt.Errorf("validate PDF: %w", err)
	}

	info := &PDFInfo{Pages: ctx.PageCount}
	for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
		if len(pdfcpu.ImageObjNrs(ctx, pageNr)) > 0 {
			info.ImagePages = append(info.ImagePages, pageNr)
		}
	}
	return info, nil
}
