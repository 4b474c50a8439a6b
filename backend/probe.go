package backend

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jung-kurt/gofpdf"
	"github.com/jung-kurt/gofpdf/contrib/gofpdi"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/lvillar/pdfjoiner/logging"
	"github.com/lvillar/pdfjoiner/reader"
)

type pageInfo struct {
	w, h float64
	box  string
}

// probePDF returns the displayed size of every page of the PDF at path.
// Files the reader considers malformed get a second chance with pdfcpu.
func probePDF(path string) ([]pageInfo, error) {
	doc, err := reader.Open(path)
	if err == nil {
		pages := make([]pageInfo, 0, doc.NumPages())
		for _, p := range doc.Pages() {
			w, h := p.Size()
			box := "/MediaBox"
			if p.CropBox != nil {
				box = "/CropBox"
			}
			pages = append(pages, pageInfo{w: w, h: h, box: box})
		}
		return pages, nil
	}
	if !errors.Is(err, reader.ErrMalformed) {
		return nil, err
	}

	logging.Logger().Debug("backend: reader failed, trying pdfcpu", "path", path, "error", err)
	dims, perr := pdfcpuPageDims(path)
	if perr != nil {
		return nil, fmt.Errorf("%w (pdfcpu: %v)", err, perr)
	}
	pages := make([]pageInfo, len(dims))
	for i, d := range dims {
		pages[i] = pageInfo{w: d[0], h: d[1], box: "/MediaBox"}
	}
	return pages, nil
}

// checkImport imports every page of path into a scratch document so that
// files gofpdi cannot handle are rejected when they are opened rather than
// when the output is written.
func checkImport(path string, pages []pageInfo) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("backend: importing %s: %v", filepath.Base(path), r)
		}
	}()
	pdf := gofpdf.New("P", "pt", "A4", "")
	imp := gofpdi.NewImporter()
	for i, p := range pages {
		imp.ImportPage(pdf, path, i+1, p.box)
	}
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("backend: importing %s: %w", filepath.Base(path), err)
	}
	return nil
}

var disableConfigDir sync.Once

func pdfcpuConfig() *model.Configuration {
	disableConfigDir.Do(api.DisableConfigDir)
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

func pdfcpuPageDims(path string) ([][2]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dims, err := api.PageDims(f, pdfcpuConfig())
	if err != nil {
		return nil, err
	}
	out := make([][2]float64, len(dims))
	for i, d := range dims {
		out[i] = [2]float64{d.Width, d.Height}
	}
	return out, nil
}

// CountPages returns the page count of the PDF at path as pdfcpu sees it.
// It is independent of the reader package and is used to check written
// output.
func CountPages(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	ctx, err := api.ReadContext(f, pdfcpuConfig())
	if err != nil {
		return 0, fmt.Errorf("backend: counting pages of %s: %w", filepath.Base(path), err)
	}
	return ctx.PageCount, nil
}
