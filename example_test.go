package pdfjoiner_test

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jung-kurt/gofpdf"

	"github.com/lvillar/pdfjoiner"
)

func ExampleJoiner_Merge() {
	dir, err := os.MkdirTemp("", "pdfjoiner-example")
	if err != nil {
		fmt.Println(err)
		return
	}
	defer os.RemoveAll(dir)

	src := filepath.Join(dir, "letter.pdf")
	pdf := gofpdf.New("P", "pt", "Letter", "")
	pdf.SetFont("Helvetica", "", 12)
	for range 2 {
		pdf.AddPage()
		pdf.Text(72, 72, "Dear reader")
	}
	if err := pdf.OutputFileAndClose(src); err != nil {
		fmt.Println(err)
		return
	}

	opts := pdfjoiner.DefaultOutputOptions()
	opts.PageNumbers.Enabled = true
	opts.PageNumbers.Format = "Page {n} of {total}"

	res, err := pdfjoiner.New().Merge([]pdfjoiner.InputEntry{
		{Path: src, Included: true},
		{Path: filepath.Join(dir, "missing.pdf"), Included: true},
	}, filepath.Join(dir, "out.pdf"), &opts)
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println("pages:", res.PageCount)
	fmt.Println("skipped:", len(res.Skipped))
	// Output:
	// pages: 2
	// skipped: 1
}
