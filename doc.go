// Package pdfjoiner merges PDF and image files into a single PDF.
//
// Inputs are described by an ordered list of entries. Included entries are
// concatenated in order: a PDF contributes all of its pages, an image one
// page of its pixel size. Files that cannot be read are skipped and
// reported; the merge only fails when nothing usable is left.
//
// The assembled pages can be stamped with a diagonal watermark, page
// numbers and free text annotations before they are saved or rendered for
// preview. Stamp sizes are given for an A4-height page and scale with the
// height of each page.
//
// Example:
//
//	j := pdfjoiner.New()
//	opts := pdfjoiner.DefaultOutputOptions()
//	opts.PageNumbers.Enabled = true
//	res, err := j.Merge([]pdfjoiner.InputEntry{
//	    {Path: "cover.pdf", Included: true},
//	    {Path: "scan.jpg", Included: true},
//	}, "out.pdf", &opts)
package pdfjoiner
