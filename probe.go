package pdfjoiner

import (
	"fmt"

	"github.com/lvillar/pdfjoiner/backend"
)

// PageCount returns the number of pages path would contribute to a merge.
// Files that cannot be opened count as one page, so a file list can show a
// count before the file is known to be good.
func (j *Joiner) PageCount(path string) int {
	doc, err := j.be.Open(path)
	if err != nil {
		j.logger().Debug("pdfjoiner: cannot count pages", "path", path, "error", err)
		return 1
	}
	defer doc.Close()
	return max(doc.PageCount(), 1)
}

// CanOpen reports whether the backend can open path.
func (j *Joiner) CanOpen(path string) bool {
	doc, err := j.be.Open(path)
	if err != nil {
		return false
	}
	doc.Close()
	return true
}

// verifyPageCount recounts the pages of a written file.
func verifyPageCount(path string, want int) error {
	got, err := backend.CountPages(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrVerify, err)
	}
	if got != want {
		return fmt.Errorf("%w: wrote %d pages, file has %d", ErrVerify, want, got)
	}
	return nil
}
