package pdfjoiner

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors returned by the merge pipeline.
var (
	ErrEmptyInput   = errors.New("pdfjoiner: no files are included")
	ErrEmptyOutput  = errors.New("pdfjoiner: no valid pages were produced")
	ErrOutputWrite  = errors.New("pdfjoiner: cannot write output")
	ErrVerify       = errors.New("pdfjoiner: output verification failed")
	ErrNoRasterizer = errors.New("pdfjoiner: backend cannot render pages")
)

// JoinError reports a failed pipeline step. It wraps the underlying error
// together with the step name and, when there is one, the file involved.
type JoinError struct {
	Op   string // "save", "write", "verify", "preview"
	Path string
	Err  error
}

func (e *JoinError) Error() string {
	var sb strings.Builder
	sb.WriteString("pdfjoiner.")
	sb.WriteString(e.Op)
	if e.Path != "" {
		sb.WriteString(" ")
		sb.WriteString(e.Path)
	}
	sb.WriteString(": ")
	if e.Err != nil {
		sb.WriteString(e.Err.Error())
	} else {
		sb.WriteString("unknown error")
	}
	return sb.String()
}

func (e *JoinError) Unwrap() error {
	return e.Err
}

func newJoinError(op, path string, err error) *JoinError {
	return &JoinError{Op: op, Path: path, Err: err}
}

// EmptyOutputError is returned when every included entry was skipped. It
// matches ErrEmptyOutput with errors.Is.
type EmptyOutputError struct {
	Skipped []string
}

func (e *EmptyOutputError) Error() string {
	if len(e.Skipped) == 0 {
		return ErrEmptyOutput.Error()
	}
	return fmt.Sprintf("%v; skipped files: %s", ErrEmptyOutput, strings.Join(e.Skipped, "; "))
}

func (e *EmptyOutputError) Is(target error) bool {
	return target == ErrEmptyOutput
}
