package pdfjoiner

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/lvillar/pdfjoiner/backend"
	"github.com/lvillar/pdfjoiner/logging"
	"github.com/lvillar/pdfjoiner/pageops"
)

// InputEntry is one file of the merge list.
type InputEntry = pageops.Entry

// OutputOptions selects the stamps drawn over the merged pages.
type OutputOptions = pageops.StampOptions

// DefaultOutputOptions returns options with every stamp disabled and the
// default stamp settings filled in.
func DefaultOutputOptions() OutputOptions {
	return pageops.DefaultStampOptions()
}

// MergeResult describes a completed merge.
type MergeResult struct {
	PageCount int
	// Skipped holds "<file>: <reason>" for every skipped entry followed by
	// one "<stage>: <reason>" line per failed stamping stage.
	Skipped []string
}

// HasWarnings reports whether anything was skipped.
func (r *MergeResult) HasWarnings() bool {
	return len(r.Skipped) > 0
}

// Joiner runs the merge pipeline. It keeps no per-call state, so one Joiner
// may serve concurrent calls as long as the backend allows it.
type Joiner struct {
	be      backend.Backend
	verify  bool
	log     *slog.Logger
	maxZoom float64
}

// New returns a Joiner configured by opts.
func New(opts ...Option) *Joiner {
	cfg := &joinerConfig{maxZoom: 2}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.backend == nil {
		cfg.backend = backend.NewFPDF()
	}
	return &Joiner{
		be:      cfg.backend,
		verify:  cfg.verify,
		log:     cfg.logger,
		maxZoom: cfg.maxZoom,
	}
}

// Backend returns the backend the Joiner draws with.
func (j *Joiner) Backend() backend.Backend { return j.be }

func (j *Joiner) logger() *slog.Logger { return logging.Or(j.log) }

// Merge assembles the included entries, stamps them according to opts (nil
// means no stamps) and saves the result to dest. Nothing is written to dest
// unless the whole document was produced.
func (j *Joiner) Merge(entries []InputEntry, dest string, opts *OutputOptions) (*MergeResult, error) {
	doc, res, err := j.build(entries, opts)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	if err := doc.Save(dest); err != nil {
		return nil, newJoinError("save", dest, fmt.Errorf("%w: %w", ErrOutputWrite, err))
	}
	j.logger().Info("pdfjoiner: merged", "output", dest, "pages", res.PageCount, "skipped", len(res.Skipped))

	if j.verify {
		if err := verifyPageCount(dest, res.PageCount); err != nil {
			return nil, newJoinError("verify", dest, err)
		}
	}
	return res, nil
}

// MergeTo is Merge writing the PDF to w instead of a file.
func (j *Joiner) MergeTo(w io.Writer, entries []InputEntry, opts *OutputOptions) (*MergeResult, error) {
	doc, res, err := j.build(entries, opts)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	data, err := doc.Bytes()
	if err != nil {
		return nil, newJoinError("write", "", fmt.Errorf("%w: %w", ErrOutputWrite, err))
	}
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return nil, newJoinError("write", "", fmt.Errorf("%w: %w", ErrOutputWrite, err))
	}
	return res, nil
}

// build runs assembly and stamping. The caller owns the returned document.
func (j *Joiner) build(entries []InputEntry, opts *OutputOptions) (backend.Document, *MergeResult, error) {
	if !slices.ContainsFunc(entries, func(e InputEntry) bool { return e.Included }) {
		return nil, nil, ErrEmptyInput
	}
	log := j.logger()

	asm := pageops.NewAssembler(j.be).Assemble(entries)
	skipped := asm.Skipped()
	if asm.PageCount() == 0 {
		asm.Doc.Close()
		log.Error("pdfjoiner: no pages assembled", "skipped", len(skipped))
		return nil, nil, &EmptyOutputError{Skipped: skipped}
	}

	if opts != nil {
		for _, w := range pageops.NewStamper(j.be).Stamp(asm.Doc, *opts) {
			skipped = append(skipped, w.Error())
		}
	}
	log.Debug("pdfjoiner: document built", "pages", asm.PageCount(), "warnings", len(skipped))
	return asm.Doc, &MergeResult{PageCount: asm.PageCount(), Skipped: skipped}, nil
}
