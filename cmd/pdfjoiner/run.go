package main

import (
	"errors"
	"fmt"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	flag "github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/lvillar/pdfjoiner"
	"github.com/lvillar/pdfjoiner/filelist"
	"github.com/lvillar/pdfjoiner/internal/config"
	"github.com/lvillar/pdfjoiner/logging"
	"github.com/lvillar/pdfjoiner/pageops"
)

// run executes the command and returns its exit code. args excludes the
// program name.
func run(args []string, stdout, stderr io.Writer) int {
	f, inputs, err := parseFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return ExitSuccess
	}
	if err != nil {
		fmt.Fprintf(stderr, "pdfjoiner: %v\n", err)
		return exitCodeFor(err)
	}
	if f.version {
		fmt.Fprintf(stdout, "pdfjoiner %s\n", Version)
		return ExitSuccess
	}

	log := newLogger(stderr, f.common)
	logging.SetLogger(log)
	defer logging.SetLogger(nil)

	if err := merge(f, inputs, log, stdout, stderr); err != nil {
		fmt.Fprintf(stderr, "pdfjoiner: %v\n", err)
		return exitCodeFor(err)
	}
	return ExitSuccess
}

// newLogger logs text to a terminal and JSON otherwise. Only errors are
// logged unless --verbose is given.
func newLogger(w io.Writer, f commonFlags) *slog.Logger {
	level := slog.LevelError
	if f.verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if file, ok := w.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func loadConfig(name string) (*config.Config, error) {
	if name == "" {
		return config.DefaultConfig(), nil
	}
	return config.Load(name)
}

func merge(f *cliFlags, inputs []string, log *slog.Logger, stdout, stderr io.Writer) error {
	cfg, err := loadConfig(f.common.config)
	if err != nil {
		return err
	}
	if err := f.apply(cfg); err != nil {
		return err
	}
	if cfg.Output == "" && f.preview == "" {
		return fmt.Errorf("%w: no output file, use -o or --preview", errUsage)
	}
	opts, err := cfg.StampOptions()
	if err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}

	j := pdfjoiner.New(pdfjoiner.WithVerify(cfg.Verify), pdfjoiner.WithLogger(log))
	list := filelist.New(filelist.WithPageCounter(j.PageCount))
	if err := collect(list, inputs, f.exclude, stderr, f.common.quiet); err != nil {
		return err
	}
	log.Debug("pdfjoiner: input list", "files", list.Len(), "included", len(list.Included()), "pages", list.TotalPages())
	entries := list.Inputs()

	if f.preview != "" {
		n, err := writePreviews(j, entries, &opts, f.preview, f.previewSize)
		if err != nil {
			return err
		}
		if !f.common.quiet {
			fmt.Fprintf(stdout, "wrote %d preview images to %s\n", n, f.preview)
		}
	}
	if cfg.Output == "" {
		return nil
	}

	res, err := j.Merge(entries, cfg.Output, &opts)
	if err != nil {
		return err
	}
	if !f.common.quiet {
		for _, w := range res.Skipped {
			fmt.Fprintf(stderr, "warning: %s\n", w)
		}
		fmt.Fprintf(stdout, "wrote %d pages to %s\n", res.PageCount, cfg.Output)
	}
	return nil
}

// collect adds the inputs to list in order and excludes the files named by
// exclude, matched by path or by file name.
func collect(list *filelist.List, inputs, exclude []string, stderr io.Writer, quiet bool) error {
	if len(inputs) == 0 {
		return fmt.Errorf("%w: no input files", errUsage)
	}
	for _, in := range inputs {
		fi, err := os.Stat(in)
		if err != nil {
			return err
		}
		switch {
		case fi.IsDir():
			if _, err := list.AddFolder(in); err != nil {
				return err
			}
		case !pageops.IsSupported(in):
			if !quiet {
				fmt.Fprintf(stderr, "warning: %s: %v\n", in, pageops.ErrUnsupportedType)
			}
		default:
			list.AddFiles(in)
		}
	}

	for i, e := range list.Entries() {
		for _, x := range exclude {
			if sameFile(e.Path, x) || e.Filename() == x {
				list.SetIncluded(i, false)
			}
		}
	}
	return nil
}

func sameFile(a, b string) bool {
	fa, err := os.Stat(a)
	if err != nil {
		return false
	}
	fb, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(fa, fb)
}

// writePreviews renders every page of the merge into dir as page-NNN.png
// and returns the number of images written.
func writePreviews(j *pdfjoiner.Joiner, entries []pdfjoiner.InputEntry, opts *pdfjoiner.OutputOptions, dir string, size int) (int, error) {
	p, err := j.Preview(entries, opts, size, size)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("%w: %w", pdfjoiner.ErrOutputWrite, err)
	}
	for i, img := range p.Pages {
		path := filepath.Join(dir, fmt.Sprintf("page-%03d.png", i+1))
		out, err := os.Create(path)
		if err != nil {
			return i, fmt.Errorf("%w: %w", pdfjoiner.ErrOutputWrite, err)
		}
		err = png.Encode(out, img)
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return i, fmt.Errorf("%w: %s: %w", pdfjoiner.ErrOutputWrite, path, err)
		}
	}
	return len(p.Pages), nil
}
