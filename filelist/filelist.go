// Package filelist keeps the ordered list of files a merge is built from.
//
// A List is safe for concurrent use. Every change that alters the list
// calls the change callback after the list's lock has been released, so
// the callback may read the list again.
package filelist

import (
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/lvillar/pdfjoiner/logging"
	"github.com/lvillar/pdfjoiner/pageops"
)

// Entry is one file in the list.
type Entry struct {
	Path      string
	Included  bool
	PageCount int
}

// Filename returns the base name of the entry.
func (e Entry) Filename() string { return filepath.Base(e.Path) }

// Input converts the entry to the form the merge pipeline takes.
func (e Entry) Input() pageops.Entry {
	return pageops.Entry{Path: e.Path, Included: e.Included}
}

// Option configures a List.
type Option func(*List)

// WithPageCounter sets the function used to fill Entry.PageCount when a
// file is added. Without it every entry counts one page.
func WithPageCounter(count func(path string) int) Option {
	return func(l *List) { l.count = count }
}

// OnChange sets the callback run after every change.
func OnChange(fn func()) Option {
	return func(l *List) { l.onChange = fn }
}

// List is an ordered list of entries.
type List struct {
	mu       sync.RWMutex
	entries  []Entry
	count    func(string) int
	onChange func()
}

// New returns an empty list.
func New(opts ...Option) *List {
	l := &List{}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *List) changed() {
	if l.onChange != nil {
		l.onChange()
	}
}

// Len returns the number of entries.
func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Entries returns a copy of the entries.
func (l *List) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.entries)
}

// At returns the entry at index i.
func (l *List) At(i int) (Entry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if i < 0 || i >= len(l.entries) {
		return Entry{}, false
	}
	return l.entries[i], true
}

// Included returns the included entries in order.
func (l *List) Included() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []Entry
	for _, e := range l.entries {
		if e.Included {
			out = append(out, e)
		}
	}
	return out
}

// Inputs returns every entry, included or not, ready for the merge
// pipeline.
func (l *List) Inputs() []pageops.Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]pageops.Entry, len(l.entries))
	for i, e := range l.entries {
		out[i] = e.Input()
	}
	return out
}

// TotalPages returns the page count summed over included entries.
func (l *List) TotalPages() int {
	n := 0
	for _, e := range l.Included() {
		n += e.PageCount
	}
	return n
}

// AddFiles appends the given files and returns how many were added.
// Directories, missing files, unsupported types and files already in the
// list are skipped.
func (l *List) AddFiles(paths ...string) int {
	var fresh []Entry
	l.mu.RLock()
	seen := make(map[string]bool, len(l.entries))
	for _, e := range l.entries {
		seen[resolve(e.Path)] = true
	}
	l.mu.RUnlock()

	for _, p := range paths {
		fi, err := os.Stat(p)
		if err != nil || !fi.Mode().IsRegular() || !pageops.IsSupported(p) {
			continue
		}
		key := resolve(p)
		if seen[key] {
			continue
		}
		seen[key] = true
		pages := 1
		if l.count != nil {
			pages = l.count(p)
		}
		fresh = append(fresh, Entry{Path: p, Included: true, PageCount: pages})
	}
	if len(fresh) == 0 {
		return 0
	}

	l.mu.Lock()
	// Another writer may have added some of the same files meanwhile.
	fresh = slices.DeleteFunc(fresh, func(e Entry) bool {
		return slices.ContainsFunc(l.entries, func(x Entry) bool { return resolve(x.Path) == resolve(e.Path) })
	})
	l.entries = append(l.entries, fresh...)
	l.mu.Unlock()

	logging.Logger().Debug("filelist: added files", "count", len(fresh))
	if len(fresh) > 0 {
		l.changed()
	}
	return len(fresh)
}

// AddFolder adds every supported file below dir, sorted by path, and
// returns how many were added.
func (l *List) AddFolder(dir string) (int, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() && pageops.IsSupported(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	slices.Sort(paths)
	return l.AddFiles(paths...), nil
}

// Remove deletes the entries at the given indexes. Indexes out of range are
// ignored.
func (l *List) Remove(indexes ...int) {
	l.mu.Lock()
	before := len(l.entries)
	kept := l.entries[:0:0]
	for i, e := range l.entries {
		if !slices.Contains(indexes, i) {
			kept = append(kept, e)
		}
	}
	l.entries = kept
	removed := before != len(l.entries)
	l.mu.Unlock()
	if removed {
		l.changed()
	}
}

// Clear removes every entry.
func (l *List) Clear() {
	l.mu.Lock()
	had := len(l.entries) > 0
	l.entries = nil
	l.mu.Unlock()
	if had {
		l.changed()
	}
}

// Move moves the entry at from to index to. Out-of-range indexes leave the
// list unchanged.
func (l *List) Move(from, to int) {
	l.mu.Lock()
	n := len(l.entries)
	if from == to || from < 0 || from >= n || to < 0 || to >= n {
		l.mu.Unlock()
		return
	}
	e := l.entries[from]
	l.entries = slices.Insert(slices.Delete(l.entries, from, from+1), to, e)
	l.mu.Unlock()
	l.changed()
}

// MoveUp moves the entry at i one place towards the front.
func (l *List) MoveUp(i int) { l.Move(i, i-1) }

// MoveDown moves the entry at i one place towards the back.
func (l *List) MoveDown(i int) { l.Move(i, i+1) }

// Toggle flips the included flag of the entry at i.
func (l *List) Toggle(i int) {
	l.mu.Lock()
	if i < 0 || i >= len(l.entries) {
		l.mu.Unlock()
		return
	}
	l.entries[i].Included = !l.entries[i].Included
	l.mu.Unlock()
	l.changed()
}

// SetIncluded sets the included flag of the entry at i.
func (l *List) SetIncluded(i int, included bool) {
	l.mu.Lock()
	if i < 0 || i >= len(l.entries) || l.entries[i].Included == included {
		l.mu.Unlock()
		return
	}
	l.entries[i].Included = included
	l.mu.Unlock()
	l.changed()
}

// resolve returns the canonical form of path used to detect duplicates.
func resolve(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		return real
	}
	return abs
}
