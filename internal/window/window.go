// Package window lists visible top-level windows and answers liveness and
// geometry questions about them.
package window

import (
	"fmt"
	"image"
	"log/slog"
	"strconv"
	"strings"
)

// Handle is an opaque native window id (HWND on Windows, XID on X11).
type Handle uintptr

func (h Handle) String() string {
	return fmt.Sprintf("0x%x", uintptr(h))
}

// ParseHandle accepts decimal or 0x-prefixed hexadecimal ids.
func ParseHandle(s string) (Handle, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 64)
	if err != nil {
		return 0, fmt.Errorf("parse window handle %q: %w", s, err)
	}
	if v == 0 {
		return 0, fmt.Errorf("parse window handle %q: zero handle", s)
	}
	return Handle(v), nil
}

// Record is one entry of the window directory.
type Record struct {
	Title  string
	Handle Handle
}

// Info is what a Lister reports about a top-level window before filtering.
type Info struct {
	Handle  Handle
	Title   string
	Visible bool
}

// Lister is the native window-system surface.
type Lister interface {
	// List returns every top-level window in OS enumeration order.
	List() ([]Info, error)
	// Alive reports whether h still names an existing window.
	Alive(h Handle) bool
	// ClientRect returns the client area of h in window coordinates.
	ClientRect(h Handle) (image.Rectangle, error)
}

// Directory filters a Lister down to visible, titled windows.
type Directory struct {
	lister Lister
	logger *slog.Logger
}

// NewDirectory wraps a Lister. A nil logger uses slog.Default().
func NewDirectory(l Lister, logger *slog.Logger) *Directory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Directory{lister: l, logger: logger}
}

// Enumerate returns a fresh list of visible windows with non-empty titles.
// The result is never nil; an empty slice means no such windows exist or
// the window system could not be queried.
func (d *Directory) Enumerate() []Record {
	infos, err := d.lister.List()
	if err != nil {
		d.logger.Debug("list windows", "error", err)
		return []Record{}
	}
	out := make([]Record, 0, len(infos))
	for _, info := range infos {
		if !info.Visible || info.Title == "" {
			continue
		}
		out = append(out, Record{Title: info.Title, Handle: info.Handle})
	}
	return out
}

// Find returns the first visible window whose title equals title exactly.
func (d *Directory) Find(title string) (Record, bool) {
	if title == "" {
		return Record{}, false
	}
	for _, rec := range d.Enumerate() {
		if rec.Title == title {
			return rec, true
		}
	}
	return Record{}, false
}

// Alive reports whether h still names an existing window.
func (d *Directory) Alive(h Handle) bool {
	if h == 0 {
		return false
	}
	return d.lister.Alive(h)
}

// ClientRect returns the current client area of h.
func (d *Directory) ClientRect(h Handle) (image.Rectangle, error) {
	return d.lister.ClientRect(h)
}
