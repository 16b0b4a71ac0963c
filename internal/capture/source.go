package capture

import (
	"fmt"
	"image"

	"github.com/junsooki/framegrab/internal/window"
)

// Kind selects the capture strategy of a Source.
type Kind int

const (
	KindNamedWindow Kind = iota + 1
	KindWindowHandle
	KindScreenRegion
)

func (k Kind) String() string {
	switch k {
	case KindNamedWindow:
		return "named-window"
	case KindWindowHandle:
		return "window-handle"
	case KindScreenRegion:
		return "screen-region"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Rect is a screen rectangle with exclusive right and bottom edges.
type Rect struct {
	Left, Top, Right, Bottom int
}

func (r Rect) Width() int  { return r.Right - r.Left }
func (r Rect) Height() int { return r.Bottom - r.Top }

// Image returns r as an image.Rectangle without canonicalising it.
func (r Rect) Image() image.Rectangle {
	return image.Rectangle{Min: image.Pt(r.Left, r.Top), Max: image.Pt(r.Right, r.Bottom)}
}

func (r Rect) String() string {
	return fmt.Sprintf("(%d,%d)-(%d,%d)", r.Left, r.Top, r.Right, r.Bottom)
}

// Source describes what to capture. Build one with NamedWindow,
// WindowHandle or ScreenRegion; the zero value describes nothing.
type Source struct {
	kind   Kind
	title  string
	handle window.Handle
	region Rect
}

// NamedWindow captures the visible window whose title matches exactly.
func NamedWindow(title string) Source {
	return Source{kind: KindNamedWindow, title: title}
}

// WindowHandle captures an already-known window.
func WindowHandle(h window.Handle) Source {
	return Source{kind: KindWindowHandle, handle: h}
}

// ScreenRegion captures a fixed rectangle of the virtual screen.
func ScreenRegion(left, top, right, bottom int) Source {
	return Source{kind: KindScreenRegion, region: Rect{Left: left, Top: top, Right: right, Bottom: bottom}}
}

func (s Source) Kind() Kind            { return s.kind }
func (s Source) Title() string         { return s.title }
func (s Source) Handle() window.Handle { return s.handle }
func (s Source) Region() Rect          { return s.region }

// IsWindow reports whether s uses the window strategy.
func (s Source) IsWindow() bool {
	return s.kind == KindNamedWindow || s.kind == KindWindowHandle
}

func (s Source) String() string {
	switch s.kind {
	case KindNamedWindow:
		return fmt.Sprintf("window %q", s.title)
	case KindWindowHandle:
		return "window " + s.handle.String()
	case KindScreenRegion:
		return "region " + s.region.String()
	default:
		return "no source"
	}
}

// Inset trims window decorations from the client rectangle. The block
// transfer reads from (Left, Top) in the window's drawing context.
type Inset struct {
	Left, Top, Right, Bottom int
}

// LegacyInset matches a classic Windows frame: 8px borders and a 30px
// title bar.
var LegacyInset = Inset{Left: 8, Top: 30, Right: 8, Bottom: 8}

// Resolved is a Source bound to concrete geometry.
type Resolved struct {
	Source Source
	Handle window.Handle
	Region Rect
	Origin image.Point
	Width  int
	Height int
}

// IsWindow reports whether r uses the window strategy.
func (r Resolved) IsWindow() bool {
	return r.Source.IsWindow()
}

func (r Resolved) String() string {
	if r.IsWindow() {
		return fmt.Sprintf("%s (%s) %dx%d", r.Source, r.Handle, r.Width, r.Height)
	}
	return fmt.Sprintf("%s %dx%d", r.Source, r.Width, r.Height)
}
