package capture

import (
	"errors"
	"image"

	"github.com/kbinani/screenshot"

	"github.com/junsooki/framegrab/internal/permissions"
)

// Screen is the compositor snapshot API the region strategy drives.
type Screen interface {
	// Displays returns the bounds of every active display in virtual
	// screen coordinates.
	Displays() []image.Rectangle
	// Snapshot returns the pixels inside r.
	Snapshot(r image.Rectangle) (*image.RGBA, error)
}

var errScreenPermission = errors.New("screen recording permission not granted")

type systemScreen struct{}

// SystemScreen snapshots the real screen through kbinani/screenshot.
func SystemScreen() Screen {
	return systemScreen{}
}

func (systemScreen) Displays() []image.Rectangle {
	n := screenshot.NumActiveDisplays()
	out := make([]image.Rectangle, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, screenshot.GetDisplayBounds(i))
	}
	return out
}

func (systemScreen) Snapshot(r image.Rectangle) (*image.RGBA, error) {
	if !permissions.ScreenCapture() {
		return nil, errScreenPermission
	}
	return screenshot.CaptureRect(r)
}

// covered reports whether r lies inside the union of displays. Mirrored
// displays report identical bounds, so displays may overlap; each one is
// subtracted from what is left of r rather than summed.
func covered(r image.Rectangle, displays []image.Rectangle) bool {
	left := []image.Rectangle{r}
	for _, d := range displays {
		var next []image.Rectangle
		for _, piece := range left {
			next = append(next, subtract(piece, d)...)
		}
		left = next
		if len(left) == 0 {
			return true
		}
	}
	return r.Empty()
}

// subtract returns up to four rectangles covering a minus b.
func subtract(a, b image.Rectangle) []image.Rectangle {
	in := a.Intersect(b)
	if in.Empty() {
		return []image.Rectangle{a}
	}
	var out []image.Rectangle
	add := func(x0, y0, x1, y1 int) {
		if piece := image.Rect(x0, y0, x1, y1); !piece.Empty() {
			out = append(out, piece)
		}
	}
	add(a.Min.X, a.Min.Y, a.Max.X, in.Min.Y)
	add(a.Min.X, in.Max.Y, a.Max.X, a.Max.Y)
	add(a.Min.X, in.Min.Y, in.Min.X, in.Max.Y)
	add(in.Max.X, in.Min.Y, a.Max.X, in.Max.Y)
	return out
}
