package capture

import (
	"image"

	"github.com/junsooki/framegrab/internal/window"
)

// DC is a native drawing context.
type DC uintptr

// Bitmap is a native off-screen pixel surface.
type Bitmap uintptr

// Object is whatever a drawing context had selected before a Select call.
type Object uintptr

// Surfaces is the drawing-context API the window strategy drives. Every
// call that returns a resource has a matching release call, and callers
// release in reverse acquisition order.
type Surfaces interface {
	WindowDC(h window.Handle) (DC, error)
	ReleaseWindowDC(h window.Handle, dc DC) error

	CompatibleDC(dc DC) (DC, error)
	DeleteDC(dc DC) error

	CompatibleBitmap(dc DC, width, height int) (Bitmap, error)
	DeleteBitmap(bm Bitmap) error

	Select(dc DC, bm Bitmap) (Object, error)
	Restore(dc DC, prev Object) error

	// BitBlt copies width×height pixels from src at origin into the
	// bitmap selected in dst at (0, 0).
	BitBlt(dst DC, width, height int, src DC, origin image.Point) error

	// Bits reads bm as top-down 32-bit BGRA into dst, which holds exactly
	// width*height*4 bytes. bm must not be selected into any context.
	Bits(dc DC, bm Bitmap, width, height int, dst []byte) error
}
