//go:build !windows && !linux

package capture

import (
	"errors"
	"fmt"
	"image"
	"runtime"

	"github.com/junsooki/framegrab/internal/window"
)

type unsupportedSurfaces struct{}

// SystemSurfaces returns an implementation that refuses window capture.
func SystemSurfaces() Surfaces {
	return unsupportedSurfaces{}
}

func unsupported(op string) error {
	return fmt.Errorf("%s on %s: %w", op, runtime.GOOS, errors.ErrUnsupported)
}

func (unsupportedSurfaces) WindowDC(window.Handle) (DC, error) {
	return 0, unsupported("window context")
}

func (unsupportedSurfaces) ReleaseWindowDC(window.Handle, DC) error { return nil }

func (unsupportedSurfaces) CompatibleDC(DC) (DC, error) {
	return 0, unsupported("compatible context")
}

func (unsupportedSurfaces) DeleteDC(DC) error { return nil }

func (unsupportedSurfaces) CompatibleBitmap(DC, int, int) (Bitmap, error) {
	return 0, unsupported("compatible bitmap")
}

func (unsupportedSurfaces) DeleteBitmap(Bitmap) error { return nil }

func (unsupportedSurfaces) Select(DC, Bitmap) (Object, error) {
	return 0, unsupported("select bitmap")
}

func (unsupportedSurfaces) Restore(DC, Object) error { return nil }

func (unsupportedSurfaces) BitBlt(DC, int, int, DC, image.Point) error {
	return unsupported("block transfer")
}

func (unsupportedSurfaces) Bits(DC, Bitmap, int, int, []byte) error {
	return unsupported("read bitmap bits")
}
