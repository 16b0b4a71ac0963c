//go:build !windows && !linux

package window

import (
	"errors"
	"fmt"
	"image"
	"runtime"
)

type unsupportedLister struct{}

// System returns a lister that reports no windows. Window capture is
// available on Windows and X11 only; screen regions work everywhere.
func System() Lister {
	return unsupportedLister{}
}

func (unsupportedLister) List() ([]Info, error) {
	return nil, fmt.Errorf("list windows on %s: %w", runtime.GOOS, errors.ErrUnsupported)
}

func (unsupportedLister) Alive(Handle) bool { return false }

func (unsupportedLister) ClientRect(h Handle) (image.Rectangle, error) {
	return image.Rectangle{}, fmt.Errorf("client rect of %s on %s: %w", h, runtime.GOOS, errors.ErrUnsupported)
}
