//go:build windows

package capture

import (
	"errors"
	"fmt"
	"image"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/junsooki/framegrab/internal/window"
)

var (
	user32 = windows.NewLazySystemDLL("user32.dll")
	gdi32  = windows.NewLazySystemDLL("gdi32.dll")

	procGetDC                  = user32.NewProc("GetDC")
	procReleaseDC              = user32.NewProc("ReleaseDC")
	procCreateCompatibleDC     = gdi32.NewProc("CreateCompatibleDC")
	procDeleteDC               = gdi32.NewProc("DeleteDC")
	procCreateCompatibleBitmap = gdi32.NewProc("CreateCompatibleBitmap")
	procDeleteObject           = gdi32.NewProc("DeleteObject")
	procSelectObject           = gdi32.NewProc("SelectObject")
	procBitBlt                 = gdi32.NewProc("BitBlt")
	procGetDIBits              = gdi32.NewProc("GetDIBits")
)

const (
	srcCopy      = 0x00CC0020
	biRGB        = 0
	dibRGBColors = 0
	hgdiError    = ^uintptr(0)
)

type bitmapInfoHeader struct {
	Size          uint32
	Width         int32
	Height        int32
	Planes        uint16
	BitCount      uint16
	Compression   uint32
	SizeImage     uint32
	XPelsPerMeter int32
	YPelsPerMeter int32
	ClrUsed       uint32
	ClrImportant  uint32
}

type bitmapInfo struct {
	Header bitmapInfoHeader
	Colors [1]uint32
}

type gdiSurfaces struct{}

// SystemSurfaces returns the GDI implementation.
func SystemSurfaces() Surfaces {
	return gdiSurfaces{}
}

// callErr turns the error of a failed LazyProc.Call into something useful;
// GDI often fails without setting the thread's last error.
func callErr(name string, err error) error {
	var errno windows.Errno
	if errors.As(err, &errno) && errno != 0 {
		return fmt.Errorf("%s: %w", name, err)
	}
	return fmt.Errorf("%s failed", name)
}

func (gdiSurfaces) WindowDC(h window.Handle) (DC, error) {
	r, _, err := procGetDC.Call(uintptr(h))
	if r == 0 {
		return 0, callErr("GetDC", err)
	}
	return DC(r), nil
}

func (gdiSurfaces) ReleaseWindowDC(h window.Handle, dc DC) error {
	r, _, err := procReleaseDC.Call(uintptr(h), uintptr(dc))
	if r == 0 {
		return callErr("ReleaseDC", err)
	}
	return nil
}

func (gdiSurfaces) CompatibleDC(dc DC) (DC, error) {
	r, _, err := procCreateCompatibleDC.Call(uintptr(dc))
	if r == 0 {
		return 0, callErr("CreateCompatibleDC", err)
	}
	return DC(r), nil
}

func (gdiSurfaces) DeleteDC(dc DC) error {
	r, _, err := procDeleteDC.Call(uintptr(dc))
	if r == 0 {
		return callErr("DeleteDC", err)
	}
	return nil
}

func (gdiSurfaces) CompatibleBitmap(dc DC, width, height int) (Bitmap, error) {
	r, _, err := procCreateCompatibleBitmap.Call(uintptr(dc), uintptr(width), uintptr(height))
	if r == 0 {
		return 0, callErr("CreateCompatibleBitmap", err)
	}
	return Bitmap(r), nil
}

func (gdiSurfaces) DeleteBitmap(bm Bitmap) error {
	r, _, err := procDeleteObject.Call(uintptr(bm))
	if r == 0 {
		return callErr("DeleteObject", err)
	}
	return nil
}

func (gdiSurfaces) Select(dc DC, bm Bitmap) (Object, error) {
	r, _, err := procSelectObject.Call(uintptr(dc), uintptr(bm))
	if r == 0 || r == hgdiError {
		return 0, callErr("SelectObject", err)
	}
	return Object(r), nil
}

func (gdiSurfaces) Restore(dc DC, prev Object) error {
	r, _, err := procSelectObject.Call(uintptr(dc), uintptr(prev))
	if r == 0 || r == hgdiError {
		return callErr("SelectObject", err)
	}
	return nil
}

func (gdiSurfaces) BitBlt(dst DC, width, height int, src DC, origin image.Point) error {
	r, _, err := procBitBlt.Call(uintptr(dst), 0, 0, uintptr(width), uintptr(height),
		uintptr(src), uintptr(origin.X), uintptr(origin.Y), srcCopy)
	if r == 0 {
		return callErr("BitBlt", err)
	}
	return nil
}

func (gdiSurfaces) Bits(dc DC, bm Bitmap, width, height int, dst []byte) error {
	if len(dst) != width*height*4 {
		return fmt.Errorf("GetDIBits: buffer holds %d bytes, want %d", len(dst), width*height*4)
	}
	bmi := bitmapInfo{Header: bitmapInfoHeader{
		Width:       int32(width),
		Height:      int32(-height), // top-down rows
		Planes:      1,
		BitCount:    32,
		Compression: biRGB,
	}}
	bmi.Header.Size = uint32(unsafe.Sizeof(bmi.Header))
	r, _, err := procGetDIBits.Call(uintptr(dc), uintptr(bm), 0, uintptr(height),
		uintptr(unsafe.Pointer(&dst[0])), uintptr(unsafe.Pointer(&bmi)), dibRGBColors)
	if int(r) != height {
		return callErr("GetDIBits", err)
	}
	return nil
}
