//go:build windows

package window

import (
	"errors"
	"fmt"
	"image"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32 = windows.NewLazySystemDLL("user32.dll")
	shcore = windows.NewLazySystemDLL("shcore.dll")

	procGetWindowTextW       = user32.NewProc("GetWindowTextW")
	procGetWindowTextLengthW = user32.NewProc("GetWindowTextLengthW")
	procGetClientRect        = user32.NewProc("GetClientRect")
	procSetProcessDPIAware   = user32.NewProc("SetProcessDPIAware")

	procSetProcessDpiAwareness = shcore.NewProc("SetProcessDpiAwareness")
)

// PROCESS_PER_MONITOR_DPI_AWARE
const perMonitorDPIAware = 2

var dpiOnce sync.Once

// enableDPIAwareness makes client rectangles report physical pixels so
// they line up with what BitBlt copies on scaled displays.
func enableDPIAwareness() {
	dpiOnce.Do(func() {
		if procSetProcessDpiAwareness.Find() == nil {
			procSetProcessDpiAwareness.Call(perMonitorDPIAware)
			return
		}
		if procSetProcessDPIAware.Find() == nil {
			procSetProcessDPIAware.Call()
		}
	})
}

// EnumWindows callbacks are a finite per-process resource, so one is
// allocated for the package and fed through enumState.
var (
	enumMu       sync.Mutex
	enumState    []Info
	enumCallback = windows.NewCallback(enumProc)
)

func enumProc(hwnd windows.HWND, _ uintptr) uintptr {
	info := Info{Handle: Handle(hwnd), Visible: windows.IsWindowVisible(hwnd)}
	if info.Visible {
		info.Title = windowText(hwnd)
	}
	enumState = append(enumState, info)
	return 1
}

func windowText(hwnd windows.HWND) string {
	n, _, _ := procGetWindowTextLengthW.Call(uintptr(hwnd))
	if n == 0 {
		return ""
	}
	buf := make([]uint16, n+1)
	procGetWindowTextW.Call(uintptr(hwnd), uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	return windows.UTF16ToString(buf)
}

type winLister struct{}

// System returns the Win32 window lister.
func System() Lister {
	enableDPIAwareness()
	return winLister{}
}

func (winLister) List() ([]Info, error) {
	enumMu.Lock()
	defer enumMu.Unlock()
	enumState = nil
	if err := windows.EnumWindows(enumCallback, nil); err != nil {
		return nil, fmt.Errorf("EnumWindows: %w", err)
	}
	out := enumState
	enumState = nil
	return out, nil
}

func (winLister) Alive(h Handle) bool {
	return windows.IsWindow(windows.HWND(h))
}

func (winLister) ClientRect(h Handle) (image.Rectangle, error) {
	var r windows.Rect
	ret, _, err := procGetClientRect.Call(uintptr(h), uintptr(unsafe.Pointer(&r)))
	if ret == 0 {
		var errno windows.Errno
		if errors.As(err, &errno) && errno != 0 {
			return image.Rectangle{}, fmt.Errorf("GetClientRect %s: %w", h, err)
		}
		return image.Rectangle{}, fmt.Errorf("GetClientRect %s failed", h)
	}
	return image.Rect(int(r.Left), int(r.Top), int(r.Right), int(r.Bottom)), nil
}
