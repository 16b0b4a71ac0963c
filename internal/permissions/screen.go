//go:build darwin

package permissions

/*
#cgo LDFLAGS: -framework CoreGraphics
#include <CoreGraphics/CoreGraphics.h>

// Available since macOS 10.15.
static int preflightScreenCapture(void) {
    return CGPreflightScreenCaptureAccess() ? 1 : 0;
}

static int requestScreenCapture(void) {
    return CGRequestScreenCaptureAccess() ? 1 : 0;
}
*/
import "C"

// ScreenCapture reports whether the process may read other windows'
// pixels. Without it CoreGraphics returns wallpaper-only images or blocks.
func ScreenCapture() bool {
	return C.preflightScreenCapture() != 0
}

// RequestScreenCapture shows the system prompt once. A grant only takes
// effect after the process restarts.
func RequestScreenCapture() bool {
	return C.requestScreenCapture() != 0
}
