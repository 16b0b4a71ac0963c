//go:build !darwin

package permissions

// ScreenCapture always succeeds where the OS has no capture privacy gate.
func ScreenCapture() bool { return true }

// RequestScreenCapture is a no-op that reports success.
func RequestScreenCapture() bool { return true }
