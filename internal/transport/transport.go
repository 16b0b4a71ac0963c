// Package transport moves encoded frames between a publisher and a viewer.
package transport

import "errors"

// ErrNotOpen is returned when no open frames channel is available.
var ErrNotOpen = errors.New("frames data channel not open")

// FrameSender sends encoded video frames.
type FrameSender interface {
	SendFrame(data []byte) error
}

// FrameReceiver receives encoded video frames.
type FrameReceiver interface {
	OnFrame(callback func(data []byte))
}
