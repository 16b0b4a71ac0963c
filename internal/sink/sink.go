// Package sink holds the consumers a capture session delivers frames to.
package sink

import (
	"github.com/junsooki/framegrab/internal/capture"
)

// Sink consumes delivered frames. The sink owns the frame after Deliver
// is called and may keep it.
type Sink interface {
	Deliver(frame capture.FrameBuffer) error
}

// Func adapts a function to Sink.
type Func func(frame capture.FrameBuffer) error

func (f Func) Deliver(frame capture.FrameBuffer) error {
	return f(frame)
}
