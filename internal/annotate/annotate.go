// Package annotate defines the optional per-frame transform stage that
// runs between capture and delivery.
package annotate

import (
	"fmt"

	"github.com/junsooki/framegrab/internal/capture"
)

// Hook transforms a frame. It runs synchronously on the capture worker,
// so a slow hook delays the next tick.
type Hook interface {
	Annotate(frame capture.FrameBuffer) (capture.FrameBuffer, error)
}

// HookFunc adapts a function to Hook.
type HookFunc func(frame capture.FrameBuffer) (capture.FrameBuffer, error)

func (f HookFunc) Annotate(frame capture.FrameBuffer) (capture.FrameBuffer, error) {
	return f(frame)
}

// Chain runs hooks in order, stopping at the first error.
type Chain []Hook

func (c Chain) Annotate(frame capture.FrameBuffer) (capture.FrameBuffer, error) {
	for i, h := range c {
		var err error
		frame, err = h.Annotate(frame)
		if err != nil {
			return capture.FrameBuffer{}, fmt.Errorf("hook %d: %w", i, err)
		}
	}
	return frame, nil
}
