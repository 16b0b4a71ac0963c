package sink

import (
	"image"

	"github.com/junsooki/framegrab/internal/capture"
)

// Presenter is a surface that shows the latest frame.
type Presenter interface {
	Show(img *image.RGBA)
}

// Display hands frames to a presentation surface.
type Display struct {
	p Presenter
}

func NewDisplay(p Presenter) *Display {
	return &Display{p: p}
}

func (d *Display) Deliver(frame capture.FrameBuffer) error {
	d.p.Show(frame.RGBA())
	return nil
}
