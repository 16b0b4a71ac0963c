package sink

import (
	"fmt"

	"golang.design/x/clipboard"

	"github.com/junsooki/framegrab/internal/capture"
	"github.com/junsooki/framegrab/internal/encoder"
)

// Clipboard keeps the most recent frame on the system clipboard as a PNG.
type Clipboard struct {
	enc   encoder.Encoder
	write func(data []byte)
}

// NewClipboard initialises the system clipboard.
func NewClipboard() (*Clipboard, error) {
	if err := clipboard.Init(); err != nil {
		return nil, fmt.Errorf("clipboard init: %w", err)
	}
	return newClipboard(func(data []byte) {
		clipboard.Write(clipboard.FmtImage, data)
	}), nil
}

func newClipboard(write func([]byte)) *Clipboard {
	return &Clipboard{enc: encoder.NewPNGEncoder(), write: write}
}

func (c *Clipboard) Deliver(frame capture.FrameBuffer) error {
	data, err := c.enc.Encode(frame)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	c.write(data)
	return nil
}
