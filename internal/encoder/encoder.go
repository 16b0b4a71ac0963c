// Package encoder turns captured frames into image files.
package encoder

import (
	"fmt"
	"strings"

	"github.com/junsooki/framegrab/internal/capture"
)

// Encoder encodes a frame into bytes of one image format.
type Encoder interface {
	Encode(frame capture.FrameBuffer) ([]byte, error)
	// Ext is the file extension without the dot.
	Ext() string
}

// ForFormat returns the encoder for a file extension. Quality applies to
// JPEG only.
func ForFormat(format string, quality int) (Encoder, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(format), ".")) {
	case "jpg", "jpeg":
		return NewJPEGEncoder(quality), nil
	case "png":
		return NewPNGEncoder(), nil
	case "bmp":
		return NewBMPEncoder(), nil
	default:
		return nil, fmt.Errorf("unsupported image format %q", format)
	}
}
