package encoder

import (
	"bytes"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/bmp"

	"github.com/junsooki/framegrab/internal/capture"
)

// JPEGEncoder encodes frames as JPEG.
type JPEGEncoder struct {
	quality int
}

// NewJPEGEncoder creates a JPEG encoder with the given quality (1-100).
func NewJPEGEncoder(quality int) *JPEGEncoder {
	if quality < 1 {
		quality = 1
	}
	if quality > 100 {
		quality = 100
	}
	return &JPEGEncoder{quality: quality}
}

func (e *JPEGEncoder) Encode(frame capture.FrameBuffer) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(frame.Width * frame.Height / 4)
	if err := jpeg.Encode(&buf, frame.RGBA(), &jpeg.Options{Quality: e.quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (e *JPEGEncoder) Ext() string { return "jpg" }

// PNGEncoder encodes frames as PNG, favouring speed over size.
type PNGEncoder struct {
	enc png.Encoder
}

func NewPNGEncoder() *PNGEncoder {
	return &PNGEncoder{enc: png.Encoder{CompressionLevel: png.BestSpeed}}
}

func (e *PNGEncoder) Encode(frame capture.FrameBuffer) ([]byte, error) {
	var buf bytes.Buffer
	if err := e.enc.Encode(&buf, frame.RGBA()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (e *PNGEncoder) Ext() string { return "png" }

// BMPEncoder writes uncompressed bitmaps.
type BMPEncoder struct{}

func NewBMPEncoder() *BMPEncoder {
	return &BMPEncoder{}
}

func (e *BMPEncoder) Encode(frame capture.FrameBuffer) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(54 + frame.Width*frame.Height*4)
	if err := bmp.Encode(&buf, frame.RGBA()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (e *BMPEncoder) Ext() string { return "bmp" }
