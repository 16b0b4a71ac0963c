// Package capture resolves capture sources and grabs RGB frames from
// windows or screen regions.
package capture

import (
	"fmt"
	"image"
	"time"
)

// FrameBuffer is a packed RGB image, 8 bits per channel, row-major.
// len(Pix) == Width*Height*3 for every buffer handed out by this package.
type FrameBuffer struct {
	Width  int
	Height int
	Pix    []byte

	// Seq is the tick number within the session that produced the frame.
	Seq        uint64
	CapturedAt time.Time
}

// NewFrameBuffer allocates a zeroed width×height frame.
func NewFrameBuffer(width, height int) FrameBuffer {
	return FrameBuffer{Width: width, Height: height, Pix: make([]byte, width*height*3)}
}

// Valid reports whether the buffer length matches its dimensions.
func (f FrameBuffer) Valid() bool {
	return f.Width > 0 && f.Height > 0 && len(f.Pix) == f.Width*f.Height*3
}

// Clone returns a deep copy.
func (f FrameBuffer) Clone() FrameBuffer {
	out := f
	out.Pix = append([]byte(nil), f.Pix...)
	return out
}

// RGBA expands the frame into a new opaque *image.RGBA.
func (f FrameBuffer) RGBA() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	for i, j := 0, 0; i+2 < len(f.Pix) && j+3 < len(img.Pix); i, j = i+3, j+4 {
		img.Pix[j+0] = f.Pix[i+0]
		img.Pix[j+1] = f.Pix[i+1]
		img.Pix[j+2] = f.Pix[i+2]
		img.Pix[j+3] = 0xff
	}
	return img
}

// FromBGRA converts a top-down 32-bit BGRA (or BGRX) buffer to RGB.
func FromBGRA(bgra []byte, width, height int) (FrameBuffer, error) {
	if width <= 0 || height <= 0 {
		return FrameBuffer{}, fmt.Errorf("bgra frame %dx%d: %w", width, height, ErrInvalidGeometry)
	}
	if len(bgra) != width*height*4 {
		return FrameBuffer{}, fmt.Errorf("bgra frame %dx%d: got %d bytes, want %d", width, height, len(bgra), width*height*4)
	}
	f := NewFrameBuffer(width, height)
	for i, j := 0, 0; i < len(bgra); i, j = i+4, j+3 {
		f.Pix[j+0] = bgra[i+2]
		f.Pix[j+1] = bgra[i+1]
		f.Pix[j+2] = bgra[i+0]
	}
	return f, nil
}

// FromImage converts any image to RGB, dropping alpha.
func FromImage(img image.Image) FrameBuffer {
	b := img.Bounds()
	f := NewFrameBuffer(b.Dx(), b.Dy())
	if rgba, ok := img.(*image.RGBA); ok {
		j := 0
		for y := b.Min.Y; y < b.Max.Y; y++ {
			row := rgba.Pix[rgba.PixOffset(b.Min.X, y):]
			for x := 0; x < b.Dx(); x++ {
				f.Pix[j+0] = row[x*4+0]
				f.Pix[j+1] = row[x*4+1]
				f.Pix[j+2] = row[x*4+2]
				j += 3
			}
		}
		return f
	}
	j := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			f.Pix[j+0] = uint8(r >> 8)
			f.Pix[j+1] = uint8(g >> 8)
			f.Pix[j+2] = uint8(bl >> 8)
			j += 3
		}
	}
	return f
}
