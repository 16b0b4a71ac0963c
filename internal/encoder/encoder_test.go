package encoder

import (
	"bytes"
	"image"
	"testing"

	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"

	"github.com/junsooki/framegrab/internal/capture"
)

func TestForFormat(t *testing.T) {
	tests := []struct {
		format string
		ext    string
	}{
		{"jpg", "jpg"},
		{"JPEG", "jpg"},
		{".png", "png"},
		{"bmp", "bmp"},
	}
	for _, tt := range tests {
		enc, err := ForFormat(tt.format, 80)
		if err != nil {
			t.Fatalf("ForFormat(%q): %v", tt.format, err)
		}
		if enc.Ext() != tt.ext {
			t.Errorf("ForFormat(%q).Ext() = %q, want %q", tt.format, enc.Ext(), tt.ext)
		}
	}
	if _, err := ForFormat("gif", 80); err == nil {
		t.Fatal("gif accepted")
	}
}

func TestEncodedImagesKeepDimensions(t *testing.T) {
	frame := capture.NewFrameBuffer(100, 50)
	for i := range frame.Pix {
		frame.Pix[i] = byte(i)
	}
	for _, format := range []string{"jpg", "png", "bmp"} {
		enc, err := ForFormat(format, 90)
		if err != nil {
			t.Fatalf("ForFormat(%q): %v", format, err)
		}
		data, err := enc.Encode(frame)
		if err != nil {
			t.Fatalf("%s Encode: %v", format, err)
		}
		cfg, name, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("%s DecodeConfig: %v", format, err)
		}
		if cfg.Width != 100 || cfg.Height != 50 {
			t.Errorf("%s (%s) decoded as %dx%d", format, name, cfg.Width, cfg.Height)
		}
	}
}

func TestJPEGQualityClamp(t *testing.T) {
	if q := NewJPEGEncoder(0).quality; q != 1 {
		t.Errorf("quality 0 clamped to %d", q)
	}
	if q := NewJPEGEncoder(250).quality; q != 100 {
		t.Errorf("quality 250 clamped to %d", q)
	}
}
