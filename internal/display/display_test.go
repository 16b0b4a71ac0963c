package display

import (
	"math"
	"testing"
)

func TestAspectFitTransform(t *testing.T) {
	tests := []struct {
		name              string
		viewW, viewH      float64
		frameW, frameH    float64
		scale, offX, offY float64
	}{
		{"same size", 1280, 720, 1280, 720, 1, 0, 0},
		{"pillarbox", 1280, 720, 720, 720, 1, 280, 0},
		{"letterbox", 1000, 1000, 1000, 500, 1, 0, 250},
		{"downscale", 640, 360, 1920, 1080, 1.0 / 3, 0, 0},
		{"upscale", 400, 100, 100, 50, 2, 100, 0},
		{"empty frame", 640, 360, 0, 0, 1, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scale, offX, offY := aspectFitTransform(tt.viewW, tt.viewH, tt.frameW, tt.frameH)
			if !near(scale, tt.scale) || !near(offX, tt.offX) || !near(offY, tt.offY) {
				t.Fatalf("got (%v, %v, %v), want (%v, %v, %v)", scale, offX, offY, tt.scale, tt.offX, tt.offY)
			}
		})
	}
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
