// Package display shows captured frames in a native window.
package display

import (
	"image"
	"math"
)

// Surface shows frames until the user closes it.
type Surface interface {
	Show(img *image.RGBA)
	Run() error
	Close()
}

// aspectFitTransform returns scale and offsets to fit frame into view with letterboxing.
func aspectFitTransform(viewW, viewH, frameW, frameH float64) (scale, offsetX, offsetY float64) {
	if frameW <= 0 || frameH <= 0 || viewW <= 0 || viewH <= 0 {
		return 1, 0, 0
	}
	scale = math.Min(viewW/frameW, viewH/frameH)
	offsetX = (viewW - frameW*scale) / 2
	offsetY = (viewH - frameH*scale) / 2
	return
}
