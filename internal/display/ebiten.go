package display

import (
	"image"
	"sync"
	"sync/atomic"

	"github.com/hajimehoshi/ebiten/v2"
)

const (
	defaultWidth  = 1280
	defaultHeight = 720
)

// Window renders the latest frame in an Ebitengine window, letterboxed to
// the window size.
type Window struct {
	title string

	mu    sync.Mutex
	frame *image.RGBA
	dirty bool

	tex    *ebiten.Image
	closed atomic.Bool
}

// NewWindow creates a display window. Nothing is shown until Run.
func NewWindow(title string) *Window {
	return &Window{title: title}
}

// Show replaces the displayed frame. Safe to call from any goroutine.
func (w *Window) Show(img *image.RGBA) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.frame = img
	w.dirty = true
}

// Close makes Run return at the next update.
func (w *Window) Close() {
	w.closed.Store(true)
}

// Run starts the Ebitengine game loop. Must be called from the main goroutine.
func (w *Window) Run() error {
	width, height := defaultWidth, defaultHeight
	w.mu.Lock()
	if w.frame != nil {
		width, height = w.frame.Bounds().Dx(), w.frame.Bounds().Dy()
	}
	w.mu.Unlock()

	ebiten.SetWindowSize(width, height)
	ebiten.SetWindowTitle(w.title)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	err := ebiten.RunGame(w)
	w.closed.Store(true)
	if err == ebiten.Termination {
		return nil
	}
	return err
}

// --- ebiten.Game interface ---

func (w *Window) Update() error {
	if w.closed.Load() {
		return ebiten.Termination
	}
	return nil
}

func (w *Window) Draw(screen *ebiten.Image) {
	w.mu.Lock()
	frame, dirty := w.frame, w.dirty
	w.dirty = false
	w.mu.Unlock()

	if frame == nil {
		return
	}

	fb := frame.Bounds()
	if w.tex == nil || w.tex.Bounds().Dx() != fb.Dx() || w.tex.Bounds().Dy() != fb.Dy() {
		if w.tex != nil {
			w.tex.Deallocate()
		}
		w.tex = ebiten.NewImage(fb.Dx(), fb.Dy())
		dirty = true
	}
	if dirty {
		w.tex.WritePixels(frame.Pix)
	}

	sw, sh := screen.Bounds().Dx(), screen.Bounds().Dy()
	scale, offsetX, offsetY := aspectFitTransform(float64(sw), float64(sh), float64(fb.Dx()), float64(fb.Dy()))

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(scale, scale)
	op.GeoM.Translate(offsetX, offsetY)
	op.Filter = ebiten.FilterLinear
	screen.DrawImage(w.tex, op)
}

func (w *Window) Layout(outsideWidth, outsideHeight int) (int, int) {
	return outsideWidth, outsideHeight
}
