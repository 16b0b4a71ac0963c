package annotate

import (
	"fmt"
	"image"
	"image/color"
	"time"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/junsooki/framegrab/internal/capture"
)

// Label stamps the frame sequence number and capture time into the
// top-left corner.
type Label struct {
	Foreground color.Color
	Background color.Color
	// Format renders the label text; nil uses "#<seq> <hh:mm:ss.mmm>".
	Format func(frame capture.FrameBuffer) string
}

// NewLabel returns a white-on-black label hook.
func NewLabel() *Label {
	return &Label{
		Foreground: color.White,
		Background: color.RGBA{A: 0xc0},
	}
}

const labelPad = 3

func (l *Label) Annotate(frame capture.FrameBuffer) (capture.FrameBuffer, error) {
	if !frame.Valid() {
		return capture.FrameBuffer{}, fmt.Errorf("label: invalid %dx%d frame", frame.Width, frame.Height)
	}
	text := l.text(frame)
	face := basicfont.Face7x13

	img := frame.RGBA()
	d := font.Drawer{Dst: img, Src: image.NewUniform(l.Foreground), Face: face}
	width := d.MeasureString(text).Ceil()
	box := image.Rect(0, 0, width+2*labelPad, face.Height+2*labelPad).Intersect(img.Bounds())
	draw.Draw(img, box, image.NewUniform(l.Background), image.Point{}, draw.Over)

	d.Dot = fixed.P(labelPad, labelPad+face.Ascent)
	d.DrawString(text)

	out := capture.FromImage(img)
	out.Seq = frame.Seq
	out.CapturedAt = frame.CapturedAt
	return out, nil
}

func (l *Label) text(frame capture.FrameBuffer) string {
	if l.Format != nil {
		return l.Format(frame)
	}
	at := frame.CapturedAt
	if at.IsZero() {
		at = time.Now()
	}
	return fmt.Sprintf("#%d %s", frame.Seq, at.UTC().Format("15:04:05.000"))
}
