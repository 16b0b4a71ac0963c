package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/junsooki/framegrab/internal/window"
)

// DefaultTimeout bounds a single native capture call.
const DefaultTimeout = 2 * time.Second

// Options configure a Grabber. Nil native surfaces select the platform
// implementation.
type Options struct {
	Directory *window.Directory
	Surfaces  Surfaces
	Screen    Screen
	Inset     Inset
	Timeout   time.Duration
	Clock     func() time.Time
	Logger    *slog.Logger
}

// Grabber resolves sources and captures frames from them.
type Grabber struct {
	dir      *window.Directory
	surfaces Surfaces
	screen   Screen
	inset    Inset
	timeout  time.Duration
	clock    func() time.Time
	logger   *slog.Logger

	// inflight admits one native call at a time. A call that outlives its
	// timeout keeps holding it until the OS returns.
	inflight *semaphore.Weighted
}

// NewGrabber builds a Grabber from opts.
func NewGrabber(opts Options) *Grabber {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	dir := opts.Directory
	if dir == nil {
		dir = window.NewDirectory(window.System(), logger)
	}
	surfaces := opts.Surfaces
	if surfaces == nil {
		surfaces = SystemSurfaces()
	}
	screen := opts.Screen
	if screen == nil {
		screen = SystemScreen()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Grabber{
		dir:      dir,
		surfaces: surfaces,
		screen:   screen,
		inset:    opts.Inset,
		timeout:  timeout,
		clock:    clock,
		logger:   logger,
		inflight: semaphore.NewWeighted(1),
	}
}

// Directory returns the window directory used for name lookups.
func (g *Grabber) Directory() *window.Directory {
	return g.dir
}

// Resolve binds src to a handle or region and computes its dimensions.
func (g *Grabber) Resolve(src Source) (Resolved, error) {
	switch src.Kind() {
	case KindNamedWindow:
		rec, ok := g.dir.Find(src.Title())
		if !ok {
			return Resolved{}, fmt.Errorf("%s: %w", src, ErrSourceNotFound)
		}
		return g.resolveWindow(src, rec.Handle)
	case KindWindowHandle:
		if !g.dir.Alive(src.Handle()) {
			return Resolved{}, fmt.Errorf("%s: %w", src, ErrSourceNotFound)
		}
		return g.resolveWindow(src, src.Handle())
	case KindScreenRegion:
		r := src.Region()
		if r.Width() <= 0 || r.Height() <= 0 {
			return Resolved{}, fmt.Errorf("%s: %w", src, ErrInvalidGeometry)
		}
		return Resolved{Source: src, Region: r, Width: r.Width(), Height: r.Height()}, nil
	default:
		return Resolved{}, fmt.Errorf("%s: %w", src, ErrSourceNotFound)
	}
}

// Refresh recomputes the dimensions of an already resolved window. The
// handle is kept, so a renamed window stays bound.
func (g *Grabber) Refresh(r Resolved) (Resolved, error) {
	if !r.IsWindow() {
		return r, nil
	}
	if !g.dir.Alive(r.Handle) {
		return Resolved{}, fmt.Errorf("%s: %w", r.Source, ErrSourceNotFound)
	}
	return g.resolveWindow(r.Source, r.Handle)
}

func (g *Grabber) resolveWindow(src Source, h window.Handle) (Resolved, error) {
	rect, err := g.dir.ClientRect(h)
	if err != nil {
		if !g.dir.Alive(h) {
			return Resolved{}, fmt.Errorf("%s: %w", src, ErrSourceNotFound)
		}
		return Resolved{}, failed("read client rect", src.String(), err)
	}
	w := rect.Dx() - g.inset.Left - g.inset.Right
	ht := rect.Dy() - g.inset.Top - g.inset.Bottom
	if w <= 0 || ht <= 0 {
		return Resolved{}, fmt.Errorf("%s client area %dx%d: %w", src, w, ht, ErrInvalidGeometry)
	}
	return Resolved{
		Source: src,
		Handle: h,
		Origin: rect.Min.Add(image.Pt(g.inset.Left, g.inset.Top)),
		Width:  w,
		Height: ht,
	}, nil
}

type captureResult struct {
	frame FrameBuffer
	err   error
}

// Capture returns one fresh frame of r. The native call is bounded by the
// grabber timeout and by ctx; on expiry the call is abandoned and its
// result discarded once it returns.
func (g *Grabber) Capture(ctx context.Context, r Resolved) (FrameBuffer, error) {
	if r.Width <= 0 || r.Height <= 0 {
		return FrameBuffer{}, fmt.Errorf("%s: %w", r.Source, ErrInvalidGeometry)
	}
	// A stuck call holds the slot; a closed window must still read as gone.
	if r.IsWindow() && !g.dir.Alive(r.Handle) {
		return FrameBuffer{}, fmt.Errorf("%s: %w", r.Source, ErrSourceNotFound)
	}
	if !g.inflight.TryAcquire(1) {
		return FrameBuffer{}, failed("capture", "previous capture still in flight", nil)
	}

	done := make(chan captureResult, 1)
	go func() {
		frame, err := g.captureNow(r)
		g.inflight.Release(1)
		done <- captureResult{frame: frame, err: err}
	}()

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	select {
	case res := <-done:
		return res.frame, res.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return FrameBuffer{}, failedf("capture", nil, "timed out after %s", g.timeout)
		}
		return FrameBuffer{}, failed("capture", "canceled", ctx.Err())
	}
}

// Drain waits until no native call is in flight, so the resources of an
// abandoned call have been released. It returns ctx.Err() if ctx ends first.
func (g *Grabber) Drain(ctx context.Context) error {
	if err := g.inflight.Acquire(ctx, 1); err != nil {
		return err
	}
	g.inflight.Release(1)
	return nil
}

func (g *Grabber) captureNow(r Resolved) (FrameBuffer, error) {
	at := g.clock()
	var (
		frame FrameBuffer
		err   error
	)
	if r.IsWindow() {
		frame, err = g.captureWindow(r)
	} else {
		frame, err = g.captureRegion(r)
	}
	if err != nil {
		return FrameBuffer{}, err
	}
	frame.CapturedAt = at
	return frame, nil
}

func (g *Grabber) captureWindow(r Resolved) (FrameBuffer, error) {
	if !g.dir.Alive(r.Handle) {
		return FrameBuffer{}, fmt.Errorf("%s: %w", r.Source, ErrSourceNotFound)
	}
	bgra, err := g.grabWindow(r)
	if err != nil {
		return FrameBuffer{}, err
	}
	return FromBGRA(bgra, r.Width, r.Height)
}

// grabWindow performs the drawing-context sequence for one frame. Each
// acquired resource is released by a deferred call registered right after
// it is acquired, so every return path unwinds exactly what it holds.
func (g *Grabber) grabWindow(r Resolved) ([]byte, error) {
	s := g.surfaces

	src, err := s.WindowDC(r.Handle)
	if err != nil {
		return nil, g.windowErr(r, "acquire window context", err)
	}
	defer g.release("release window context", func() error { return s.ReleaseWindowDC(r.Handle, src) })

	mem, err := s.CompatibleDC(src)
	if err != nil {
		return nil, g.windowErr(r, "create compatible context", err)
	}
	defer g.release("delete compatible context", func() error { return s.DeleteDC(mem) })

	bm, err := s.CompatibleBitmap(src, r.Width, r.Height)
	if err != nil {
		return nil, g.windowErr(r, "create compatible bitmap", err)
	}
	defer g.release("delete bitmap", func() error { return s.DeleteBitmap(bm) })

	prev, err := s.Select(mem, bm)
	if err != nil {
		return nil, g.windowErr(r, "select bitmap", err)
	}
	selected := true
	deselect := func() error {
		if !selected {
			return nil
		}
		selected = false
		return s.Restore(mem, prev)
	}
	defer g.release("restore selection", deselect)

	if err := s.BitBlt(mem, r.Width, r.Height, src, r.Origin); err != nil {
		return nil, g.windowErr(r, "block transfer", err)
	}
	if err := deselect(); err != nil {
		return nil, g.windowErr(r, "deselect bitmap", err)
	}

	buf := make([]byte, r.Width*r.Height*4)
	if err := s.Bits(mem, bm, r.Width, r.Height, buf); err != nil {
		return nil, g.windowErr(r, "read bitmap bits", err)
	}
	return buf, nil
}

// windowErr maps a failed step to SourceNotFound when the window has gone
// away underneath it.
func (g *Grabber) windowErr(r Resolved, op string, err error) error {
	if !g.dir.Alive(r.Handle) {
		return fmt.Errorf("%s: %s: %w", r.Source, op, ErrSourceNotFound)
	}
	return failed(op, r.Source.String(), err)
}

func (g *Grabber) release(op string, fn func() error) {
	if err := fn(); err != nil {
		g.logger.Debug("release capture resource", "op", op, "error", err)
	}
}

func (g *Grabber) captureRegion(r Resolved) (FrameBuffer, error) {
	rect := r.Region.Image()
	displays := g.screen.Displays()
	if len(displays) == 0 {
		return FrameBuffer{}, failed("snapshot", "no display attached", nil)
	}
	if !covered(rect, displays) {
		return FrameBuffer{}, failed("snapshot", "region "+r.Region.String()+" outside displays", nil)
	}
	img, err := g.screen.Snapshot(rect)
	if err != nil {
		return FrameBuffer{}, failed("snapshot", r.Region.String(), err)
	}
	if img == nil || img.Bounds().Dx() != r.Width || img.Bounds().Dy() != r.Height {
		got := "nil"
		if img != nil {
			got = fmt.Sprintf("%dx%d", img.Bounds().Dx(), img.Bounds().Dy())
		}
		return FrameBuffer{}, failedf("snapshot", nil, "got %s image, want %dx%d", got, r.Width, r.Height)
	}
	return FromImage(img), nil
}
