//go:build linux

package capture

import (
	"fmt"
	"image"
	"sync"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"

	"github.com/junsooki/framegrab/internal/window"
)

// x11Surfaces maps the drawing-context sequence onto core X11: a window
// context is the window drawable, a compatible context is a GC, a bitmap
// is a pixmap of the window's depth and the block transfer is CopyArea.
type x11Surfaces struct {
	once sync.Once
	err  error
	conn *xgb.Conn

	mu  sync.Mutex
	gcs map[DC]*x11Context
}

type x11Context struct {
	gc       xproto.Gcontext
	drawable xproto.Drawable
	selected Bitmap
}

// SystemSurfaces returns the X11 implementation.
func SystemSurfaces() Surfaces {
	return &x11Surfaces{gcs: make(map[DC]*x11Context)}
}

func (s *x11Surfaces) connect() error {
	s.once.Do(func() {
		s.conn, s.err = xgb.NewConn()
		if s.err != nil {
			s.err = fmt.Errorf("connect X server: %w", s.err)
		}
	})
	return s.err
}

func (s *x11Surfaces) context(dc DC) (*x11Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.gcs[dc]
	if !ok {
		return nil, fmt.Errorf("unknown compatible context %#x", uintptr(dc))
	}
	return c, nil
}

func (s *x11Surfaces) WindowDC(h window.Handle) (DC, error) {
	if err := s.connect(); err != nil {
		return 0, err
	}
	if _, err := xproto.GetGeometry(s.conn, xproto.Drawable(h)).Reply(); err != nil {
		return 0, fmt.Errorf("get geometry %s: %w", h, err)
	}
	return DC(h), nil
}

func (s *x11Surfaces) ReleaseWindowDC(window.Handle, DC) error {
	return nil
}

func (s *x11Surfaces) CompatibleDC(dc DC) (DC, error) {
	gc, err := xproto.NewGcontextId(s.conn)
	if err != nil {
		return 0, fmt.Errorf("allocate gc id: %w", err)
	}
	if err := xproto.CreateGCChecked(s.conn, gc, xproto.Drawable(dc), 0, nil).Check(); err != nil {
		return 0, fmt.Errorf("create gc: %w", err)
	}
	mem := DC(gc)
	s.mu.Lock()
	s.gcs[mem] = &x11Context{gc: gc, drawable: xproto.Drawable(dc)}
	s.mu.Unlock()
	return mem, nil
}

func (s *x11Surfaces) DeleteDC(dc DC) error {
	s.mu.Lock()
	c, ok := s.gcs[dc]
	delete(s.gcs, dc)
	s.mu.Unlock()
	if !ok {
		return nil
	}
	return xproto.FreeGCChecked(s.conn, c.gc).Check()
}

func (s *x11Surfaces) CompatibleBitmap(dc DC, width, height int) (Bitmap, error) {
	geom, err := xproto.GetGeometry(s.conn, xproto.Drawable(dc)).Reply()
	if err != nil {
		return 0, fmt.Errorf("get geometry: %w", err)
	}
	pix, err := xproto.NewPixmapId(s.conn)
	if err != nil {
		return 0, fmt.Errorf("allocate pixmap id: %w", err)
	}
	if err := xproto.CreatePixmapChecked(s.conn, geom.Depth, pix, xproto.Drawable(dc),
		uint16(width), uint16(height)).Check(); err != nil {
		return 0, fmt.Errorf("create pixmap: %w", err)
	}
	return Bitmap(pix), nil
}

func (s *x11Surfaces) DeleteBitmap(bm Bitmap) error {
	return xproto.FreePixmapChecked(s.conn, xproto.Pixmap(bm)).Check()
}

func (s *x11Surfaces) Select(dc DC, bm Bitmap) (Object, error) {
	c, err := s.context(dc)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	prev := c.selected
	c.selected = bm
	s.mu.Unlock()
	return Object(prev), nil
}

func (s *x11Surfaces) Restore(dc DC, prev Object) error {
	c, err := s.context(dc)
	if err != nil {
		return err
	}
	s.mu.Lock()
	c.selected = Bitmap(prev)
	s.mu.Unlock()
	return nil
}

func (s *x11Surfaces) BitBlt(dst DC, width, height int, src DC, origin image.Point) error {
	c, err := s.context(dst)
	if err != nil {
		return err
	}
	s.mu.Lock()
	target := c.selected
	s.mu.Unlock()
	if target == 0 {
		return fmt.Errorf("copy area: no pixmap selected")
	}
	return xproto.CopyAreaChecked(s.conn, xproto.Drawable(src), xproto.Drawable(target), c.gc,
		int16(origin.X), int16(origin.Y), 0, 0, uint16(width), uint16(height)).Check()
}

func (s *x11Surfaces) Bits(_ DC, bm Bitmap, width, height int, dst []byte) error {
	reply, err := xproto.GetImage(s.conn, xproto.ImageFormatZPixmap, xproto.Drawable(bm),
		0, 0, uint16(width), uint16(height), ^uint32(0)).Reply()
	if err != nil {
		return fmt.Errorf("get image: %w", err)
	}
	if len(reply.Data) < len(dst) {
		return fmt.Errorf("get image: depth %d returned %d bytes, want %d", reply.Depth, len(reply.Data), len(dst))
	}
	copy(dst, reply.Data)
	return nil
}
