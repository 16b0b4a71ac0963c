//go:build linux

package window

import (
	"fmt"
	"image"
	"sync"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
)

type x11Lister struct {
	once sync.Once
	err  error
	conn *xgb.Conn
	root xproto.Window

	clientList xproto.Atom
	wmName     xproto.Atom
	utf8String xproto.Atom
}

// System returns an X11 lister connected to $DISPLAY on first use.
func System() Lister {
	return &x11Lister{}
}

func (l *x11Lister) connect() error {
	l.once.Do(func() {
		conn, err := xgb.NewConn()
		if err != nil {
			l.err = fmt.Errorf("connect X server: %w", err)
			return
		}
		l.conn = conn
		l.root = xproto.Setup(conn).DefaultScreen(conn).Root
		l.clientList = l.atom("_NET_CLIENT_LIST")
		l.wmName = l.atom("_NET_WM_NAME")
		l.utf8String = l.atom("UTF8_STRING")
	})
	return l.err
}

func (l *x11Lister) atom(name string) xproto.Atom {
	reply, err := xproto.InternAtom(l.conn, true, uint16(len(name)), name).Reply()
	if err != nil || reply == nil {
		return xproto.AtomNone
	}
	return reply.Atom
}

// topLevel prefers the window manager's client list, which holds managed
// application windows, and falls back to the root's children.
func (l *x11Lister) topLevel() ([]xproto.Window, error) {
	if l.clientList != xproto.AtomNone {
		prop, err := xproto.GetProperty(l.conn, false, l.root, l.clientList,
			xproto.AtomWindow, 0, 1<<16).Reply()
		if err == nil && prop.Format == 32 && prop.ValueLen > 0 {
			out := make([]xproto.Window, 0, prop.ValueLen)
			for i := 0; i+4 <= len(prop.Value); i += 4 {
				out = append(out, xproto.Window(xgb.Get32(prop.Value[i:])))
			}
			return out, nil
		}
	}
	tree, err := xproto.QueryTree(l.conn, l.root).Reply()
	if err != nil {
		return nil, fmt.Errorf("query tree: %w", err)
	}
	return tree.Children, nil
}

func (l *x11Lister) title(w xproto.Window) string {
	if l.wmName != xproto.AtomNone {
		prop, err := xproto.GetProperty(l.conn, false, w, l.wmName, l.utf8String, 0, 1<<12).Reply()
		if err == nil && len(prop.Value) > 0 {
			return string(prop.Value)
		}
	}
	prop, err := xproto.GetProperty(l.conn, false, w, xproto.AtomWmName, xproto.AtomString, 0, 1<<12).Reply()
	if err != nil {
		return ""
	}
	return string(prop.Value)
}

func (l *x11Lister) List() ([]Info, error) {
	if err := l.connect(); err != nil {
		return nil, err
	}
	wins, err := l.topLevel()
	if err != nil {
		return nil, err
	}
	out := make([]Info, 0, len(wins))
	for _, w := range wins {
		attrs, err := xproto.GetWindowAttributes(l.conn, w).Reply()
		if err != nil {
			continue
		}
		info := Info{Handle: Handle(w), Visible: attrs.MapState == xproto.MapStateViewable}
		if info.Visible {
			info.Title = l.title(w)
		}
		out = append(out, info)
	}
	return out, nil
}

func (l *x11Lister) Alive(h Handle) bool {
	if err := l.connect(); err != nil {
		return false
	}
	_, err := xproto.GetWindowAttributes(l.conn, xproto.Window(h)).Reply()
	return err == nil
}

func (l *x11Lister) ClientRect(h Handle) (image.Rectangle, error) {
	if err := l.connect(); err != nil {
		return image.Rectangle{}, err
	}
	geom, err := xproto.GetGeometry(l.conn, xproto.Drawable(h)).Reply()
	if err != nil {
		return image.Rectangle{}, fmt.Errorf("get geometry %s: %w", h, err)
	}
	return image.Rect(0, 0, int(geom.Width), int(geom.Height)), nil
}
