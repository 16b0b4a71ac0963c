// Package config parses the command-line configuration of the framegrab
// and viewer binaries.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/junsooki/framegrab/internal/capture"
	"github.com/junsooki/framegrab/internal/window"
)

const (
	DefaultPeriod       = 300 * time.Millisecond
	DefaultSignalingURL = "ws://localhost:8080"
	MaxFPS              = 30
)

// Config holds the runtime configuration of a capture run.
type Config struct {
	// Source is set from whichever of Window, HWND or Region was given.
	Source capture.Source
	Window string
	HWND   string
	Region string
	List   bool

	PeriodMS int
	FPS      int
	// Period is derived from FPS when set, otherwise from PeriodMS.
	Period time.Duration

	OutDir    string
	Format    string
	Quality   int
	Display   bool
	Clipboard bool
	Stream    bool

	SignalingURL string
	PublisherID  string

	Annotate       bool
	InsetFlag      string
	Inset          capture.Inset
	CaptureTimeout time.Duration
	MaxFrames      int

	LogLevel  string
	LogFormat string
}

// Parse parses the framegrab flags in args and validates the result.
func Parse(args []string, output io.Writer) (*Config, error) {
	cfg := &Config{}
	fs := flag.NewFlagSet("framegrab", flag.ContinueOnError)
	if output != nil {
		fs.SetOutput(output)
	}
	fs.StringVar(&cfg.Window, "window", "", "Capture the visible window with this exact title")
	fs.StringVar(&cfg.HWND, "hwnd", "", "Capture the window with this native handle (decimal or 0x hex)")
	fs.StringVar(&cfg.Region, "region", "", "Capture the screen rectangle left,top,right,bottom")
	fs.BoolVar(&cfg.List, "list", false, "Print the visible windows and exit")
	fs.IntVar(&cfg.PeriodMS, "period-ms", int(DefaultPeriod/time.Millisecond), "Tick period in milliseconds")
	fs.IntVar(&cfg.FPS, "fps", 0, "Frames per second (1-30), overrides -period-ms")
	fs.StringVar(&cfg.OutDir, "out", "images", "Directory for the numbered image files (empty disables)")
	fs.StringVar(&cfg.Format, "format", "jpg", "Image file format: jpg, png or bmp")
	fs.IntVar(&cfg.Quality, "quality", 90, "JPEG quality (1-100)")
	fs.BoolVar(&cfg.Display, "display", false, "Show frames in a window")
	fs.BoolVar(&cfg.Clipboard, "clipboard", false, "Keep the latest frame on the clipboard")
	fs.BoolVar(&cfg.Stream, "stream", false, "Publish frames to a remote viewer over WebRTC")
	fs.StringVar(&cfg.SignalingURL, "signaling", DefaultSignalingURL, "Signaling server WebSocket URL")
	fs.StringVar(&cfg.PublisherID, "id", "", "Publisher ID (auto-generated if empty)")
	fs.BoolVar(&cfg.Annotate, "annotate", false, "Stamp frames with their sequence number and time")
	fs.StringVar(&cfg.InsetFlag, "inset", "0,0,0,0", "Window inset left,top,right,bottom, or \"legacy\"")
	fs.DurationVar(&cfg.CaptureTimeout, "capture-timeout", capture.DefaultTimeout, "Bound on one native capture call")
	fs.IntVar(&cfg.MaxFrames, "frames", 0, "Stop after this many frames (0 = unbounded)")
	fs.StringVar(&cfg.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	fs.StringVar(&cfg.LogFormat, "log-format", "console", "Log format: console or json")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.PublisherID == "" {
		cfg.PublisherID = "framegrab-" + randomID()
	}
	return cfg, nil
}

// normalize derives Source, Inset and Period from the raw flag values.
func (c *Config) normalize() error {
	c.Format = strings.ToLower(strings.TrimSpace(c.Format))
	if c.Format == "jpeg" {
		c.Format = "jpg"
	}

	inset, err := ParseInset(c.InsetFlag)
	if err != nil {
		return err
	}
	c.Inset = inset

	if c.FPS != 0 {
		if c.FPS < 1 || c.FPS > MaxFPS {
			return fmt.Errorf("fps must be between 1 and %d, got %d", MaxFPS, c.FPS)
		}
		c.Period = time.Second / time.Duration(c.FPS)
	} else {
		c.Period = time.Duration(c.PeriodMS) * time.Millisecond
	}

	if c.List {
		return nil
	}
	src, err := c.source()
	if err != nil {
		return err
	}
	c.Source = src
	return nil
}

func (c *Config) source() (capture.Source, error) {
	given := 0
	for _, v := range []string{c.Window, c.HWND, c.Region} {
		if v != "" {
			given++
		}
	}
	if given != 1 {
		return capture.Source{}, errors.New("exactly one of -window, -hwnd or -region is required")
	}
	switch {
	case c.Window != "":
		return capture.NamedWindow(c.Window), nil
	case c.HWND != "":
		h, err := window.ParseHandle(c.HWND)
		if err != nil {
			return capture.Source{}, err
		}
		return capture.WindowHandle(h), nil
	default:
		r, err := ParseRegion(c.Region)
		if err != nil {
			return capture.Source{}, err
		}
		return capture.ScreenRegion(r.Left, r.Top, r.Right, r.Bottom), nil
	}
}

// Validate checks the derived configuration.
func (c *Config) Validate() error {
	if c.List {
		return nil
	}
	if c.Period <= 0 {
		return fmt.Errorf("period must be positive, got %s", c.Period)
	}
	if !c.Display && !c.Clipboard && !c.Stream && c.OutDir == "" {
		return errors.New("no sink enabled: set -out, -display, -clipboard or -stream")
	}
	switch c.Format {
	case "jpg", "png", "bmp":
	default:
		return fmt.Errorf("unsupported image format %q", c.Format)
	}
	if c.Quality < 1 || c.Quality > 100 {
		return fmt.Errorf("quality must be between 1 and 100, got %d", c.Quality)
	}
	if c.CaptureTimeout <= 0 {
		return fmt.Errorf("capture timeout must be positive, got %s", c.CaptureTimeout)
	}
	if c.MaxFrames < 0 {
		return fmt.Errorf("frame limit must not be negative, got %d", c.MaxFrames)
	}
	if c.Stream && c.SignalingURL == "" {
		return errors.New("-stream requires -signaling")
	}
	return nil
}

// ViewerConfig holds configuration for the viewer binary.
type ViewerConfig struct {
	SignalingURL string
	ViewerID     string
	PublisherID  string
	LogLevel     string
	LogFormat    string
}

// ParseViewer parses flags for the viewer binary.
func ParseViewer(args []string, output io.Writer) (*ViewerConfig, error) {
	cfg := &ViewerConfig{}
	fs := flag.NewFlagSet("viewer", flag.ContinueOnError)
	if output != nil {
		fs.SetOutput(output)
	}
	fs.StringVar(&cfg.SignalingURL, "signaling", DefaultSignalingURL, "Signaling server WebSocket URL")
	fs.StringVar(&cfg.ViewerID, "id", "", "Viewer ID (auto-generated if empty)")
	fs.StringVar(&cfg.PublisherID, "publisher", "", "Publisher ID to connect to (required)")
	fs.StringVar(&cfg.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	fs.StringVar(&cfg.LogFormat, "log-format", "console", "Log format: console or json")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if cfg.PublisherID == "" {
		return nil, errors.New("-publisher is required")
	}
	if cfg.SignalingURL == "" {
		return nil, errors.New("-signaling must not be empty")
	}
	if cfg.ViewerID == "" {
		cfg.ViewerID = "viewer-" + randomID()
	}
	return cfg, nil
}

// ParseRegion parses "left,top,right,bottom".
func ParseRegion(s string) (capture.Rect, error) {
	v, err := parseQuad(s)
	if err != nil {
		return capture.Rect{}, fmt.Errorf("region %q: %w", s, err)
	}
	return capture.Rect{Left: v[0], Top: v[1], Right: v[2], Bottom: v[3]}, nil
}

// ParseInset parses "left,top,right,bottom" or the word "legacy".
func ParseInset(s string) (capture.Inset, error) {
	if strings.EqualFold(strings.TrimSpace(s), "legacy") {
		return capture.LegacyInset, nil
	}
	if strings.TrimSpace(s) == "" {
		return capture.Inset{}, nil
	}
	v, err := parseQuad(s)
	if err != nil {
		return capture.Inset{}, fmt.Errorf("inset %q: %w", s, err)
	}
	for _, n := range v {
		if n < 0 {
			return capture.Inset{}, fmt.Errorf("inset %q: values must not be negative", s)
		}
	}
	return capture.Inset{Left: v[0], Top: v[1], Right: v[2], Bottom: v[3]}, nil
}

func parseQuad(s string) ([4]int, error) {
	var out [4]int
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return out, fmt.Errorf("want 4 comma-separated integers, got %d fields", len(parts))
	}
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return out, fmt.Errorf("field %d: %w", i+1, err)
		}
		out[i] = n
	}
	return out, nil
}

func randomID() string {
	b := make([]byte, 4)
	rand.Read(b)
	return hex.EncodeToString(b)
}
