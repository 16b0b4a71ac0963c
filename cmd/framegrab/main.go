package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"golang.org/x/sync/errgroup"

	"github.com/junsooki/framegrab/internal/annotate"
	"github.com/junsooki/framegrab/internal/capture"
	"github.com/junsooki/framegrab/internal/config"
	"github.com/junsooki/framegrab/internal/display"
	"github.com/junsooki/framegrab/internal/encoder"
	"github.com/junsooki/framegrab/internal/logging"
	"github.com/junsooki/framegrab/internal/loop"
	"github.com/junsooki/framegrab/internal/permissions"
	"github.com/junsooki/framegrab/internal/sink"
	"github.com/junsooki/framegrab/internal/window"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "framegrab: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Parse(args, os.Stderr)
	if err != nil {
		return err
	}
	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	dir := window.NewDirectory(window.System(), logger)
	if cfg.List {
		return listWindows(os.Stdout, dir)
	}

	if cfg.Source.Kind() == capture.KindScreenRegion && !permissions.ScreenCapture() {
		logger.Warn("screen recording permission not granted, requesting")
		if !permissions.RequestScreenCapture() {
			return errors.New("grant Screen Recording permission in System Settings and restart")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	grabber := capture.NewGrabber(capture.Options{
		Directory: dir,
		Inset:     cfg.Inset,
		Timeout:   cfg.CaptureTimeout,
		Logger:    logger,
	})

	var sinks []sink.Sink
	if cfg.OutDir != "" {
		enc, err := encoder.ForFormat(cfg.Format, cfg.Quality)
		if err != nil {
			return err
		}
		files, err := sink.NewFileSequence(cfg.OutDir, enc)
		if err != nil {
			return err
		}
		logger.Info("writing frames", "dir", files.Dir(), "next_index", files.Next(), "format", enc.Ext())
		sinks = append(sinks, files)
	}
	if cfg.Clipboard {
		clip, err := sink.NewClipboard()
		if err != nil {
			return err
		}
		sinks = append(sinks, clip)
	}
	var win *display.Window
	if cfg.Display {
		win = display.NewWindow("framegrab - " + cfg.Source.String())
		sinks = append(sinks, sink.NewDisplay(win))
	}
	if cfg.Stream {
		stream := sink.NewStream(encoder.NewJPEGEncoder(cfg.Quality))
		pub, err := startPublishing(cfg, stream, logger)
		if err != nil {
			return err
		}
		defer pub.Close()
		sinks = append(sinks, stream)
	}

	lp, err := loop.New(loop.Options{Grabber: grabber, Logger: logger})
	if err != nil {
		return err
	}
	sess, err := lp.Start(ctx, loop.Config{
		Source:            cfg.Source,
		Period:            cfg.Period,
		Sinks:             sinks,
		Hook:              annotate.NewLabel(),
		AnnotationEnabled: cfg.Annotate,
		MaxFrames:         cfg.MaxFrames,
	})
	if err != nil {
		return fmt.Errorf("start capture: %w", err)
	}

	var g errgroup.Group
	g.Go(func() error {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
		case <-sess.Done():
		}
		lp.Stop()
		if win != nil {
			win.Close()
		}
		return sess.Err()
	})

	// Ebitengine must own the main goroutine.
	if win != nil {
		if err := win.Run(); err != nil {
			logger.Error("display window failed", "error", err)
		}
		lp.Stop()
	}

	err = g.Wait()
	stats := sess.Stats()
	logger.Info("capture finished",
		"session", sess.ID(),
		"ticks", stats.Ticks,
		"frames", stats.Frames,
		"failures", stats.Failures,
		"sink_errors", stats.SinkErrors,
	)
	return err
}

func listWindows(w io.Writer, dir *window.Directory) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "HANDLE\tTITLE")
	for _, rec := range dir.Enumerate() {
		fmt.Fprintf(tw, "%s\t%s\n", rec.Handle, rec.Title)
	}
	return tw.Flush()
}
