package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/junsooki/framegrab/internal/config"
	"github.com/junsooki/framegrab/internal/decoder"
	"github.com/junsooki/framegrab/internal/display"
	"github.com/junsooki/framegrab/internal/logging"
	"github.com/junsooki/framegrab/internal/peer"
	"github.com/junsooki/framegrab/internal/signaling"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "viewer: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.ParseViewer(args, os.Stderr)
	if err != nil {
		return err
	}
	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	logger.Info("viewer starting", "id", cfg.ViewerID, "signaling", cfg.SignalingURL, "publisher", cfg.PublisherID)

	dec := decoder.NewImageDecoder()
	win := display.NewWindow("framegrab viewer - " + cfg.PublisherID)

	var (
		mu     sync.Mutex
		viewer *peer.Viewer
	)
	current := func() *peer.Viewer {
		mu.Lock()
		defer mu.Unlock()
		return viewer
	}

	var sig *signaling.Client
	sig = signaling.NewClient(cfg.SignalingURL, cfg.ViewerID, signaling.ClientTypeViewer, signaling.Handler{
		OnRegistered: func() {
			logger.Info("registered with signaling server")
			v, err := peer.NewViewer(sig, cfg.PublisherID, logger)
			if err != nil {
				logger.Error("create viewer peer", "error", err)
				win.Close()
				return
			}
			v.Transport().OnFrame(func(data []byte) {
				img, err := dec.Decode(data)
				if err != nil {
					logger.Debug("decode frame", "error", err)
					return
				}
				win.Show(img)
			})
			mu.Lock()
			viewer = v
			mu.Unlock()
			if err := v.Connect(); err != nil {
				logger.Error("send offer", "error", err)
			}
		},
		OnAnswer: func(from string, payload json.RawMessage) {
			if v := current(); v != nil {
				if err := v.HandleAnswer(payload); err != nil {
					logger.Error("handle answer", "error", err)
				}
			}
		},
		OnICECandidate: func(from string, payload json.RawMessage) {
			if v := current(); v != nil {
				if err := v.HandleICECandidate(payload); err != nil {
					logger.Warn("handle ICE candidate", "error", err)
				}
			}
		},
		OnPublishersUpdated: func(list []signaling.PublisherInfo) {
			for _, p := range list {
				if p.ID == cfg.PublisherID && !p.Online {
					logger.Warn("publisher offline", "publisher", p.ID)
				}
			}
		},
		OnPeerDisconnected: func(id string) {
			if id == cfg.PublisherID {
				logger.Info("publisher disconnected")
				win.Close()
			}
		},
		OnError: func(msg string) {
			logger.Warn("signaling error", "message", msg)
		},
	}, logger)

	if err := sig.Connect(); err != nil {
		return err
	}
	defer sig.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		select {
		case <-ctx.Done():
		case <-sig.Done():
		}
		win.Close()
	}()

	// Ebitengine must own the main goroutine.
	err = win.Run()
	if v := current(); v != nil {
		v.Close()
	}
	return err
}
