package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/junsooki/framegrab/internal/config"
	"github.com/junsooki/framegrab/internal/peer"
	"github.com/junsooki/framegrab/internal/signaling"
	"github.com/junsooki/framegrab/internal/sink"
)

// publishing answers viewer offers and points the stream sink at the most
// recent viewer.
type publishing struct {
	stream *sink.Stream
	sig    *signaling.Client
	logger *slog.Logger

	mu  sync.Mutex
	pub *peer.Publisher
}

func startPublishing(cfg *config.Config, stream *sink.Stream, logger *slog.Logger) (*publishing, error) {
	p := &publishing{stream: stream, logger: logger}
	p.sig = signaling.NewClient(cfg.SignalingURL, cfg.PublisherID, signaling.ClientTypePublisher, signaling.Handler{
		OnRegistered: func() {
			logger.Info("registered with signaling server", "id", cfg.PublisherID, "source", cfg.Source.String())
		},
		OnOffer:        p.handleOffer,
		OnICECandidate: p.handleICECandidate,
		OnPeerDisconnected: func(id string) {
			logger.Info("peer left signaling server", "peer", id)
		},
		OnError: func(msg string) {
			logger.Warn("signaling error", "message", msg)
		},
	}, logger)
	if err := p.sig.Connect(); err != nil {
		return nil, fmt.Errorf("signaling connect: %w", err)
	}
	logger.Info("streaming enabled, share this ID with viewers", "id", cfg.PublisherID)
	return p, nil
}

func (p *publishing) handleOffer(from string, payload json.RawMessage) {
	p.logger.Info("received offer", "viewer", from)
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pub != nil {
		p.stream.Detach(p.pub.Transport())
		p.pub.Close()
		p.pub = nil
	}

	pub, err := peer.NewPublisher(p.sig, p.logger)
	if err != nil {
		p.logger.Error("create publisher peer", "error", err)
		return
	}
	pub.OnClosed(func() {
		p.stream.Detach(pub.Transport())
		p.logger.Info("viewer disconnected", "viewer", from)
	})
	if err := pub.HandleOffer(from, payload); err != nil {
		p.logger.Error("handle offer", "viewer", from, "error", err)
		pub.Close()
		return
	}
	p.pub = pub
	p.stream.Attach(pub.Transport())
}

func (p *publishing) handleICECandidate(from string, payload json.RawMessage) {
	p.mu.Lock()
	pub := p.pub
	p.mu.Unlock()
	if pub == nil {
		return
	}
	if err := pub.HandleICECandidate(payload); err != nil {
		p.logger.Warn("handle ICE candidate", "from", from, "error", err)
	}
}

// Close drops the viewer connection and leaves the signaling server.
func (p *publishing) Close() {
	p.mu.Lock()
	if p.pub != nil {
		p.stream.Detach(p.pub.Transport())
		p.pub.Close()
		p.pub = nil
	}
	p.mu.Unlock()
	p.sig.Close()
}
