package peer

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/junsooki/framegrab/internal/transport"
)

// Publisher answers a viewer's offer and streams frames to it.
type Publisher struct {
	pc        *webrtc.PeerConnection
	sig       Signaler
	transport *transport.DataChannelTransport
	logger    *slog.Logger

	mu     sync.Mutex
	viewer string
}

// NewPublisher creates the peer connection and its frames channel.
func NewPublisher(sig Signaler, logger *slog.Logger) (*Publisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "publisher")
	pc, err := NewPeerConnection(logger)
	if err != nil {
		return nil, err
	}

	// Frames are latest-wins: a lost chunk abandons its frame rather than
	// stalling newer ones behind retransmits.
	ordered := false
	maxRetransmits := uint16(0)
	dc, err := pc.CreateDataChannel(FramesLabel, &webrtc.DataChannelInit{
		Ordered:        &ordered,
		MaxRetransmits: &maxRetransmits,
	})
	if err != nil {
		pc.Close()
		return nil, err
	}
	dc.OnOpen(func() { logger.Info("frames data channel open") })

	p := &Publisher{
		pc:        pc,
		sig:       sig,
		transport: transport.NewDataChannelTransport(dc),
		logger:    logger,
	}
	trickle(pc, sig, p.viewerID, logger)
	return p, nil
}

func (p *Publisher) viewerID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.viewer
}

// Transport returns the frame sender for this viewer.
func (p *Publisher) Transport() *transport.DataChannelTransport {
	return p.transport
}

// OnClosed calls fn once the connection fails or closes.
func (p *Publisher) OnClosed(fn func()) {
	var once sync.Once
	p.pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		p.logger.Info("peer connection state", "state", state.String())
		switch state {
		case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateClosed:
			once.Do(fn)
		}
	})
}

// HandleOffer processes an incoming offer from a viewer.
func (p *Publisher) HandleOffer(from string, payload json.RawMessage) error {
	p.mu.Lock()
	p.viewer = from
	p.mu.Unlock()

	var offer webrtc.SessionDescription
	if err := json.Unmarshal(payload, &offer); err != nil {
		return err
	}
	if err := p.pc.SetRemoteDescription(offer); err != nil {
		return err
	}
	answer, err := p.pc.CreateAnswer(nil)
	if err != nil {
		return err
	}
	if err := p.pc.SetLocalDescription(answer); err != nil {
		return err
	}
	answerJSON, err := json.Marshal(answer)
	if err != nil {
		return err
	}
	return p.sig.SendAnswer(from, answerJSON)
}

// HandleICECandidate adds a remote ICE candidate.
func (p *Publisher) HandleICECandidate(payload json.RawMessage) error {
	return addCandidate(p.pc, payload)
}

// Close shuts down the peer connection.
func (p *Publisher) Close() {
	if p.pc != nil {
		p.pc.Close()
	}
}
