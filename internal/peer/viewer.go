package peer

import (
	"encoding/json"
	"log/slog"

	"github.com/pion/webrtc/v4"

	"github.com/junsooki/framegrab/internal/transport"
)

// Viewer offers a connection to a publisher and receives its frames.
type Viewer struct {
	pc          *webrtc.PeerConnection
	sig         Signaler
	transport   *transport.DataChannelTransport
	publisherID string
}

// NewViewer creates a Viewer for the given publisher.
func NewViewer(sig Signaler, publisherID string, logger *slog.Logger) (*Viewer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "viewer", "publisher", publisherID)
	pc, err := NewPeerConnection(logger)
	if err != nil {
		return nil, err
	}

	v := &Viewer{
		pc:          pc,
		sig:         sig,
		transport:   transport.NewDataChannelTransport(nil),
		publisherID: publisherID,
	}

	// The publisher creates the frames channel; accept it here.
	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		logger.Info("data channel received", "label", dc.Label())
		if dc.Label() != FramesLabel {
			return
		}
		dc.OnOpen(func() { logger.Info("frames data channel open") })
		v.transport.SetFramesChannel(dc)
	})
	trickle(pc, sig, func() string { return publisherID }, logger)

	// The offer needs an application section for SCTP to be negotiated at
	// all; the publisher's frames channel rides on it.
	if _, err := pc.CreateDataChannel("control", nil); err != nil {
		pc.Close()
		return nil, err
	}
	return v, nil
}

// Transport returns the frame receiver.
func (v *Viewer) Transport() *transport.DataChannelTransport {
	return v.transport
}

// Connect creates and sends the offer.
func (v *Viewer) Connect() error {
	offer, err := v.pc.CreateOffer(nil)
	if err != nil {
		return err
	}
	if err := v.pc.SetLocalDescription(offer); err != nil {
		return err
	}
	offerJSON, err := json.Marshal(offer)
	if err != nil {
		return err
	}
	return v.sig.SendOffer(v.publisherID, offerJSON)
}

// HandleAnswer processes an incoming SDP answer.
func (v *Viewer) HandleAnswer(payload json.RawMessage) error {
	var answer webrtc.SessionDescription
	if err := json.Unmarshal(payload, &answer); err != nil {
		return err
	}
	return v.pc.SetRemoteDescription(answer)
}

// HandleICECandidate adds a remote ICE candidate.
func (v *Viewer) HandleICECandidate(payload json.RawMessage) error {
	return addCandidate(v.pc, payload)
}

// Close shuts down the peer connection.
func (v *Viewer) Close() {
	if v.pc != nil {
		v.pc.Close()
	}
}
