package sink

import (
	"errors"
	"fmt"
	"sync"

	"github.com/junsooki/framegrab/internal/capture"
	"github.com/junsooki/framegrab/internal/encoder"
	"github.com/junsooki/framegrab/internal/transport"
)

// Stream publishes encoded frames to the currently attached viewer.
// Frames delivered while no viewer is attached, or before its data
// channel opens, are dropped.
type Stream struct {
	enc encoder.Encoder

	mu     sync.Mutex
	sender transport.FrameSender
}

func NewStream(enc encoder.Encoder) *Stream {
	return &Stream{enc: enc}
}

// Attach routes frames to t, replacing any previous viewer.
func (s *Stream) Attach(t transport.FrameSender) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sender = t
}

// Detach stops publishing if t is still the attached viewer.
func (s *Stream) Detach(t transport.FrameSender) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sender == t {
		s.sender = nil
	}
}

func (s *Stream) Deliver(frame capture.FrameBuffer) error {
	s.mu.Lock()
	t := s.sender
	s.mu.Unlock()
	if t == nil {
		return nil
	}
	data, err := s.enc.Encode(frame)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	if err := t.SendFrame(data); err != nil {
		if errors.Is(err, transport.ErrNotOpen) {
			return nil
		}
		return fmt.Errorf("send frame: %w", err)
	}
	return nil
}
