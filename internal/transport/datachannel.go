package transport

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/pion/webrtc/v4"
)

// DataChannelTransport carries chunked frames over a WebRTC DataChannel.
type DataChannelTransport struct {
	mu       sync.Mutex
	framesDC *webrtc.DataChannel
	onFrame  func(data []byte)
	asm      Assembler
	seq      atomic.Uint32
}

// NewDataChannelTransport wraps the frames channel; dc may be nil and set
// later with SetFramesChannel.
func NewDataChannelTransport(dc *webrtc.DataChannel) *DataChannelTransport {
	t := &DataChannelTransport{}
	if dc != nil {
		t.SetFramesChannel(dc)
	}
	return t
}

// SendFrame splits data into chunks and sends them in order.
func (t *DataChannelTransport) SendFrame(data []byte) error {
	t.mu.Lock()
	dc := t.framesDC
	t.mu.Unlock()
	if dc == nil || dc.ReadyState() != webrtc.DataChannelStateOpen {
		return ErrNotOpen
	}
	chunks, err := Split(t.seq.Add(1), data)
	if err != nil {
		return err
	}
	for i, c := range chunks {
		if err := dc.Send(c); err != nil {
			return fmt.Errorf("send chunk %d/%d: %w", i+1, len(chunks), err)
		}
	}
	return nil
}

// OnFrame registers the callback for reassembled frames.
func (t *DataChannelTransport) OnFrame(cb func(data []byte)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onFrame = cb
}

// SetFramesChannel sets or replaces the frames DataChannel (used when receiving negotiated channels).
func (t *DataChannelTransport) SetFramesChannel(dc *webrtc.DataChannel) {
	t.mu.Lock()
	t.framesDC = dc
	t.mu.Unlock()
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		t.receive(msg.Data)
	})
}

func (t *DataChannelTransport) receive(msg []byte) {
	t.mu.Lock()
	frame, ok := t.asm.Add(msg)
	cb := t.onFrame
	t.mu.Unlock()
	if ok && cb != nil {
		cb(frame)
	}
}
