package transport

import (
	"encoding/binary"
	"fmt"
)

// ChunkSize is the largest payload per data channel message. 16 KiB is
// the size every WebRTC stack accepts without fragmentation issues.
const ChunkSize = 16 * 1024

const headerSize = 8

// Split cuts one frame into messages of at most ChunkSize+8 bytes. Each
// message starts with the frame seq (uint32), the chunk index and the
// chunk count (uint16 each), big-endian.
func Split(seq uint32, frame []byte) ([][]byte, error) {
	count := (len(frame) + ChunkSize - 1) / ChunkSize
	if count == 0 {
		count = 1
	}
	if count > 0xffff {
		return nil, fmt.Errorf("frame of %d bytes needs %d chunks", len(frame), count)
	}
	out := make([][]byte, 0, count)
	for i := 0; i < count; i++ {
		start := i * ChunkSize
		end := min(start+ChunkSize, len(frame))
		msg := make([]byte, headerSize+end-start)
		binary.BigEndian.PutUint32(msg[0:4], seq)
		binary.BigEndian.PutUint16(msg[4:6], uint16(i))
		binary.BigEndian.PutUint16(msg[6:8], uint16(count))
		copy(msg[headerSize:], frame[start:end])
		out = append(out, msg)
	}
	return out, nil
}

// Assembler rebuilds frames from chunks arriving over an unordered,
// lossy channel. Only the newest frame is assembled; a chunk for a newer
// frame abandons the one in progress and chunks of older frames are
// ignored.
type Assembler struct {
	seq      uint32
	started  bool
	parts    [][]byte
	received int
}

// Add consumes one message and returns the completed frame, if any.
func (a *Assembler) Add(msg []byte) ([]byte, bool) {
	if len(msg) < headerSize {
		return nil, false
	}
	seq := binary.BigEndian.Uint32(msg[0:4])
	idx := int(binary.BigEndian.Uint16(msg[4:6]))
	count := int(binary.BigEndian.Uint16(msg[6:8]))
	if count == 0 || idx >= count {
		return nil, false
	}

	switch {
	case !a.started || seq > a.seq:
		a.seq = seq
		a.started = true
		a.parts = make([][]byte, count)
		a.received = 0
	case seq < a.seq:
		return nil, false
	}
	if len(a.parts) != count || a.parts == nil {
		return nil, false
	}
	if a.parts[idx] != nil {
		return nil, false
	}
	a.parts[idx] = append([]byte(nil), msg[headerSize:]...)
	a.received++
	if a.received < count {
		return nil, false
	}

	size := 0
	for _, p := range a.parts {
		size += len(p)
	}
	frame := make([]byte, 0, size)
	for _, p := range a.parts {
		frame = append(frame, p...)
	}
	// Completed; drop anything still in flight for this seq.
	a.parts = nil
	return frame, true
}
