package loop

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/junsooki/framegrab/internal/capture"
)

// Session is one run of the loop, from Start until its worker returns.
type Session struct {
	id     string
	source capture.Source
	period atomic.Int64
	cancel context.CancelFunc
	done   chan struct{}
	// err is written once before done is closed.
	err error

	mu       sync.Mutex
	resolved capture.Resolved

	ticks      atomic.Int64
	frames     atomic.Int64
	failures   atomic.Int64
	sinkErrors atomic.Int64
}

// Stats counts what a session has done so far.
type Stats struct {
	Ticks      int64
	Frames     int64
	Failures   int64
	SinkErrors int64
}

func (s *Session) ID() string { return s.id }

func (s *Session) Source() capture.Source { return s.source }

// Resolved returns the geometry the next tick will capture.
func (s *Session) Resolved() capture.Resolved {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolved
}

func (s *Session) setResolved(r capture.Resolved) {
	s.mu.Lock()
	s.resolved = r
	s.mu.Unlock()
}

func (s *Session) Period() time.Duration {
	return time.Duration(s.period.Load())
}

// Done is closed once the session worker has returned.
func (s *Session) Done() <-chan struct{} { return s.done }

// Err reports why the session finished: nil after Stop, cancellation or the
// frame limit, ErrSessionEnded when the window went away. It is only
// meaningful after Done is closed.
func (s *Session) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

func (s *Session) Stats() Stats {
	return Stats{
		Ticks:      s.ticks.Load(),
		Frames:     s.frames.Load(),
		Failures:   s.failures.Load(),
		SinkErrors: s.sinkErrors.Load(),
	}
}
