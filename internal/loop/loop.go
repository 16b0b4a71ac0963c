// Package loop drives a Grabber at a fixed period and routes the frames it
// produces to sinks. One Loop runs at most one session at a time.
package loop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/junsooki/framegrab/internal/annotate"
	"github.com/junsooki/framegrab/internal/capture"
	"github.com/junsooki/framegrab/internal/sink"
)

const (
	// DefaultNotFoundLimit is the number of consecutive SourceNotFound ticks
	// after which a window session ends itself.
	DefaultNotFoundLimit = 3
	// DefaultDrainTimeout bounds the wait for an abandoned native call when
	// a session finishes.
	DefaultDrainTimeout = 2 * time.Second
)

var (
	ErrSessionAlreadyActive = errors.New("capture session already active")
	ErrSessionEnded         = errors.New("capture session ended")
	ErrInvalidPeriod        = errors.New("period must be positive")
	ErrNoSinks              = errors.New("at least one sink is required")
	ErrNotRunning           = errors.New("no capture session running")
)

// State is the lifecycle state of a Loop.
type State int

const (
	Idle State = iota
	Running
	Stopping
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Grabber is the capture backend the loop drives.
type Grabber interface {
	Resolve(src capture.Source) (capture.Resolved, error)
	Refresh(r capture.Resolved) (capture.Resolved, error)
	Capture(ctx context.Context, r capture.Resolved) (capture.FrameBuffer, error)
}

// drainer is implemented by grabbers whose timed-out calls keep running in
// the background. The worker drains before the loop reports Idle.
type drainer interface {
	Drain(ctx context.Context) error
}

// Config describes one capture session.
type Config struct {
	Source capture.Source
	Period time.Duration
	// Sinks receive every frame in order.
	Sinks []sink.Sink
	Hook  annotate.Hook
	// AnnotationEnabled is the initial hook toggle.
	AnnotationEnabled bool
	// MaxFrames stops the session after that many deliveries. Zero means
	// unbounded.
	MaxFrames int
}

// Options configure a Loop.
type Options struct {
	Grabber       Grabber
	Logger        *slog.Logger
	Clock         func() time.Time
	Sleeper       func(context.Context, time.Duration) error
	NotFoundLimit int
	DrainTimeout  time.Duration
	// OnSessionEnded is called once for every session that ends itself
	// with ErrSessionEnded. It is not called after Stop.
	OnSessionEnded func(*Session)
}

// Loop owns the capture session lifecycle.
type Loop struct {
	grabber       Grabber
	logger        *slog.Logger
	clock         func() time.Time
	sleeper       func(context.Context, time.Duration) error
	notFoundLimit int
	drainTimeout  time.Duration
	onEnded       func(*Session)

	annotate atomic.Bool

	mu    sync.Mutex
	state State
	sess  *Session
	// starting is set while Start resolves its source outside mu.
	starting bool
}

// New validates opts and returns an idle Loop.
func New(opts Options) (*Loop, error) {
	if opts.Grabber == nil {
		return nil, errors.New("loop: grabber is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	sleeper := opts.Sleeper
	if sleeper == nil {
		sleeper = defaultSleeper
	}
	limit := opts.NotFoundLimit
	if limit <= 0 {
		limit = DefaultNotFoundLimit
	}
	drain := opts.DrainTimeout
	if drain <= 0 {
		drain = DefaultDrainTimeout
	}
	return &Loop{
		grabber:       opts.Grabber,
		logger:        logger,
		clock:         clock,
		sleeper:       sleeper,
		notFoundLimit: limit,
		drainTimeout:  drain,
		onEnded:       opts.OnSessionEnded,
	}, nil
}

// Start resolves cfg.Source and begins ticking on a background worker.
// The first tick runs immediately. Resolution errors are returned as is and
// leave the loop idle. Cancelling ctx stops the session like Stop.
func (l *Loop) Start(ctx context.Context, cfg Config) (*Session, error) {
	if cfg.Period <= 0 {
		return nil, ErrInvalidPeriod
	}
	if len(cfg.Sinks) == 0 {
		return nil, ErrNoSinks
	}
	if ctx == nil {
		ctx = context.Background()
	}

	l.mu.Lock()
	if l.state != Idle || l.starting {
		l.mu.Unlock()
		return nil, ErrSessionAlreadyActive
	}
	l.starting = true
	l.mu.Unlock()

	// Resolve may enumerate windows; State and Stop must not wait on it.
	resolved, err := l.grabber.Resolve(cfg.Source)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.starting = false
	if err != nil {
		return nil, err
	}

	sctx, cancel := context.WithCancel(ctx)
	s := &Session{
		id:       uuid.NewString(),
		source:   cfg.Source,
		resolved: resolved,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	s.period.Store(int64(cfg.Period))
	l.annotate.Store(cfg.AnnotationEnabled)
	l.state = Running
	l.sess = s

	l.logger.Info("capture session started",
		"session", s.id,
		"source", cfg.Source.String(),
		"width", resolved.Width,
		"height", resolved.Height,
		"period", cfg.Period,
		"sinks", len(cfg.Sinks),
	)
	go l.run(sctx, s, cfg)
	return s, nil
}

// Stop cancels the running session and waits until its worker has
// returned, including the bounded drain of an abandoned capture call. It
// is a no-op when the loop is idle.
func (l *Loop) Stop() {
	l.mu.Lock()
	s := l.sess
	if s == nil {
		l.mu.Unlock()
		return
	}
	if l.state == Running {
		l.state = Stopping
	}
	l.mu.Unlock()

	s.cancel()
	<-s.done
}

// SetPeriod changes the tick period of the running session. The wait that
// is already in progress is not shortened or extended.
func (l *Loop) SetPeriod(d time.Duration) error {
	if d <= 0 {
		return ErrInvalidPeriod
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sess == nil || l.state != Running {
		return ErrNotRunning
	}
	l.sess.period.Store(int64(d))
	return nil
}

// SetAnnotationEnabled toggles the annotation hook from the next tick on.
func (l *Loop) SetAnnotationEnabled(enabled bool) {
	l.annotate.Store(enabled)
}

// AnnotationEnabled reports the current hook toggle.
func (l *Loop) AnnotationEnabled() bool {
	return l.annotate.Load()
}

func (l *Loop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Session returns the active session, or nil when idle.
func (l *Loop) Session() *Session {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sess
}

func (l *Loop) run(ctx context.Context, s *Session, cfg Config) {
	var endErr error
	defer func() { l.finish(s, endErr) }()

	notFound := 0
	for {
		if ctx.Err() != nil {
			return
		}
		started := l.clock()

		err := l.tick(s, cfg)
		switch {
		case err == nil:
			notFound = 0
		case errors.Is(err, capture.ErrSourceNotFound) && s.source.IsWindow():
			notFound++
		default:
			notFound = 0
		}
		if err != nil {
			s.failures.Add(1)
			l.logger.Warn("capture tick failed",
				"session", s.id,
				"error", err,
				"consecutive_not_found", notFound,
			)
			if notFound >= l.notFoundLimit {
				endErr = fmt.Errorf("%w: %s not found on %d consecutive ticks", ErrSessionEnded, s.source, notFound)
				return
			}
			if notFound == 0 {
				l.refresh(s)
			}
		}
		if cfg.MaxFrames > 0 && s.frames.Load() >= int64(cfg.MaxFrames) {
			return
		}

		wait := s.Period() - l.clock().Sub(started)
		if wait > 0 {
			if err := l.sleeper(ctx, wait); err != nil {
				return
			}
		}
	}
}

// tick captures, annotates and delivers one frame. Capture runs without the
// session context so a stop lets the in-flight tick complete.
func (l *Loop) tick(s *Session, cfg Config) error {
	seq := uint64(s.ticks.Add(1))
	frame, err := l.grabber.Capture(context.Background(), s.Resolved())
	if err != nil {
		return err
	}
	frame.Seq = seq

	if cfg.Hook != nil && l.annotate.Load() {
		frame, err = cfg.Hook.Annotate(frame)
		if err != nil {
			return fmt.Errorf("annotate frame %d: %w", seq, err)
		}
		if !frame.Valid() {
			return fmt.Errorf("annotate frame %d: hook returned a malformed frame", seq)
		}
	}

	last := len(cfg.Sinks) - 1
	for i, sk := range cfg.Sinks {
		f := frame
		if i < last {
			f = frame.Clone()
		}
		if err := sk.Deliver(f); err != nil {
			s.sinkErrors.Add(1)
			l.logger.Warn("sink delivery failed",
				"session", s.id,
				"sink", i,
				"seq", seq,
				"error", err,
			)
		}
	}
	s.frames.Add(1)
	l.logger.Debug("frame delivered", "session", s.id, "seq", seq)
	return nil
}

// refresh re-reads window geometry after a transient failure, which may
// have been a resize.
func (l *Loop) refresh(s *Session) {
	cur := s.Resolved()
	if !cur.IsWindow() {
		return
	}
	next, err := l.grabber.Refresh(cur)
	if err != nil {
		l.logger.Debug("refresh window geometry", "session", s.id, "error", err)
		return
	}
	if next.Width != cur.Width || next.Height != cur.Height || next.Origin != cur.Origin {
		l.logger.Info("window geometry changed",
			"session", s.id,
			"width", next.Width,
			"height", next.Height,
		)
	}
	s.setResolved(next)
}

func (l *Loop) finish(s *Session, err error) {
	l.drain(s)
	s.err = err
	l.mu.Lock()
	if l.sess == s {
		l.sess = nil
		l.state = Idle
	}
	l.mu.Unlock()
	close(s.done)

	stats := s.Stats()
	if err != nil {
		l.logger.Info("capture session ended",
			"session", s.id,
			"error", err,
			"frames", stats.Frames,
			"failures", stats.Failures,
		)
		if l.onEnded != nil {
			l.onEnded(s)
		}
		return
	}
	l.logger.Info("capture session stopped",
		"session", s.id,
		"frames", stats.Frames,
		"failures", stats.Failures,
	)
}

// drain waits for a capture call abandoned by a timeout, so its native
// resources are released before the loop reports Idle.
func (l *Loop) drain(s *Session) {
	d, ok := l.grabber.(drainer)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), l.drainTimeout)
	defer cancel()
	if err := d.Drain(ctx); err != nil {
		l.logger.Warn("abandoned capture call still running",
			"session", s.id,
			"error", err,
		)
	}
}

func defaultSleeper(ctx context.Context, wait time.Duration) error {
	if wait <= 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
