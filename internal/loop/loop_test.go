package loop

import (
	"context"
	"errors"
	"image"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/junsooki/framegrab/internal/annotate"
	"github.com/junsooki/framegrab/internal/capture"
	"github.com/junsooki/framegrab/internal/encoder"
	"github.com/junsooki/framegrab/internal/sink"
	"github.com/junsooki/framegrab/internal/window"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeGrabber struct {
	mu         sync.Mutex
	resolveErr error
	resolved   capture.Resolved
	// resolving is signalled and resolveBlock awaited by every Resolve.
	resolving    chan struct{}
	resolveBlock chan struct{}
	// results are consumed one per Capture call; after they run out every
	// call succeeds.
	results   []error
	block     chan struct{}
	started   chan struct{}
	calls     int
	refreshes int
}

func newFakeGrabber(src capture.Source) *fakeGrabber {
	return &fakeGrabber{resolved: capture.Resolved{Source: src, Handle: src.Handle(), Width: 4, Height: 2}}
}

func (g *fakeGrabber) Resolve(src capture.Source) (capture.Resolved, error) {
	if g.resolving != nil {
		g.resolving <- struct{}{}
	}
	if g.resolveBlock != nil {
		<-g.resolveBlock
	}
	if g.resolveErr != nil {
		return capture.Resolved{}, g.resolveErr
	}
	return g.resolved, nil
}

func (g *fakeGrabber) Refresh(r capture.Resolved) (capture.Resolved, error) {
	g.mu.Lock()
	g.refreshes++
	g.mu.Unlock()
	return r, nil
}

func (g *fakeGrabber) Capture(_ context.Context, r capture.Resolved) (capture.FrameBuffer, error) {
	g.mu.Lock()
	g.calls++
	var err error
	if len(g.results) > 0 {
		err = g.results[0]
		g.results = g.results[1:]
	}
	block, started := g.block, g.started
	g.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if block != nil {
		<-block
	}
	if err != nil {
		return capture.FrameBuffer{}, err
	}
	return capture.NewFrameBuffer(r.Width, r.Height), nil
}

func (g *fakeGrabber) counts() (calls, refreshes int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls, g.refreshes
}

// drainingGrabber records Drain calls. With hold set, Drain waits for ctx.
type drainingGrabber struct {
	*fakeGrabber
	hold    bool
	drained chan error
}

func (g *drainingGrabber) Drain(ctx context.Context) error {
	var err error
	if g.hold {
		<-ctx.Done()
		err = ctx.Err()
	}
	g.drained <- err
	return err
}

type recordSink struct {
	mu     sync.Mutex
	frames []capture.FrameBuffer
	at     []time.Time
	ch     chan capture.FrameBuffer
}

func newRecordSink() *recordSink {
	return &recordSink{ch: make(chan capture.FrameBuffer, 64)}
}

func (s *recordSink) Deliver(f capture.FrameBuffer) error {
	s.mu.Lock()
	s.frames = append(s.frames, f)
	s.at = append(s.at, time.Now())
	s.mu.Unlock()
	s.ch <- f
	return nil
}

func (s *recordSink) snapshot() ([]capture.FrameBuffer, []time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]capture.FrameBuffer(nil), s.frames...), append([]time.Time(nil), s.at...)
}

func (s *recordSink) next(t *testing.T) capture.FrameBuffer {
	t.Helper()
	select {
	case f := <-s.ch:
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a delivered frame")
		return capture.FrameBuffer{}
	}
}

// stepper is a sleeper released by the test one wait at a time.
type stepper struct {
	step  chan struct{}
	waits chan time.Duration
}

func newStepper() *stepper {
	return &stepper{step: make(chan struct{}), waits: make(chan time.Duration, 64)}
}

func (s *stepper) sleep(ctx context.Context, d time.Duration) error {
	s.waits <- d
	select {
	case <-s.step:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func noSleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }

func waitDone(t *testing.T, s *Session) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("session did not finish")
	}
}

func newLoop(t *testing.T, opts Options) *Loop {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = testLogger()
	}
	l, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(l.Stop)
	return l
}

func TestNewRequiresGrabber(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatal("New without grabber succeeded")
	}
}

func TestStartRejectsBadConfig(t *testing.T) {
	src := capture.ScreenRegion(0, 0, 4, 2)
	g := newFakeGrabber(src)
	l := newLoop(t, Options{Grabber: g})
	rec := newRecordSink()

	if _, err := l.Start(context.Background(), Config{Source: src, Sinks: []sink.Sink{rec}}); !errors.Is(err, ErrInvalidPeriod) {
		t.Fatalf("zero period error = %v", err)
	}
	if _, err := l.Start(context.Background(), Config{Source: src, Period: time.Second}); !errors.Is(err, ErrNoSinks) {
		t.Fatalf("no sinks error = %v", err)
	}

	g.resolveErr = capture.ErrInvalidGeometry
	if _, err := l.Start(context.Background(), Config{Source: src, Period: time.Second, Sinks: []sink.Sink{rec}}); !errors.Is(err, capture.ErrInvalidGeometry) {
		t.Fatalf("resolve error = %v", err)
	}
	if l.State() != Idle || l.Session() != nil {
		t.Fatalf("loop left %s after failed start", l.State())
	}
	if calls, _ := g.counts(); calls != 0 {
		t.Fatalf("captured %d frames after failed start", calls)
	}
}

func TestStartWhileRunningKeepsSession(t *testing.T) {
	src := capture.ScreenRegion(0, 0, 4, 2)
	const period = 40 * time.Millisecond
	l := newLoop(t, Options{Grabber: newFakeGrabber(src)})
	rec := newRecordSink()
	cfg := Config{Source: src, Period: period, Sinks: []sink.Sink{rec}}

	sess, err := l.Start(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	rec.next(t)

	if _, err := l.Start(context.Background(), cfg); !errors.Is(err, ErrSessionAlreadyActive) {
		t.Fatalf("second Start error = %v", err)
	}
	if l.Session() != sess || l.State() != Running {
		t.Fatal("second Start replaced the running session")
	}

	for i := 0; i < 3; i++ {
		rec.next(t)
	}
	l.Stop()

	_, at := rec.snapshot()
	for i := 1; i < len(at); i++ {
		if gap := at[i].Sub(at[i-1]); gap < period/2 {
			t.Fatalf("ticks %d and %d only %s apart", i-1, i, gap)
		}
	}
}

func TestStopIsIdempotent(t *testing.T) {
	src := capture.ScreenRegion(0, 0, 4, 2)
	l := newLoop(t, Options{Grabber: newFakeGrabber(src)})
	l.Stop()

	rec := newRecordSink()
	sess, err := l.Start(context.Background(), Config{Source: src, Period: 10 * time.Millisecond, Sinks: []sink.Sink{rec}})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	rec.next(t)
	l.Stop()
	l.Stop()

	waitDone(t, sess)
	if sess.Err() != nil {
		t.Fatalf("Err after Stop = %v", sess.Err())
	}
	if l.State() != Idle || l.Session() != nil {
		t.Fatalf("state after Stop = %s", l.State())
	}
	if err := l.SetPeriod(time.Second); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("SetPeriod when idle = %v", err)
	}

	// A stopped loop accepts a new session.
	again, err := l.Start(context.Background(), Config{Source: src, Period: 10 * time.Millisecond, Sinks: []sink.Sink{rec}})
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if again.ID() == sess.ID() {
		t.Fatal("restarted session reused the previous id")
	}
}

func TestStopLetsInFlightTickComplete(t *testing.T) {
	src := capture.ScreenRegion(0, 0, 4, 2)
	g := newFakeGrabber(src)
	g.block = make(chan struct{})
	g.started = make(chan struct{}, 1)
	l := newLoop(t, Options{Grabber: g})
	rec := newRecordSink()

	sess, err := l.Start(context.Background(), Config{Source: src, Period: time.Hour, Sinks: []sink.Sink{rec}})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	<-g.started

	stopped := make(chan struct{})
	go func() {
		l.Stop()
		close(stopped)
	}()
	deadline := time.Now().Add(time.Second)
	for l.State() != Stopping && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if l.State() != Stopping {
		t.Fatalf("state during stop = %s", l.State())
	}
	select {
	case <-stopped:
		t.Fatal("Stop returned while a tick was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(g.block)
	<-stopped
	if frames, _ := rec.snapshot(); len(frames) != 1 {
		t.Fatalf("in-flight tick delivered %d frames, want 1", len(frames))
	}
	if stats := sess.Stats(); stats.Ticks != 1 {
		t.Fatalf("ticks after stop = %d, want 1", stats.Ticks)
	}
}

func TestStartResolvesOutsideLock(t *testing.T) {
	src := capture.NamedWindow("Slow")
	g := newFakeGrabber(src)
	g.resolving = make(chan struct{}, 1)
	g.resolveBlock = make(chan struct{})
	l := newLoop(t, Options{Grabber: g})
	rec := newRecordSink()
	cfg := Config{Source: src, Period: time.Hour, Sinks: []sink.Sink{rec}}

	type result struct {
		sess *Session
		err  error
	}
	first := make(chan result, 1)
	go func() {
		sess, err := l.Start(context.Background(), cfg)
		first <- result{sess, err}
	}()
	<-g.resolving

	queried := make(chan State, 1)
	go func() { queried <- l.State() }()
	select {
	case st := <-queried:
		if st != Idle {
			t.Fatalf("state while resolving = %s, want idle", st)
		}
	case <-time.After(time.Second):
		t.Fatal("State blocked while Start was resolving")
	}
	if _, err := l.Start(context.Background(), cfg); !errors.Is(err, ErrSessionAlreadyActive) {
		t.Fatalf("concurrent Start error = %v", err)
	}
	if err := l.SetPeriod(time.Second); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("SetPeriod while resolving = %v", err)
	}

	close(g.resolveBlock)
	res := <-first
	if res.err != nil {
		t.Fatalf("Start: %v", res.err)
	}
	if l.Session() != res.sess || l.State() != Running {
		t.Fatalf("state after resolve = %s", l.State())
	}
	rec.next(t)
}

func TestStopDrainsAbandonedCapture(t *testing.T) {
	src := capture.ScreenRegion(0, 0, 4, 2)
	g := &drainingGrabber{fakeGrabber: newFakeGrabber(src), drained: make(chan error, 1)}
	l := newLoop(t, Options{Grabber: g})
	rec := newRecordSink()

	sess, err := l.Start(context.Background(), Config{Source: src, Period: time.Hour, Sinks: []sink.Sink{rec}})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	rec.next(t)
	l.Stop()

	select {
	case err := <-g.drained:
		if err != nil {
			t.Fatalf("Drain: %v", err)
		}
	default:
		t.Fatal("Stop returned before the grabber was drained")
	}
	waitDone(t, sess)
	if l.State() != Idle {
		t.Fatalf("state after Stop = %s", l.State())
	}
}

func TestStopBoundsDrain(t *testing.T) {
	src := capture.ScreenRegion(0, 0, 4, 2)
	g := &drainingGrabber{fakeGrabber: newFakeGrabber(src), hold: true, drained: make(chan error, 1)}
	const bound = 30 * time.Millisecond
	l := newLoop(t, Options{Grabber: g, DrainTimeout: bound})
	rec := newRecordSink()

	if _, err := l.Start(context.Background(), Config{Source: src, Period: time.Hour, Sinks: []sink.Sink{rec}}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	rec.next(t)

	stopped := make(chan struct{})
	begin := time.Now()
	go func() {
		l.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop waited past the drain timeout")
	}
	if elapsed := time.Since(begin); elapsed < bound {
		t.Fatalf("Stop returned after %s, before the drain timeout", elapsed)
	}
	if err := <-g.drained; !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Drain error = %v", err)
	}
	if l.State() != Idle {
		t.Fatalf("state after Stop = %s", l.State())
	}
}

func TestSessionEndsAfterConsecutiveNotFound(t *testing.T) {
	src := capture.WindowHandle(0x42)
	g := newFakeGrabber(src)
	g.results = []error{capture.ErrSourceNotFound, capture.ErrSourceNotFound, capture.ErrSourceNotFound, capture.ErrSourceNotFound}
	ended := make(chan *Session, 4)
	l := newLoop(t, Options{
		Grabber:        g,
		Sleeper:        noSleep,
		OnSessionEnded: func(s *Session) { ended <- s },
	})

	sess, err := l.Start(context.Background(), Config{Source: src, Period: time.Millisecond, Sinks: []sink.Sink{newRecordSink()}})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitDone(t, sess)

	if !errors.Is(sess.Err(), ErrSessionEnded) {
		t.Fatalf("Err = %v, want ErrSessionEnded", sess.Err())
	}
	select {
	case got := <-ended:
		if got != sess {
			t.Fatal("ended callback got a different session")
		}
	case <-time.After(time.Second):
		t.Fatal("OnSessionEnded not called")
	}
	l.Stop()
	if len(ended) != 0 {
		t.Fatalf("OnSessionEnded called %d extra times", len(ended))
	}
	if l.State() != Idle {
		t.Fatalf("state = %s, want idle", l.State())
	}
	if calls, _ := g.counts(); calls != DefaultNotFoundLimit {
		t.Fatalf("captured %d times, want %d", calls, DefaultNotFoundLimit)
	}
}

func TestNotFoundCountResetsOnSuccess(t *testing.T) {
	src := capture.NamedWindow("Editor")
	g := newFakeGrabber(src)
	nf := capture.ErrSourceNotFound
	g.results = []error{nf, nf, nil, nf, nf, nil}
	var endedCalls int
	l := newLoop(t, Options{
		Grabber:        g,
		Sleeper:        noSleep,
		OnSessionEnded: func(*Session) { endedCalls++ },
	})

	sess, err := l.Start(context.Background(), Config{Source: src, Period: time.Millisecond, Sinks: []sink.Sink{newRecordSink()}, MaxFrames: 2})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitDone(t, sess)
	if sess.Err() != nil {
		t.Fatalf("Err = %v, want nil after frame limit", sess.Err())
	}
	want := Stats{Ticks: 6, Frames: 2, Failures: 4}
	if diff := cmp.Diff(want, sess.Stats()); diff != "" {
		t.Fatalf("stats mismatch (-want +got):\n%s", diff)
	}
	if endedCalls != 0 {
		t.Fatalf("OnSessionEnded called %d times", endedCalls)
	}
}

func TestCaptureFailureDoesNotEndSession(t *testing.T) {
	src := capture.WindowHandle(7)
	g := newFakeGrabber(src)
	transient := &capture.CaptureError{Op: "block transfer", Reason: "occluded"}
	for i := 0; i < 5; i++ {
		g.results = append(g.results, transient)
	}
	l := newLoop(t, Options{Grabber: g, Sleeper: noSleep})
	rec := newRecordSink()

	sess, err := l.Start(context.Background(), Config{Source: src, Period: time.Millisecond, Sinks: []sink.Sink{rec}, MaxFrames: 1})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitDone(t, sess)

	if sess.Err() != nil {
		t.Fatalf("Err = %v", sess.Err())
	}
	stats := sess.Stats()
	if stats.Failures != 5 || stats.Frames != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	if _, refreshes := g.counts(); refreshes != 5 {
		t.Fatalf("geometry refreshed %d times, want 5", refreshes)
	}
	frames, _ := rec.snapshot()
	if len(frames) != 1 || frames[0].Seq != 6 {
		t.Fatalf("delivered %d frames, seq %v", len(frames), frames)
	}
}

func TestAnnotationToggleBetweenTicks(t *testing.T) {
	src := capture.ScreenRegion(0, 0, 4, 2)
	st := newStepper()
	l := newLoop(t, Options{Grabber: newFakeGrabber(src), Sleeper: st.sleep})
	rec := newRecordSink()
	var hooked int
	hook := annotate.HookFunc(func(f capture.FrameBuffer) (capture.FrameBuffer, error) {
		hooked++
		f.Pix[0] = 0xff
		return f, nil
	})

	_, err := l.Start(context.Background(), Config{Source: src, Period: time.Millisecond, Sinks: []sink.Sink{rec}, Hook: hook})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if f := rec.next(t); f.Pix[0] != 0 {
		t.Fatal("hook ran while disabled")
	}

	<-st.waits
	l.SetAnnotationEnabled(true)
	st.step <- struct{}{}
	if f := rec.next(t); f.Pix[0] != 0xff {
		t.Fatal("hook did not run after enabling")
	}

	<-st.waits
	l.SetAnnotationEnabled(false)
	st.step <- struct{}{}
	if f := rec.next(t); f.Pix[0] != 0 {
		t.Fatal("hook ran after disabling")
	}
	<-st.waits
	l.Stop()
	if hooked != 1 {
		t.Fatalf("hook ran %d times, want 1", hooked)
	}
}

func TestHookFailureSkipsDelivery(t *testing.T) {
	src := capture.ScreenRegion(0, 0, 4, 2)
	l := newLoop(t, Options{Grabber: newFakeGrabber(src), Sleeper: noSleep})
	var calls int
	hook := annotate.HookFunc(func(f capture.FrameBuffer) (capture.FrameBuffer, error) {
		calls++
		switch calls {
		case 1:
			return f, errors.New("model not ready")
		case 2:
			return capture.FrameBuffer{Width: 4, Height: 2}, nil
		}
		return f, nil
	})
	rec := newRecordSink()

	sess, err := l.Start(context.Background(), Config{
		Source:            src,
		Period:            time.Millisecond,
		Sinks:             []sink.Sink{rec},
		Hook:              hook,
		AnnotationEnabled: true,
		MaxFrames:         1,
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitDone(t, sess)

	frames, _ := rec.snapshot()
	if len(frames) != 1 || frames[0].Seq != 3 {
		t.Fatalf("delivered %d frames, want only tick 3", len(frames))
	}
	if sess.Stats().Failures != 2 {
		t.Fatalf("failures = %d, want 2", sess.Stats().Failures)
	}
}

func TestSetPeriodAppliesToNextWait(t *testing.T) {
	src := capture.ScreenRegion(0, 0, 4, 2)
	st := newStepper()
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := newLoop(t, Options{
		Grabber: newFakeGrabber(src),
		Sleeper: st.sleep,
		Clock:   func() time.Time { return fixed },
	})

	if err := l.SetPeriod(0); !errors.Is(err, ErrInvalidPeriod) {
		t.Fatalf("SetPeriod(0) = %v", err)
	}
	sess, err := l.Start(context.Background(), Config{Source: src, Period: 100 * time.Millisecond, Sinks: []sink.Sink{newRecordSink()}})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	if got := <-st.waits; got != 100*time.Millisecond {
		t.Fatalf("first wait = %s", got)
	}
	if err := l.SetPeriod(250 * time.Millisecond); err != nil {
		t.Fatalf("SetPeriod: %v", err)
	}
	if sess.Period() != 250*time.Millisecond {
		t.Fatalf("Period() = %s", sess.Period())
	}
	st.step <- struct{}{}
	if got := <-st.waits; got != 250*time.Millisecond {
		t.Fatalf("wait after SetPeriod = %s", got)
	}
}

func TestFailingSinkDoesNotStarveOthers(t *testing.T) {
	src := capture.ScreenRegion(0, 0, 4, 2)
	l := newLoop(t, Options{Grabber: newFakeGrabber(src), Sleeper: noSleep})
	first, last := newRecordSink(), newRecordSink()
	failing := sink.Func(func(capture.FrameBuffer) error { return errors.New("disk full") })

	sess, err := l.Start(context.Background(), Config{
		Source:    src,
		Period:    time.Millisecond,
		Sinks:     []sink.Sink{failing, first, last},
		MaxFrames: 2,
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitDone(t, sess)

	a, _ := first.snapshot()
	b, _ := last.snapshot()
	if len(a) != 2 || len(b) != 2 {
		t.Fatalf("sinks got %d and %d frames, want 2 each", len(a), len(b))
	}
	a[0].Pix[0] = 9
	if b[0].Pix[0] == 9 {
		t.Fatal("sinks share frame storage")
	}
	if sess.Stats().SinkErrors != 2 {
		t.Fatalf("sink errors = %d, want 2", sess.Stats().SinkErrors)
	}
}

func TestParentContextStopsSession(t *testing.T) {
	src := capture.ScreenRegion(0, 0, 4, 2)
	l := newLoop(t, Options{Grabber: newFakeGrabber(src)})
	rec := newRecordSink()
	ctx, cancel := context.WithCancel(context.Background())

	sess, err := l.Start(ctx, Config{Source: src, Period: time.Hour, Sinks: []sink.Sink{rec}})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	rec.next(t)
	cancel()
	waitDone(t, sess)
	if sess.Err() != nil || l.State() != Idle {
		t.Fatalf("after cancel: err=%v state=%s", sess.Err(), l.State())
	}
}

type stillScreen struct{}

func (stillScreen) Displays() []image.Rectangle {
	return []image.Rectangle{image.Rect(0, 0, 1920, 1080)}
}

func (stillScreen) Snapshot(r image.Rectangle) (*image.RGBA, error) {
	return image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy())), nil
}

type noWindows struct{}

func (noWindows) List() ([]window.Info, error) { return nil, nil }
func (noWindows) Alive(window.Handle) bool     { return false }

func (noWindows) ClientRect(window.Handle) (image.Rectangle, error) {
	return image.Rectangle{}, errors.New("no window")
}

func TestScreenRegionToFileSequence(t *testing.T) {
	logger := testLogger()
	g := capture.NewGrabber(capture.Options{
		Directory: window.NewDirectory(noWindows{}, logger),
		Screen:    stillScreen{},
		Logger:    logger,
	})
	src := capture.ScreenRegion(0, 0, 100, 50)

	r, err := g.Resolve(src)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if r.Width != 100 || r.Height != 50 {
		t.Fatalf("resolved %dx%d, want 100x50", r.Width, r.Height)
	}
	f, err := g.Capture(context.Background(), r)
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if f.Width != 100 || f.Height != 50 || len(f.Pix) != 100*50*3 {
		t.Fatalf("frame %dx%d with %d bytes", f.Width, f.Height, len(f.Pix))
	}

	dir := filepath.Join(t.TempDir(), "images")
	files, err := sink.NewFileSequence(dir, encoder.NewJPEGEncoder(90))
	if err != nil {
		t.Fatalf("NewFileSequence: %v", err)
	}
	l := newLoop(t, Options{Grabber: g, Logger: logger})

	began := time.Now()
	sess, err := l.Start(context.Background(), Config{
		Source:    src,
		Period:    100 * time.Millisecond,
		Sinks:     []sink.Sink{files},
		MaxFrames: 5,
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitDone(t, sess)
	elapsed := time.Since(began)

	if elapsed < 400*time.Millisecond {
		t.Fatalf("five frames took %s, want at least 400ms", elapsed)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	var got []string
	for _, e := range entries {
		got = append(got, e.Name())
	}
	sort.Strings(got)
	var want []string
	for i := 0; i < 5; i++ {
		want = append(want, strconv.Itoa(i)+".jpg")
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("files mismatch (-want +got):\n%s", diff)
	}
}
