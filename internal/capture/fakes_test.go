package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"plate_reader/internal/domain"
)

// ============================================
// Clock
// ============================================

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward and runs due timers on the calling goroutine.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()
	for _, t := range due {
		t.f()
	}
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// ============================================
// Frames
// ============================================

type fakeFrame struct {
	id     int64
	closed atomic.Bool
}

func (f *fakeFrame) Encode(opts EncodeOptions) ([]byte, error) {
	if f.closed.Load() {
		return nil, errors.New("frame already closed")
	}
	return []byte(fmt.Sprintf("frame-%d-q%d-w%d-o%d", f.id, opts.Quality, opts.MaxWidth, len(opts.Overlay))), nil
}

func (f *fakeFrame) Close() error {
	f.closed.Store(true)
	return nil
}

type fakeStream struct {
	next     atomic.Int64
	failing  atomic.Bool
	released atomic.Bool
}

func (s *fakeStream) NextFrame() (Frame, error) {
	time.Sleep(2 * time.Millisecond)
	if s.failing.Load() {
		return nil, errors.New("camera read failed")
	}
	return &fakeFrame{id: s.next.Add(1)}, nil
}

func (s *fakeStream) Release() error {
	s.released.Store(true)
	return nil
}

type fakeSource struct {
	mu       sync.Mutex
	err      error
	streams  []*fakeStream
	failing  bool
	acquired []string
}

func (s *fakeSource) Acquire(_ context.Context, device string, res domain.Resolution) (FrameStream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.acquired = append(s.acquired, device+"@"+res.String())
	if s.err != nil {
		return nil, s.err
	}
	st := &fakeStream{}
	st.failing.Store(s.failing)
	s.streams = append(s.streams, st)
	return st, nil
}

func (s *fakeSource) lastStream() *fakeStream {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.streams) == 0 {
		return nil
	}
	return s.streams[len(s.streams)-1]
}

// ============================================
// Detection client
// ============================================

type reply struct {
	resp *domain.DetectionResponse
	err  error
}

// fakeClient blocks every call until the test sends a reply. With ignoreCtx set it
// never gives up on its own, like a backend that never resolves.
type fakeClient struct {
	mu        sync.Mutex
	requests  []domain.DetectionRequest
	replies   chan reply
	called    chan struct{}
	ignoreCtx bool
	closed    chan struct{}
}

func newFakeClient(t *testing.T) *fakeClient {
	c := &fakeClient{
		replies: make(chan reply, 8),
		called:  make(chan struct{}, 64),
		closed:  make(chan struct{}),
	}
	t.Cleanup(func() { close(c.closed) })
	return c
}

func (c *fakeClient) Detect(ctx context.Context, req domain.DetectionRequest) (*domain.DetectionResponse, error) {
	c.mu.Lock()
	c.requests = append(c.requests, req)
	c.mu.Unlock()
	c.called <- struct{}{}

	done := ctx.Done()
	if c.ignoreCtx {
		done = nil
	}
	select {
	case r := <-c.replies:
		return r.resp, r.err
	case <-done:
		return nil, ctx.Err()
	case <-c.closed:
		return nil, errors.New("test finished")
	}
}

func (c *fakeClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}

func (c *fakeClient) waitCalled(t *testing.T) {
	t.Helper()
	select {
	case <-c.called:
	case <-time.After(2 * time.Second):
		t.Fatal("detection client was not called")
	}
}

// ============================================
// Notifier
// ============================================

type recordingNotifier struct {
	mu     sync.Mutex
	events []domain.CaptureNotification
}

func (n *recordingNotifier) Notify(ev domain.CaptureNotification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func (n *recordingNotifier) count(typ domain.CaptureEventType, msg string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	total := 0
	for _, ev := range n.events {
		if ev.Type == typ && (msg == "" || ev.Message == msg) {
			total++
		}
	}
	return total
}

// ============================================
// Helpers
// ============================================

type harness struct {
	ctrl     *Controller
	clock    *fakeClock
	source   *fakeSource
	client   *fakeClient
	notifier *recordingNotifier
}

func newHarness(t *testing.T, mode domain.DetectionMode) *harness {
	t.Helper()
	h := &harness{
		clock:    newFakeClock(),
		source:   &fakeSource{},
		client:   newFakeClient(t),
		notifier: &recordingNotifier{},
	}
	opts := DefaultOptions()
	opts.Clock = h.clock
	opts.Notifier = h.notifier
	opts.FrameRetryDelay = time.Millisecond
	opts.StopWaitTimeout = 500 * time.Millisecond
	h.ctrl = NewController(h.source, h.client, domain.DefaultCaptureSettings(), opts)
	h.ctrl.SetMode(mode)
	t.Cleanup(h.ctrl.Stop)
	return h
}

func (h *harness) start(t *testing.T) {
	t.Helper()
	if err := h.ctrl.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitFor(t, "first frame", func() bool {
		_, err := h.ctrl.encodeCurrent(EncodeOptions{})
		return err == nil
	})
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func readReport(t *testing.T, ch <-chan domain.DetectionReport) domain.DetectionReport {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("no detection report delivered")
	}
	return domain.DetectionReport{}
}

// gatedSource holds Acquire open until the test releases it, like a slow camera driver.
type gatedSource struct {
	*fakeSource
	entered chan struct{}
	release chan struct{}
}

func newGatedSource(inner *fakeSource) *gatedSource {
	return &gatedSource{fakeSource: inner, entered: make(chan struct{}, 1), release: make(chan struct{})}
}

func (g *gatedSource) Acquire(ctx context.Context, device string, res domain.Resolution) (FrameStream, error) {
	g.entered <- struct{}{}
	<-g.release
	return g.fakeSource.Acquire(ctx, device, res)
}

// scriptedStream delivers exactly the frames the test pushes and blocks in between.
type scriptedStream struct {
	frames   chan Frame
	released atomic.Bool
}

func newScriptedStream() *scriptedStream {
	return &scriptedStream{frames: make(chan Frame, 4)}
}

func (s *scriptedStream) NextFrame() (Frame, error) {
	f, ok := <-s.frames
	if !ok {
		return nil, errors.New("stream closed")
	}
	return f, nil
}

func (s *scriptedStream) Release() error {
	s.released.Store(true)
	return nil
}

type scriptedSource struct {
	mu      sync.Mutex
	streams []*scriptedStream
}

func (s *scriptedSource) Acquire(context.Context, string, domain.Resolution) (FrameStream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.streams) == 0 {
		return nil, errors.New("no stream scripted")
	}
	st := s.streams[0]
	s.streams = s.streams[1:]
	return st, nil
}
