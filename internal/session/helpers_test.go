package session

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/lexiqai/media-transcriber/internal/media"
	"github.com/lexiqai/media-transcriber/internal/resilience"
	"github.com/lexiqai/media-transcriber/internal/stt"
)

type fakeRecognizer struct {
	events chan stt.Event

	mu       sync.Mutex
	starts   int
	stops    int
	startErr error
	stopErr  error
	audio    int
}

func newFakeRecognizer() *fakeRecognizer {
	// unbuffered, so a completed send means the loop has taken the event
	return &fakeRecognizer{events: make(chan stt.Event)}
}

func (f *fakeRecognizer) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	return f.startErr
}

func (f *fakeRecognizer) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	return f.stopErr
}

func (f *fakeRecognizer) SendAudio(pcm []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.audio += len(pcm)
	return nil
}

func (f *fakeRecognizer) Events() <-chan stt.Event { return f.events }
func (f *fakeRecognizer) Close() error             { return nil }

func (f *fakeRecognizer) setStartErr(err error) {
	f.mu.Lock()
	f.startErr = err
	f.mu.Unlock()
}

func (f *fakeRecognizer) setStopErr(err error) {
	f.mu.Lock()
	f.stopErr = err
	f.mu.Unlock()
}

func (f *fakeRecognizer) startCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts
}

type fakeChecker struct {
	online atomic.Bool
	calls  atomic.Int32
}

func newFakeChecker() *fakeChecker {
	c := &fakeChecker{}
	c.online.Store(true)
	return c
}

func (f *fakeChecker) Check(ctx context.Context) bool {
	f.calls.Add(1)
	return f.online.Load()
}

type fakeObserver struct {
	mu            sync.Mutex
	states        []State
	notifications []Notification
}

func (o *fakeObserver) PublishState(st State) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.states = append(o.states, st)
}

func (o *fakeObserver) Notify(n Notification) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.notifications = append(o.notifications, n)
}

func (o *fakeObserver) messages() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]string, len(o.notifications))
	for i, n := range o.notifications {
		out[i] = n.Message
	}
	return out
}

func (o *fakeObserver) has(message string) bool {
	for _, m := range o.messages() {
		if m == message {
			return true
		}
	}
	return false
}

func (o *fakeObserver) progressSeen() []int {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []int
	for _, st := range o.states {
		if len(out) == 0 || out[len(out)-1] != st.Progress {
			out = append(out, st.Progress)
		}
	}
	return out
}

type fakeTimer struct {
	delay   time.Duration
	fn      func()
	stopped atomic.Bool
}

func (f *fakeTimer) Stop() bool {
	return !f.stopped.Swap(true)
}

type fakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (s *fakeScheduler) after(d time.Duration, fn func()) resilience.Stopper {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{delay: d, fn: fn}
	s.timers = append(s.timers, t)
	return t
}

func (s *fakeScheduler) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

func (s *fakeScheduler) timer(i int) *fakeTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timers[i]
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fakeSource struct {
	name    string
	end     chan struct{}
	rewinds atomic.Int32
	closed  atomic.Bool
	ended   atomic.Bool
}

func newFakeSource(name string) *fakeSource {
	return &fakeSource{name: name, end: make(chan struct{})}
}

func (s *fakeSource) Name() string { return s.name }

func (s *fakeSource) Play(ctx context.Context, sink media.Sink) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.end:
		return nil
	}
}

func (s *fakeSource) Rewind() { s.rewinds.Add(1) }

// Ready mimics a live capture that stops being playable once ended
func (s *fakeSource) Ready() bool { return !s.ended.Load() }

func (s *fakeSource) Close() error {
	s.closed.Store(true)
	return nil
}

type harness struct {
	t       *testing.T
	ctx     context.Context
	c       *Controller
	rec     *fakeRecognizer
	checker *fakeChecker
	obs     *fakeObserver
	sched   *fakeScheduler
	clock   *fakeClock
	source  *fakeSource
}

type harnessOption func(*Options)

func withoutRecognizer() harnessOption {
	return func(o *Options) { o.Recognizer = nil }
}

func withLoad(load LoadFunc) harnessOption {
	return func(o *Options) { o.Load = load }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	h := &harness{
		t:       t,
		rec:     newFakeRecognizer(),
		checker: newFakeChecker(),
		obs:     &fakeObserver{},
		sched:   &fakeScheduler{},
		clock:   &fakeClock{t: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)},
	}

	o := Options{
		Recognizer: h.rec,
		Checker:    h.checker,
		Observer:   h.obs,
		MaxErrors:  5,
		Restart:    resilience.DefaultRestartConfig(),
		Now:        h.clock.now,
		AfterFunc:  h.sched.after,
		Logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	h.c = New(o)

	ctx, cancel := context.WithCancel(context.Background())
	h.ctx = context.Background()
	done := make(chan struct{})
	go func() {
		_ = h.c.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return h
}

func (h *harness) state() State {
	h.t.Helper()
	st, err := h.c.Snapshot(h.ctx)
	if err != nil {
		h.t.Fatalf("Snapshot failed: %v", err)
	}
	return st
}

func (h *harness) emit(ev stt.Event) {
	h.rec.events <- ev
}

func (h *harness) emitError(kind stt.ErrorKind) {
	h.emit(stt.Event{Type: stt.EventError, Err: stt.NewError(kind, "test "+string(kind))})
}

func (h *harness) emitFinal(segments ...string) {
	h.emit(stt.Event{Type: stt.EventResult, Final: segments})
}

func (h *harness) loadSource() {
	h.t.Helper()
	h.source = newFakeSource("clip.mp4")
	if err := h.c.UseSource(h.ctx, h.source); err != nil {
		h.t.Fatalf("UseSource failed: %v", err)
	}
}

func (h *harness) start() {
	h.t.Helper()
	if h.source == nil {
		h.loadSource()
	}
	if err := h.c.Start(h.ctx); err != nil {
		h.t.Fatalf("Start failed: %v", err)
	}
}

// fire runs the i-th scheduled restart callback and waits for the loop to process it
func (h *harness) fire(i int) {
	h.t.Helper()
	h.sched.timer(i).fn()
	h.state()
}

func (h *harness) eventually(cond func(State) bool) State {
	h.t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		st := h.state()
		if cond(st) {
			return st
		}
		if time.Now().After(deadline) {
			h.t.Fatalf("condition not met, last state %+v", st)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
