// Package session owns push-to-talk recording state. It serializes
// start/stop requests from the hotkey goroutine, debounces duplicate
// releases and hands finished recordings to a single-worker dispatcher
// without blocking the caller.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chaz8081/talkkey/internal/audio"
	"github.com/chaz8081/talkkey/internal/telemetry"
	"github.com/chaz8081/talkkey/internal/window"
	"github.com/chaz8081/talkkey/internal/worker"
)

// DefaultDebounce is how long after a stop a release is treated as a
// duplicate from the hook layer.
const DefaultDebounce = 300 * time.Millisecond

// DefaultReleaseWait bounds how long Start waits for the previous
// recording to let go of the capture device.
const DefaultReleaseWait = time.Second

// ErrClosed is returned by Start after Shutdown.
var ErrClosed = errors.New("session: shut down")

// ErrDeviceBusy is returned by Start when the previous recording is still
// tearing the capture device down after the release wait.
var ErrDeviceBusy = errors.New("session: capture device still in use")

// Recorder is the capture backend for one recording at a time.
type Recorder interface {
	Start() error
	Stop() (audio.Clip, error)
	Abort() error
}

// WindowCapturer returns the focused window, or nil.
type WindowCapturer interface {
	Capture() *window.Window
}

// Dispatcher runs submitted tasks one at a time in FIFO order.
type Dispatcher interface {
	Submit(task worker.Task) bool
	Shutdown(ctx context.Context) error
}

// Handler processes one utterance on the dispatcher.
type Handler func(ctx context.Context, u Utterance) error

// Utterance is a finished recording handed to the dispatcher. Window is
// the window focused when recording started, or nil.
type Utterance struct {
	ID        string
	Clip      audio.Clip
	Window    *window.Window
	StoppedAt time.Time
}

// Status is a read-only snapshot of the session.
type Status struct {
	Recording     bool
	UtteranceID   string
	LastReleaseAt time.Time
}

// Options configure a Session. Zero values select defaults.
type Options struct {
	Debounce    time.Duration
	ReleaseWait time.Duration
	Now         func() time.Time
	Metrics     *telemetry.Metrics
	Log         *slog.Logger
}

// cycle is one start/stop round trip. window and startErr are written
// before started is closed and only read after it.
type cycle struct {
	id       string
	window   *window.Window
	started  chan struct{}
	startErr error
	released chan struct{} // closed once the device is no longer in use
}

// Session is the recording state machine. Exactly one exists per process.
type Session struct {
	rec      Recorder
	win      WindowCapturer
	queue    Dispatcher
	handle   Handler
	debounce time.Duration
	waitMax  time.Duration
	now      func() time.Time
	metrics  *telemetry.Metrics
	log      *slog.Logger

	mu            sync.Mutex
	recording     bool
	lastReleaseAt time.Time
	cur           *cycle
	prev          *cycle
	closed        bool

	finalizers sync.WaitGroup
}

// New creates an idle session.
func New(rec Recorder, win WindowCapturer, queue Dispatcher, handle Handler, opts Options) *Session {
	s := &Session{
		rec:      rec,
		win:      win,
		queue:    queue,
		handle:   handle,
		debounce: opts.Debounce,
		waitMax:  opts.ReleaseWait,
		now:      opts.Now,
		metrics:  opts.Metrics,
		log:      opts.Log,
	}
	if s.debounce < 0 {
		s.debounce = 0
	}
	if s.waitMax <= 0 {
		s.waitMax = DefaultReleaseWait
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	return s
}

// Start begins a recording. It returns false without side effects when a
// recording is already active. If the capture device fails to start, the
// session returns to idle and the device error is returned. Start never
// waits longer than the release wait for the previous recording's
// teardown; past that it gives up with ErrDeviceBusy.
func (s *Session) Start() (bool, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false, ErrClosed
	}
	if s.recording {
		s.mu.Unlock()
		return false, nil
	}
	c := &cycle{
		id:       uuid.NewString(),
		started:  make(chan struct{}),
		released: make(chan struct{}),
	}
	s.recording = true
	s.cur = c
	prev := s.prev
	s.mu.Unlock()

	c.window = s.win.Capture()

	var err error
	if prev != nil {
		err = s.awaitRelease(prev)
	}
	if err == nil {
		err = s.rec.Start()
	}
	c.startErr = err
	close(c.started)

	if err != nil {
		close(c.released)
		s.mu.Lock()
		if s.cur == c {
			s.recording = false
			s.cur = nil
		}
		// c never held the device; the next start must still wait on prev.
		if s.prev == c {
			s.prev = prev
		}
		s.mu.Unlock()
		s.log.Error("starting recording", "utterance", c.id, "error", err)
		return false, err
	}

	s.metrics.RecordingStarted(context.Background())
	s.log.Info("recording started", "utterance", c.id, "window", c.window)
	return true, nil
}

// awaitRelease blocks until prev no longer holds the device, or until the
// release wait runs out.
func (s *Session) awaitRelease(prev *cycle) error {
	select {
	case <-prev.released:
		return nil
	default:
	}

	s.log.Debug("waiting for previous recording to release the device", "previous", prev.id)
	start := time.Now()
	timer := time.NewTimer(s.waitMax)
	defer timer.Stop()
	select {
	case <-prev.released:
		s.log.Debug("device released", "previous", prev.id, "waited", time.Since(start))
		return nil
	case <-timer.C:
		s.log.Warn("previous recording is still releasing the device", "previous", prev.id, "waited", s.waitMax)
		return ErrDeviceBusy
	}
}

// Press is the hotkey press handler.
func (s *Session) Press() (bool, error) {
	return s.Start()
}

// Stop ends the active recording and schedules finalization on its own
// goroutine. It returns false if no recording is active.
func (s *Session) Stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopLocked()
}

// Release is the hotkey release handler. While recording it stops. While
// idle, a release within the debounce window of the last one is dropped
// as a duplicate and a later one only refreshes the timer.
func (s *Session) Release() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.recording {
		return s.stopLocked()
	}

	now := s.now()
	if !s.lastReleaseAt.IsZero() && now.Sub(s.lastReleaseAt) < s.debounce {
		s.log.Debug("duplicate release dropped", "since_last", now.Sub(s.lastReleaseAt))
		return false
	}
	s.lastReleaseAt = now
	return false
}

// Toggle stops an active recording or starts a new one. It reports
// whether a recording is active afterwards.
func (s *Session) Toggle() (bool, error) {
	s.mu.Lock()
	if s.recording {
		s.stopLocked()
		s.mu.Unlock()
		return false, nil
	}
	s.mu.Unlock()
	return s.Start()
}

// IsRecording reports whether a recording is active.
func (s *Session) IsRecording() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recording
}

// Status returns a snapshot of the session state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{Recording: s.recording, LastReleaseAt: s.lastReleaseAt}
	if s.cur != nil {
		st.UtteranceID = s.cur.id
	}
	return st
}

// Shutdown stops accepting hotkey events, aborts an active recording
// without transcribing it, waits for pending finalizations and then drains
// the dispatcher.
func (s *Session) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	c := s.cur
	s.recording = false
	s.cur = nil
	s.mu.Unlock()

	if c != nil {
		select {
		case <-c.started:
		case <-ctx.Done():
			return ctx.Err()
		}
		if c.startErr == nil {
			if err := s.rec.Abort(); err != nil {
				s.log.Warn("aborting recording", "utterance", c.id, "error", err)
			}
			close(c.released)
			s.metrics.RecordingDiscarded(ctx, "shutdown")
			s.log.Info("recording aborted", "utterance", c.id)
		}
	}

	done := make(chan struct{})
	go func() {
		s.finalizers.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	return s.queue.Shutdown(ctx)
}

// stopLocked performs the Recording -> Idle transition. s.mu must be held.
func (s *Session) stopLocked() bool {
	if !s.recording {
		return false
	}
	c := s.cur
	stoppedAt := s.now()
	s.recording = false
	s.cur = nil
	s.prev = c
	s.lastReleaseAt = stoppedAt

	s.finalizers.Add(1)
	go s.finalize(c, stoppedAt)
	return true
}

// finalize stops capture for c and dispatches the utterance.
func (s *Session) finalize(c *cycle, stoppedAt time.Time) {
	defer s.finalizers.Done()
	ctx := context.Background()

	<-c.started
	if c.startErr != nil {
		return
	}

	clip, err := s.rec.Stop()
	close(c.released)
	if err != nil {
		s.metrics.RecordingDiscarded(ctx, "device")
		s.log.Error("stopping recording", "utterance", c.id, "error", err)
		return
	}
	if len(clip.Samples) == 0 {
		s.metrics.RecordingDiscarded(ctx, "empty")
		s.log.Info("no audio captured, discarding", "utterance", c.id)
		return
	}

	u := Utterance{ID: c.id, Clip: clip, Window: c.window, StoppedAt: stoppedAt}
	submitted := s.queue.Submit(func(ctx context.Context) error {
		return s.handle(ctx, u)
	})
	if !submitted {
		s.metrics.RecordingDiscarded(ctx, "closed")
		s.log.Warn("dispatcher closed, dropping utterance", "utterance", c.id)
		return
	}
	s.metrics.UtteranceQueued(ctx)
	s.log.Info("recording queued", "utterance", c.id, "samples", len(clip.Samples), "duration", clip.Duration())
}
