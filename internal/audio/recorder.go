// Package audio buffers raw PCM captured from the microphone for one
// push-to-talk recording and turns it into normalized float samples.
package audio

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// StreamConfig describes how the input device is opened.
type StreamConfig struct {
	SampleRate int
	Channels   int
	BlockSize  int // frames per callback; 0 lets the backend choose
	Format     Format
}

// Backend opens capture streams. Implementations deliver raw bytes to
// onChunk from their own I/O goroutine.
type Backend interface {
	Open(cfg StreamConfig, onChunk func([]byte)) (Stream, error)
}

// Stream is one opened input device. Close must be safe to call more
// than once.
type Stream interface {
	Start() error
	Stop() error
	Close() error
}

// Clip is the audio captured by one recording: mono or interleaved
// samples in [-1.0, 1.0] at the device sample rate.
type Clip struct {
	Samples    []float32
	SampleRate int
	Channels   int
}

// Frames returns the number of sample frames in the clip.
func (c Clip) Frames() int {
	if c.Channels <= 0 {
		return len(c.Samples)
	}
	return len(c.Samples) / c.Channels
}

// Duration returns the clip length.
func (c Clip) Duration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(c.Frames()) / float64(c.SampleRate) * float64(time.Second))
}

// DeviceError reports a failure to open, start or stop the input device.
type DeviceError struct {
	Op  string
	Err error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("audio: %s: %v", e.Op, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }

// Recorder accumulates PCM chunks between Start and Stop. Chunks are only
// accepted while recording; the buffer is converted once accepting stops.
type Recorder struct {
	backend Backend
	cfg     StreamConfig
	log     *slog.Logger

	mu        sync.Mutex
	stream    Stream
	chunks    [][]byte
	accepting bool
}

// NewRecorder creates a recorder for the given stream settings.
func NewRecorder(backend Backend, cfg StreamConfig, log *slog.Logger) (*Recorder, error) {
	if backend == nil {
		return nil, fmt.Errorf("audio: no capture backend")
	}
	if cfg.Format.BytesPerSample() == 0 {
		return nil, fmt.Errorf("audio: unsupported sample format %q", cfg.Format)
	}
	if cfg.SampleRate <= 0 || cfg.Channels <= 0 {
		return nil, fmt.Errorf("audio: invalid stream config %+v", cfg)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Recorder{backend: backend, cfg: cfg, log: log}, nil
}

// Config returns the stream settings used for every recording.
func (r *Recorder) Config() StreamConfig { return r.cfg }

// Start opens the input device and begins buffering. Any previously
// buffered audio is discarded.
func (r *Recorder) Start() error {
	r.mu.Lock()
	if r.stream != nil {
		r.mu.Unlock()
		return &DeviceError{Op: "start", Err: fmt.Errorf("already recording")}
	}
	r.chunks = nil
	r.accepting = true
	r.mu.Unlock()

	stream, err := r.backend.Open(r.cfg, r.onChunk)
	if err != nil {
		r.reset()
		return &DeviceError{Op: "open", Err: err}
	}

	if err := stream.Start(); err != nil {
		_ = stream.Close()
		r.reset()
		return &DeviceError{Op: "start", Err: err}
	}

	r.mu.Lock()
	r.stream = stream
	r.mu.Unlock()
	return nil
}

// Stop closes the input device and returns everything buffered since
// Start as normalized samples. A recorder that was never started returns
// an empty clip.
func (r *Recorder) Stop() (Clip, error) {
	stream, chunks := r.detach()
	clip := Clip{SampleRate: r.cfg.SampleRate, Channels: r.cfg.Channels}

	if stream != nil {
		if err := r.closeStream(stream); err != nil {
			return clip, err
		}
	}

	size := 0
	for _, c := range chunks {
		size += len(c)
	}
	if size == 0 {
		clip.Samples = []float32{}
		return clip, nil
	}

	raw := make([]byte, 0, size)
	for _, c := range chunks {
		raw = append(raw, c...)
	}
	clip.Samples = decodePCM(raw, r.cfg.Format)
	return clip, nil
}

// Abort closes the input device and discards buffered audio.
func (r *Recorder) Abort() error {
	stream, _ := r.detach()
	if stream == nil {
		return nil
	}
	return r.closeStream(stream)
}

// IsRecording reports whether the recorder is accepting audio.
func (r *Recorder) IsRecording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.accepting
}

// onChunk is the backend callback. It copies the chunk because backends
// reuse their buffers, and drops it once Stop or Abort has begun.
func (r *Recorder) onChunk(data []byte) {
	if len(data) == 0 {
		return
	}
	chunk := make([]byte, len(data))
	copy(chunk, data)

	r.mu.Lock()
	if r.accepting {
		r.chunks = append(r.chunks, chunk)
	}
	r.mu.Unlock()
}

// detach stops accepting chunks and hands the stream and buffer to the caller.
func (r *Recorder) detach() (Stream, [][]byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stream, chunks := r.stream, r.chunks
	r.stream = nil
	r.chunks = nil
	r.accepting = false
	return stream, chunks
}

func (r *Recorder) reset() {
	r.mu.Lock()
	r.chunks = nil
	r.accepting = false
	r.mu.Unlock()
}

// closeStream stops and closes a stream. Close always runs.
func (r *Recorder) closeStream(stream Stream) error {
	stopErr := stream.Stop()
	if err := stream.Close(); err != nil {
		r.log.Debug("closing capture stream", "error", err)
	}
	if stopErr != nil {
		return &DeviceError{Op: "stop", Err: stopErr}
	}
	return nil
}
