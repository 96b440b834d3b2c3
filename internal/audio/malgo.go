package audio

import (
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
)

// MalgoBackend captures from the default input device through miniaudio.
// One context is shared by every stream it opens; call Close when done.
type MalgoBackend struct {
	ctx *malgo.AllocatedContext
}

// NewMalgoBackend initializes the audio context.
func NewMalgoBackend() (*MalgoBackend, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("initializing audio context: %w", err)
	}
	return &MalgoBackend{ctx: ctx}, nil
}

// Open initializes a capture device. The device is not started.
func (b *MalgoBackend) Open(cfg StreamConfig, onChunk func([]byte)) (Stream, error) {
	format, err := malgoFormat(cfg.Format)
	if err != nil {
		return nil, err
	}

	deviceCfg := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceCfg.Capture.Format = format
	deviceCfg.Capture.Channels = uint32(cfg.Channels)
	deviceCfg.SampleRate = uint32(cfg.SampleRate)
	if cfg.BlockSize > 0 {
		deviceCfg.PeriodSizeInFrames = uint32(cfg.BlockSize)
	}

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, pInput []byte, _ uint32) {
			onChunk(pInput)
		},
	}

	device, err := malgo.InitDevice(b.ctx.Context, deviceCfg, callbacks)
	if err != nil {
		return nil, fmt.Errorf("initializing capture device: %w", err)
	}
	return &malgoStream{device: device}, nil
}

// Close releases the audio context.
func (b *MalgoBackend) Close() error {
	if b.ctx == nil {
		return nil
	}
	if err := b.ctx.Uninit(); err != nil {
		return fmt.Errorf("uninitializing audio context: %w", err)
	}
	b.ctx.Free()
	b.ctx = nil
	return nil
}

type malgoStream struct {
	device *malgo.Device
	once   sync.Once
}

func (s *malgoStream) Start() error {
	if err := s.device.Start(); err != nil {
		return fmt.Errorf("starting capture device: %w", err)
	}
	return nil
}

func (s *malgoStream) Stop() error {
	if err := s.device.Stop(); err != nil {
		return fmt.Errorf("stopping capture device: %w", err)
	}
	return nil
}

func (s *malgoStream) Close() error {
	s.once.Do(s.device.Uninit)
	return nil
}

func malgoFormat(f Format) (malgo.FormatType, error) {
	switch f {
	case FormatInt16:
		return malgo.FormatS16, nil
	case FormatInt24:
		return malgo.FormatS24, nil
	case FormatInt32:
		return malgo.FormatS32, nil
	default:
		return malgo.FormatUnknown, fmt.Errorf("audio: unsupported sample format %q", f)
	}
}
