package sound

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gen2brain/malgo"
)

// ErrCaptureUnavailable reports that the input device could not be opened.
// It is fatal to the requesting station's listening session but not to the
// process.
var ErrCaptureUnavailable = errors.New("capture device unavailable")

// Microphone owns the OS capture device. At most one listener may hold it at
// a time; the station controller guarantees exclusivity.
type Microphone struct {
	sampleRate int
	log        *log.Logger

	mu      sync.Mutex
	mctx    *malgo.AllocatedContext
	device  *malgo.Device
	running bool
}

func OpenMicrophone(sampleRate int, logger *log.Logger) (*Microphone, error) {
	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: init context: %v", ErrCaptureUnavailable, err)
	}
	return &Microphone{sampleRate: sampleRate, log: logger, mctx: mctx}, nil
}

// Listen opens the device and emits utterance buffers segmented by the
// provided Segmenter until ctx is cancelled. The device is released before
// the channel closes.
func (m *Microphone) Listen(ctx context.Context, seg *Segmenter) (<-chan Buffer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return nil, fmt.Errorf("%w: device already in use", ErrCaptureUnavailable)
	}

	frames := make(chan []byte, 64)

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = 1
	deviceConfig.SampleRate = uint32(m.sampleRate)

	callbacks := malgo.DeviceCallbacks{
		Data: func(outputSample, inputSample []byte, frameCount uint32) {
			frame := make([]byte, len(inputSample))
			copy(frame, inputSample)
			select {
			case frames <- frame:
			default:
				// Drop rather than stall the audio thread.
			}
		},
	}

	device, err := malgo.InitDevice(m.mctx.Context, deviceConfig, callbacks)
	if err != nil {
		return nil, fmt.Errorf("%w: init device: %v", ErrCaptureUnavailable, err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		return nil, fmt.Errorf("%w: start device: %v", ErrCaptureUnavailable, err)
	}

	m.device = device
	m.running = true

	out := make(chan Buffer, 4)
	go func() {
		defer close(out)
		defer m.release()
		for {
			select {
			case <-ctx.Done():
				if utt, ok := seg.Flush(); ok {
					out <- utt
				}
				return
			case frame := <-frames:
				if utt, ok := seg.Feed(frame); ok {
					m.log.Debug("utterance", "dur", utt.Duration(), "floor", int(seg.NoiseFloor()))
					select {
					case out <- utt:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()

	return out, nil
}

func (m *Microphone) release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.device != nil {
		m.device.Stop()
		m.device.Uninit()
		m.device = nil
	}
	m.running = false
}

func (m *Microphone) Close() error {
	m.release()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mctx != nil {
		_ = m.mctx.Uninit()
		m.mctx.Free()
		m.mctx = nil
	}
	return nil
}
