package playback

import (
	"bytes"
	"fmt"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
)

// SpeakerSink plays clips on the OS output device via beep's speaker. The
// speaker is initialized once at the configured rate; clips decoded at other
// rates are resampled.
type SpeakerSink struct {
	sampleRate beep.SampleRate
}

func NewSpeakerSink(sampleRate int) (*SpeakerSink, error) {
	sr := beep.SampleRate(sampleRate)
	if err := speaker.Init(sr, sr.N(time.Second/10)); err != nil {
		return nil, fmt.Errorf("init speaker: %w", err)
	}
	return &SpeakerSink{sampleRate: sr}, nil
}

func (s *SpeakerSink) Play(clip []byte) (<-chan struct{}, error) {
	streamer, format, err := wav.Decode(bytes.NewReader(clip))
	if err != nil {
		return nil, fmt.Errorf("decode wav: %w", err)
	}

	var src beep.Streamer = streamer
	if format.SampleRate != s.sampleRate {
		src = beep.Resample(4, format.SampleRate, s.sampleRate, streamer)
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(src, beep.Callback(func() {
		streamer.Close()
		close(done)
	})))
	return done, nil
}

// Stop silences the device immediately. Clips truncated here never fire
// their completion callback; the player treats the interrupt as completion.
func (s *SpeakerSink) Stop() {
	speaker.Clear()
}

func (s *SpeakerSink) Close() error {
	speaker.Clear()
	return nil
}

// NullSink discards audio, completing each clip after a fixed delay. It
// serves muted operation and tests that need playback timing without a
// device.
type NullSink struct {
	Delay time.Duration
}

func (n *NullSink) Play(clip []byte) (<-chan struct{}, error) {
	done := make(chan struct{})
	go func() {
		if n.Delay > 0 {
			time.Sleep(n.Delay)
		}
		close(done)
	}()
	return done, nil
}

func (n *NullSink) Stop() {}

func (n *NullSink) Close() error { return nil }
