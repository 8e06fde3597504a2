package tts

import (
	"context"
	"time"

	"parley/sound"
)

// CannedSpeechGenerator produces silent WAV clips sized to the text, so
// offline runs and tests exercise real playback timing without a synthesis
// service.
type CannedSpeechGenerator struct {
	SampleRate int
	PerRune    time.Duration
	Delay      time.Duration
	Err        error
}

func (c *CannedSpeechGenerator) Synthesize(
	ctx context.Context,
	text, accent string,
	rate float64,
) ([]byte, error) {
	if c.Delay > 0 {
		select {
		case <-time.After(c.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if c.Err != nil {
		return nil, c.Err
	}

	sampleRate := c.SampleRate
	if sampleRate == 0 {
		sampleRate = synthesisSampleRate
	}
	perRune := c.PerRune
	if perRune == 0 {
		perRune = 60 * time.Millisecond
	}
	if rate <= 0 {
		rate = 1.0
	}

	dur := time.Duration(float64(len([]rune(text))) * float64(perRune) / rate)
	samples := int(dur * time.Duration(sampleRate) / time.Second)
	if samples < 1 {
		samples = 1
	}

	pcm := make([]byte, samples*2)
	return sound.EncodeWAV(pcm, sampleRate), nil
}
