package stt

import (
	"context"
	"sync"
	"time"

	"parley/sound"
)

// CannedTranscriber replays a fixed script, one line per utterance. It backs
// offline runs and the pipeline tests.
type CannedTranscriber struct {
	Script []string
	Delay  time.Duration
	Err    error

	mu   sync.Mutex
	next int
}

func (c *CannedTranscriber) Transcribe(
	ctx context.Context,
	utterance sound.Buffer,
	locale string,
) (string, error) {
	if c.Delay > 0 {
		select {
		case <-time.After(c.Delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if c.Err != nil {
		return "", c.Err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.Script) == 0 {
		return "", nil
	}
	line := c.Script[c.next%len(c.Script)]
	c.next++
	return line, nil
}
