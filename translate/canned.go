package translate

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// CannedTranslator returns scripted translations keyed by input text,
// falling back to a marked-up echo so offline runs still show data flow.
type CannedTranslator struct {
	Phrases map[string]string
	Delay   time.Duration
	Err     error

	mu    sync.Mutex
	calls int
}

func (c *CannedTranslator) Translate(
	ctx context.Context,
	text, sourceLang, targetLang string,
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
	c.calls++
	c.mu.Unlock()

	if out, ok := c.Phrases[text]; ok {
		return out, nil
	}
	return fmt.Sprintf("[%s] %s", targetLang, text), nil
}

// Calls reports how many times the capability was invoked, for tests
// asserting the empty-input short-circuit.
func (c *CannedTranslator) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}
