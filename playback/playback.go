// Package playback plays synthesized speech to the output device, strictly
// one clip at a time in enqueue order.
package playback

import (
	"errors"
	"sync"

	"github.com/charmbracelet/log"
)

var (
	ErrPlayerClosed    = errors.New("player closed")
	ErrPlaybackStopped = errors.New("playback stopped")
)

// Sink plays one decoded clip on the output device. The returned channel
// closes when the clip finishes or is truncated by Stop.
type Sink interface {
	Play(clip []byte) (<-chan struct{}, error)
	Stop()
	Close() error
}

// Playing tracks one enqueued clip. Err is valid once Done is closed.
type Playing struct {
	done chan struct{}
	err  error
}

func (h *Playing) Done() <-chan struct{} { return h.done }

func (h *Playing) Err() error { return h.err }

// Player serializes playback: clips queue FIFO behind whatever is currently
// playing and never overlap. The output device is owned by the player's
// single worker goroutine.
type Player struct {
	log       *log.Logger
	sink      Sink
	queue     chan *Playing
	mu        sync.Mutex
	clips     map[*Playing][]byte
	current   *Playing
	interrupt chan struct{}
	quit      chan struct{}
	closeOnce sync.Once
}

func NewPlayer(sink Sink, logger *log.Logger) *Player {
	p := &Player{
		log:       logger,
		sink:      sink,
		queue:     make(chan *Playing, 16),
		clips:     make(map[*Playing][]byte),
		interrupt: make(chan struct{}, 1),
		quit:      make(chan struct{}),
	}
	go p.run()
	return p
}

// Enqueue schedules a clip behind any in-flight playback. It blocks only if
// the queue is saturated, which applies natural backpressure to synthesis.
func (p *Player) Enqueue(clip []byte) (*Playing, error) {
	h := &Playing{done: make(chan struct{})}
	p.mu.Lock()
	p.clips[h] = clip
	p.mu.Unlock()

	select {
	case p.queue <- h:
		return h, nil
	case <-p.quit:
		p.forget(h)
		return nil, ErrPlayerClosed
	}
}

// Stop truncates the current clip and abandons everything queued behind it.
// Used on session termination only.
func (p *Player) Stop() {
	// Drain the backlog before interrupting the current clip, so the worker
	// cannot pick up a queued clip between the two steps.
	for {
		select {
		case h := <-p.queue:
			h.err = ErrPlaybackStopped
			p.forget(h)
			close(h.done)
		default:
			// Pulse the interrupt only when a clip is actually in flight.
			// An idle pulse would park a token that truncates the next
			// clip enqueued after the stop.
			p.mu.Lock()
			playing := p.current != nil
			p.mu.Unlock()
			if playing {
				select {
				case p.interrupt <- struct{}{}:
				default:
				}
			}
			p.sink.Stop()
			return
		}
	}
}

func (p *Player) Close() error {
	p.closeOnce.Do(func() {
		close(p.quit)
		p.Stop()
	})
	return p.sink.Close()
}

func (p *Player) run() {
	for {
		select {
		case <-p.quit:
			return
		case h := <-p.queue:
			p.playOne(h)
		}
	}
}

func (p *Player) playOne(h *Playing) {
	// A token pulsed for a clip that finished before the worker observed it
	// must not carry over to this one. Drained before current is published,
	// so a pulse meant for this clip cannot be lost.
	select {
	case <-p.interrupt:
	default:
	}
	p.mu.Lock()
	p.current = h
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.current = nil
		p.mu.Unlock()
		close(h.done)
	}()
	clip := p.forget(h)

	done, err := p.sink.Play(clip)
	if err != nil {
		p.log.Error("playback failed", "error", err)
		h.err = err
		return
	}
	select {
	case <-done:
	case <-p.interrupt:
		h.err = ErrPlaybackStopped
	case <-p.quit:
		h.err = ErrPlayerClosed
	}
}

func (p *Player) forget(h *Playing) []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	clip := p.clips[h]
	delete(p.clips, h)
	return clip
}
