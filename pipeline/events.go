package pipeline

import (
	"sync"
	"time"

	"parley/station"
)

// ErrorKind classifies a stage failure for the operator layer.
type ErrorKind string

const (
	CaptureUnavailable ErrorKind = "capture unavailable"
	RecognitionFailed  ErrorKind = "recognition failed"
	TranslationFailed  ErrorKind = "translation failed"
	SynthesisFailed    ErrorKind = "synthesis failed"
	PlaybackFailed     ErrorKind = "playback failed"
)

// ErrorEvent is one reported failure. Events surface to the operator; they
// never terminate the session.
type ErrorEvent struct {
	Kind    ErrorKind  `json:"kind"`
	Station station.ID `json:"station"`
	Message string     `json:"message"`
	Time    time.Time  `json:"time"`
}

const eventRingSize = 64

// Events keeps the most recent failures in a fixed-size ring.
type Events struct {
	mu     sync.Mutex
	ring   []ErrorEvent
	start  int
	length int
}

func NewEvents() *Events {
	return &Events{ring: make([]ErrorEvent, eventRingSize)}
}

func (e *Events) Record(kind ErrorKind, st station.ID, message string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	at := (e.start + e.length) % len(e.ring)
	e.ring[at] = ErrorEvent{Kind: kind, Station: st, Message: message, Time: time.Now()}
	if e.length < len(e.ring) {
		e.length++
	} else {
		e.start = (e.start + 1) % len(e.ring)
	}
}

// Recent returns buffered events oldest first.
func (e *Events) Recent() []ErrorEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]ErrorEvent, 0, e.length)
	for i := 0; i < e.length; i++ {
		out = append(out, e.ring[(e.start+i)%len(e.ring)])
	}
	return out
}
