// Package history keeps the append-only conversation record for the current
// session.
package history

import (
	"sync"
	"time"

	"parley/station"
)

// Status marks how far a segment got before its entry was committed.
type Status string

const (
	StatusOK               Status = "ok"
	StatusTranslationError Status = "translation failed"
)

// Entry is one committed segment. Entries are immutable once appended and
// are only removed by an explicit session reset.
type Entry struct {
	ID         string     `json:"id"`
	Timestamp  time.Time  `json:"timestamp"`
	Station    station.ID `json:"station"`
	Original   string     `json:"original"`
	Translated string     `json:"translated"`
	Status     Status     `json:"status"`
}

// Log is safe for concurrent appenders and readers. Snapshot always observes
// a consistent prefix of the append order.
type Log struct {
	mu      sync.RWMutex
	entries []Entry
}

func NewLog() *Log {
	return &Log{}
}

func (l *Log) Append(e Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e)
}

// Snapshot returns entries in insertion order.
func (l *Log) Snapshot() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Reset clears the session record. The only non-append mutation, reachable
// solely through the operator's explicit session reset.
func (l *Log) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
}
