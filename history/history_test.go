package history

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"parley/station"
)

func entry(st station.ID, original string) Entry {
	return Entry{
		ID:        original,
		Timestamp: time.Now(),
		Station:   st,
		Original:  original,
		Status:    StatusOK,
	}
}

func TestLogPreservesInsertionOrder(t *testing.T) {
	l := NewLog()
	for i := 0; i < 5; i++ {
		l.Append(entry(station.A, fmt.Sprintf("a%d", i)))
	}

	snap := l.Snapshot()
	if len(snap) != 5 {
		t.Fatalf("len = %d, want 5", len(snap))
	}
	for i, e := range snap {
		if want := fmt.Sprintf("a%d", i); e.Original != want {
			t.Errorf("entry %d = %q, want %q", i, e.Original, want)
		}
	}
}

func TestLogOnlyGrowsUnderConcurrentAppends(t *testing.T) {
	l := NewLog()
	const perStation = 50

	var wg sync.WaitGroup
	for _, st := range []station.ID{station.A, station.B} {
		wg.Add(1)
		go func(st station.ID) {
			defer wg.Done()
			for i := 0; i < perStation; i++ {
				l.Append(entry(st, fmt.Sprintf("%s%d", st, i)))
			}
		}(st)
	}

	// Readers must always observe a consistent, growing prefix.
	prev := 0
	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	for {
		n := l.Len()
		if n < prev {
			t.Errorf("log shrank from %d to %d", prev, n)
		}
		prev = n
		select {
		case <-done:
			if got := l.Len(); got != 2*perStation {
				t.Fatalf("final len = %d, want %d", got, 2*perStation)
			}
			// Per-station order is chronological even when interleaved.
			seen := map[station.ID]int{}
			for _, e := range l.Snapshot() {
				want := fmt.Sprintf("%s%d", e.Station, seen[e.Station])
				if e.Original != want {
					t.Fatalf("station %s out of order: got %q, want %q",
						e.Station, e.Original, want)
				}
				seen[e.Station]++
			}
			return
		default:
		}
	}
}

func TestReset(t *testing.T) {
	l := NewLog()
	l.Append(entry(station.A, "x"))
	l.Reset()
	if l.Len() != 0 {
		t.Errorf("len after reset = %d", l.Len())
	}
}
