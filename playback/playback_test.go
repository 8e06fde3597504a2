package playback

import (
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

// fakeSink records play intervals so tests can assert serialization.
type fakeSink struct {
	mu       sync.Mutex
	perClip  time.Duration
	failNext error
	plays    []playRecord
}

type playRecord struct {
	clip  []byte
	start time.Time
	end   time.Time
}

func (f *fakeSink) Play(clip []byte) (<-chan struct{}, error) {
	f.mu.Lock()
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		f.mu.Unlock()
		return nil, err
	}
	idx := len(f.plays)
	f.plays = append(f.plays, playRecord{clip: clip, start: time.Now()})
	f.mu.Unlock()

	done := make(chan struct{})
	go func() {
		time.Sleep(f.perClip)
		f.mu.Lock()
		f.plays[idx].end = time.Now()
		f.mu.Unlock()
		close(done)
	}()
	return done, nil
}

func (f *fakeSink) Stop() {}

func (f *fakeSink) Close() error { return nil }

func (f *fakeSink) records() []playRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]playRecord, len(f.plays))
	copy(out, f.plays)
	return out
}

func TestPlayerSerializesClipsInEnqueueOrder(t *testing.T) {
	sink := &fakeSink{perClip: 30 * time.Millisecond}
	p := NewPlayer(sink, log.New(io.Discard))
	defer p.Close()

	first, err := p.Enqueue([]byte("one"))
	if err != nil {
		t.Fatal(err)
	}
	second, err := p.Enqueue([]byte("two"))
	if err != nil {
		t.Fatal(err)
	}

	<-first.Done()
	<-second.Done()

	recs := sink.records()
	if len(recs) != 2 {
		t.Fatalf("played %d clips, want 2", len(recs))
	}
	if string(recs[0].clip) != "one" || string(recs[1].clip) != "two" {
		t.Errorf("clips out of order: %q then %q", recs[0].clip, recs[1].clip)
	}
	if recs[1].start.Before(recs[0].end) {
		t.Errorf("second clip started %v before first completed %v",
			recs[1].start, recs[0].end)
	}
}

func TestPlayerReportsSinkError(t *testing.T) {
	wantErr := errors.New("device gone")
	sink := &fakeSink{perClip: time.Millisecond, failNext: wantErr}
	p := NewPlayer(sink, log.New(io.Discard))
	defer p.Close()

	h, err := p.Enqueue([]byte("x"))
	if err != nil {
		t.Fatal(err)
	}
	<-h.Done()
	if !errors.Is(h.Err(), wantErr) {
		t.Errorf("Err() = %v, want %v", h.Err(), wantErr)
	}
}

func TestPlayerStopAbandonsQueuedClips(t *testing.T) {
	sink := &fakeSink{perClip: 200 * time.Millisecond}
	p := NewPlayer(sink, log.New(io.Discard))
	defer p.Close()

	current, err := p.Enqueue([]byte("current"))
	if err != nil {
		t.Fatal(err)
	}
	// Let the worker pick it up before flooding the queue.
	time.Sleep(20 * time.Millisecond)

	queued, err := p.Enqueue([]byte("queued"))
	if err != nil {
		t.Fatal(err)
	}

	p.Stop()

	select {
	case <-current.Done():
	case <-time.After(time.Second):
		t.Fatal("current clip never released after Stop")
	}
	select {
	case <-queued.Done():
		if !errors.Is(queued.Err(), ErrPlaybackStopped) {
			t.Errorf("queued Err() = %v, want ErrPlaybackStopped", queued.Err())
		}
	case <-time.After(time.Second):
		t.Fatal("queued clip never released after Stop")
	}
}

func TestStopOnIdlePlayerDoesNotTruncateNextClip(t *testing.T) {
	sink := &fakeSink{perClip: 10 * time.Millisecond}
	p := NewPlayer(sink, log.New(io.Discard))
	defer p.Close()

	// Nothing playing: a stop must leave no residue behind.
	p.Stop()

	h, err := p.Enqueue([]byte("fresh"))
	if err != nil {
		t.Fatal(err)
	}
	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatal("clip never completed")
	}
	if h.Err() != nil {
		t.Errorf("Err() = %v, want nil", h.Err())
	}

	recs := sink.records()
	if len(recs) != 1 || recs[0].end.IsZero() {
		t.Fatalf("clip did not play to completion: %+v", recs)
	}
}

func TestRepeatedStopsThenResume(t *testing.T) {
	sink := &fakeSink{perClip: 5 * time.Millisecond}
	p := NewPlayer(sink, log.New(io.Discard))
	defer p.Close()

	for i := 0; i < 3; i++ {
		p.Stop()
	}

	for i := 0; i < 2; i++ {
		h, err := p.Enqueue([]byte("x"))
		if err != nil {
			t.Fatal(err)
		}
		<-h.Done()
		if h.Err() != nil {
			t.Fatalf("clip %d after idle stops: Err() = %v", i, h.Err())
		}
	}
}

func TestEnqueueAfterCloseFails(t *testing.T) {
	sink := &fakeSink{perClip: time.Millisecond}
	p := NewPlayer(sink, log.New(io.Discard))
	p.Close()

	// The queue may still have capacity; closing must still refuse work
	// eventually. Fill past capacity to hit the quit path deterministically.
	var lastErr error
	for i := 0; i < 64; i++ {
		if _, err := p.Enqueue([]byte("x")); err != nil {
			lastErr = err
			break
		}
	}
	if !errors.Is(lastErr, ErrPlayerClosed) {
		t.Errorf("Enqueue after Close = %v, want ErrPlayerClosed", lastErr)
	}
}
