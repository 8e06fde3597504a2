package web

import (
	"sync"

	"parley/pipeline"
	"parley/station"
)

// Captions holds the in-flight text for each station. A caption appears as
// soon as recognition lands, gains its translation when that settles, and is
// cleared once the segment's history entry is committed.
type Captions struct {
	mu   sync.Mutex
	live map[station.ID]pipeline.Caption
}

func NewCaptions() *Captions {
	return &Captions{live: map[station.ID]pipeline.Caption{}}
}

// Update applies a caption from the pipeline. An empty caption clears the
// station's slot.
func (c *Captions) Update(caption pipeline.Caption) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if caption.Original == "" {
		delete(c.live, caption.Station)
		return
	}
	c.live[caption.Station] = caption
}

// Clear drops all live captions.
func (c *Captions) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.live = map[station.ID]pipeline.Caption{}
}

// Snapshot returns the live captions, station A first.
func (c *Captions) Snapshot() []pipeline.Caption {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]pipeline.Caption, 0, len(c.live))
	for _, id := range []station.ID{station.A, station.B} {
		if caption, ok := c.live[id]; ok {
			out = append(out, caption)
		}
	}
	return out
}
