package station

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
)

// Status is a point-in-time view of one station, for the operator layer.
type Status struct {
	Station ID     `json:"station"`
	State   State  `json:"state"`
	Config  Config `json:"config"`
}

// Controller owns both stations' configuration and lifecycle state and
// enforces the session invariants: at most one station listens at a time,
// a station with a segment mid-pipeline cannot re-enter Listening, and
// configuration only changes while a station is idle.
type Controller struct {
	mu     sync.Mutex
	log    *log.Logger
	states map[ID]State
	cfgs   map[ID]Config
}

func NewController(a, b Config, logger *log.Logger) (*Controller, error) {
	a.Station, b.Station = A, B
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("station A config: %w", err)
	}
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("station B config: %w", err)
	}
	return &Controller{
		log:    logger,
		states: map[ID]State{A: Idle, B: Idle},
		cfgs:   map[ID]Config{A: a, B: b},
	}, nil
}

// Activate moves a station from Idle to Listening. If the other station is
// currently Listening it is switched to Idle first; two stations never
// listen concurrently. A station still working a prior segment refuses with
// ErrStationBusy.
func (c *Controller) Activate(id ID) error {
	c.mu.Lock()
	state, ok := c.states[id]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownStation, id)
	}

	switch state {
	case Listening:
		c.mu.Unlock()
		return nil
	case Processing, Speaking:
		c.mu.Unlock()
		return fmt.Errorf("%w: station %s is %s", ErrStationBusy, id, state)
	}

	other := Other(id)
	if c.states[other] == Listening {
		c.states[other] = Idle
	}
	c.states[id] = Listening
	c.mu.Unlock()

	c.log.Info("station", "id", id, "state", Listening)
	return nil
}

// Deactivate moves a Listening station back to Idle. It never touches a
// segment already in flight; aborting is the orchestrator's job.
func (c *Controller) Deactivate(id ID) {
	c.mu.Lock()
	if c.states[id] != Listening {
		c.mu.Unlock()
		return
	}
	c.states[id] = Idle
	c.mu.Unlock()

	c.log.Info("station", "id", id, "state", Idle)
}

// BeginProcessing commits an utterance: Listening → Processing. The station
// stops listening and stays busy until Finish.
func (c *Controller) BeginProcessing(id ID) error {
	return c.transition(id, Listening, Processing)
}

// BeginSpeaking marks playback start: Processing → Speaking.
func (c *Controller) BeginSpeaking(id ID) error {
	return c.transition(id, Processing, Speaking)
}

// Finish returns a busy station to Idle, whether its segment completed,
// failed, or was aborted.
func (c *Controller) Finish(id ID) {
	c.mu.Lock()
	state := c.states[id]
	if state != Processing && state != Speaking {
		c.mu.Unlock()
		return
	}
	c.states[id] = Idle
	c.mu.Unlock()

	c.log.Info("station", "id", id, "state", Idle)
}

func (c *Controller) transition(id ID, from, to State) error {
	c.mu.Lock()
	state, ok := c.states[id]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownStation, id)
	}
	if state != from {
		c.mu.Unlock()
		return fmt.Errorf("%w: station %s is %s, want %s", ErrInvalidTransition, id, state, from)
	}
	c.states[id] = to
	c.mu.Unlock()

	c.log.Info("station", "id", id, "state", to)
	return nil
}

// State reports a station's current lifecycle state.
func (c *Controller) State(id ID) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.states[id]
}

// Active returns the station currently Listening, if any.
func (c *Controller) Active() (ID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range []ID{A, B} {
		if c.states[id] == Listening {
			return id, true
		}
	}
	return "", false
}

// Busy reports whether the station has a segment mid-pipeline.
func (c *Controller) Busy(id ID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	state := c.states[id]
	return state == Processing || state == Speaking
}

// Config returns the station's current configuration.
func (c *Controller) Config(id ID) Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfgs[id]
}

// SetConfig replaces a station's configuration. Permitted only while the
// station is Idle, keeping a segment's parameters immutable once it begins.
func (c *Controller) SetConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.states[cfg.Station] != Idle {
		return fmt.Errorf("%w: cannot reconfigure station %s while %s",
			ErrStationBusy, cfg.Station, c.states[cfg.Station])
	}
	c.cfgs[cfg.Station] = cfg
	return nil
}

// Snapshot reports both stations for the operator layer.
func (c *Controller) Snapshot() []Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Status, 0, 2)
	for _, id := range []ID{A, B} {
		out = append(out, Status{Station: id, State: c.states[id], Config: c.cfgs[id]})
	}
	return out
}

// Other returns the opposite station.
func Other(id ID) ID {
	if id == A {
		return B
	}
	return A
}
