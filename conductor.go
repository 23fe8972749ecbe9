package blindkey

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.viam.com/rdk/components/board"
)

// Conductor reports whether a pull-up biased input is shorted to ground.
// Interlock wires, the arm button and the touch wire are all conductors:
// connected is the safe/default state, open (pulled high) is armed.
type Conductor interface {
	Connected(ctx context.Context) (bool, error)
}

// pinConductor reads a board GPIO pin configured with a pull-up.
type pinConductor struct {
	name string
	pin  board.GPIOPin
}

func newPinConductor(b board.Board, name string) (*pinConductor, error) {
	pin, err := b.GPIOPinByName(name)
	if err != nil {
		return nil, fmt.Errorf("getting pin %q: %w", name, err)
	}
	return &pinConductor{name: name, pin: pin}, nil
}

func (c *pinConductor) Connected(ctx context.Context) (bool, error) {
	high, err := c.pin.Get(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("reading pin %q: %w", c.name, err)
	}
	// Pull-up: a wire to ground reads low.
	return !high, nil
}

func (c *pinConductor) String() string {
	return c.name
}

// span is a half-open interval of virtual time, measured from the clock's epoch.
type span struct {
	from, to time.Duration
}

// scriptedConductor is connected during fixed spans of clock time. It stands
// in for operator gestures in simulation and tests.
type scriptedConductor struct {
	mu    sync.Mutex
	clk   Clock
	epoch time.Time
	spans []span
	reads int
}

func newScriptedConductor(clk Clock, spans ...span) *scriptedConductor {
	return &scriptedConductor{clk: clk, epoch: clk.Now(), spans: spans}
}

// touches builds one span of length hold at each offset.
func touches(hold time.Duration, at ...time.Duration) []span {
	out := make([]span, 0, len(at))
	for _, t := range at {
		out = append(out, span{from: t, to: t + hold})
	}
	return out
}

func (s *scriptedConductor) Connected(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	now := s.clk.Since(s.epoch)
	for _, sp := range s.spans {
		if now >= sp.from && now < sp.to {
			return true, nil
		}
	}
	return false, nil
}

// fixedConductor always reports the same level.
type fixedConductor bool

func (f fixedConductor) Connected(ctx context.Context) (bool, error) {
	return bool(f), nil
}
