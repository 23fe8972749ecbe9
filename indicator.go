package blindkey

import (
	"context"
	"fmt"
	"time"

	"go.viam.com/rdk/components/board"
)

// Indicator is the status LED.
type Indicator interface {
	Set(ctx context.Context, on bool) error
}

type pinIndicator struct {
	name string
	pin  board.GPIOPin
}

func newPinIndicator(b board.Board, name string) (*pinIndicator, error) {
	pin, err := b.GPIOPinByName(name)
	if err != nil {
		return nil, fmt.Errorf("getting led pin %q: %w", name, err)
	}
	return &pinIndicator{name: name, pin: pin}, nil
}

func (p *pinIndicator) Set(ctx context.Context, on bool) error {
	return p.pin.Set(ctx, on, nil)
}

type nopIndicator struct{}

func (nopIndicator) Set(context.Context, bool) error { return nil }

// blink pulses the indicator times, on and off for d each.
func (rc *runContext) blink(ctx context.Context, times int, d time.Duration) {
	for i := 0; i < times; i++ {
		rc.led(ctx, true)
		rc.clk.Sleep(d)
		rc.led(ctx, false)
		rc.clk.Sleep(d)
	}
}

func (rc *runContext) led(ctx context.Context, on bool) {
	if err := rc.indicator.Set(ctx, on); err != nil {
		rc.logger.Debugf("indicator: %v", err)
	}
}

// pulse is one element of an LED blink pattern.
type pulse struct {
	on, off time.Duration
}

// faultPattern is the blink sequence for one repetition of a fault code.
// Codes below 10 blink the code as short pulses. Larger codes blink the tens
// digit long, pause, then the ones digit short, where a zero digit is ten blinks.
func faultPattern(code FaultCode) []pulse {
	n := int(code)
	long := pulse{on: 400 * time.Millisecond, off: 200 * time.Millisecond}
	short := pulse{on: 150 * time.Millisecond, off: 150 * time.Millisecond}

	var out []pulse
	if n < 10 {
		for i := 0; i < n; i++ {
			out = append(out, short)
		}
	} else {
		tens, ones := n/10, n%10
		for i := 0; i < tens; i++ {
			out = append(out, long)
		}
		out[len(out)-1].off += 500 * time.Millisecond
		if ones == 0 {
			ones = 10
		}
		for i := 0; i < ones; i++ {
			out = append(out, short)
		}
	}
	out[len(out)-1].off += 2 * time.Second
	return out
}
