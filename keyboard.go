package blindkey

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.viam.com/rdk/logging"
)

// Keyboard is the keystroke emission primitive. Nothing acknowledges that
// the target received a keystroke.
type Keyboard interface {
	Tap(ctx context.Context, c Chord) error
	Type(ctx context.Context, text string) error
}

// Report is an 8-byte boot-protocol keyboard input report.
type Report [8]byte

func pressReport(c Chord) Report {
	return Report{byte(c.Mods), 0, byte(c.Key)}
}

var releaseReport = Report{}

// reportSink delivers reports to the target.
type reportSink interface {
	WriteReport(ctx context.Context, r Report) error
	Close() error
}

const (
	defaultKeyHold  = 50 * time.Millisecond
	defaultKeyDelay = 100 * time.Millisecond
)

// Emitter turns chords into press, hold, release report pairs with fixed pacing.
type Emitter struct {
	sink   reportSink
	clk    Clock
	logger logging.Logger
	hold   time.Duration
	delay  time.Duration
}

func newEmitter(sink reportSink, clk Clock, logger logging.Logger, hold, delay time.Duration) *Emitter {
	if hold <= 0 {
		hold = defaultKeyHold
	}
	if delay <= 0 {
		delay = defaultKeyDelay
	}
	return &Emitter{sink: sink, clk: clk, logger: logger, hold: hold, delay: delay}
}

// Tap presses, holds and releases a chord, then waits the inter-key delay.
func (e *Emitter) Tap(ctx context.Context, c Chord) error {
	e.logger.Debugf("key %s", c)
	err := e.stroke(ctx, c)
	e.clk.Sleep(e.delay)
	return err
}

// Type emits text one character at a time with half the inter-key delay
// between characters.
func (e *Emitter) Type(ctx context.Context, text string) error {
	e.logger.Debugf("typing %d characters", len(text))
	for i := 0; i < len(text); i++ {
		c, ok := charChord(text[i])
		if !ok {
			return fmt.Errorf("no key for character at offset %d", i)
		}
		if err := e.stroke(ctx, c); err != nil {
			return err
		}
		e.clk.Sleep(e.delay / 2)
	}
	e.clk.Sleep(e.delay)
	return nil
}

func (e *Emitter) stroke(ctx context.Context, c Chord) error {
	if err := e.sink.WriteReport(ctx, pressReport(c)); err != nil {
		return fmt.Errorf("pressing %s: %w", c, err)
	}
	e.clk.Sleep(e.hold)
	if err := e.sink.WriteReport(ctx, releaseReport); err != nil {
		return fmt.Errorf("releasing %s: %w", c, err)
	}
	return nil
}

func (e *Emitter) Close() error {
	// Leave no key held on the target.
	return multierr.Combine(
		e.sink.WriteReport(context.Background(), releaseReport),
		e.sink.Close(),
	)
}
