package blindkey

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.viam.com/rdk/logging"
)

// Keystroke is one pressed chord and the virtual time it was pressed at.
type Keystroke struct {
	At    time.Duration
	Chord Chord
}

// recordingSink keeps every press report with its clock offset.
type recordingSink struct {
	mu    sync.Mutex
	clk   Clock
	epoch time.Time
	keys  []Keystroke
}

func newRecordingSink(clk Clock) *recordingSink {
	return &recordingSink{clk: clk, epoch: clk.Now()}
}

func (r *recordingSink) WriteReport(ctx context.Context, rep Report) error {
	if rep == releaseReport {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, Keystroke{
		At:    r.clk.Since(r.epoch),
		Chord: Chord{Mods: Modifier(rep[0]), Key: Key(rep[2])},
	})
	return nil
}

func (r *recordingSink) Close() error {
	return nil
}

func (r *recordingSink) keystrokes() []Keystroke {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Keystroke(nil), r.keys...)
}

// recordingDisplay keeps every line pair it is shown.
type recordingDisplay struct {
	mu    sync.Mutex
	lines [][2]string
	err   error
}

func (d *recordingDisplay) Show(ctx context.Context, line1, line2 string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.lines = append(d.lines, [2]string{line1, line2})
	return nil
}

func (d *recordingDisplay) Close() error {
	return nil
}

func (d *recordingDisplay) shown() [][2]string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([][2]string(nil), d.lines...)
}

// SimulationOptions describes one offline payload run.
type SimulationOptions struct {
	Mode   Mode
	Script *Script // overrides the built-in script for Mode
	Vars   map[string]string
	// Touches are offsets from the start of the run at which the operator
	// touches the adjustment wire, each held for TouchHold.
	Touches   []time.Duration
	TouchHold time.Duration
	Sweep     SweepConfig
}

// SimulationResult is what a simulated run emitted and displayed.
type SimulationResult struct {
	Report *RunReport
	Keys   []Keystroke
	Status [][2]string
}

const defaultTouchHold = 300 * time.Millisecond

// Simulate runs a payload script on a virtual clock with a recording
// keyboard, so a script can be checked without hardware or real waiting.
func Simulate(opts SimulationOptions, logger logging.Logger) (*SimulationResult, error) {
	if opts.Mode == ModeBlocked {
		return nil, errors.New("simulation needs a payload mode")
	}
	script := opts.Script
	if script == nil {
		var err error
		if script, err = BuiltinScript(opts.Mode); err != nil {
			return nil, err
		}
	}
	if err := script.Validate(opts.Vars); err != nil {
		return nil, fmt.Errorf("invalid script: %w", err)
	}
	hold := opts.TouchHold
	if hold <= 0 {
		hold = defaultTouchHold
	}

	clk := newVirtualClock()
	display := &recordingDisplay{}
	rc := newRunContext(clk, logger, newStatusSurface(display, logger), nil)
	rc.dryRun = true
	sink := newRecordingSink(clk)
	touch := newScriptedConductor(clk, touches(hold, opts.Touches...)...)

	seq := newSequencer(rc, newEmitter(sink, clk, logger, 0, 0), touch, opts.Vars)
	seq.sweep = opts.Sweep.withDefaults()
	report := seq.Run(context.Background(), script, opts.Mode)

	return &SimulationResult{
		Report: report,
		Keys:   sink.keystrokes(),
		Status: display.shown(),
	}, nil
}
