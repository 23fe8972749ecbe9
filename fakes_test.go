package blindkey

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.viam.com/rdk/logging"
)

var errBrokenPin = errors.New("pin read failed")

// brokenConductor fails every read.
type brokenConductor struct{}

func (brokenConductor) Connected(context.Context) (bool, error) {
	return false, errBrokenPin
}

// flipConductor alternates on every read, like a floating input.
type flipConductor struct {
	mu sync.Mutex
	v  bool
}

func (f *flipConductor) Connected(context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.v = !f.v
	return f.v, nil
}

// reportLog records every report written, releases included.
type reportLog struct {
	mu      sync.Mutex
	reports []Report
	err     error
	closed  bool
}

func (l *reportLog) WriteReport(ctx context.Context, r Report) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	l.reports = append(l.reports, r)
	return nil
}

func (l *reportLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}

// fakeCommander records DoCommand calls.
type fakeCommander struct {
	mu   sync.Mutex
	cmds []map[string]interface{}
	err  error
}

func (f *fakeCommander) DoCommand(ctx context.Context, cmd map[string]interface{}) (map[string]interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cmds = append(f.cmds, cmd)
	return map[string]interface{}{}, f.err
}

// recordingIndicator counts LED transitions.
type recordingIndicator struct {
	mu  sync.Mutex
	ons int
	on  bool
}

func (r *recordingIndicator) Set(ctx context.Context, on bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if on && !r.on {
		r.ons++
	}
	r.on = on
	return nil
}

type testRig struct {
	clk     *virtualClock
	display *recordingDisplay
	sink    *recordingSink
	rc      *runContext
}

func newTestRig(t *testing.T) *testRig {
	t.Helper()
	clk := newVirtualClock()
	display := &recordingDisplay{}
	logger := logging.NewTestLogger(t)
	return &testRig{
		clk:     clk,
		display: display,
		sink:    newRecordingSink(clk),
		rc:      newRunContext(clk, logger, newStatusSurface(display, logger), nil),
	}
}

func (r *testRig) sequencer(touch Conductor, vars map[string]string) *Sequencer {
	return newSequencer(r.rc, newEmitter(r.sink, r.clk, r.rc.logger, 0, 0), touch, vars)
}

func (r *testRig) elapsed() time.Duration {
	return r.clk.Since(r.sink.epoch)
}

func chordsOf(keys []Keystroke) []Chord {
	out := make([]Chord, len(keys))
	for i, k := range keys {
		out[i] = k.Chord
	}
	return out
}

func sawLine(lines [][2]string, line1 string) bool {
	for _, l := range lines {
		if l[0] == fitLine(line1) {
			return true
		}
	}
	return false
}

// waitForState polls the controller snapshot until it reaches want.
func waitForState(t *testing.T, c *setupController, want lifecycleState) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if c.rc.snapshot().State == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("controller never reached state %s, last %s", want, c.rc.snapshot().State)
}
