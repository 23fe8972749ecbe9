package blindkey

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.viam.com/rdk/logging"
	"go.viam.com/test"
)

func TestEmitterTap(t *testing.T) {
	clk := newVirtualClock()
	sink := &reportLog{}
	e := newEmitter(sink, clk, logging.NewTestLogger(t), 0, 0)
	start := clk.Now()

	err := e.Tap(context.Background(), Chord{Mods: ModAlt, Key: KeyA + 3})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, sink.reports, test.ShouldResemble, []Report{
		{byte(ModAlt), 0, byte(KeyA + 3)},
		releaseReport,
	})
	test.That(t, clk.Since(start), test.ShouldEqual, defaultKeyHold+defaultKeyDelay)
}

func TestEmitterType(t *testing.T) {
	clk := newVirtualClock()
	sink := &reportLog{}
	e := newEmitter(sink, clk, logging.NewTestLogger(t), 10*time.Millisecond, 40*time.Millisecond)
	start := clk.Now()

	test.That(t, e.Type(context.Background(), "Hi!"), test.ShouldBeNil)
	test.That(t, sink.reports, test.ShouldResemble, []Report{
		{byte(ModShift), 0, byte(KeyA + 7)}, releaseReport,
		{0, 0, byte(KeyA + 8)}, releaseReport,
		{byte(ModShift), 0, byte(Key1)}, releaseReport,
	})
	// three strokes with half delay between characters, then a full delay
	test.That(t, clk.Since(start), test.ShouldEqual, 3*(10+20)*time.Millisecond+40*time.Millisecond)

	t.Run("unmapped characters fail", func(t *testing.T) {
		err := e.Type(context.Background(), "a\x01")
		test.That(t, err, test.ShouldNotBeNil)
	})
}

func TestEmitterErrors(t *testing.T) {
	clk := newVirtualClock()
	sink := &reportLog{err: errors.New("endpoint stalled")}
	e := newEmitter(sink, clk, logging.NewTestLogger(t), 0, 0)
	start := clk.Now()

	err := e.Tap(context.Background(), tap(KeyEnter))
	test.That(t, err, test.ShouldNotBeNil)
	// pacing is kept even when the report fails
	test.That(t, clk.Since(start), test.ShouldEqual, defaultKeyDelay)
}

func TestEmitterClose(t *testing.T) {
	sink := &reportLog{}
	e := newEmitter(sink, newVirtualClock(), logging.NewTestLogger(t), 0, 0)

	test.That(t, e.Close(), test.ShouldBeNil)
	test.That(t, sink.reports, test.ShouldResemble, []Report{releaseReport})
	test.That(t, sink.closed, test.ShouldBeTrue)
}

func TestGadgetSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hidg0")
	test.That(t, os.WriteFile(path, nil, 0o600), test.ShouldBeNil)

	g, err := openGadgetSink(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, g.WriteReport(context.Background(), pressReport(tap(KeyF2))), test.ShouldBeNil)
	test.That(t, g.WriteReport(context.Background(), releaseReport), test.ShouldBeNil)
	test.That(t, g.Close(), test.ShouldBeNil)

	data, err := os.ReadFile(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, data, test.ShouldResemble, []byte{0, 0, byte(KeyF2), 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0})

	test.That(t, g.WriteReport(context.Background(), releaseReport), test.ShouldNotBeNil)
	test.That(t, g.Close(), test.ShouldBeNil)

	_, err = openGadgetSink(filepath.Join(t.TempDir(), "missing", "hidg0"))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestComponentSink(t *testing.T) {
	res := &fakeCommander{}
	sink := &componentSink{res: res}

	test.That(t, sink.WriteReport(context.Background(), pressReport(Chord{Mods: ModCtrl, Key: KeyA})), test.ShouldBeNil)
	test.That(t, len(res.cmds), test.ShouldEqual, 1)
	test.That(t, res.cmds[0]["command"], test.ShouldEqual, "report")
	report := res.cmds[0]["report"].([]interface{})
	test.That(t, len(report), test.ShouldEqual, 8)
	test.That(t, report[0], test.ShouldEqual, float64(ModCtrl))
	test.That(t, report[2], test.ShouldEqual, float64(KeyA))

	res.err = errors.New("offline")
	test.That(t, sink.WriteReport(context.Background(), releaseReport), test.ShouldNotBeNil)
}

func TestDryRunSink(t *testing.T) {
	sink := &dryRunSink{logger: logging.NewTestLogger(t)}
	test.That(t, sink.WriteReport(context.Background(), pressReport(tap(KeyF12))), test.ShouldBeNil)
	test.That(t, sink.WriteReport(context.Background(), releaseReport), test.ShouldBeNil)
	test.That(t, sink.Close(), test.ShouldBeNil)
}
