package blindkey

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.viam.com/test"
)

func TestPollInterlocks(t *testing.T) {
	cases := []struct {
		name               string
		primary, secondary Conductor
		want               Mode
	}{
		{"primary connected blocks", fixedConductor(true), fixedConductor(false), ModeBlocked},
		{"primary connected blocks regardless of secondary", fixedConductor(true), fixedConductor(true), ModeBlocked},
		{"secondary connected selects credential reset", fixedConductor(false), fixedConductor(true), ModeCredentialReset},
		{"both open selects install", fixedConductor(false), fixedConductor(false), ModeInstall},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mode, err := pollInterlocks(context.Background(), tc.primary, tc.secondary)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, mode, test.ShouldEqual, tc.want)
		})
	}

	t.Run("secondary is not read while blocked", func(t *testing.T) {
		mode, err := pollInterlocks(context.Background(), fixedConductor(true), brokenConductor{})
		test.That(t, err, test.ShouldBeNil)
		test.That(t, mode, test.ShouldEqual, ModeBlocked)
	})
}

func TestParseMode(t *testing.T) {
	for _, m := range []Mode{ModeCredentialReset, ModeInstall} {
		got, err := ParseMode(m.String())
		test.That(t, err, test.ShouldBeNil)
		test.That(t, got, test.ShouldEqual, m)
	}
	_, err := ParseMode("blocked")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestAwaitPrimaryOpen(t *testing.T) {
	t.Run("open primary returns the mode immediately", func(t *testing.T) {
		rig := newTestRig(t)
		mode, err := rig.rc.awaitPrimaryOpen(context.Background(), fixedConductor(false), fixedConductor(false))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, mode, test.ShouldEqual, ModeInstall)
		test.That(t, rig.display.shown(), test.ShouldBeEmpty)
	})

	t.Run("alert loop waits for the wire to be removed", func(t *testing.T) {
		rig := newTestRig(t)
		primary := newScriptedConductor(rig.clk, span{from: 0, to: 5 * time.Second})

		mode, err := rig.rc.awaitPrimaryOpen(context.Background(), primary, fixedConductor(true))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, mode, test.ShouldEqual, ModeCredentialReset)
		test.That(t, rig.elapsed(), test.ShouldEqual, 6*time.Second)
		test.That(t, rig.display.shown()[0], test.ShouldResemble, [2]string{fitLine("SAFETY ON"), fitLine("Remove D7 wire")})
		test.That(t, rig.rc.snapshot().State, test.ShouldEqual, stateBlocked)
	})

	t.Run("blocked gate exits on shutdown", func(t *testing.T) {
		rig := newTestRig(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		mode, err := rig.rc.awaitPrimaryOpen(ctx, fixedConductor(true), fixedConductor(true))
		test.That(t, errors.Is(err, context.Canceled), test.ShouldBeTrue)
		test.That(t, mode, test.ShouldEqual, ModeBlocked)
	})

	t.Run("shutdown during the alert ends it at the next toggle", func(t *testing.T) {
		rig := newTestRig(t)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		rig.rc.indicator = cancelOnLight{cancel: cancel}

		_, err := rig.rc.awaitPrimaryOpen(ctx, fixedConductor(true), fixedConductor(true))
		test.That(t, errors.Is(err, context.Canceled), test.ShouldBeTrue)
		test.That(t, rig.elapsed(), test.ShouldEqual, alertToggle)
	})

	t.Run("read error is a pin fault", func(t *testing.T) {
		rig := newTestRig(t)
		_, err := rig.rc.awaitPrimaryOpen(context.Background(), brokenConductor{}, fixedConductor(true))
		test.That(t, asFault(err).Code, test.ShouldEqual, FaultInputRead)
	})
}

// cancelOnLight cancels a context the first time the LED is lit.
type cancelOnLight struct {
	cancel context.CancelFunc
}

func (c cancelOnLight) Set(ctx context.Context, on bool) error {
	if on {
		c.cancel()
	}
	return nil
}
