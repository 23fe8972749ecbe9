package blindkey

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRemainingSeconds(t *testing.T) {
	cases := []struct {
		elapsed time.Duration
		want    int
	}{
		{0, 3},
		{50 * time.Millisecond, 3},
		{time.Second, 2},
		{1999 * time.Millisecond, 2},
		{2500 * time.Millisecond, 1},
		{3 * time.Second, 0},
		{4 * time.Second, 0},
	}
	for _, tc := range cases {
		if got := remainingSeconds(3*time.Second, tc.elapsed); got != tc.want {
			t.Errorf("remainingSeconds(3s, %v) = %d, want %d", tc.elapsed, got, tc.want)
		}
	}
}

func TestHoldToArm(t *testing.T) {
	t.Run("arms after a full hold", func(t *testing.T) {
		rig := newTestRig(t)
		button := newScriptedConductor(rig.clk, span{from: 0, to: 5 * time.Second})

		result, err := rig.rc.holdToArm(context.Background(), button, 3*time.Second)
		if err != nil {
			t.Fatalf("holdToArm failed: %v", err)
		}
		if result != Armed {
			t.Fatalf("expected armed, got %v", result)
		}
		if got := rig.elapsed(); got != 3*time.Second {
			t.Errorf("armed after %v, want 3s", got)
		}
		for _, line := range []string{"HOLD TO ARM: 3s", "HOLD TO ARM: 2s", "HOLD TO ARM: 1s"} {
			if !sawLine(rig.display.shown(), line) {
				t.Errorf("expected countdown line %q", line)
			}
		}
	})

	t.Run("early release cancels", func(t *testing.T) {
		rig := newTestRig(t)
		button := newScriptedConductor(rig.clk, span{from: 0, to: 2900 * time.Millisecond})

		result, err := rig.rc.holdToArm(context.Background(), button, 3*time.Second)
		if err != nil {
			t.Fatalf("holdToArm failed: %v", err)
		}
		if result != ArmCancelled {
			t.Errorf("expected cancelled, got %v", result)
		}
	})

	t.Run("read error is a pin fault", func(t *testing.T) {
		rig := newTestRig(t)

		_, err := rig.rc.holdToArm(context.Background(), brokenConductor{}, 3*time.Second)
		var f *Fault
		if !errors.As(err, &f) || f.Code != FaultInputRead {
			t.Errorf("expected E12 fault, got %v", err)
		}
	})
}

func TestAwaitArm(t *testing.T) {
	t.Run("cancelled attempt returns to ready then arms", func(t *testing.T) {
		rig := newTestRig(t)
		button := newScriptedConductor(rig.clk,
			span{from: time.Second, to: 1500 * time.Millisecond},
			span{from: 3 * time.Second, to: 7 * time.Second},
		)

		if err := rig.rc.awaitArm(context.Background(), button, 3*time.Second); err != nil {
			t.Fatalf("awaitArm failed: %v", err)
		}
		lines := rig.display.shown()
		if !sawLine(lines, "CANCELLED") {
			t.Error("expected a CANCELLED notice for the short press")
		}
		if lines[0][0] != fitLine("READY") {
			t.Errorf("expected READY first, got %q", lines[0][0])
		}
		if got := rig.elapsed(); got < 6*time.Second || got > 7*time.Second {
			t.Errorf("armed at %v, want between 6s and 7s", got)
		}
		if got := rig.rc.snapshot().State; got != stateArming {
			t.Errorf("state = %s, want %s", got, stateArming)
		}
	})

	t.Run("bounce shorter than debounce is ignored", func(t *testing.T) {
		rig := newTestRig(t)
		button := newScriptedConductor(rig.clk,
			span{from: time.Second, to: time.Second + 20*time.Millisecond},
			span{from: 2 * time.Second, to: 6 * time.Second},
		)

		if err := rig.rc.awaitArm(context.Background(), button, 3*time.Second); err != nil {
			t.Fatalf("awaitArm failed: %v", err)
		}
		if sawLine(rig.display.shown(), "CANCELLED") {
			t.Error("bounce should not start a hold attempt")
		}
	})

	t.Run("stops on shutdown", func(t *testing.T) {
		rig := newTestRig(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := rig.rc.awaitArm(ctx, fixedConductor(false), 3*time.Second)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("read error is a pin fault", func(t *testing.T) {
		rig := newTestRig(t)

		err := rig.rc.awaitArm(context.Background(), brokenConductor{}, 3*time.Second)
		var f *Fault
		if !errors.As(err, &f) || f.Code != FaultInputRead {
			t.Errorf("expected E12 fault, got %v", err)
		}
	})
}
