package blindkey

import (
	"context"
	"fmt"
	"time"
)

// ArmResult is the outcome of one hold-to-arm attempt.
type ArmResult int

const (
	ArmCancelled ArmResult = iota
	Armed
)

func (r ArmResult) String() string {
	if r == Armed {
		return "armed"
	}
	return "cancelled"
}

const (
	defaultArmHold = 3000 * time.Millisecond
	armPoll        = 50 * time.Millisecond
	readyPoll      = 10 * time.Millisecond
	readyBlink     = 500 * time.Millisecond
	buttonDebounce = 50 * time.Millisecond
	cancelNotice   = time.Second
)

// armSession lives for one press of the arm button.
type armSession struct {
	start     time.Time
	lastShown int
}

// remainingSeconds rounds the time left up to whole seconds.
func remainingSeconds(hold, elapsed time.Duration) int {
	left := hold - elapsed
	if left <= 0 {
		return 0
	}
	return int((left + time.Second - 1) / time.Second)
}

// holdToArm requires the button to stay asserted for the whole hold time.
// Release before then cancels; there is no other check.
func (rc *runContext) holdToArm(ctx context.Context, button Conductor, hold time.Duration) (ArmResult, error) {
	s := armSession{start: rc.clk.Now(), lastShown: -1}
	for {
		pressed, err := button.Connected(ctx)
		if err != nil {
			return ArmCancelled, newFault(FaultInputRead, err)
		}
		if !pressed {
			return ArmCancelled, nil
		}
		elapsed := rc.clk.Since(s.start)
		if elapsed >= hold {
			return Armed, nil
		}
		if remaining := remainingSeconds(hold, elapsed); remaining != s.lastShown {
			s.lastShown = remaining
			rc.show(ctx, fmt.Sprintf("HOLD TO ARM: %ds", remaining), "Release=Cancel")
		}
		rc.clk.Sleep(armPoll)
	}
}

// awaitArm runs the ready loop until a hold-to-arm attempt succeeds.
// Cancelled attempts return to ready indefinitely.
func (rc *runContext) awaitArm(ctx context.Context, button Conductor, hold time.Duration) error {
	rc.setState(stateReady)
	rc.show(ctx, "READY", "Press btn 3s...")

	ledOn := false
	lastBlink := rc.clk.Now()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if rc.clk.Since(lastBlink) > readyBlink {
			lastBlink = rc.clk.Now()
			ledOn = !ledOn
			rc.led(ctx, ledOn)
		}

		pressed, err := button.Connected(ctx)
		if err != nil {
			return newFault(FaultInputRead, err)
		}
		if pressed {
			rc.clk.Sleep(buttonDebounce)
			if pressed, err = button.Connected(ctx); err != nil {
				return newFault(FaultInputRead, err)
			}
		}
		if pressed {
			rc.setState(stateArming)
			rc.logger.Infof("arm button pressed, holding for %v", hold)
			result, err := rc.holdToArm(ctx, button, hold)
			if err != nil {
				return err
			}
			if result == Armed {
				rc.logger.Infof("armed")
				return nil
			}
			rc.logger.Infof("arm cancelled, button released early")
			rc.show(ctx, "CANCELLED", "Press btn 3s...")
			rc.clk.Sleep(cancelNotice)
			rc.setState(stateReady)
			rc.show(ctx, "READY", "Press btn 3s...")
		}
		rc.clk.Sleep(readyPoll)
	}
}
