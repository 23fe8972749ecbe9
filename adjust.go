package blindkey

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	defaultAdjustInitial   = 10 * time.Second
	defaultAdjustExtension = 5 * time.Second
	adjustPoll             = 50 * time.Millisecond
	advanceSettle          = 200 * time.Millisecond
	adjustResultHold       = 500 * time.Millisecond
)

// adjustParams configures one adjustment window.
type adjustParams struct {
	title     string
	initial   time.Duration
	extension time.Duration
	advance   Chord
}

// adjustmentWindow is the state of one window invocation.
type adjustmentWindow struct {
	start       time.Time
	timeout     time.Duration
	prevTouched bool
	extraSteps  int
}

// runAdjustmentWindow keeps a blind wait open while the operator taps the
// touch conductor. Each rising edge emits one advance chord and restarts the
// window from the edge with the extension timeout. The window closes when a
// full timeout passes without a new touch. The timeout is checked before
// every sample, so a touch first seen at or after expiry is not honored.
func (s *Sequencer) runAdjustmentWindow(ctx context.Context, p adjustParams) int {
	rc := s.rc
	w := adjustmentWindow{start: rc.clk.Now(), timeout: p.initial}
	label := "Touch D7"
	lastShown := int(p.initial / time.Second)

	rc.logger.Infof("adjustment window %q open for %v", p.title, p.initial)
	rc.show(ctx, p.title, countdownLine(label, lastShown))
	for {
		elapsed := rc.clk.Since(w.start)
		if elapsed >= w.timeout {
			break
		}

		touched, err := s.touch.Connected(ctx)
		if err != nil {
			rc.logger.Warnf("touch read failed, treating as untouched: %v", err)
			touched = false
		}
		if touched && !w.prevTouched {
			w.start = rc.clk.Now()
			w.timeout = p.extension
			w.extraSteps++
			rc.logger.Infof("touch detected, advance #%d", w.extraSteps)
			rc.led(ctx, true)
			s.emit(ctx, p.advance)
			rc.clk.Sleep(advanceSettle)
			rc.led(ctx, false)
			label = fmt.Sprintf("+%d %s", w.extraSteps, advanceName(p.advance))
			elapsed = rc.clk.Since(w.start)
			lastShown = -1
			s.publishExtraStep()
		}
		w.prevTouched = touched

		if remaining := int((w.timeout - elapsed) / time.Second); remaining != lastShown {
			lastShown = remaining
			rc.show(ctx, p.title, countdownLine(label, remaining))
		}
		rc.clk.Sleep(adjustPoll)
	}

	rc.logger.Infof("adjustment window %q closed with %d extra steps", p.title, w.extraSteps)
	rc.show(ctx, p.title, fmt.Sprintf("Done: +%d %sS", w.extraSteps, advanceName(p.advance)))
	rc.clk.Sleep(adjustResultHold)
	return w.extraSteps
}

func advanceName(c Chord) string {
	return strings.ToUpper(c.String())
}
