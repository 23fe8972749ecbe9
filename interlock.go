package blindkey

import (
	"context"
	"fmt"
	"time"
)

// Mode is the gate decision. It is taken once per run and never changes.
type Mode int

const (
	ModeBlocked Mode = iota
	ModeCredentialReset
	ModeInstall
)

func (m Mode) String() string {
	switch m {
	case ModeCredentialReset:
		return "credential_reset"
	case ModeInstall:
		return "install"
	default:
		return "blocked"
	}
}

// ParseMode accepts the names produced by Mode.String for the two payload modes.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "credential_reset":
		return ModeCredentialReset, nil
	case "install":
		return ModeInstall, nil
	}
	return ModeBlocked, fmt.Errorf("unknown mode %q (want credential_reset or install)", s)
}

const alertToggle = time.Second

// pollInterlocks samples both interlocks once. Primary connected blocks
// everything; with Primary open, an open Secondary selects the install payload.
func pollInterlocks(ctx context.Context, primary, secondary Conductor) (Mode, error) {
	primaryConnected, err := primary.Connected(ctx)
	if err != nil {
		return ModeBlocked, err
	}
	if primaryConnected {
		return ModeBlocked, nil
	}
	secondaryConnected, err := secondary.Connected(ctx)
	if err != nil {
		return ModeBlocked, err
	}
	if secondaryConnected {
		return ModeCredentialReset, nil
	}
	return ModeInstall, nil
}

// awaitPrimaryOpen holds in the slow alert loop until the primary interlock
// is opened, then samples the mode. Only module shutdown ends it otherwise.
func (rc *runContext) awaitPrimaryOpen(ctx context.Context, primary, secondary Conductor) (Mode, error) {
	mode, err := pollInterlocks(ctx, primary, secondary)
	if err != nil {
		return ModeBlocked, newFault(FaultInputRead, err)
	}
	if mode != ModeBlocked {
		return mode, nil
	}

	rc.setState(stateBlocked)
	rc.logger.Infof("primary safety on, waiting for the primary wire to be removed")
	rc.show(ctx, "SAFETY ON", "Remove D7 wire")
	for {
		if err := ctx.Err(); err != nil {
			return ModeBlocked, err
		}
		rc.led(ctx, true)
		rc.clk.Sleep(alertToggle)
		if err := ctx.Err(); err != nil {
			return ModeBlocked, err
		}
		rc.led(ctx, false)
		rc.clk.Sleep(alertToggle)
		connected, err := primary.Connected(ctx)
		if err != nil {
			return ModeBlocked, newFault(FaultInputRead, err)
		}
		if !connected {
			break
		}
	}
	rc.logger.Infof("primary wire removed, arming")

	mode, err = pollInterlocks(ctx, primary, secondary)
	if err != nil {
		return ModeBlocked, newFault(FaultInputRead, err)
	}
	return mode, nil
}
