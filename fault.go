package blindkey

import (
	"context"
	"errors"
	"fmt"
)

// FaultCode is a numbered hardware or wiring fault. Faults are terminal.
type FaultCode int

const (
	FaultDisplayMissing FaultCode = 1
	FaultDisplayAddress FaultCode = 2
	FaultBusEmpty       FaultCode = 3
	FaultKeyboardInit   FaultCode = 4
	FaultFloatingWire   FaultCode = 10
	FaultInputRead      FaultCode = 12
	FaultUnknown        FaultCode = 99
)

type faultInfo struct {
	short  string
	detail string
}

var faultCatalog = map[FaultCode]faultInfo{
	FaultDisplayMissing: {"LCD MISSING", "Check I2C wiring"},
	FaultDisplayAddress: {"LCD FAILED", "Wrong address?"},
	FaultBusEmpty:       {"I2C ERROR", "SDA/SCL wiring"},
	FaultKeyboardInit:   {"USB ERROR", "HID init failed"},
	FaultFloatingWire:   {"BAD WIRE", "Pin floating"},
	FaultInputRead:      {"PIN READ FAIL", "Check board"},
	FaultUnknown:        {"UNKNOWN", "Unknown error"},
}

func (c FaultCode) String() string {
	return fmt.Sprintf("E%02d", int(c))
}

func (c FaultCode) info() faultInfo {
	if info, ok := faultCatalog[c]; ok {
		return info
	}
	return faultCatalog[FaultUnknown]
}

// Fault is a terminal error carrying its catalog code.
type Fault struct {
	Code FaultCode
	Err  error
}

func newFault(code FaultCode, err error) *Fault {
	return &Fault{Code: code, Err: err}
}

func (f *Fault) Error() string {
	info := f.Code.info()
	if f.Err == nil {
		return fmt.Sprintf("%s %s: %s", f.Code, info.short, info.detail)
	}
	return fmt.Sprintf("%s %s: %v", f.Code, info.short, f.Err)
}

func (f *Fault) Unwrap() error {
	return f.Err
}

// asFault returns err as a Fault, classifying anything else as unknown.
func asFault(err error) *Fault {
	var f *Fault
	if errors.As(err, &f) {
		return f
	}
	return newFault(FaultUnknown, err)
}

// signalFault renders the fault and blinks its pattern until ctx is done.
// It never returns while the module is running.
func (rc *runContext) signalFault(ctx context.Context, f *Fault) {
	info := f.Code.info()
	rc.logger.Errorf("halting on fault %v", f)
	rc.update(func(s *runState) {
		s.State = stateFaulted
		s.Fault = f
	})
	rc.show(ctx, fmt.Sprintf("%s:%s", f.Code, info.short), info.detail)

	pattern := faultPattern(f.Code)
	for ctx.Err() == nil {
		for _, p := range pattern {
			rc.led(ctx, true)
			rc.clk.Sleep(p.on)
			rc.led(ctx, false)
			rc.clk.Sleep(p.off)
		}
	}
	rc.led(context.Background(), false)
}
