package blindkey

import (
	"context"
	"fmt"
	"io"
	"time"

	"periph.io/x/conn/v3/i2c"
)

// PCF8574 backpack wiring: P0 RS, P1 RW, P2 EN, P3 backlight, P4-P7 D4-D7.
const (
	lcdRS        byte = 0x01
	lcdEnable    byte = 0x04
	lcdBacklight byte = 0x08
)

// HD44780 instructions.
const (
	lcdClear        byte = 0x01
	lcdEntryMode    byte = 0x06 // increment, no shift
	lcdDisplayOn    byte = 0x0C // display on, cursor off, blink off
	lcdFunction4Bit byte = 0x28 // 4-bit bus, 2 lines, 5x8 font
	lcdSetDDRAM     byte = 0x80
)

var lcdRowOffsets = [2]byte{0x00, 0x40}

// lcdDisplay drives a 16x2 HD44780 through a PCF8574 I2C expander in 4-bit mode.
type lcdDisplay struct {
	dev    *i2c.Dev
	closer io.Closer
	clk    Clock
}

func newLCDDisplay(bus i2c.Bus, addr uint16, clk Clock) *lcdDisplay {
	l := &lcdDisplay{dev: &i2c.Dev{Bus: bus, Addr: addr}, clk: clk}
	if c, ok := bus.(io.Closer); ok {
		l.closer = c
	}
	return l
}

// init runs the 4-bit initialization-by-instruction sequence.
func (l *lcdDisplay) init() error {
	l.clk.Sleep(50 * time.Millisecond)
	for _, wait := range []time.Duration{4500 * time.Microsecond, 4500 * time.Microsecond, 150 * time.Microsecond} {
		if err := l.writeNibble(0x03, 0); err != nil {
			return fmt.Errorf("lcd init: %w", err)
		}
		l.clk.Sleep(wait)
	}
	if err := l.writeNibble(0x02, 0); err != nil {
		return fmt.Errorf("lcd init: %w", err)
	}
	for _, cmd := range []byte{lcdFunction4Bit, lcdDisplayOn, lcdClear, lcdEntryMode} {
		if err := l.command(cmd); err != nil {
			return fmt.Errorf("lcd init: %w", err)
		}
	}
	l.clk.Sleep(2 * time.Millisecond)
	return nil
}

func (l *lcdDisplay) Show(ctx context.Context, line1, line2 string) error {
	for row, text := range [2]string{line1, line2} {
		if err := l.command(lcdSetDDRAM | lcdRowOffsets[row]); err != nil {
			return err
		}
		for i := 0; i < len(text); i++ {
			if err := l.write(text[i], lcdRS); err != nil {
				return err
			}
		}
	}
	return nil
}

func (l *lcdDisplay) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

func (l *lcdDisplay) command(b byte) error {
	return l.write(b, 0)
}

func (l *lcdDisplay) write(b, mode byte) error {
	if err := l.writeNibble(b>>4, mode); err != nil {
		return err
	}
	return l.writeNibble(b&0x0F, mode)
}

// writeNibble latches four data bits with an enable pulse.
func (l *lcdDisplay) writeNibble(n, mode byte) error {
	data := n<<4 | mode | lcdBacklight
	if _, err := l.dev.Write([]byte{data | lcdEnable, data &^ lcdEnable}); err != nil {
		return fmt.Errorf("writing to lcd at 0x%02X: %w", l.dev.Addr, err)
	}
	return nil
}

// openLCD scans the bus, checks the backpack answers at addr and initializes
// it. Scan results are reported as display faults.
func openLCD(busName string, addr uint16, clk Clock) (StatusDisplay, error) {
	bus, err := openI2CBus(busName)
	if err != nil {
		return nil, newFault(FaultBusEmpty, err)
	}
	return initLCD(bus, addr, clk)
}

func initLCD(bus i2c.BusCloser, addr uint16, clk Clock) (StatusDisplay, error) {
	if err := classifyDisplayScan(ScanBus(bus, FirstScanAddress, LastScanAddress), addr); err != nil {
		bus.Close()
		return nil, err
	}
	l := newLCDDisplay(bus, addr, clk)
	if err := l.init(); err != nil {
		l.Close()
		return nil, newFault(FaultDisplayAddress, err)
	}
	return l, nil
}
