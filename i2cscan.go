package blindkey

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// Valid 7-bit addresses outside the reserved ranges.
const (
	FirstScanAddress uint16 = 0x03
	LastScanAddress  uint16 = 0x77
)

// DefaultLCDAddress is the usual PCF8574A backpack address.
const DefaultLCDAddress uint16 = 0x3F

// openI2CBus initializes the host drivers and opens a bus by name; an empty
// name picks the first registered bus.
func openI2CBus(name string) (i2c.BusCloser, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("initializing host drivers: %w", err)
	}
	bus, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("opening i2c bus %q: %w", name, err)
	}
	return bus, nil
}

// OpenI2CBus is openI2CBus for command-line tools.
func OpenI2CBus(name string) (i2c.BusCloser, error) {
	return openI2CBus(name)
}

// ScanBus probes every address in [from, to] with a one-byte read and
// returns the addresses that acknowledged.
func ScanBus(bus i2c.Bus, from, to uint16) []uint16 {
	var found []uint16
	var buf [1]byte
	for addr := from; addr <= to; addr++ {
		if err := bus.Tx(addr, nil, buf[:]); err == nil {
			found = append(found, addr)
		}
	}
	return found
}

// IsLCDBackpack reports whether addr is in a PCF8574 or PCF8574A range.
func IsLCDBackpack(addr uint16) bool {
	return (addr >= 0x20 && addr <= 0x27) || (addr >= 0x38 && addr <= 0x3F)
}

// classifyDisplayScan maps a bus scan to the display faults.
func classifyDisplayScan(found []uint16, want uint16) error {
	if len(found) == 0 {
		return newFault(FaultBusEmpty, fmt.Errorf("no devices answered on the i2c bus"))
	}
	for _, addr := range found {
		if addr == want {
			return nil
		}
	}
	for _, addr := range found {
		if IsLCDBackpack(addr) {
			return newFault(FaultDisplayAddress, fmt.Errorf("lcd answered at 0x%02X, configured 0x%02X", addr, want))
		}
	}
	return newFault(FaultDisplayMissing, fmt.Errorf("nothing at 0x%02X", want))
}
