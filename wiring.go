package blindkey

import (
	"context"
	"fmt"
	"time"
)

const (
	wiringSamples  = 10
	wiringInterval = 5 * time.Millisecond
	// A line is stable if at least this many samples agree.
	wiringMajority = 8
)

// checkWiring samples a conductor repeatedly and reports a floating-wire
// fault when the readings disagree without a clear majority.
func checkWiring(ctx context.Context, clk Clock, name string, c Conductor) error {
	var connected, open int
	for i := 0; i < wiringSamples; i++ {
		v, err := c.Connected(ctx)
		if err != nil {
			return newFault(FaultInputRead, fmt.Errorf("%s: %w", name, err))
		}
		if v {
			connected++
		} else {
			open++
		}
		clk.Sleep(wiringInterval)
	}
	if connected > 0 && open > 0 && connected < wiringMajority && open < wiringMajority {
		return newFault(FaultFloatingWire, fmt.Errorf("%s read %d connected / %d open", name, connected, open))
	}
	return nil
}
