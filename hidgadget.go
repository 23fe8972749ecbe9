package blindkey

import (
	"context"
	"fmt"
	"os"
	"sync"

	"go.viam.com/rdk/logging"
)

// DefaultHIDDevice is the first Linux USB gadget HID function.
const DefaultHIDDevice = "/dev/hidg0"

// gadgetSink writes reports to a USB gadget HID character device.
type gadgetSink struct {
	mu   sync.Mutex
	path string
	f    *os.File
}

func openGadgetSink(path string) (*gadgetSink, error) {
	if path == "" {
		path = DefaultHIDDevice
	}
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("opening hid gadget %s: %w", path, err)
	}
	return &gadgetSink{path: path, f: f}, nil
}

func (g *gadgetSink) WriteReport(ctx context.Context, r Report) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.f == nil {
		return fmt.Errorf("hid gadget %s is closed", g.path)
	}
	if _, err := g.f.Write(r[:]); err != nil {
		return fmt.Errorf("writing report to %s: %w", g.path, err)
	}
	return nil
}

func (g *gadgetSink) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.f == nil {
		return nil
	}
	err := g.f.Close()
	g.f = nil
	return err
}

// componentSink hands each report to a generic component that owns the USB link.
type componentSink struct {
	res commander
}

func (c *componentSink) WriteReport(ctx context.Context, r Report) error {
	report := make([]interface{}, len(r))
	for i, b := range r {
		report[i] = float64(b)
	}
	_, err := c.res.DoCommand(ctx, map[string]interface{}{
		"command": "report",
		"report":  report,
	})
	return err
}

func (c *componentSink) Close() error {
	return nil
}

// dryRunSink logs reports instead of sending them.
type dryRunSink struct {
	logger logging.Logger
}

func (d *dryRunSink) WriteReport(ctx context.Context, r Report) error {
	if r != releaseReport {
		d.logger.Infof("[dry run] report % X", r[:])
	}
	return nil
}

func (d *dryRunSink) Close() error {
	return nil
}
