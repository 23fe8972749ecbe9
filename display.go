package blindkey

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"go.viam.com/rdk/logging"
)

const displayCols = 16

var errNoDisplay = errors.New("no display configured")

// StatusDisplay renders two short text lines.
type StatusDisplay interface {
	Show(ctx context.Context, line1, line2 string) error
	Close() error
}

// commander is the part of a Viam resource used by component-backed adapters.
type commander interface {
	DoCommand(ctx context.Context, cmd map[string]interface{}) (map[string]interface{}, error)
}

// componentDisplay forwards status lines to a generic component.
type componentDisplay struct {
	res commander
}

func (d *componentDisplay) Show(ctx context.Context, line1, line2 string) error {
	_, err := d.res.DoCommand(ctx, map[string]interface{}{
		"command": "show",
		"line1":   line1,
		"line2":   line2,
	})
	return err
}

func (d *componentDisplay) Close() error {
	return nil
}

// statusSurface wraps the optional display. Every line is logged; display
// failures are tolerated by marking the display unavailable and carrying on.
type statusSurface struct {
	display   StatusDisplay
	logger    logging.Logger
	available atomic.Bool
}

func newStatusSurface(display StatusDisplay, logger logging.Logger) *statusSurface {
	s := &statusSurface{display: display, logger: logger}
	s.available.Store(display != nil)
	return s
}

// Probe writes a line pair and reports failure instead of swallowing it.
func (s *statusSurface) Probe(ctx context.Context, line1, line2 string) error {
	if s.display == nil {
		return errNoDisplay
	}
	if err := s.display.Show(ctx, fitLine(line1), fitLine(line2)); err != nil {
		s.available.Store(false)
		return err
	}
	s.available.Store(true)
	return nil
}

func (s *statusSurface) Show(ctx context.Context, line1, line2 string) {
	s.logger.Infof("status: %s | %s", line1, line2)
	if !s.available.Load() {
		return
	}
	if err := s.display.Show(ctx, fitLine(line1), fitLine(line2)); err != nil {
		s.logger.Warnf("display unreachable, continuing without it: %v", err)
		s.available.Store(false)
	}
}

func (s *statusSurface) Available() bool {
	return s.available.Load()
}

func (s *statusSurface) Close() error {
	if s.display == nil {
		return nil
	}
	return s.display.Close()
}

// fitLine pads or truncates to the display width.
func fitLine(s string) string {
	if len(s) > displayCols {
		return s[:displayCols]
	}
	return s + strings.Repeat(" ", displayCols-len(s))
}

// countdownLine right-aligns a seconds counter after a label.
func countdownLine(label string, secs int) string {
	return fmt.Sprintf("%-12.12s%3ds", label, secs)
}
