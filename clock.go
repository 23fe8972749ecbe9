package blindkey

import (
	"time"

	"github.com/benbjohnson/clock"
)

// Clock is the only time source used by the control loop. Sleep blocks and
// cannot be interrupted once entered.
type Clock interface {
	Now() time.Time
	Since(t time.Time) time.Duration
	Sleep(d time.Duration)
}

func newRealClock() Clock {
	return clock.New()
}

// virtualClock advances instantly on Sleep. Used for dry-run simulation and tests.
type virtualClock struct {
	*clock.Mock
}

func newVirtualClock() *virtualClock {
	return &virtualClock{Mock: clock.NewMock()}
}

func (v *virtualClock) Sleep(d time.Duration) {
	v.Add(d)
}
