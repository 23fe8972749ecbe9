package blindkey

import (
	"context"
	"sync"
	"time"

	"go.viam.com/rdk/logging"
)

type lifecycleState string

const (
	stateBooting  lifecycleState = "booting"
	stateBlocked  lifecycleState = "blocked"
	stateReady    lifecycleState = "ready"
	stateArming   lifecycleState = "arming"
	stateRunning  lifecycleState = "running"
	stateComplete lifecycleState = "complete"
	stateFaulted  lifecycleState = "faulted"
)

// runState is the snapshot published to DoCommand and the run sensor.
type runState struct {
	State          lifecycleState
	Mode           Mode
	RunID          string
	Phase          string
	PhaseIndex     int
	PhaseCount     int
	ExtraSteps     int
	DeleteAttempts int
	Fault          *Fault
	StartedAt      time.Time
	CompletedAt    time.Time
}

// runContext carries the collaborators of the single control goroutine and
// the snapshot it publishes. It is passed by reference and never shared
// with another writer.
type runContext struct {
	clk       Clock
	logger    logging.Logger
	status    *statusSurface
	indicator Indicator
	dryRun    bool

	mu    sync.Mutex
	state runState
}

func newRunContext(clk Clock, logger logging.Logger, status *statusSurface, indicator Indicator) *runContext {
	if indicator == nil {
		indicator = nopIndicator{}
	}
	return &runContext{
		clk:       clk,
		logger:    logger,
		status:    status,
		indicator: indicator,
		state:     runState{State: stateBooting},
	}
}

// show pushes two status lines.
func (rc *runContext) show(ctx context.Context, line1, line2 string) {
	rc.status.Show(ctx, line1, line2)
}

func (rc *runContext) update(fn func(s *runState)) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	fn(&rc.state)
}

func (rc *runContext) setState(s lifecycleState) {
	rc.update(func(st *runState) { st.State = s })
}

func (rc *runContext) snapshot() runState {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.state
}

func (s runState) toMap(displayAvailable, dryRun bool) map[string]interface{} {
	out := map[string]interface{}{
		"state":             string(s.State),
		"mode":              s.Mode.String(),
		"run_id":            s.RunID,
		"phase":             s.Phase,
		"phase_index":       s.PhaseIndex,
		"phase_count":       s.PhaseCount,
		"extra_steps":       s.ExtraSteps,
		"delete_attempts":   s.DeleteAttempts,
		"complete":          s.State == stateComplete,
		"display_available": displayAvailable,
		"dry_run":           dryRun,
	}
	if s.Fault != nil {
		out["fault"] = s.Fault.Code.String()
		out["fault_detail"] = s.Fault.Error()
	}
	if !s.StartedAt.IsZero() {
		out["started_at"] = s.StartedAt.UTC().Format(time.RFC3339)
	}
	if !s.CompletedAt.IsZero() {
		out["completed_at"] = s.CompletedAt.UTC().Format(time.RFC3339)
	}
	return out
}
