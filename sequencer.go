package blindkey

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	countdownTick   = time.Second
	spamMinInterval = defaultKeyDelay
)

// RunReport summarizes one payload execution. It records what was emitted,
// not what the target did with it.
type RunReport struct {
	RunID          string
	Script         string
	Mode           Mode
	PhasesRun      int
	ExtraSteps     []int
	DeleteAttempts int
	EmitErrors     int
	StartedAt      time.Time
	Elapsed        time.Duration
}

func (r *RunReport) toMap() map[string]interface{} {
	extra := make([]interface{}, len(r.ExtraSteps))
	for i, n := range r.ExtraSteps {
		extra[i] = n
	}
	return map[string]interface{}{
		"run_id":          r.RunID,
		"script":          r.Script,
		"mode":            r.Mode.String(),
		"phases_run":      r.PhasesRun,
		"extra_steps":     extra,
		"delete_attempts": r.DeleteAttempts,
		"emit_errors":     r.EmitErrors,
		"started_at":      r.StartedAt.UTC().Format(time.RFC3339),
		"elapsed_ms":      r.Elapsed.Milliseconds(),
	}
}

// Sequencer runs any script phase by phase. It never inspects or retries.
type Sequencer struct {
	rc        *runContext
	kb        Keyboard
	touch     Conductor
	vars      map[string]string
	initial   time.Duration
	extension time.Duration
	sweep     SweepConfig

	report *RunReport
}

func newSequencer(rc *runContext, kb Keyboard, touch Conductor, vars map[string]string) *Sequencer {
	return &Sequencer{
		rc:        rc,
		kb:        kb,
		touch:     touch,
		vars:      vars,
		initial:   defaultAdjustInitial,
		extension: defaultAdjustExtension,
		sweep:     DefaultSweepConfig,
	}
}

// Run executes every phase in order. Cancellation of ctx is ignored: once a
// payload starts it runs to the end.
func (s *Sequencer) Run(ctx context.Context, script *Script, mode Mode) *RunReport {
	ctx = context.WithoutCancel(ctx)
	rc := s.rc
	s.report = &RunReport{
		RunID:     uuid.NewString(),
		Script:    script.Name,
		Mode:      mode,
		StartedAt: rc.clk.Now(),
	}
	rc.update(func(st *runState) {
		st.State = stateRunning
		st.Mode = mode
		st.RunID = s.report.RunID
		st.PhaseCount = len(script.Phases)
		st.StartedAt = s.report.StartedAt
	})
	rc.logger.Infof("run %s: executing %s (%d phases)", s.report.RunID, script.Name, len(script.Phases))

	for i, p := range script.Phases {
		rc.update(func(st *runState) {
			st.Phase = p.Title
			st.PhaseIndex = i + 1
		})
		rc.show(ctx, p.Title, p.Detail)
		for _, step := range p.Steps {
			s.runStep(ctx, p, step)
		}
		s.report.PhasesRun++
	}

	s.report.Elapsed = rc.clk.Since(s.report.StartedAt)
	rc.logger.Infof("run %s: %s finished in %v, extra steps %v, delete attempts %d, emit errors %d",
		s.report.RunID, script.Name, s.report.Elapsed, s.report.ExtraSteps, s.report.DeleteAttempts, s.report.EmitErrors)
	return s.report
}

func (s *Sequencer) runStep(ctx context.Context, p Phase, st Step) {
	rc := s.rc
	switch st.Action {
	case ActionTap:
		c, err := st.chord()
		if err != nil {
			rc.logger.Errorf("skipping step: %v", err)
			return
		}
		for i := 0; i < st.count(); i++ {
			s.emit(ctx, c)
			rc.clk.Sleep(st.delay())
		}
	case ActionType:
		text, err := expandVars(st.Text, s.vars)
		if err != nil {
			rc.logger.Errorf("skipping step: %v", err)
			return
		}
		if err := s.kb.Type(ctx, text); err != nil {
			s.emitFailed(err)
		}
		rc.clk.Sleep(st.delay())
	case ActionWait:
		s.wait(ctx, p, st)
	case ActionSpam:
		c, err := st.chord()
		if err != nil {
			rc.logger.Errorf("skipping step: %v", err)
			return
		}
		s.spam(ctx, p, c, st.duration())
	case ActionAdjust:
		extra := s.runAdjustmentWindow(ctx, s.adjustParams(p, st))
		s.report.ExtraSteps = append(s.report.ExtraSteps, extra)
	case ActionSweep:
		s.report.DeleteAttempts += s.runSweep(ctx)
	}
}

func (s *Sequencer) adjustParams(p Phase, st Step) adjustParams {
	params := adjustParams{
		title:     st.Title,
		initial:   s.initial,
		extension: s.extension,
		advance:   tap(KeyDown),
	}
	if params.title == "" {
		params.title = p.Title
	}
	if st.InitialMS > 0 {
		params.initial = time.Duration(st.InitialMS) * time.Millisecond
	}
	if st.ExtensionMS > 0 {
		params.extension = time.Duration(st.ExtensionMS) * time.Millisecond
	}
	if st.Key != "" {
		if c, err := st.chord(); err == nil {
			params.advance = c
		}
	}
	return params
}

// wait sleeps, optionally counting whole seconds down on the display.
func (s *Sequencer) wait(ctx context.Context, p Phase, st Step) {
	rc := s.rc
	d := st.duration()
	if !st.Countdown {
		rc.clk.Sleep(d)
		return
	}
	for secs := int(d / countdownTick); secs > 0; secs-- {
		rc.show(ctx, p.Title, countdownLine(p.Detail, secs))
		rc.clk.Sleep(countdownTick)
	}
	rc.clk.Sleep(d % countdownTick)
}

// spam taps a chord back to back until d has elapsed, to catch a short
// firmware hotkey window during power-on.
func (s *Sequencer) spam(ctx context.Context, p Phase, c Chord, d time.Duration) {
	rc := s.rc
	start := rc.clk.Now()
	lastShown := -1
	count := 0
	for rc.clk.Since(start) < d {
		before := rc.clk.Now()
		s.emit(ctx, c)
		count++
		if !rc.clk.Now().After(before) {
			rc.clk.Sleep(spamMinInterval)
		}
		if remaining := int((d - rc.clk.Since(start)) / time.Second); remaining != lastShown && remaining >= 0 {
			lastShown = remaining
			rc.show(ctx, p.Title, countdownLine(p.Detail, remaining))
		}
	}
	rc.logger.Infof("sent %s %d times", c, count)
}

func (s *Sequencer) emit(ctx context.Context, c Chord) {
	if err := s.kb.Tap(ctx, c); err != nil {
		s.emitFailed(err)
	}
}

func (s *Sequencer) emitFailed(err error) {
	if s.report != nil {
		s.report.EmitErrors++
	}
	s.rc.logger.Warnf("keystroke emission failed, continuing: %v", err)
}

func (s *Sequencer) publishExtraStep() {
	s.rc.update(func(st *runState) { st.ExtraSteps++ })
}

func (s *Sequencer) publishDeleteAttempt() {
	s.rc.update(func(st *runState) { st.DeleteAttempts++ })
}

// scriptSummary is used by DoCommand and the CLI.
func scriptSummary(s *Script) map[string]interface{} {
	phases := s.Describe()
	list := make([]interface{}, len(phases))
	for i, p := range phases {
		list[i] = p
	}
	return map[string]interface{}{
		"name":   s.Name,
		"phases": list,
		"count":  len(phases),
	}
}
