package blindkey

import (
	"context"
	"fmt"
	"time"
)

// SweepConfig holds the empirical bounds of the partition sweep. They are
// tuned to an assumed largest disk layout, not derived.
type SweepConfig struct {
	MaxSweeps         int
	PositionsPerSweep int
	ExtremityMoves    int
}

// DefaultSweepConfig is 4 passes of 8 positions, anchored with 10 moves.
var DefaultSweepConfig = SweepConfig{MaxSweeps: 4, PositionsPerSweep: 8, ExtremityMoves: 10}

func (c SweepConfig) withDefaults() SweepConfig {
	if c.MaxSweeps <= 0 {
		c.MaxSweeps = DefaultSweepConfig.MaxSweeps
	}
	if c.PositionsPerSweep <= 0 {
		c.PositionsPerSweep = DefaultSweepConfig.PositionsPerSweep
	}
	if c.ExtremityMoves <= 0 {
		c.ExtremityMoves = DefaultSweepConfig.ExtremityMoves
	}
	return c
}

// pacedChord is a chord followed by a fixed settle delay.
type pacedChord struct {
	chord Chord
	after time.Duration
}

// deleteSequence reaches the delete action from a selected row and confirms
// the dialog: focus the action panel, move to Delete, press it, focus OK, confirm.
var deleteSequence = []pacedChord{
	{tap(KeyTab), 400 * time.Millisecond},
	{tap(KeyRight), 400 * time.Millisecond},
	{tap(KeyEnter), 500 * time.Millisecond},
	{tap(KeyTab), 300 * time.Millisecond},
	{tap(KeyEnter), 600 * time.Millisecond},
}

const (
	sweepListSettle  = 2000 * time.Millisecond
	sweepRowMove     = 300 * time.Millisecond
	sweepAnchorMove  = 80 * time.Millisecond
	sweepReturnMove  = 60 * time.Millisecond
	sweepHeaderSkip  = 100 * time.Millisecond
	sweepAnchorPause = 200 * time.Millisecond
)

type sweepDirection int

const (
	sweepDown sweepDirection = iota
	sweepUp
)

func (d sweepDirection) key() Key {
	if d == sweepUp {
		return KeyUp
	}
	return KeyDown
}

func (d sweepDirection) String() string {
	if d == sweepUp {
		return "UP"
	}
	return "DN"
}

// sweepState tracks the position of the blind sweep.
type sweepState struct {
	direction sweepDirection
	pass      int
	attempt   int
	total     int
}

// runSweep blindly attempts a delete at every visited row of a list whose
// length and selection are unknown. It anchors at an extremity with more
// moves than the list can hold, then alternates down and up passes,
// re-anchoring at the far extremity between passes. The target refuses to
// delete the last unallocated-space row, which ends the useful work. It
// returns the number of delete attempts.
func (s *Sequencer) runSweep(ctx context.Context) int {
	cfg := s.sweep.withDefaults()
	rc := s.rc
	st := sweepState{}

	rc.clk.Sleep(sweepListSettle)
	s.repeat(ctx, tap(KeyUp), cfg.ExtremityMoves, sweepAnchorMove)
	rc.clk.Sleep(sweepAnchorPause)
	s.skipHeader(ctx, sweepAnchorPause)

	for st.pass = 0; st.pass < cfg.MaxSweeps; st.pass++ {
		st.direction = sweepDown
		if st.pass%2 == 1 {
			st.direction = sweepUp
		}
		rc.logger.Infof("sweep %d/%d %s", st.pass+1, cfg.MaxSweeps, st.direction)
		header := fmt.Sprintf("SWEEP %d/%d %s", st.pass+1, cfg.MaxSweeps, st.direction)
		rc.show(ctx, header, "Deleting...")

		for st.attempt = 0; st.attempt < cfg.PositionsPerSweep; st.attempt++ {
			st.total++
			rc.show(ctx, header, fmt.Sprintf("Deleting... P%d", st.attempt+1))
			for _, step := range deleteSequence {
				s.emit(ctx, step.chord)
				rc.clk.Sleep(step.after)
			}
			s.publishDeleteAttempt()
			s.emit(ctx, tap(st.direction.key()))
			rc.clk.Sleep(sweepRowMove)
		}

		if st.pass == cfg.MaxSweeps-1 {
			break
		}
		// Re-anchor at the opposite end from where this pass finished: the
		// top, under the header, after a down pass; the bottom after an up pass.
		if st.direction == sweepDown {
			s.repeat(ctx, tap(KeyUp), cfg.ExtremityMoves, sweepReturnMove)
			s.skipHeader(ctx, sweepHeaderSkip)
		} else {
			s.repeat(ctx, tap(KeyDown), cfg.ExtremityMoves, sweepReturnMove)
		}
		rc.clk.Sleep(sweepAnchorPause)
	}

	rc.show(ctx, "FINALIZING", "Starting...")
	s.repeat(ctx, tap(KeyUp), cfg.ExtremityMoves, sweepAnchorMove)
	// The only row left should be the unallocated space.
	s.skipHeader(ctx, sweepRowMove)
	return st.total
}

func (s *Sequencer) skipHeader(ctx context.Context, after time.Duration) {
	s.emit(ctx, tap(KeyDown))
	s.rc.clk.Sleep(after)
}

func (s *Sequencer) repeat(ctx context.Context, c Chord, n int, gap time.Duration) {
	for i := 0; i < n; i++ {
		s.emit(ctx, c)
		s.rc.clk.Sleep(gap)
	}
}
