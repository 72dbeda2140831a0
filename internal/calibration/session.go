// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package calibration

import (
	"fmt"

	"github.com/relabs-tech/balance_board/internal/board"
	"github.com/relabs-tech/balance_board/internal/motion"
)

// Status is the lifecycle state of a Session.
type Status int

const (
	Running Status = iota
	Finished
	Aborted
)

func (s Status) String() string {
	switch s {
	case Running:
		return "running"
	case Finished:
		return "finished"
	case Aborted:
		return "aborted"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// StepResult describes what a single Step did.
type StepResult struct {
	Outcome Outcome `json:"outcome"`
	// Target is the target reached (Advance) or wrongly entered (WrongTarget).
	Target Direction `json:"target"`
	// Active is the target to reach after this step; HasActive is false once
	// the sequence is done. A change of Active between steps is the cue for
	// presentation layers to animate the next box.
	Active    Direction `json:"active"`
	HasActive bool      `json:"has_active"`
	Position  Point     `json:"position"`
	Finished  bool      `json:"finished"`
}

// State is a snapshot of the session's mutable state.
type State struct {
	Status      Status `json:"status"`
	ActiveIndex int    `json:"active_index"`
	Position    Point  `json:"position"`
	Samples     int    `json:"samples"`
	Calibrated  bool   `json:"calibrated"`
}

// Session runs one calibration from the first reading to the solved
// factors (or an abort). It owns all of its state and is not safe for
// concurrent use.
type Session struct {
	scale    float64
	mapper   motion.Mapper
	seq      *Sequencer
	acc      Accumulator
	solver   *Solver
	targets  []Target
	position Point
	status   Status
	factors  Factors
}

// NewSession validates cfg and returns a running session at Active(0).
func NewSession(cfg Config) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	targets := cfg.OrderedTargets()
	return &Session{
		scale:   cfg.Scale,
		mapper:  cfg.mapper(),
		seq:     NewSequencer(targets),
		solver:  NewSolver(cfg),
		targets: targets,
		status:  Running,
	}, nil
}

// Step processes one reading. Stepping a finished or aborted session is a
// no-op. A non-finite reading is skipped and reported with ErrInvalidReading.
func (s *Session) Step(r board.Reading) (StepResult, error) {
	if s.status != Running {
		return StepResult{Position: s.position, Finished: s.status == Finished}, nil
	}
	active, ok := s.seq.Active()
	if !ok {
		// Unreachable while Running; finish defensively rather than index past Done.
		s.finish()
		return StepResult{Position: s.position, Finished: true}, nil
	}
	if !r.Valid() {
		return s.result(None, Target{}), fmt.Errorf("%w: %+v", ErrInvalidReading, r)
	}

	s.acc.Record(r, active.Direction)

	v := s.mapper.Map(r)
	if active.Direction.Horizontal() {
		s.position.X += v.X / s.scale
	} else {
		s.position.Y += v.Y / s.scale
	}

	outcome, target := s.seq.Check(s.position)
	if outcome == Advance {
		s.position = Point{}
		if s.seq.Done() {
			s.finish()
		}
	}
	return s.result(outcome, target), nil
}

// Abort ends a running session without solving. It reports whether the
// session was running.
func (s *Session) Abort() bool {
	if s.status != Running {
		return false
	}
	s.status = Aborted
	s.acc.reset()
	s.position = Point{}
	return true
}

// Factors returns the solved factors once the session has finished.
func (s *Session) Factors() (Factors, bool) {
	if s.status != Finished {
		return Factors{}, false
	}
	return s.factors, true
}

// Status returns the lifecycle state.
func (s *Session) Status() Status { return s.status }

// Active returns the target currently to be reached.
func (s *Session) Active() (Target, bool) {
	if s.status != Running {
		return Target{}, false
	}
	return s.seq.Active()
}

// Targets returns the targets in visiting order.
func (s *Session) Targets() []Target {
	return append([]Target(nil), s.targets...)
}

// State returns a snapshot of the session.
func (s *Session) State() State {
	return State{
		Status:      s.status,
		ActiveIndex: s.seq.Index(),
		Position:    s.position,
		Samples:     s.acc.Len(),
		Calibrated:  s.status == Finished,
	}
}

// SampleCounts returns the number of readings captured per target.
func (s *Session) SampleCounts() map[Direction]int { return s.acc.Counts() }

func (s *Session) finish() {
	if s.status != Running {
		return
	}
	s.factors = s.solver.Solve(s.acc.Snapshot())
	s.status = Finished
}

func (s *Session) result(outcome Outcome, target Target) StepResult {
	res := StepResult{
		Outcome:  outcome,
		Target:   target.Direction,
		Position: s.position,
		Finished: s.status == Finished,
	}
	if next, ok := s.Active(); ok {
		res.Active = next.Direction
		res.HasActive = true
	}
	return res
}
