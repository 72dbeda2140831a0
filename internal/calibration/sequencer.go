// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package calibration

// Outcome is what a position check produced.
type Outcome int

const (
	// None: the position is outside every target.
	None Outcome = iota
	// Advance: the active target was reached. The caller recenters the player.
	Advance
	// WrongTarget: the position is inside a target that is not active.
	WrongTarget
)

func (o Outcome) String() string {
	switch o {
	case Advance:
		return "advance"
	case WrongTarget:
		return "wrong_target"
	default:
		return "none"
	}
}

// MarshalText encodes the outcome by name.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Sequencer walks the ordered targets. It is Active(i) while index < len
// and Done afterwards; Done is terminal.
type Sequencer struct {
	targets []Target
	index   int
}

// NewSequencer starts in Active(0).
func NewSequencer(targets []Target) *Sequencer {
	return &Sequencer{targets: append([]Target(nil), targets...)}
}

// Active returns the current target, or false once Done.
func (s *Sequencer) Active() (Target, bool) {
	if s.Done() {
		return Target{}, false
	}
	return s.targets[s.index], true
}

// Index returns the active target index; it equals Len() when Done.
func (s *Sequencer) Index() int { return s.index }

// Len returns the number of targets in the sequence.
func (s *Sequencer) Len() int { return len(s.targets) }

// Done reports whether every target has been visited.
func (s *Sequencer) Done() bool { return s.index >= len(s.targets) }

// Check tests p against the active target first, then against every other
// target. It returns the outcome and the target involved.
func (s *Sequencer) Check(p Point) (Outcome, Target) {
	active, ok := s.Active()
	if !ok {
		return None, Target{}
	}
	if active.Region.Contains(p) {
		s.index++
		return Advance, active
	}
	for i, t := range s.targets {
		if i == s.index {
			continue
		}
		if t.Region.Contains(p) {
			return WrongTarget, t
		}
	}
	return None, Target{}
}
