// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package calibration

import "github.com/relabs-tech/balance_board/internal/board"

// Entry is a recorded reading tagged with the target active at capture time.
type Entry struct {
	Reading board.Reading `json:"reading"`
	Target  Direction     `json:"target"`
}

// Accumulator is the append-only log of readings seen during a session.
// Insertion order is the sampling order.
type Accumulator struct {
	entries []Entry
}

// Record appends a reading.
func (a *Accumulator) Record(r board.Reading, target Direction) {
	a.entries = append(a.entries, Entry{Reading: r, Target: target})
}

// Len returns the number of recorded readings.
func (a *Accumulator) Len() int { return len(a.entries) }

// Snapshot returns a copy of the recorded readings in capture order.
func (a *Accumulator) Snapshot() []board.Reading {
	out := make([]board.Reading, len(a.entries))
	for i, e := range a.entries {
		out[i] = e.Reading
	}
	return out
}

// Counts returns how many readings were captured per active target.
func (a *Accumulator) Counts() map[Direction]int {
	counts := make(map[Direction]int, 4)
	for _, e := range a.entries {
		counts[e.Target]++
	}
	return counts
}

func (a *Accumulator) reset() {
	a.entries = nil
}
