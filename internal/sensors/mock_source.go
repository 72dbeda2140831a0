// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"math"

	"github.com/relabs-tech/balance_board/internal/board"
	"github.com/relabs-tech/balance_board/internal/calibration"
)

// Lean is one scripted phase of the mock board: Samples readings with Load
// on the two corners of Direction's side.
type Lean struct {
	Direction calibration.Direction
	Load      float64
	Samples   int
}

type mockSource struct {
	script []Lean
	phase  int
	n      int
}

// NewMockSource creates a mock board that plays script in a loop.
func NewMockSource(script []Lean) board.Source {
	return &mockSource{script: script}
}

// MockScript leans toward every target of cfg in order, long enough to
// just cross into each box.
func MockScript(cfg calibration.Config, load float64) []Lean {
	step := load / cfg.Scale
	script := make([]Lean, 0, len(cfg.Order))
	for _, d := range cfg.Order {
		r := cfg.Targets[d].Region
		dist := math.Abs(r.Center.X) - r.Width/2
		if !d.Horizontal() {
			dist = math.Abs(r.Center.Y) - r.Height/2
		}
		script = append(script, Lean{
			Direction: d,
			Load:      load,
			Samples:   int(math.Floor(dist/step)) + 1,
		})
	}
	return script
}

func (m *mockSource) Next() (board.Reading, bool, error) {
	if len(m.script) == 0 {
		return board.Reading{}, false, nil
	}
	lean := m.script[m.phase]
	m.n++
	if m.n >= lean.Samples {
		m.n = 0
		m.phase = (m.phase + 1) % len(m.script)
	}
	return LeanReading(lean.Direction, lean.Load), true, nil
}

// LeanReading loads the two corners on the d side of the board.
func LeanReading(d calibration.Direction, load float64) board.Reading {
	switch d {
	case calibration.Left:
		return board.Reading{TopLeft: load, BottomLeft: load}
	case calibration.Right:
		return board.Reading{TopRight: load, BottomRight: load}
	case calibration.Top:
		return board.Reading{TopLeft: load, TopRight: load}
	case calibration.Bottom:
		return board.Reading{BottomLeft: load, BottomRight: load}
	}
	return board.Reading{}
}
