// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package motion

import "github.com/relabs-tech/balance_board/internal/board"

// Vector is the 2D movement delta derived from a board reading.
// Positive X leans right, positive Y leans forward (top edge).
type Vector struct {
	X float64 `json:"dx"`
	Y float64 `json:"dy"`
}

// Mapper converts a board reading into a movement vector.
// Alternate sensor layouts plug in here without touching sequencing logic.
type Mapper interface {
	Map(r board.Reading) Vector
}

// MapperFunc adapts a plain function to the Mapper interface.
type MapperFunc func(r board.Reading) Vector

// Map calls f(r).
func (f MapperFunc) Map(r board.Reading) Vector { return f(r) }

// CornerAverage is the default mapper for a four load-cell board.
//
//	dx = avg(right corners) - avg(left corners)
//	dy = avg(top corners)   - avg(bottom corners)
var CornerAverage Mapper = MapperFunc(ComputeVector)

// ComputeVector is the corner averaging used by CornerAverage.
func ComputeVector(r board.Reading) Vector {
	left := (r.TopLeft + r.BottomLeft) / 2
	right := (r.TopRight + r.BottomRight) / 2
	top := (r.TopLeft + r.TopRight) / 2
	bottom := (r.BottomLeft + r.BottomRight) / 2

	return Vector{
		X: right - left,
		Y: top - bottom,
	}
}
