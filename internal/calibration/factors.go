// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package calibration

import (
	"math"

	"github.com/relabs-tech/balance_board/internal/motion"
)

// Factors holds one scale factor per direction. It is the record handed to
// storage and published to consumers.
type Factors struct {
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
}

// NeutralFactors returns v for every direction.
func NeutralFactors(v float64) Factors {
	return Factors{Left: v, Right: v, Top: v, Bottom: v}
}

// Get returns the factor for d.
func (f Factors) Get(d Direction) float64 {
	switch d {
	case Left:
		return f.Left
	case Right:
		return f.Right
	case Top:
		return f.Top
	case Bottom:
		return f.Bottom
	}
	return 0
}

func (f *Factors) set(d Direction, v float64) {
	switch d {
	case Left:
		f.Left = v
	case Right:
		f.Right = v
	case Top:
		f.Top = v
	case Bottom:
		f.Bottom = v
	}
}

// Apply scales v by the factor of the direction each component points to.
func (f Factors) Apply(v motion.Vector) motion.Vector {
	out := v
	if v.X > 0 {
		out.X = v.X * f.Right
	} else if v.X < 0 {
		out.X = v.X * f.Left
	}
	if v.Y > 0 {
		out.Y = v.Y * f.Top
	} else if v.Y < 0 {
		out.Y = v.Y * f.Bottom
	}
	return out
}

func (f Factors) valid() bool {
	for _, d := range DefaultOrder {
		if !usable(f.Get(d)) {
			return false
		}
	}
	return true
}

func usable(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
