// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package board

import "math"

// Reading represents a single raw sample from the four board corners.
type Reading struct {
	TopLeft     float64 `json:"tl"`
	TopRight    float64 `json:"tr"`
	BottomLeft  float64 `json:"bl"`
	BottomRight float64 `json:"br"`
}

// Valid reports whether every corner value is a finite number.
func (r Reading) Valid() bool {
	for _, v := range [4]float64{r.TopLeft, r.TopRight, r.BottomLeft, r.BottomRight} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Source is anything that can provide readings over time.
// Live transports and dataset replay both satisfy it, so callers never
// distinguish between them.
//
// Next never blocks for long: ok=false with a nil error means no new
// sample is available this tick. A finite source returns io.EOF once it
// has been drained.
type Source interface {
	Next() (r Reading, ok bool, err error)
}
