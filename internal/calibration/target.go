// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package calibration

import (
	"fmt"
	"strings"
)

// Direction names one of the four calibration targets.
type Direction int

const (
	Left Direction = iota
	Right
	Top
	Bottom
)

// DefaultOrder walks the horizontal axis first, then the vertical one.
var DefaultOrder = []Direction{Left, Right, Top, Bottom}

func (d Direction) String() string {
	switch d {
	case Left:
		return "left"
	case Right:
		return "right"
	case Top:
		return "top"
	case Bottom:
		return "bottom"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// Horizontal reports whether the direction moves the player along X.
func (d Direction) Horizontal() bool {
	return d == Left || d == Right
}

// MarshalText encodes the direction by name for JSON payloads.
func (d Direction) MarshalText() ([]byte, error) {
	if d < Left || d > Bottom {
		return nil, fmt.Errorf("unknown direction %d", int(d))
	}
	return []byte(d.String()), nil
}

// UnmarshalText accepts the names produced by MarshalText.
func (d *Direction) UnmarshalText(b []byte) error {
	parsed, err := ParseDirection(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseDirection parses "left", "right", "top" or "bottom" (case-insensitive).
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "left":
		return Left, nil
	case "right":
		return Right, nil
	case "top":
		return Top, nil
	case "bottom":
		return Bottom, nil
	}
	return 0, fmt.Errorf("unknown direction %q", s)
}

// ParseOrder parses a comma separated list of directions.
func ParseOrder(s string) ([]Direction, error) {
	var order []Direction
	for _, part := range strings.Split(s, ",") {
		d, err := ParseDirection(part)
		if err != nil {
			return nil, err
		}
		order = append(order, d)
	}
	return order, nil
}

// Point is a position on the calibration plane.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Region is an axis-aligned box: Center plus full Width/Height.
type Region struct {
	Center Point   `json:"center"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Contains reports whether p lies inside the box, edges included.
func (r Region) Contains(p Point) bool {
	hw, hh := r.Width/2, r.Height/2
	return p.X >= r.Center.X-hw && p.X <= r.Center.X+hw &&
		p.Y >= r.Center.Y-hh && p.Y <= r.Center.Y+hh
}

// Target is a directional box the user has to reach.
type Target struct {
	Direction Direction `json:"direction"`
	Region    Region    `json:"region"`
}

// Layout places the four targets at radius from the origin with square
// boxes of the given size.
func Layout(radius, size float64) map[Direction]Target {
	box := func(d Direction, x, y float64) Target {
		return Target{Direction: d, Region: Region{Center: Point{X: x, Y: y}, Width: size, Height: size}}
	}
	return map[Direction]Target{
		Left:   box(Left, -radius, 0),
		Right:  box(Right, radius, 0),
		Top:    box(Top, 0, radius),
		Bottom: box(Bottom, 0, -radius),
	}
}
