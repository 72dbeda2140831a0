// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package calibration

import (
	"errors"
	"fmt"
	"math"

	"github.com/relabs-tech/balance_board/internal/motion"
)

// Defaults matching the reference board setup.
const (
	DefaultRadius    = 4.0
	DefaultBoxSize   = 0.5
	DefaultScale     = 250.0 // raw units per unit of player travel
	DefaultMinFactor = 0.25
	DefaultMaxFactor = 4.0
)

var (
	// ErrInvalidReading is returned by Session.Step for readings with
	// non-finite values. The reading is skipped; the session keeps running.
	ErrInvalidReading = errors.New("calibration: invalid reading")

	// ErrInvalidConfig is returned when a Config cannot drive a session.
	ErrInvalidConfig = errors.New("calibration: invalid config")
)

// Config is the read-only configuration shared by sessions.
type Config struct {
	// Order is the sequence of targets to visit. Every direction must
	// appear exactly once.
	Order []Direction
	// Targets holds the region of every direction.
	Targets map[Direction]Target
	// Scale divides the mapped movement before it is applied to the player.
	Scale float64
	// Neutral is returned by the solver on empty or degenerate data.
	Neutral Factors
	// MinFactor and MaxFactor bound every solved factor.
	MinFactor float64
	MaxFactor float64

	// Mapper and Policy default to motion.CornerAverage and RatioPolicy.
	Mapper motion.Mapper
	Policy Policy
}

// DefaultConfig returns the reference layout: four 0.5 boxes at radius 4,
// visited left, right, top, bottom, with a movement scale of 250.
func DefaultConfig() Config {
	return Config{
		Order:     append([]Direction(nil), DefaultOrder...),
		Targets:   Layout(DefaultRadius, DefaultBoxSize),
		Scale:     DefaultScale,
		Neutral:   NeutralFactors(1.0),
		MinFactor: DefaultMinFactor,
		MaxFactor: DefaultMaxFactor,
	}
}

// Validate checks that the config can drive a session.
func (c Config) Validate() error {
	if len(c.Order) != 4 {
		return fmt.Errorf("%w: target order must list 4 directions, got %d", ErrInvalidConfig, len(c.Order))
	}
	seen := make(map[Direction]bool, len(c.Order))
	for _, d := range c.Order {
		if d < Left || d > Bottom {
			return fmt.Errorf("%w: unknown direction %d", ErrInvalidConfig, int(d))
		}
		if seen[d] {
			return fmt.Errorf("%w: direction %s listed twice", ErrInvalidConfig, d)
		}
		seen[d] = true
		t, ok := c.Targets[d]
		if !ok {
			return fmt.Errorf("%w: no region for %s target", ErrInvalidConfig, d)
		}
		if t.Direction != d {
			return fmt.Errorf("%w: %s slot holds a %s target", ErrInvalidConfig, d, t.Direction)
		}
		if t.Region.Width <= 0 || t.Region.Height <= 0 {
			return fmt.Errorf("%w: %s target has an empty region", ErrInvalidConfig, d)
		}
	}
	if c.Scale <= 0 || math.IsInf(c.Scale, 0) || math.IsNaN(c.Scale) {
		return fmt.Errorf("%w: movement scale must be positive, got %v", ErrInvalidConfig, c.Scale)
	}
	if !c.Neutral.valid() {
		return fmt.Errorf("%w: neutral factors must be positive, got %+v", ErrInvalidConfig, c.Neutral)
	}
	if c.MinFactor < 0 || (c.MaxFactor > 0 && c.MaxFactor < c.MinFactor) {
		return fmt.Errorf("%w: factor bounds [%v, %v]", ErrInvalidConfig, c.MinFactor, c.MaxFactor)
	}
	return nil
}

// OrderedTargets resolves Order into the target list a Sequencer walks.
func (c Config) OrderedTargets() []Target {
	targets := make([]Target, 0, len(c.Order))
	for _, d := range c.Order {
		targets = append(targets, c.Targets[d])
	}
	return targets
}

func (c Config) mapper() motion.Mapper {
	if c.Mapper != nil {
		return c.Mapper
	}
	return motion.CornerAverage
}
