// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package calibration

import (
	"math"

	"github.com/relabs-tech/balance_board/internal/board"
	"github.com/relabs-tech/balance_board/internal/motion"
)

// Policy turns the session's readings into per-direction factors.
// It may return non-positive or non-finite values for directions it cannot
// estimate; the Solver replaces those with the neutral factor.
type Policy func(samples []board.Reading, m motion.Mapper, neutral Factors) Factors

// Solver derives calibration factors once the target sequence is done.
type Solver struct {
	mapper    motion.Mapper
	policy    Policy
	neutral   Factors
	minFactor float64
	maxFactor float64
}

// NewSolver builds a solver from cfg. A nil cfg.Policy selects RatioPolicy.
func NewSolver(cfg Config) *Solver {
	policy := cfg.Policy
	if policy == nil {
		policy = RatioPolicy
	}
	return &Solver{
		mapper:    cfg.mapper(),
		policy:    policy,
		neutral:   cfg.Neutral,
		minFactor: cfg.MinFactor,
		maxFactor: cfg.MaxFactor,
	}
}

// Solve is deterministic for a given sample sequence. Empty input yields
// the neutral factors.
func (s *Solver) Solve(samples []board.Reading) Factors {
	if len(samples) == 0 {
		return s.neutral
	}
	raw := s.policy(samples, s.mapper, s.neutral)

	var out Factors
	for _, d := range DefaultOrder {
		v := raw.Get(d)
		if !usable(v) {
			out.set(d, s.neutral.Get(d))
			continue
		}
		out.set(d, s.clamp(v))
	}
	return out
}

func (s *Solver) clamp(v float64) float64 {
	if v < s.minFactor {
		v = s.minFactor
	}
	if s.maxFactor > 0 && v > s.maxFactor {
		v = s.maxFactor
	}
	return v
}

// RatioPolicy equalizes the response of opposing directions.
//
// Every reading is mapped to a movement vector; the magnitude of each
// component is averaged per direction it points to (dx>0 right, dx<0 left,
// dy>0 top, dy<0 bottom). A direction's factor is the axis mean (average of
// both opposing means) divided by its own mean, so a board or user that
// responds twice as strongly to the right gets a right factor of 0.75 and a
// left factor of 1.5. An axis missing either side stays neutral.
func RatioPolicy(samples []board.Reading, m motion.Mapper, neutral Factors) Factors {
	var sum [4]float64
	var n [4]int

	for _, r := range samples {
		v := m.Map(r)
		switch {
		case v.X > 0:
			sum[Right] += v.X
			n[Right]++
		case v.X < 0:
			sum[Left] -= v.X
			n[Left]++
		}
		switch {
		case v.Y > 0:
			sum[Top] += v.Y
			n[Top]++
		case v.Y < 0:
			sum[Bottom] -= v.Y
			n[Bottom]++
		}
	}

	mean := func(d Direction) float64 {
		if n[d] == 0 {
			return 0
		}
		return sum[d] / float64(n[d])
	}

	out := neutral
	for _, pair := range [][2]Direction{{Left, Right}, {Top, Bottom}} {
		a, b := mean(pair[0]), mean(pair[1])
		if a <= 0 || b <= 0 || math.IsInf(a, 0) || math.IsInf(b, 0) {
			continue
		}
		ref := (a + b) / 2
		out.set(pair[0], ref/a)
		out.set(pair[1], ref/b)
	}
	return out
}
