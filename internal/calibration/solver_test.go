package calibration

import (
	"math"
	"testing"

	"github.com/relabs-tech/balance_board/internal/board"
	"github.com/relabs-tech/balance_board/internal/motion"
)

func repeat(r board.Reading, n int) []board.Reading {
	out := make([]board.Reading, n)
	for i := range out {
		out[i] = r
	}
	return out
}

var (
	leanLeft   = board.Reading{TopLeft: 1, BottomLeft: 1}
	leanRight  = board.Reading{TopRight: 1, BottomRight: 1}
	leanTop    = board.Reading{TopLeft: 1, TopRight: 1}
	leanBottom = board.Reading{BottomLeft: 1, BottomRight: 1}
)

func TestSolveEmptyReturnsNeutral(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Neutral = NeutralFactors(1.5)
	s := NewSolver(cfg)

	if got := s.Solve(nil); got != cfg.Neutral {
		t.Errorf("expected %+v, got %+v", cfg.Neutral, got)
	}
	if got := s.Solve([]board.Reading{}); got != cfg.Neutral {
		t.Errorf("expected %+v, got %+v", cfg.Neutral, got)
	}
}

func TestSolveAllZeroReturnsNeutral(t *testing.T) {
	s := NewSolver(DefaultConfig())
	got := s.Solve(repeat(board.Reading{}, 200))
	if got != NeutralFactors(1) {
		t.Errorf("expected neutral factors, got %+v", got)
	}
}

func TestSolveSymmetric(t *testing.T) {
	var samples []board.Reading
	for _, r := range []board.Reading{leanLeft, leanRight, leanTop, leanBottom} {
		samples = append(samples, repeat(r, 50)...)
	}
	got := NewSolver(DefaultConfig()).Solve(samples)
	if got != NeutralFactors(1) {
		t.Errorf("expected 1.0 everywhere, got %+v", got)
	}
}

func TestSolveEqualizesOpposingDirections(t *testing.T) {
	samples := append(repeat(board.Reading{TopLeft: 1, BottomLeft: 1}, 10),
		repeat(board.Reading{TopRight: 2, BottomRight: 2}, 10)...)

	got := NewSolver(DefaultConfig()).Solve(samples)
	if math.Abs(got.Left-1.5) > 1e-12 || math.Abs(got.Right-0.75) > 1e-12 {
		t.Errorf("expected left=1.5 right=0.75, got %+v", got)
	}
	// No vertical response recorded.
	if got.Top != 1 || got.Bottom != 1 {
		t.Errorf("expected neutral vertical factors, got %+v", got)
	}

	// Applying the factors balances the response.
	l := got.Apply(motion.ComputeVector(samples[0]))
	r := got.Apply(motion.ComputeVector(samples[len(samples)-1]))
	if math.Abs(-l.X-r.X) > 1e-12 {
		t.Errorf("calibrated response not balanced: left %v, right %v", l.X, r.X)
	}
}

func TestSolveOneSidedAxisStaysNeutral(t *testing.T) {
	got := NewSolver(DefaultConfig()).Solve(repeat(leanRight, 20))
	if got != NeutralFactors(1) {
		t.Errorf("expected neutral factors, got %+v", got)
	}
}

func TestSolveClampsFactors(t *testing.T) {
	samples := append(repeat(leanLeft, 5), repeat(board.Reading{TopRight: 100, BottomRight: 100}, 5)...)
	got := NewSolver(DefaultConfig()).Solve(samples)
	if got.Left != DefaultMaxFactor {
		t.Errorf("expected left clamped to %v, got %v", DefaultMaxFactor, got.Left)
	}
	if got.Right < DefaultMinFactor || got.Right > 1 {
		t.Errorf("unexpected right factor %v", got.Right)
	}
}

func TestSolveReplacesUnusablePolicyOutput(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Neutral = NeutralFactors(2)
	cfg.Policy = func(_ []board.Reading, _ motion.Mapper, _ Factors) Factors {
		return Factors{Left: math.NaN(), Right: math.Inf(1), Top: -1, Bottom: 0.5}
	}
	got := NewSolver(cfg).Solve(repeat(leanLeft, 3))
	want := Factors{Left: 2, Right: 2, Top: 2, Bottom: 0.5}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

func TestSolveDeterministic(t *testing.T) {
	samples := []board.Reading{
		{TopLeft: 3, TopRight: 1, BottomLeft: 2, BottomRight: 0.5},
		{TopLeft: 0.2, TopRight: 4, BottomLeft: 1, BottomRight: 3},
		{TopLeft: 1, TopRight: 1, BottomLeft: 5, BottomRight: 2},
	}
	s := NewSolver(DefaultConfig())
	first := s.Solve(samples)
	for i := 0; i < 5; i++ {
		if got := s.Solve(samples); got != first {
			t.Fatalf("run %d: expected %+v, got %+v", i, first, got)
		}
	}
}

func TestFactorsApply(t *testing.T) {
	f := Factors{Left: 2, Right: 0.5, Top: 3, Bottom: 4}
	tests := []struct {
		in, want motion.Vector
	}{
		{motion.Vector{X: 1, Y: 1}, motion.Vector{X: 0.5, Y: 3}},
		{motion.Vector{X: -1, Y: -1}, motion.Vector{X: -2, Y: -4}},
		{motion.Vector{}, motion.Vector{}},
	}
	for _, tt := range tests {
		if got := f.Apply(tt.in); got != tt.want {
			t.Errorf("Apply(%+v) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}
