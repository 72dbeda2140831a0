package calibration

import (
	"errors"
	"math"
	"testing"

	"github.com/relabs-tech/balance_board/internal/board"
)

// stepsToEdge is the number of unit-lean steps needed to cross the inner
// edge of a default target: ceil((4 - 0.25) * 250).
const stepsToEdge = 938

func newSession(t *testing.T) *Session {
	t.Helper()
	s, err := NewSession(DefaultConfig())
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	return s
}

// stepN feeds r n times and returns the results.
func stepN(t *testing.T, s *Session, r board.Reading, n int) []StepResult {
	t.Helper()
	out := make([]StepResult, 0, n)
	for i := 0; i < n; i++ {
		res, err := s.Step(r)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		out = append(out, res)
	}
	return out
}

func countOutcome(results []StepResult, o Outcome) int {
	n := 0
	for _, r := range results {
		if r.Outcome == o {
			n++
		}
	}
	return n
}

func TestSessionReachesRightTarget(t *testing.T) {
	s := newSession(t)
	stepN(t, s, leanLeft, stepsToEdge)
	if active, _ := s.Active(); active.Direction != Right {
		t.Fatalf("expected right to be active, got %v", active.Direction)
	}

	results := stepN(t, s, leanRight, stepsToEdge-1)
	if n := countOutcome(results, Advance); n != 0 {
		t.Fatalf("advanced before reaching x=3.75 (%d advances)", n)
	}
	if x := s.State().Position.X; x >= 3.75 || x < 3.74 {
		t.Fatalf("unexpected position before crossing: %v", x)
	}

	res, err := s.Step(leanRight)
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	if res.Outcome != Advance || res.Target != Right {
		t.Fatalf("expected advance on right, got %v on %v", res.Outcome, res.Target)
	}
	if res.Position != (Point{}) || s.State().Position != (Point{}) {
		t.Errorf("expected player recentered, got %+v", s.State().Position)
	}
	if !res.HasActive || res.Active != Top {
		t.Errorf("expected top to become active, got %v (has=%v)", res.Active, res.HasActive)
	}
	if s.State().ActiveIndex != 2 {
		t.Errorf("expected active index 2, got %d", s.State().ActiveIndex)
	}
}

func TestSessionMovesAlongActiveAxisOnly(t *testing.T) {
	s := newSession(t)
	stepN(t, s, board.Reading{TopLeft: 1, TopRight: 1}, 10)
	if p := s.State().Position; p != (Point{}) {
		t.Errorf("vertical lean moved the player on a horizontal target: %+v", p)
	}
	stepN(t, s, board.Reading{TopLeft: 3, BottomLeft: 1}, 1)
	p := s.State().Position
	if math.Abs(p.X+2.0/250) > 1e-12 || p.Y != 0 {
		t.Errorf("expected (-0.008, 0), got %+v", p)
	}
}

func TestSessionWrongTarget(t *testing.T) {
	s := newSession(t)
	stepN(t, s, leanLeft, stepsToEdge)

	// Right is active; lean back into the left box.
	results := stepN(t, s, leanLeft, stepsToEdge+10)
	if n := countOutcome(results, Advance); n != 0 {
		t.Fatalf("unexpected advance: %d", n)
	}
	wrong := countOutcome(results, WrongTarget)
	if wrong == 0 {
		t.Fatal("expected wrong target events inside the left box")
	}
	for _, r := range results {
		if r.Outcome == WrongTarget && r.Target != Left {
			t.Errorf("wrong target reported on %v", r.Target)
		}
	}
	if s.State().ActiveIndex != 1 || s.Status() != Running {
		t.Errorf("wrong target changed state: %+v", s.State())
	}
}

func TestSessionFullRunSymmetric(t *testing.T) {
	s := newSession(t)
	var advances int
	for _, r := range []board.Reading{leanLeft, leanRight, leanTop, leanBottom} {
		advances += countOutcome(stepN(t, s, r, stepsToEdge), Advance)
	}
	if advances != 4 {
		t.Fatalf("expected 4 advances, got %d", advances)
	}
	if s.Status() != Finished {
		t.Fatalf("expected finished, got %v", s.Status())
	}
	f, ok := s.Factors()
	if !ok {
		t.Fatal("expected factors after finishing")
	}
	if f != NeutralFactors(1) {
		t.Errorf("expected neutral factors, got %+v", f)
	}
	st := s.State()
	if !st.Calibrated || st.Samples != 4*stepsToEdge || st.ActiveIndex != 4 {
		t.Errorf("unexpected final state %+v", st)
	}
	counts := s.SampleCounts()
	for _, d := range DefaultOrder {
		if counts[d] != stepsToEdge {
			t.Errorf("%v: expected %d samples, got %d", d, stepsToEdge, counts[d])
		}
	}
}

func TestSessionStepAfterFinishIsNoop(t *testing.T) {
	s := newSession(t)
	for _, r := range []board.Reading{leanLeft, leanRight, leanTop, leanBottom} {
		stepN(t, s, r, stepsToEdge)
	}
	before, _ := s.Factors()
	samples := s.State().Samples

	for _, r := range []board.Reading{leanRight, {TopRight: 50}, {}} {
		res, err := s.Step(r)
		if err != nil {
			t.Fatalf("post-terminal step: %v", err)
		}
		if res.Outcome != None || !res.Finished {
			t.Errorf("unexpected post-terminal result %+v", res)
		}
	}
	after, ok := s.Factors()
	if !ok || after != before {
		t.Errorf("factors changed: %+v -> %+v", before, after)
	}
	if s.State().Samples != samples {
		t.Errorf("sample count changed: %d -> %d", samples, s.State().Samples)
	}
	if s.Abort() {
		t.Error("abort of a finished session must report false")
	}
	if s.Status() != Finished {
		t.Errorf("expected finished, got %v", s.Status())
	}
}

func TestSessionAsymmetricFactors(t *testing.T) {
	s := newSession(t)
	// Left responds twice as strongly: half the steps to reach the box.
	stepN(t, s, board.Reading{TopLeft: 2, BottomLeft: 2}, 469)
	stepN(t, s, leanRight, stepsToEdge)
	stepN(t, s, leanTop, stepsToEdge)
	stepN(t, s, leanBottom, stepsToEdge)

	f, ok := s.Factors()
	if !ok {
		t.Fatalf("expected finished session, got %v", s.Status())
	}
	if math.Abs(f.Left-0.75) > 1e-12 || math.Abs(f.Right-1.5) > 1e-12 {
		t.Errorf("expected left=0.75 right=1.5, got %+v", f)
	}
	if f.Top != 1 || f.Bottom != 1 {
		t.Errorf("expected neutral vertical factors, got %+v", f)
	}
}

func TestSessionRejectsInvalidReading(t *testing.T) {
	s := newSession(t)
	stepN(t, s, leanLeft, 5)
	before := s.State()

	for _, r := range []board.Reading{
		{TopLeft: math.NaN()},
		{BottomRight: math.Inf(1)},
		{TopRight: math.Inf(-1)},
	} {
		_, err := s.Step(r)
		if !errors.Is(err, ErrInvalidReading) {
			t.Errorf("expected ErrInvalidReading, got %v", err)
		}
	}
	if after := s.State(); after != before {
		t.Errorf("invalid reading mutated state: %+v -> %+v", before, after)
	}
	if s.Status() != Running {
		t.Errorf("expected running, got %v", s.Status())
	}
}

func TestSessionAbort(t *testing.T) {
	s := newSession(t)
	stepN(t, s, leanLeft, stepsToEdge+100)

	if !s.Abort() {
		t.Fatal("expected abort to succeed")
	}
	if s.Status() != Aborted {
		t.Fatalf("expected aborted, got %v", s.Status())
	}
	if _, ok := s.Factors(); ok {
		t.Error("aborted session must not produce factors")
	}
	if st := s.State(); st.Samples != 0 || st.Calibrated {
		t.Errorf("expected discarded state, got %+v", st)
	}
	stepN(t, s, leanRight, 10)
	if s.State().Samples != 0 {
		t.Error("stepping an aborted session recorded samples")
	}
	if s.Abort() {
		t.Error("second abort must report false")
	}
}

func TestSessionCustomScale(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Scale = 25
	s, err := NewSession(cfg)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	results := stepN(t, s, leanLeft, 94)
	if countOutcome(results, Advance) != 1 || results[len(results)-1].Outcome != Advance {
		t.Errorf("expected a single advance on the last step")
	}
}

func TestNewSessionValidatesConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"short order", func(c *Config) { c.Order = []Direction{Left, Right} }},
		{"duplicate", func(c *Config) { c.Order = []Direction{Left, Left, Top, Bottom} }},
		{"zero scale", func(c *Config) { c.Scale = 0 }},
		{"missing region", func(c *Config) { delete(c.Targets, Top) }},
		{"mismatched direction", func(c *Config) {
			t := c.Targets[Left]
			t.Direction = Top
			c.Targets[Left] = t
		}},
		{"bad neutral", func(c *Config) { c.Neutral = Factors{} }},
		{"bad bounds", func(c *Config) { c.MinFactor, c.MaxFactor = 2, 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if _, err := NewSession(cfg); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}
