package report

import (
	"testing"

	"github.com/relabs-tech/balance_board/internal/calibration"
)

func TestStepEvent(t *testing.T) {
	st := calibration.State{ActiveIndex: 1, Samples: 12}
	tests := []struct {
		name    string
		res     calibration.StepResult
		typ     string
		target  string
		active  string
		message string
	}{
		{
			name:   "plain step",
			res:    calibration.StepResult{Outcome: calibration.None, Active: calibration.Right, HasActive: true},
			typ:    EventStep,
			active: "right",
		},
		{
			name:   "advance",
			res:    calibration.StepResult{Outcome: calibration.Advance, Target: calibration.Left, Active: calibration.Right, HasActive: true},
			typ:    EventAdvance,
			target: "left",
			active: "right",
		},
		{
			name:    "wrong target",
			res:     calibration.StepResult{Outcome: calibration.WrongTarget, Target: calibration.Top, Active: calibration.Right, HasActive: true},
			typ:     EventWrongTarget,
			target:  "top",
			active:  "right",
			message: "Wrong Box!",
		},
		{
			name:   "last advance",
			res:    calibration.StepResult{Outcome: calibration.Advance, Target: calibration.Bottom, Finished: true},
			typ:    EventAdvance,
			target: "bottom",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := StepEvent("run-1", tt.res, st, 4)
			if ev.Type != tt.typ || ev.Target != tt.target || ev.Active != tt.active || ev.Message != tt.message {
				t.Errorf("unexpected event %+v", ev)
			}
			if ev.RunID != "run-1" || ev.Index != 1 || ev.Total != 4 || ev.Samples != 12 {
				t.Errorf("unexpected progress fields %+v", ev)
			}
		})
	}
}
