// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package report

import (
	"time"

	"github.com/relabs-tech/balance_board/internal/calibration"
)

// Event types published while a calibration runs.
const (
	EventStart       = "start"
	EventStep        = "step"
	EventAdvance     = "advance"
	EventWrongTarget = "wrong_target"
	EventRejected    = "rejected"
	EventFinished    = "finished"
	EventAborted     = "aborted"
)

// Event is one calibration progress message, suitable for JSON and MQTT.
type Event struct {
	RunID    string               `json:"run_id"`
	Time     time.Time            `json:"time"`
	Type     string               `json:"type"`
	Target   string               `json:"target,omitempty"` // box reached or wrongly entered
	Active   string               `json:"active,omitempty"` // box to reach next, empty once done
	Index    int                  `json:"index"`            // position of Active in the order
	Total    int                  `json:"total"`
	Position calibration.Point    `json:"position"`
	Samples  int                  `json:"samples"`
	Factors  *calibration.Factors `json:"factors,omitempty"`
	Message  string               `json:"message,omitempty"`
}

// StepEvent converts the result of Session.Step into an event.
func StepEvent(runID string, res calibration.StepResult, st calibration.State, total int) Event {
	ev := Event{
		RunID:    runID,
		Time:     time.Now(),
		Type:     EventStep,
		Index:    st.ActiveIndex,
		Total:    total,
		Position: res.Position,
		Samples:  st.Samples,
	}
	if res.HasActive {
		ev.Active = res.Active.String()
	}
	switch res.Outcome {
	case calibration.Advance:
		ev.Type = EventAdvance
		ev.Target = res.Target.String()
	case calibration.WrongTarget:
		ev.Type = EventWrongTarget
		ev.Target = res.Target.String()
		ev.Message = "Wrong Box!"
	}
	return ev
}

// Record is the stored result of a finished calibration.
type Record struct {
	RunID        string                        `json:"run_id"`
	UserID       string                        `json:"user_id"`
	GameName     string                        `json:"game_name"`
	StartedAt    time.Time                     `json:"started_at"`
	EndedAt      time.Time                     `json:"ended_at"`
	Order        []calibration.Direction       `json:"order"`
	Factors      calibration.Factors           `json:"factors"`
	SampleCounts map[calibration.Direction]int `json:"sample_counts"`
	TotalSamples int                           `json:"total_samples"`
}
