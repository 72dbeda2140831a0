// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/relabs-tech/balance_board/internal/board"
	"github.com/relabs-tech/balance_board/internal/calibration"
	"github.com/relabs-tech/balance_board/internal/report"
)

// ErrAborted is returned by Runner.Run when the session ends without factors.
var ErrAborted = errors.New("calibration aborted")

// maxSourceErrors is how many consecutive source errors end a run.
const maxSourceErrors = 50

// Reporter receives every event of a run.
type Reporter interface {
	Report(ev report.Event)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(ev report.Event)

func (f ReporterFunc) Report(ev report.Event) { f(ev) }

// ResultSink stores the record of a finished run.
type ResultSink interface {
	Save(ctx context.Context, rec report.Record) error
}

// Runner drives one calibration session from a board source.
type Runner struct {
	Config   calibration.Config
	Source   board.Source
	UserID   string
	GameName string

	// Interval paces Step calls; zero steps as fast as the source delivers.
	Interval time.Duration
	// Idle is the wait after an empty pull when Interval is zero.
	Idle time.Duration

	Reporters []Reporter
	Sinks     []ResultSink
}

// Run blocks until the session finishes, ctx is cancelled or the source is
// drained. Cancellation and a drained source abort the session and return an
// error wrapping ErrAborted. Sink failures are returned alongside the record.
func (r *Runner) Run(ctx context.Context) (report.Record, error) {
	session, err := calibration.NewSession(r.Config)
	if err != nil {
		return report.Record{}, err
	}

	rec := report.Record{
		RunID:     uuid.NewString(),
		UserID:    r.UserID,
		GameName:  r.GameName,
		StartedAt: time.Now(),
		Order:     append([]calibration.Direction(nil), r.Config.Order...),
	}
	total := len(session.Targets())

	r.emit(r.event(rec.RunID, report.EventStart, session, total))
	log.Printf("calibration: run %s started for %s (%s)", rec.RunID, rec.UserID, rec.GameName)
	if t, ok := session.Active(); ok {
		log.Printf("calibration: move to the %s box", t.Direction)
	}

	var tick <-chan time.Time
	if r.Interval > 0 {
		ticker := time.NewTicker(r.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}
	idle := r.Idle
	if idle <= 0 {
		idle = time.Millisecond
	}

	sourceErrors := 0
	for session.Status() == calibration.Running {
		if tick != nil {
			select {
			case <-ctx.Done():
				return rec, r.abort(session, rec.RunID, total, ctx.Err())
			case <-tick:
			}
		} else if err := ctx.Err(); err != nil {
			return rec, r.abort(session, rec.RunID, total, err)
		}

		reading, ok, err := r.Source.Next()
		if errors.Is(err, io.EOF) {
			return rec, r.abort(session, rec.RunID, total, fmt.Errorf("source drained: %w", err))
		}
		if err != nil {
			sourceErrors++
			log.Printf("calibration: source error: %v", err)
			if sourceErrors >= maxSourceErrors {
				return rec, r.abort(session, rec.RunID, total, fmt.Errorf("source failing: %w", err))
			}
			continue
		}
		sourceErrors = 0
		if !ok {
			if tick == nil {
				select {
				case <-ctx.Done():
				case <-time.After(idle):
				}
			}
			continue
		}

		res, err := session.Step(reading)
		if err != nil {
			log.Printf("calibration: Warning: %v", err)
			ev := r.event(rec.RunID, report.EventRejected, session, total)
			ev.Message = err.Error()
			r.emit(ev)
			continue
		}

		ev := report.StepEvent(rec.RunID, res, session.State(), total)
		switch res.Outcome {
		case calibration.WrongTarget:
			log.Printf("calibration: Wrong Box! entered %s while %s is active", res.Target, res.Active)
		case calibration.Advance:
			if res.HasActive {
				log.Printf("calibration: reached %s, move to the %s box", res.Target, res.Active)
			} else {
				log.Printf("calibration: reached %s", res.Target)
			}
		}
		r.emit(ev)
	}

	factors, _ := session.Factors()
	rec.EndedAt = time.Now()
	rec.Factors = factors
	rec.SampleCounts = session.SampleCounts()
	rec.TotalSamples = session.State().Samples

	done := r.event(rec.RunID, report.EventFinished, session, total)
	done.Factors = &factors
	r.emit(done)
	log.Printf("calibration: run %s finished with %d samples: left=%.3f right=%.3f top=%.3f bottom=%.3f",
		rec.RunID, rec.TotalSamples, factors.Left, factors.Right, factors.Top, factors.Bottom)

	var errs []error
	for _, sink := range r.Sinks {
		if err := sink.Save(ctx, rec); err != nil {
			log.Printf("calibration: failed to store result: %v", err)
			errs = append(errs, err)
		}
	}
	return rec, errors.Join(errs...)
}

func (r *Runner) abort(s *calibration.Session, runID string, total int, cause error) error {
	samples := s.State().Samples
	s.Abort()
	ev := r.event(runID, report.EventAborted, s, total)
	ev.Samples = samples
	ev.Message = cause.Error()
	r.emit(ev)
	log.Printf("calibration: run %s aborted after %d samples: %v", runID, samples, cause)
	return fmt.Errorf("%w: %w", ErrAborted, cause)
}

func (r *Runner) event(runID, typ string, s *calibration.Session, total int) report.Event {
	st := s.State()
	ev := report.Event{
		RunID:    runID,
		Time:     time.Now(),
		Type:     typ,
		Index:    st.ActiveIndex,
		Total:    total,
		Position: st.Position,
		Samples:  st.Samples,
	}
	if t, ok := s.Active(); ok {
		ev.Active = t.Direction.String()
	}
	return ev
}

func (r *Runner) emit(ev report.Event) {
	for _, rep := range r.Reporters {
		rep.Report(ev)
	}
}
