// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"os"
	"time"

	"github.com/relabs-tech/balance_board/internal/calibration"
	"github.com/relabs-tech/balance_board/internal/report"
	"github.com/relabs-tech/balance_board/internal/sensors"
)

// RunMockConsole runs a calibration against the scripted mock board and
// prints the progress. It needs no configuration file, broker or hardware.
func RunMockConsole(load float64, interval time.Duration) (report.Record, error) {
	cc := calibration.DefaultConfig()
	runner := &Runner{
		Config:    cc,
		Source:    sensors.NewMockSource(sensors.MockScript(cc, load)),
		UserID:    "mock",
		GameName:  "Calibration",
		Interval:  interval,
		Reporters: []Reporter{&ConsoleReporter{W: os.Stdout, Every: 1}},
	}
	return runner.Run(context.Background())
}
