// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// ./cmd/calibration/main.go
//
// Guided balance board calibration.
// The user leans toward each target box in turn (left, right, top, bottom by
// default). Every reading is kept; once the last box is reached a factor per
// direction is derived that equalizes the user's reach.
//
// Output:
//
//	Writes <user>_<game>_<timestamp>_balance_calibration.json under CALIBRATION_DIR,
//	appends the run to the SQLite history and publishes it retained on
//	TOPIC_CALIBRATION_FACTORS.
//
// Run:
//
//	go run ./cmd/calibration -config balance_config.txt -user alice
//	go run ./cmd/calibration -show calibration/alice_Calibration_20260301_101500_balance_calibration.json
package main

import (
	"errors"
	"flag"
	"log"
	"os"

	"github.com/relabs-tech/balance_board/internal/app"
	"github.com/relabs-tech/balance_board/internal/config"
)

func main() {
	configPath := flag.String("config", "balance_config.txt", "Path to configuration file")
	user := flag.String("user", "", "User id (defaults to USER_ID)")
	game := flag.String("game", "", "Game name (defaults to GAME_NAME)")
	show := flag.String("show", "", "Print the factors of a stored result file and exit")
	flag.Parse()

	if *show != "" {
		if err := app.ShowCalibration(os.Stdout, *show); err != nil {
			log.Fatalf("failed to show calibration: %v", err)
		}
		return
	}

	log.Println("starting balance-board calibration")

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunCalibration(*user, *game); err != nil {
		if errors.Is(err, app.ErrAborted) {
			log.Fatalf("calibration not completed: %v", err)
		}
		log.Fatalf("fatal: %v", err)
	}
}
