// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Prints live board readings with their movement vector. With -nmea the
// readings are printed as the framed sentences the board firmware sends,
// which is handy to record a dataset or to feed a serial emulator.
package main

import (
	"flag"
	"log"

	"github.com/relabs-tech/balance_board/internal/app"
	"github.com/relabs-tech/balance_board/internal/config"
)

func main() {
	configPath := flag.String("config", "balance_config.txt", "Path to configuration file")
	asSentence := flag.Bool("nmea", false, "Print $PBBRD sentences instead of values")
	flag.Parse()

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunBoardDebug(*asSentence); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
