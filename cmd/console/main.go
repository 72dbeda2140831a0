// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"flag"
	"log"
	"time"

	"github.com/relabs-tech/balance_board/internal/app"
)

func main() {
	load := flag.Float64("load", 100, "Corner load of the scripted leans")
	interval := flag.Duration("interval", 50*time.Millisecond, "Delay between readings")
	flag.Parse()

	log.Println("starting balance-board (mock console)")

	if _, err := app.RunMockConsole(*load, *interval); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
