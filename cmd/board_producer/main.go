// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"flag"
	"log"

	"github.com/relabs-tech/balance_board/internal/app"
	"github.com/relabs-tech/balance_board/internal/config"
)

func main() {
	configPath := flag.String("config", "balance_config.txt", "Path to configuration file")
	flag.Parse()

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunBoardProducer(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
