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
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/relabs-tech/balance_board/internal/board"
	"github.com/relabs-tech/balance_board/internal/config"
	"github.com/relabs-tech/balance_board/internal/motion"
	"github.com/relabs-tech/balance_board/internal/sensors"
)

// RunBoardDebug prints raw corner values, their framed sentence and the
// mapped movement vector for every reading of the configured source.
func RunBoardDebug(asSentence bool) error {
	cfg := config.Get()
	if cfg.BoardSource == config.SourceMQTT {
		return fmt.Errorf("board debug reads the board directly, not the %s source", config.SourceMQTT)
	}

	src, closer, err := sensors.Open(cfg, nil)
	if err != nil {
		return fmt.Errorf("failed to open board source: %w", err)
	}
	defer closer.Close()
	log.Printf("board-debug: reading %s source", cfg.BoardSource)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	interval := sampleInterval(cfg)
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	err = debugReadings(ctx, src, os.Stdout, interval, asSentence)
	if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func debugReadings(ctx context.Context, src board.Source, w io.Writer, interval time.Duration, asSentence bool) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		r, ok, err := src.Next()
		if errors.Is(err, io.EOF) {
			return err
		}
		if err != nil {
			log.Printf("board-debug: error reading board: %v", err)
			continue
		}
		if !ok {
			continue
		}
		if asSentence {
			fmt.Fprintln(w, board.FormatSentence(r))
			continue
		}
		v := motion.ComputeVector(r)
		fmt.Fprintf(w, "tl=%9.2f tr=%9.2f bl=%9.2f br=%9.2f  dx=%8.2f dy=%8.2f valid=%v\n",
			r.TopLeft, r.TopRight, r.BottomLeft, r.BottomRight, v.X, v.Y, r.Valid())
	}
}
