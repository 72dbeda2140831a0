// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/balance_board/internal/board"
	"github.com/relabs-tech/balance_board/internal/config"
	"github.com/relabs-tech/balance_board/internal/sensors"
)

// RunBoardProducer reads the board and publishes every reading to the
// readings topic.
func RunBoardProducer() error {
	log.Println("starting balance-board producer")

	cfg := config.Get()
	if cfg.BoardSource == config.SourceMQTT {
		return fmt.Errorf("board producer cannot read from the %s source", config.SourceMQTT)
	}

	src, closer, err := sensors.Open(cfg, nil)
	if err != nil {
		return fmt.Errorf("failed to open board source: %w", err)
	}
	defer closer.Close()

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDProducer)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)
	log.Printf("board-producer: connected to MQTT broker at %s, publishing %s", cfg.MQTTBroker, cfg.TopicReadings)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	interval := sampleInterval(cfg)
	if interval <= 0 {
		interval = time.Second / 60
	}
	n, err := produceReadings(ctx, src, client, cfg.TopicReadings, interval)
	log.Printf("board-producer: published %d readings", n)
	if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// produceReadings drains src on every tick until ctx ends or src reports
// io.EOF. Transient source errors are logged and skipped.
func produceReadings(ctx context.Context, src board.Source, client mqtt.Client, topic string, interval time.Duration) (int, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// A serial board streams at its own rate, so everything buffered is
	// forwarded. Polled sources yield one reading per tick.
	_, drain := src.(*sensors.SerialSource)

	published := 0
	for {
		select {
		case <-ctx.Done():
			return published, ctx.Err()
		case <-ticker.C:
		}

		for {
			r, ok, err := src.Next()
			if errors.Is(err, io.EOF) {
				return published, err
			}
			if err != nil {
				log.Printf("board-producer: error reading board: %v", err)
				break
			}
			if !ok {
				break
			}
			if !r.Valid() {
				log.Printf("board-producer: skipping non-finite reading %+v", r)
				continue
			}

			payload, err := json.Marshal(r)
			if err != nil {
				log.Printf("board-producer: reading marshal error: %v", err)
				continue
			}
			token := client.Publish(topic, 0, false, payload)
			token.Wait()
			if token.Error() != nil {
				log.Printf("board-producer: MQTT publish error: %v", token.Error())
				continue
			}
			published++
			if !drain {
				break
			}
		}
	}
}
