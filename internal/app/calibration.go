// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/balance_board/internal/config"
	"github.com/relabs-tech/balance_board/internal/report"
	"github.com/relabs-tech/balance_board/internal/sensors"
	"github.com/relabs-tech/balance_board/internal/store"
)

// RunCalibration runs one console calibration with the configured board
// source. Results go to the JSON directory, the history database and the
// retained factors topic.
func RunCalibration(userID, gameName string) error {
	cfg := config.Get()
	if userID == "" {
		userID = cfg.UserID
	}
	if gameName == "" {
		gameName = cfg.GameName
	}

	cc, err := cfg.CalibrationConfig()
	if err != nil {
		return err
	}

	var client mqtt.Client
	if c, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDCalibration); err != nil {
		if cfg.BoardSource == config.SourceMQTT {
			return err
		}
		log.Printf("calibration: Warning: running without MQTT: %v", err)
	} else {
		client = c
		defer client.Disconnect(250)
		log.Printf("calibration: connected to MQTT broker at %s", cfg.MQTTBroker)
	}

	src, closer, err := sensors.Open(cfg, client)
	if err != nil {
		return fmt.Errorf("failed to open board source: %w", err)
	}
	defer closer.Close()

	files, err := store.NewFileStore(cfg.CalibrationDir)
	if err != nil {
		return err
	}
	history, err := store.OpenHistory(cfg.HistoryDBPath)
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer history.Close()

	runner := &Runner{
		Config:    cc,
		Source:    src,
		UserID:    userID,
		GameName:  gameName,
		Interval:  sampleInterval(cfg),
		Reporters: []Reporter{&ConsoleReporter{W: os.Stdout, Every: cfg.SampleRateHz}},
		Sinks:     []ResultSink{fileSink{fs: files}, history},
	}
	if client != nil {
		pub := &MQTTPublisher{
			Client:       client,
			EventsTopic:  cfg.TopicCalibrationEvents,
			FactorsTopic: cfg.TopicCalibrationFactors,
		}
		runner.Reporters = append(runner.Reporters, pub)
		runner.Sinks = append(runner.Sinks, pub)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, err = runner.Run(ctx)
	return err
}

// ShowCalibration prints the factors of a result file written by a
// previous run.
func ShowCalibration(w io.Writer, path string) error {
	rec, err := store.LoadFile(path)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "user=%s game=%s run=%s ended=%s\n",
		rec.UserID, rec.GameName, rec.RunID, rec.EndedAt.Format(time.RFC3339))
	fmt.Fprintln(w, formatFactors(report.Event{Factors: &rec.Factors, Samples: rec.TotalSamples}))
	return nil
}

// sampleInterval paces live sources at SAMPLE_RATE_HZ. Replay is paced too
// so the run plays back at recording speed.
func sampleInterval(cfg *config.Config) time.Duration {
	if cfg.SampleRateHz <= 0 {
		return 0
	}
	return time.Second / time.Duration(cfg.SampleRateHz)
}
