// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/balance_board/internal/board"
	"github.com/relabs-tech/balance_board/internal/config"
	"github.com/relabs-tech/balance_board/internal/report"
)

// RunConsoleMQTT prints calibration events, stored factors and, when
// showReadings is set, the raw board readings.
func RunConsoleMQTT(showReadings bool) error {
	cfg := config.Get()

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDConsole)
	if err != nil {
		return err
	}
	log.Printf("console: connected to MQTT broker at %s", cfg.MQTTBroker)

	// Calibration events; plain steps are summarized every SampleRateHz events.
	events := &ConsoleReporter{W: os.Stdout, Every: cfg.SampleRateHz}
	eventsToken := client.Subscribe(cfg.TopicCalibrationEvents, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var ev report.Event
		if err := json.Unmarshal(msg.Payload(), &ev); err != nil {
			log.Printf("console: event unmarshal error: %v", err)
			return
		}
		events.Report(ev)
	})
	eventsToken.Wait()
	if eventsToken.Error() != nil {
		return eventsToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicCalibrationEvents)

	// Stored factors
	factorsToken := client.Subscribe(cfg.TopicCalibrationFactors, 1, func(_ mqtt.Client, msg mqtt.Message) {
		var rec report.Record
		if err := json.Unmarshal(msg.Payload(), &rec); err != nil {
			log.Printf("console: factors unmarshal error: %v", err)
			return
		}
		fmt.Printf(
			"[CAL ]  user=%s game=%s at=%s  LEFT=%5.3f RIGHT=%5.3f TOP=%5.3f BOTTOM=%5.3f samples=%d\n",
			rec.UserID, rec.GameName, rec.EndedAt.Format("2006-01-02 15:04:05"),
			rec.Factors.Left, rec.Factors.Right, rec.Factors.Top, rec.Factors.Bottom, rec.TotalSamples,
		)
	})
	factorsToken.Wait()
	if factorsToken.Error() != nil {
		return factorsToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicCalibrationFactors)

	if showReadings {
		readingsToken := client.Subscribe(cfg.TopicReadings, 0, func(_ mqtt.Client, msg mqtt.Message) {
			var r board.Reading
			if err := json.Unmarshal(msg.Payload(), &r); err != nil {
				log.Printf("console: reading unmarshal error: %v", err)
				return
			}
			fmt.Printf("[BRD ]  tl=%8.2f tr=%8.2f bl=%8.2f br=%8.2f\n",
				r.TopLeft, r.TopRight, r.BottomLeft, r.BottomRight)
		})
		readingsToken.Wait()
		if readingsToken.Error() != nil {
			return readingsToken.Error()
		}
		log.Printf("console: subscribed to %s", cfg.TopicReadings)
	}

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}
