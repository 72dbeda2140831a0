// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/balance_board/internal/report"
	"github.com/relabs-tech/balance_board/internal/store"
)

// connectMQTT connects a client the way every command of the board does.
func connectMQTT(broker, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("MQTT connect %s: %w", broker, token.Error())
	}
	return client, nil
}

// MQTTPublisher publishes run events and, as a ResultSink, the finished
// record as a retained message so late subscribers get the current factors.
type MQTTPublisher struct {
	Client       mqtt.Client
	EventsTopic  string
	FactorsTopic string
}

func (p *MQTTPublisher) Report(ev report.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Printf("calibration: event marshal error: %v", err)
		return
	}
	token := p.Client.Publish(p.EventsTopic, 0, false, payload)
	token.Wait()
	if token.Error() != nil {
		log.Printf("calibration: MQTT publish error on %s: %v", p.EventsTopic, token.Error())
	}
}

func (p *MQTTPublisher) Save(_ context.Context, rec report.Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("record marshal: %w", err)
	}
	token := p.Client.Publish(p.FactorsTopic, 1, true, payload)
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("publish %s: %w", p.FactorsTopic, token.Error())
	}
	return nil
}

// fileSink adapts store.FileStore to ResultSink.
type fileSink struct {
	fs *store.FileStore
}

func (s fileSink) Save(ctx context.Context, rec report.Record) error {
	path, err := s.fs.Save(ctx, rec)
	if err != nil {
		return err
	}
	log.Printf("calibration: saved results to %s", path)
	return nil
}

// ConsoleReporter prints progress lines. Plain steps are printed every
// Every events; zero prints none of them.
type ConsoleReporter struct {
	W     io.Writer
	Every int

	steps int
}

func (c *ConsoleReporter) Report(ev report.Event) {
	switch ev.Type {
	case report.EventStep:
		c.steps++
		if c.Every <= 0 || c.steps%c.Every != 0 {
			return
		}
		fmt.Fprintf(c.W, "[STEP]  active=%-6s x=%6.3f y=%6.3f samples=%d\n",
			ev.Active, ev.Position.X, ev.Position.Y, ev.Samples)
	case report.EventAdvance:
		fmt.Fprintf(c.W, "[BOX ]  reached %s (%d/%d)\n", ev.Target, ev.Index, ev.Total)
	case report.EventWrongTarget:
		fmt.Fprintf(c.W, "[BOX ]  %s entered %s, active is %s\n", ev.Message, ev.Target, ev.Active)
	case report.EventRejected:
		fmt.Fprintf(c.W, "[SKIP]  %s\n", ev.Message)
	case report.EventFinished:
		fmt.Fprintln(c.W, formatFactors(ev))
	default:
		fmt.Fprintf(c.W, "[%s] active=%s samples=%d %s\n", ev.Type, ev.Active, ev.Samples, ev.Message)
	}
}

func formatFactors(ev report.Event) string {
	if ev.Factors == nil {
		return "[DONE]  no factors"
	}
	f := ev.Factors
	return fmt.Sprintf("[DONE]  LEFT=%5.3f  RIGHT=%5.3f  TOP=%5.3f  BOTTOM=%5.3f  samples=%d",
		f.Left, f.Right, f.Top, f.Bottom, ev.Samples)
}
