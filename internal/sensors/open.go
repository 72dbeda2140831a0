// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"errors"
	"fmt"
	"io"
	"log"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/balance_board/internal/board"
	"github.com/relabs-tech/balance_board/internal/config"
)

// mockLoad is the lean the mock board applies on each target.
const mockLoad = 100.0

// tareSamples is how many empty-board readings the load cells average.
const tareSamples = 20

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open selects the board source named by cfg.BoardSource. client is only
// needed for the mqtt source. The returned closer releases the transport.
func Open(cfg *config.Config, client mqtt.Client) (board.Source, io.Closer, error) {
	switch cfg.BoardSource {
	case config.SourceSerial:
		src, err := OpenSerial(cfg.BoardSerialPort, cfg.BoardBaudRate)
		if err != nil {
			return nil, nil, err
		}
		return src, src, nil

	case config.SourceLoadCell:
		src, err := NewLoadCellSource(cfg)
		if err != nil {
			return nil, nil, err
		}
		if err := src.Tare(tareSamples); err != nil {
			log.Printf("Warning: %v", err)
		}
		return src, src, nil

	case config.SourceMQTT:
		if client == nil {
			return nil, nil, errors.New("board source mqtt needs a connected MQTT client")
		}
		src, err := NewMQTTSource(client, cfg.TopicReadings)
		if err != nil {
			return nil, nil, err
		}
		return src, src, nil

	case config.SourceReplay:
		src, err := LoadReplay(cfg.ReplayPath)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("replaying %d readings from %s", src.Len(), cfg.ReplayPath)
		return src, nopCloser{}, nil

	case config.SourceMock:
		cc, err := cfg.CalibrationConfig()
		if err != nil {
			return nil, nil, err
		}
		log.Println("using mock board source")
		return NewMockSource(MockScript(cc, mockLoad)), nopCloser{}, nil
	}
	return nil, nil, fmt.Errorf("unknown board source %q", cfg.BoardSource)
}
