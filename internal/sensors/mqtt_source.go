// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"encoding/json"
	"fmt"
	"log"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/balance_board/internal/board"
)

// MQTTSource consumes readings published by the board producer.
type MQTTSource struct {
	client   mqtt.Client
	topic    string
	readings chan board.Reading
}

// NewMQTTSource subscribes to topic on an already connected client.
func NewMQTTSource(client mqtt.Client, topic string) (*MQTTSource, error) {
	s := newMQTTSource(client, topic)
	token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		s.handle(msg.Payload())
	})
	token.Wait()
	if token.Error() != nil {
		return nil, fmt.Errorf("board mqtt: subscribe %s: %w", topic, token.Error())
	}
	log.Printf("board mqtt: subscribed to %s", topic)
	return s, nil
}

func newMQTTSource(client mqtt.Client, topic string) *MQTTSource {
	return &MQTTSource{
		client:   client,
		topic:    topic,
		readings: make(chan board.Reading, 256),
	}
}

func (s *MQTTSource) handle(payload []byte) {
	var r board.Reading
	if err := json.Unmarshal(payload, &r); err != nil {
		log.Printf("board mqtt: reading unmarshal error: %v", err)
		return
	}
	select {
	case s.readings <- r:
	default:
		log.Printf("board mqtt: consumer behind, dropping reading")
	}
}

// Next returns the oldest buffered reading, or ok=false when none is queued.
func (s *MQTTSource) Next() (board.Reading, bool, error) {
	select {
	case r := <-s.readings:
		return r, true, nil
	default:
		return board.Reading{}, false, nil
	}
}

// Close unsubscribes; the client stays connected.
func (s *MQTTSource) Close() error {
	if s.client == nil {
		return nil
	}
	token := s.client.Unsubscribe(s.topic)
	token.Wait()
	return token.Error()
}
