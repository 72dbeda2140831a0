// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/balance_board/internal/board"
	"github.com/relabs-tech/balance_board/internal/config"
	"github.com/relabs-tech/balance_board/internal/report"
	"github.com/relabs-tech/balance_board/internal/sensors"
	"github.com/relabs-tech/balance_board/internal/store"
)

// factorsCache keeps the last retained calibration record. Until one
// arrives, requests are answered from the history database.
type factorsCache struct {
	History *store.History
	User    string

	mu   sync.RWMutex
	rec  report.Record
	have bool
}

func (c *factorsCache) handle(_ mqtt.Client, msg mqtt.Message) {
	var rec report.Record
	if err := json.Unmarshal(msg.Payload(), &rec); err != nil {
		log.Printf("web: factors unmarshal error: %v", err)
		return
	}
	c.mu.Lock()
	c.rec = rec
	c.have = true
	c.mu.Unlock()
}

func (c *factorsCache) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.mu.RLock()
	rec, have := c.rec, c.have
	c.mu.RUnlock()

	if have {
		writeJSON(w, rec)
		return
	}
	if c.History == nil {
		http.Error(w, "no calibration yet", http.StatusServiceUnavailable)
		return
	}

	user := r.URL.Query().Get("user")
	if user == "" {
		user = c.User
	}
	rec, err := c.History.Latest(r.Context(), user)
	switch {
	case errors.Is(err, store.ErrNoHistory):
		http.Error(w, "no calibration yet", http.StatusServiceUnavailable)
	case err != nil:
		log.Printf("web: history lookup error: %v", err)
		http.Error(w, "history unavailable", http.StatusInternalServerError)
	default:
		writeJSON(w, rec)
	}
}

func historyHandler(h *store.History) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 20
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				http.Error(w, "invalid limit", http.StatusBadRequest)
				return
			}
			limit = n
		}
		recs, err := h.List(r.Context(), r.URL.Query().Get("user"), limit)
		if err != nil {
			log.Printf("web: history query error: %v", err)
			http.Error(w, "history unavailable", http.StatusInternalServerError)
			return
		}
		if recs == nil {
			recs = []report.Record{}
		}
		writeJSON(w, recs)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("json encode error: %v", err)
	}
}

func RunWeb() error {
	cfg := config.Get()

	cc, err := cfg.CalibrationConfig()
	if err != nil {
		return err
	}

	// 1) Connect to MQTT broker
	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDWeb)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)
	log.Printf("web: connected to MQTT broker at %s", cfg.MQTTBroker)

	files, err := store.NewFileStore(cfg.CalibrationDir)
	if err != nil {
		return err
	}
	history, err := store.OpenHistory(cfg.HistoryDBPath)
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer history.Close()

	// 2) Retained factors topic feeds /api/factors
	cache := &factorsCache{History: history, User: cfg.UserID}
	token := client.Subscribe(cfg.TopicCalibrationFactors, 1, cache.handle)
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("web: subscribed to MQTT topic %s", cfg.TopicCalibrationFactors)

	pub := &MQTTPublisher{
		Client:       client,
		EventsTopic:  cfg.TopicCalibrationEvents,
		FactorsTopic: cfg.TopicCalibrationFactors,
	}

	// 3) Interactive calibration over WebSocket
	http.Handle("/ws/calibration", &CalibrationHandler{
		Config:   cc,
		Interval: sampleInterval(cfg),
		UserID:   cfg.UserID,
		GameName: cfg.GameName,
		OpenSource: func() (board.Source, io.Closer, error) {
			return sensors.Open(cfg, client)
		},
		Reporters: []Reporter{pub},
		Sinks:     []ResultSink{fileSink{fs: files}, history, pub},
	})

	// 4) JSON API endpoints
	http.Handle("/api/factors", cache)
	http.Handle("/api/history", historyHandler(history))

	// 5) Static files from ./web as the root
	fs := http.FileServer(http.Dir("web"))
	http.Handle("/", fs)

	addr := fmt.Sprintf(":%d", cfg.WebServerPort)
	log.Printf("web server listening on %s", addr)
	return http.ListenAndServe(addr, nil)
}
