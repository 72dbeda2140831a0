// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/balance_board/internal/board"
	"github.com/relabs-tech/balance_board/internal/calibration"
	"github.com/relabs-tech/balance_board/internal/report"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// WebSocket message types
type WSMessage struct {
	Action   string `json:"action"` // start, abort
	UserID   string `json:"user_id,omitempty"`
	GameName string `json:"game_name,omitempty"`
}

type WSResponse struct {
	Type    string               `json:"type"` // targets, event, complete, aborted, error
	Targets []calibration.Target `json:"targets,omitempty"`
	Event   *report.Event        `json:"event,omitempty"`
	Record  *report.Record       `json:"record,omitempty"`
	Message string               `json:"message,omitempty"`
}

// CalibrationHandler runs interactive calibrations over a WebSocket, one
// run per connection at a time.
type CalibrationHandler struct {
	Config   calibration.Config
	Interval time.Duration
	UserID   string
	GameName string
	Sinks    []ResultSink

	// OpenSource returns a fresh board source for each run.
	OpenSource func() (board.Source, io.Closer, error)
	// Reporters receive the events of every run next to the socket.
	Reporters []Reporter
}

// wsConn serializes writes from the read loop and the run goroutine.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) send(resp WSResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.WriteJSON(resp); err != nil {
		log.Printf("calibration: websocket write error: %v", err)
	}
}

func (c *wsConn) sendError(message string) {
	c.send(WSResponse{Type: "error", Message: message})
}

// ServeHTTP handles the WebSocket connection for calibration.
func (h *CalibrationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("calibration: websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	ws := &wsConn{conn: conn}

	var (
		mu      sync.Mutex
		cancel  context.CancelFunc
		running sync.WaitGroup
	)
	stop := func() {
		mu.Lock()
		if cancel != nil {
			cancel()
		}
		mu.Unlock()
	}
	defer func() {
		stop()
		running.Wait()
	}()

	// Main message loop
	for {
		var msg WSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("calibration: websocket read error: %v", err)
			}
			return
		}

		switch msg.Action {
		case "start":
			mu.Lock()
			busy := cancel != nil
			mu.Unlock()
			if busy {
				ws.sendError("calibration already running")
				continue
			}

			src, closer, err := h.OpenSource()
			if err != nil {
				ws.sendError(err.Error())
				continue
			}

			ctx, c := context.WithCancel(context.Background())
			mu.Lock()
			cancel = c
			mu.Unlock()

			runner := h.runner(src, msg, ws)
			ws.send(WSResponse{Type: "targets", Targets: h.Config.OrderedTargets()})

			running.Add(1)
			go func() {
				defer running.Done()
				h.run(ctx, runner, ws, func() {
					closer.Close()
					mu.Lock()
					c()
					cancel = nil
					mu.Unlock()
				})
			}()

		case "abort":
			log.Printf("calibration: cancelled by user")
			stop()

		default:
			ws.sendError("unknown action " + msg.Action)
		}
	}
}

func (h *CalibrationHandler) runner(src board.Source, msg WSMessage, ws *wsConn) *Runner {
	user, game := msg.UserID, msg.GameName
	if user == "" {
		user = h.UserID
	}
	if game == "" {
		game = h.GameName
	}
	reporters := append([]Reporter{ReporterFunc(func(ev report.Event) {
		ws.send(WSResponse{Type: "event", Event: &ev})
	})}, h.Reporters...)

	return &Runner{
		Config:    h.Config,
		Source:    src,
		UserID:    user,
		GameName:  game,
		Interval:  h.Interval,
		Reporters: reporters,
		Sinks:     h.Sinks,
	}
}

// run executes one calibration. release frees the source and the
// connection's run slot before the final message is sent.
func (h *CalibrationHandler) run(ctx context.Context, runner *Runner, ws *wsConn, release func()) {
	rec, err := runner.Run(ctx)
	release()

	switch {
	case rec.RunID == "":
		ws.sendError(err.Error())
	case errors.Is(err, ErrAborted):
		ws.send(WSResponse{Type: "aborted", Message: err.Error()})
	case err != nil:
		// The run finished; only storing it failed.
		ws.send(WSResponse{Type: "complete", Record: &rec, Message: err.Error()})
	default:
		ws.send(WSResponse{Type: "complete", Record: &rec})
	}
}
