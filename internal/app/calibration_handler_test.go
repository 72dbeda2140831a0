package app

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/balance_board/internal/board"
	"github.com/relabs-tech/balance_board/internal/calibration"
	"github.com/relabs-tech/balance_board/internal/report"
	"github.com/relabs-tech/balance_board/internal/sensors"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func dialCalibration(t *testing.T, h *CalibrationHandler) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

// readUntil reads responses until one of type typ arrives.
func readUntil(t *testing.T, conn *websocket.Conn, typ string) (WSResponse, []WSResponse) {
	t.Helper()
	var seen []WSResponse
	for {
		var resp WSResponse
		if err := conn.ReadJSON(&resp); err != nil {
			t.Fatalf("read while waiting for %s: %v", typ, err)
		}
		if resp.Type == typ {
			return resp, seen
		}
		seen = append(seen, resp)
	}
}

func TestCalibrationHandlerCompletesRun(t *testing.T) {
	cfg := calibration.DefaultConfig()
	sink := &memorySink{}
	h := &CalibrationHandler{
		Config:   cfg,
		UserID:   "guest",
		GameName: "Calibration",
		Sinks:    []ResultSink{sink},
		OpenSource: func() (board.Source, io.Closer, error) {
			return sensors.NewMockSource(sensors.MockScript(cfg, 100)), nopCloser{}, nil
		},
	}
	conn := dialCalibration(t, h)

	if err := conn.WriteJSON(WSMessage{Action: "start", UserID: "alice"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	targets, _ := readUntil(t, conn, "targets")
	if len(targets.Targets) != 4 || targets.Targets[0].Direction != calibration.Left {
		t.Errorf("unexpected targets %+v", targets.Targets)
	}

	done, seen := readUntil(t, conn, "complete")
	if done.Record == nil || done.Record.UserID != "alice" || done.Record.Factors != calibration.NeutralFactors(1) {
		t.Fatalf("unexpected completion %+v", done)
	}
	advances := 0
	for _, resp := range seen {
		if resp.Type == "event" && resp.Event.Type == report.EventAdvance {
			advances++
		}
	}
	if advances != 4 {
		t.Errorf("expected 4 advance events, got %d", advances)
	}

	// The run is stored before completion is sent.
	if len(sink.records) != 1 {
		t.Errorf("expected stored record, got %d", len(sink.records))
	}
}

func TestCalibrationHandlerAbort(t *testing.T) {
	h := &CalibrationHandler{
		Config:   calibration.DefaultConfig(),
		Interval: time.Millisecond,
		OpenSource: func() (board.Source, io.Closer, error) {
			return stallSource{}, nopCloser{}, nil
		},
	}
	conn := dialCalibration(t, h)

	if err := conn.WriteJSON(WSMessage{Action: "start"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	readUntil(t, conn, "targets")

	if err := conn.WriteJSON(WSMessage{Action: "start"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	busy, _ := readUntil(t, conn, "error")
	if !strings.Contains(busy.Message, "already running") {
		t.Errorf("unexpected error %q", busy.Message)
	}

	if err := conn.WriteJSON(WSMessage{Action: "abort"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	aborted, _ := readUntil(t, conn, "aborted")
	if !strings.Contains(aborted.Message, "aborted") {
		t.Errorf("unexpected abort message %q", aborted.Message)
	}

	// A new run can start after the abort.
	if err := conn.WriteJSON(WSMessage{Action: "start"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	readUntil(t, conn, "targets")
}

func TestCalibrationHandlerUnknownAction(t *testing.T) {
	h := &CalibrationHandler{Config: calibration.DefaultConfig()}
	conn := dialCalibration(t, h)

	if err := conn.WriteJSON(WSMessage{Action: "dance"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	resp, _ := readUntil(t, conn, "error")
	if !strings.Contains(resp.Message, "dance") {
		t.Errorf("unexpected error %q", resp.Message)
	}
}
