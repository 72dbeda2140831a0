package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/relabs-tech/balance_board/internal/calibration"
	"github.com/relabs-tech/balance_board/internal/report"
	"github.com/relabs-tech/balance_board/internal/sensors"
)

func TestMQTTPublisher(t *testing.T) {
	client := &fakeClient{}
	pub := &MQTTPublisher{Client: client, EventsTopic: "balance/calibration/events", FactorsTopic: "balance/calibration/factors"}

	cfg := calibration.DefaultConfig()
	r := &Runner{
		Config:    cfg,
		Source:    sensors.NewMockSource(sensors.MockScript(cfg, 100)),
		UserID:    "bob",
		Reporters: []Reporter{pub},
		Sinks:     []ResultSink{pub},
	}
	rec, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	events := client.on(pub.EventsTopic)
	if len(events) == 0 {
		t.Fatal("no events published")
	}
	var first report.Event
	if err := json.Unmarshal(events[0].payload, &first); err != nil {
		t.Fatalf("event payload: %v", err)
	}
	if first.Type != report.EventStart || first.Active != "left" || first.Total != 4 {
		t.Errorf("unexpected first event %+v", first)
	}
	if events[0].retained {
		t.Error("events must not be retained")
	}

	factors := client.on(pub.FactorsTopic)
	if len(factors) != 1 || !factors[0].retained {
		t.Fatalf("expected one retained factors message, got %+v", factors)
	}
	var got report.Record
	if err := json.Unmarshal(factors[0].payload, &got); err != nil {
		t.Fatalf("record payload: %v", err)
	}
	if got.RunID != rec.RunID || got.Factors != rec.Factors || got.SampleCounts[calibration.Top] != 10 {
		t.Errorf("unexpected published record %+v", got)
	}
}

func TestMQTTPublisherSaveError(t *testing.T) {
	client := &fakeClient{err: errors.New("not connected")}
	pub := &MQTTPublisher{Client: client, FactorsTopic: "f"}
	if err := pub.Save(context.Background(), report.Record{}); err == nil {
		t.Error("expected publish error")
	}
}

func TestConsoleReporter(t *testing.T) {
	var buf bytes.Buffer
	c := &ConsoleReporter{W: &buf, Every: 2}
	f := calibration.Factors{Left: 0.75, Right: 1.5, Top: 1, Bottom: 1}

	c.Report(report.Event{Type: report.EventStep, Active: "left"})
	c.Report(report.Event{Type: report.EventStep, Active: "left", Samples: 2})
	c.Report(report.Event{Type: report.EventWrongTarget, Target: "right", Active: "left", Message: "Wrong Box!"})
	c.Report(report.Event{Type: report.EventAdvance, Target: "left", Index: 1, Total: 4})
	c.Report(report.Event{Type: report.EventFinished, Factors: &f, Samples: 3283, Time: time.Now()})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %q", buf.String())
	}
	if !strings.Contains(lines[0], "samples=2") {
		t.Errorf("step line: %q", lines[0])
	}
	if !strings.Contains(lines[1], "Wrong Box!") {
		t.Errorf("wrong box line: %q", lines[1])
	}
	if !strings.Contains(lines[2], "(1/4)") {
		t.Errorf("advance line: %q", lines[2])
	}
	if !strings.Contains(lines[3], "LEFT=0.750") || !strings.Contains(lines[3], "RIGHT=1.500") {
		t.Errorf("factors line: %q", lines[3])
	}
}
