// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"image"
	"log"
	"math"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/balance_board/internal/calibration"
	"github.com/relabs-tech/balance_board/internal/config"
	"github.com/relabs-tech/balance_board/internal/report"
)

const (
	displayWidth  = 128
	displayHeight = 64

	// The calibration plane is drawn in the left 64x64 square.
	planeSize = 64

	// How long "Wrong Box!" stays on screen.
	wrongBoxHold = time.Second
)

// DisplayData holds the latest data for display
type DisplayData struct {
	mu sync.RWMutex

	event     report.Event
	haveEvent bool
	wrongAt   time.Time

	record     report.Record
	haveRecord bool
}

func (d *DisplayData) setEvent(ev report.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.event = ev
	d.haveEvent = true
	if ev.Type == report.EventWrongTarget {
		d.wrongAt = ev.Time
	}
}

func (d *DisplayData) setRecord(rec report.Record) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record = rec
	d.haveRecord = true
}

// displaySnapshot is a copy of DisplayData without the mutex.
type displaySnapshot struct {
	event      report.Event
	haveEvent  bool
	wrongBox   bool
	record     report.Record
	haveRecord bool
}

func (d *DisplayData) snapshot(now time.Time) displaySnapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return displaySnapshot{
		event:      d.event,
		haveEvent:  d.haveEvent,
		wrongBox:   !d.wrongAt.IsZero() && now.Sub(d.wrongAt) < wrongBoxHold,
		record:     d.record,
		haveRecord: d.haveRecord,
	}
}

func RunDisplay() error {
	cfg := config.Get()

	cc, err := cfg.CalibrationConfig()
	if err != nil {
		return err
	}

	// Initialize periph
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	// Open I2C bus
	bus, err := i2creg.Open("")
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	log.Printf("display: initialized at 0x%02X", cfg.DisplayI2CAddr)

	if err := dev.Draw(dev.Bounds(), renderSplash(), image.Point{}); err != nil {
		log.Printf("display: error showing splash: %v", err)
	}

	data := &DisplayData{}

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDDisplay)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)
	log.Printf("display: connected to MQTT broker at %s", cfg.MQTTBroker)

	eventsToken := client.Subscribe(cfg.TopicCalibrationEvents, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var ev report.Event
		if err := json.Unmarshal(msg.Payload(), &ev); err != nil {
			log.Printf("display: event unmarshal error: %v", err)
			return
		}
		data.setEvent(ev)
	})
	eventsToken.Wait()
	if eventsToken.Error() != nil {
		return eventsToken.Error()
	}
	log.Printf("display: subscribed to %s", cfg.TopicCalibrationEvents)

	factorsToken := client.Subscribe(cfg.TopicCalibrationFactors, 1, func(_ mqtt.Client, msg mqtt.Message) {
		var rec report.Record
		if err := json.Unmarshal(msg.Payload(), &rec); err != nil {
			log.Printf("display: factors unmarshal error: %v", err)
			return
		}
		data.setRecord(rec)
	})
	factorsToken.Wait()
	if factorsToken.Error() != nil {
		return factorsToken.Error()
	}
	log.Printf("display: subscribed to %s", cfg.TopicCalibrationFactors)

	// Display update loop
	ticker := time.NewTicker(time.Duration(cfg.DisplayUpdateInterval) * time.Millisecond)
	defer ticker.Stop()

	log.Println("display: starting update loop")

	blink := false
	for now := range ticker.C {
		blink = !blink
		img := renderCalibration(cc, data.snapshot(now), blink)
		if err := dev.Draw(dev.Bounds(), img, image.Point{}); err != nil {
			log.Printf("display: error updating display: %v", err)
		}
	}

	return nil
}

func newFrame() (*image1bit.VerticalLSB, *font.Drawer) {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, displayWidth, displayHeight))
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	return img, drawer
}

func drawLines(drawer *font.Drawer, x int, lines ...string) {
	for i, line := range lines {
		drawer.Dot = fixed.P(x, 13*(i+1))
		drawer.DrawBytes([]byte(line))
	}
}

func renderSplash() *image1bit.VerticalLSB {
	img, drawer := newFrame()
	drawer.Dot = fixed.P(10, 26)
	drawer.DrawBytes([]byte("Balance Board"))
	drawer.Dot = fixed.P(10, 43)
	drawer.DrawBytes([]byte("Calibration"))
	return img
}

// renderCalibration draws the target boxes, the player and a text panel.
// The active box is filled on alternate frames.
func renderCalibration(cc calibration.Config, snap displaySnapshot, blink bool) *image1bit.VerticalLSB {
	img, drawer := newFrame()

	running := snap.haveEvent && snap.event.Type != report.EventFinished && snap.event.Type != report.EventAborted

	if !running {
		if snap.haveRecord {
			f := snap.record.Factors
			drawLines(drawer, 0,
				truncate(snap.record.UserID, 18),
				fmt.Sprintf("L %5.2f  R %5.2f", f.Left, f.Right),
				fmt.Sprintf("T %5.2f  B %5.2f", f.Top, f.Bottom),
				fmt.Sprintf("n=%d", snap.record.TotalSamples),
			)
		} else if snap.haveEvent && snap.event.Type == report.EventAborted {
			drawLines(drawer, 0, "Calibration", "aborted")
		} else {
			drawLines(drawer, 0, "Calibration", "Waiting...")
		}
		return img
	}

	ev := snap.event
	scale := planeScale(cc)
	for i, t := range cc.OrderedTargets() {
		r := boxRect(t.Region, scale)
		// Reached boxes stay filled, the active one blinks.
		reached := i < ev.Index
		if reached || (blink && t.Direction.String() == ev.Active) {
			fillRect(img, r)
		} else {
			strokeRect(img, r)
		}
	}
	px, py := planePoint(ev.Position.X, ev.Position.Y, scale)
	fillRect(img, image.Rect(px-1, py-1, px+2, py+2))

	status := fmt.Sprintf("%d/%d", ev.Index, ev.Total)
	if snap.wrongBox {
		status = "Wrong Box!"
	}
	drawLines(drawer, planeSize+2,
		"-> "+strings.ToUpper(ev.Active),
		status,
		fmt.Sprintf("n=%d", ev.Samples),
	)
	return img
}

// planeScale maps plane units to pixels so every box fits the square.
func planeScale(cc calibration.Config) float64 {
	extent := 0.0
	for _, t := range cc.Targets {
		r := t.Region
		extent = math.Max(extent, math.Abs(r.Center.X)+r.Width/2)
		extent = math.Max(extent, math.Abs(r.Center.Y)+r.Height/2)
	}
	if extent == 0 {
		return 1
	}
	return float64(planeSize/2-1) / extent
}

func planePoint(x, y, scale float64) (int, int) {
	const c = planeSize / 2
	px := c + int(math.Round(x*scale))
	py := c - int(math.Round(y*scale))
	return px, py
}

func boxRect(r calibration.Region, scale float64) image.Rectangle {
	x0, y0 := planePoint(r.Center.X-r.Width/2, r.Center.Y+r.Height/2, scale)
	x1, y1 := planePoint(r.Center.X+r.Width/2, r.Center.Y-r.Height/2, scale)
	return image.Rect(x0, y0, x1+1, y1+1)
}

func fillRect(img *image1bit.VerticalLSB, r image.Rectangle) {
	r = r.Intersect(img.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetBit(x, y, image1bit.On)
		}
	}
}

func strokeRect(img *image1bit.VerticalLSB, r image.Rectangle) {
	b := img.Bounds()
	set := func(x, y int) {
		if (image.Point{X: x, Y: y}).In(b) {
			img.SetBit(x, y, image1bit.On)
		}
	}
	for x := r.Min.X; x < r.Max.X; x++ {
		set(x, r.Min.Y)
		set(x, r.Max.Y-1)
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		set(r.Min.X, y)
		set(r.Max.X-1, y)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
