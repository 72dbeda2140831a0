// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"log"
	"time"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/hx711"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/balance_board/internal/board"
	"github.com/relabs-tech/balance_board/internal/config"
)

// Corner order matches board.Reading.
var cornerNames = [4]string{"top left", "top right", "bottom left", "bottom right"}

// LoadCellSource reads the four corner load cells directly through HX711
// amplifiers wired to GPIO.
type LoadCellSource struct {
	cells   [4]*hx711.Dev
	tare    [4]float64
	timeout time.Duration
}

// NewLoadCellSource initializes the four HX711 amplifiers from the
// configured pins.
func NewLoadCellSource(cfg *config.Config) (*LoadCellSource, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("load cells: periph host init: %w", err)
	}

	pins := [4][2]string{
		{cfg.LoadCellTLClkPin, cfg.LoadCellTLDataPin},
		{cfg.LoadCellTRClkPin, cfg.LoadCellTRDataPin},
		{cfg.LoadCellBLClkPin, cfg.LoadCellBLDataPin},
		{cfg.LoadCellBRClkPin, cfg.LoadCellBRDataPin},
	}

	s := &LoadCellSource{timeout: time.Duration(cfg.LoadCellReadTimeout) * time.Millisecond}
	for i, p := range pins {
		clk := gpioreg.ByName(p[0])
		if clk == nil {
			return nil, fmt.Errorf("load cells: %s clock pin %q not found", cornerNames[i], p[0])
		}
		data := gpioreg.ByName(p[1])
		if data == nil {
			return nil, fmt.Errorf("load cells: %s data pin %q not found", cornerNames[i], p[1])
		}
		dev, err := hx711.New(clk, data)
		if err != nil {
			return nil, fmt.Errorf("load cells: %s HX711: %w", cornerNames[i], err)
		}
		s.cells[i] = dev
		log.Printf("load cells: %s HX711 on clk=%s data=%s", cornerNames[i], p[0], p[1])
	}
	return s, nil
}

// Tare averages n readings of the empty board and subtracts them from
// every later reading.
func (s *LoadCellSource) Tare(n int) error {
	var sum [4]float64
	for i := 0; i < n; i++ {
		raw, err := s.readAll()
		if err != nil {
			return fmt.Errorf("load cells: tare: %w", err)
		}
		for c := range sum {
			sum[c] += raw[c]
		}
	}
	for c := range sum {
		s.tare[c] = sum[c] / float64(n)
	}
	log.Printf("load cells: tare offsets tl=%.1f tr=%.1f bl=%.1f br=%.1f", s.tare[0], s.tare[1], s.tare[2], s.tare[3])
	return nil
}

// Next returns ok=false until every amplifier has a conversion ready.
func (s *LoadCellSource) Next() (board.Reading, bool, error) {
	for _, c := range s.cells {
		if !c.IsReady() {
			return board.Reading{}, false, nil
		}
	}
	raw, err := s.readAll()
	if err != nil {
		return board.Reading{}, false, err
	}
	return board.Reading{
		TopLeft:     raw[0] - s.tare[0],
		TopRight:    raw[1] - s.tare[1],
		BottomLeft:  raw[2] - s.tare[2],
		BottomRight: raw[3] - s.tare[3],
	}, true, nil
}

func (s *LoadCellSource) readAll() ([4]float64, error) {
	var out [4]float64
	for i, c := range s.cells {
		v, err := c.ReadTimeout(s.timeout)
		if err != nil {
			return out, fmt.Errorf("%s load cell: %w", cornerNames[i], err)
		}
		out[i] = float64(v)
	}
	return out, nil
}

// Close powers the amplifiers down.
func (s *LoadCellSource) Close() error {
	var firstErr error
	for i, c := range s.cells {
		if c == nil {
			continue
		}
		if err := c.Halt(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("%s load cell halt: %w", cornerNames[i], err)
		}
	}
	return firstErr
}
