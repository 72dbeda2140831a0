// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/relabs-tech/balance_board/internal/board"
)

// ReplaySource plays back a recorded session. The first four columns of
// every row are the corners in board.Reading order.
type ReplaySource struct {
	rows []board.Reading
	next int
}

// LoadReplay reads a CSV dataset from path.
func LoadReplay(path string) (*ReplaySource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	defer f.Close()

	src, err := NewReplaySource(f)
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", path, err)
	}
	return src, nil
}

// NewReplaySource parses CSV rows from r. A non-numeric first row is
// treated as a header. Rows with missing or non-numeric corner values are
// dropped, the way the recording tools clean datasets.
func NewReplaySource(r io.Reader) (*ReplaySource, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	src := &ReplaySource{}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		reading, ok := parseRow(rec)
		if !ok {
			continue
		}
		src.rows = append(src.rows, reading)
	}
	if len(src.rows) == 0 {
		return nil, errors.New("no usable rows")
	}
	return src, nil
}

func parseRow(rec []string) (board.Reading, bool) {
	if len(rec) < 4 {
		return board.Reading{}, false
	}
	var v [4]float64
	for i := range v {
		field := strings.TrimSpace(rec[i])
		if field == "" {
			return board.Reading{}, false
		}
		f, err := strconv.ParseFloat(field, 64)
		if err != nil || math.IsNaN(f) {
			return board.Reading{}, false
		}
		v[i] = f
	}
	return board.Reading{TopLeft: v[0], TopRight: v[1], BottomLeft: v[2], BottomRight: v[3]}, true
}

// Next returns rows in file order and io.EOF once they are exhausted.
func (s *ReplaySource) Next() (board.Reading, bool, error) {
	if s.next >= len(s.rows) {
		return board.Reading{}, false, io.EOF
	}
	r := s.rows[s.next]
	s.next++
	return r, true, nil
}

// Len returns the number of usable rows.
func (s *ReplaySource) Len() int { return len(s.rows) }
