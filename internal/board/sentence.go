// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package board

import (
	"fmt"
	"strconv"
	"strings"

	nmea "github.com/adrianmo/go-nmea"
)

// The board firmware frames every sample as a proprietary NMEA sentence:
//
//	$PBBRD,<tl>,<tr>,<bl>,<br>*<checksum>
//
// Reusing NMEA framing gives us the XOR checksum for free on noisy serial
// lines.
const (
	// TypeBBRD is the sentence type of a board sample ("P" talker + "BBRD").
	TypeBBRD = "BBRD"

	sentencePrefix = "PBBRD"
)

// BBRD is a parsed board sample sentence.
type BBRD struct {
	nmea.BaseSentence
	Reading Reading
}

var parser = nmea.SentenceParser{
	CustomParsers: map[string]nmea.ParserFunc{
		TypeBBRD: parseBBRD,
	},
}

func parseBBRD(s nmea.BaseSentence) (nmea.Sentence, error) {
	p := nmea.NewParser(s)
	p.AssertType(TypeBBRD)
	m := BBRD{
		BaseSentence: s,
		Reading: Reading{
			TopLeft:     p.Float64(0, "top left"),
			TopRight:    p.Float64(1, "top right"),
			BottomLeft:  p.Float64(2, "bottom left"),
			BottomRight: p.Float64(3, "bottom right"),
		},
	}
	return m, p.Err()
}

// ParseSentence decodes one line received from the board.
func ParseSentence(line string) (Reading, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "$"+sentencePrefix) {
		return Reading{}, fmt.Errorf("board: not a %s sentence: %q", TypeBBRD, line)
	}
	sentence, err := parser.Parse(line)
	if err != nil {
		return Reading{}, fmt.Errorf("board: parse sentence: %w", err)
	}
	m, ok := sentence.(BBRD)
	if !ok {
		return Reading{}, fmt.Errorf("board: unexpected sentence type %s", sentence.DataType())
	}
	return m.Reading, nil
}

// FormatSentence encodes a reading the way the board firmware does.
// It is used by tests and by the board producer when re-emitting samples.
func FormatSentence(r Reading) string {
	body := strings.Join([]string{
		sentencePrefix,
		formatValue(r.TopLeft),
		formatValue(r.TopRight),
		formatValue(r.BottomLeft),
		formatValue(r.BottomRight),
	}, ",")
	return "$" + body + "*" + nmea.Checksum(body)
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
