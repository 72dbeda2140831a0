// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"

	serial "github.com/jacobsa/go-serial/serial"

	"github.com/relabs-tech/balance_board/internal/board"
)

// SerialSource decodes board sentences from a serial port on its own
// goroutine and hands them out through a non-blocking Next.
type SerialSource struct {
	port     io.ReadCloser
	readings chan board.Reading
	done     chan struct{}

	mu        sync.Mutex
	err       error
	closeOnce sync.Once
}

// OpenSerial opens the board's serial port (8N1) and starts decoding.
func OpenSerial(portName string, baudRate int) (*SerialSource, error) {
	opts := serial.OpenOptions{
		PortName:              portName,
		BaudRate:              uint(baudRate),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}

	port, err := serial.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("board serial: open %s: %w", portName, err)
	}
	log.Printf("board serial port opened on %s at %d baud", portName, baudRate)

	return NewSerialSource(port), nil
}

// NewSerialSource starts decoding sentences from port. The source takes
// ownership of port and closes it on Close.
func NewSerialSource(port io.ReadCloser) *SerialSource {
	s := &SerialSource{
		port:     port,
		readings: make(chan board.Reading, 256),
		done:     make(chan struct{}),
	}
	go s.readLoop()
	return s
}

func (s *SerialSource) readLoop() {
	defer close(s.readings)

	reader := bufio.NewReader(s.port)
	for {
		line, err := reader.ReadString('\n')
		if line = strings.TrimSpace(line); line != "" {
			s.decode(line)
		}
		if err != nil {
			s.setErr(err)
			return
		}
	}
}

func (s *SerialSource) decode(line string) {
	// Boards print boot banners and partial lines; only framed samples count.
	if !strings.HasPrefix(line, "$") {
		return
	}
	r, err := board.ParseSentence(line)
	if err != nil {
		log.Printf("board serial: %v", err)
		return
	}
	select {
	case s.readings <- r:
	case <-s.done:
	}
}

func (s *SerialSource) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

// Next returns the oldest undelivered reading, or ok=false if none has
// arrived yet. Once the port fails or is closed it returns the read error
// (io.EOF for a closed stream).
func (s *SerialSource) Next() (board.Reading, bool, error) {
	select {
	case r, open := <-s.readings:
		if open {
			return r, true, nil
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.err != nil {
			return board.Reading{}, false, s.err
		}
		return board.Reading{}, false, io.EOF
	default:
		return board.Reading{}, false, nil
	}
}

// Close stops decoding and closes the port.
func (s *SerialSource) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.port.Close()
	})
	return err
}
