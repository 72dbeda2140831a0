// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/relabs-tech/balance_board/internal/report"
)

const fileSuffix = "_balance_calibration.json"

// FileStore writes each finished calibration as an indented JSON file
// named <user>_<game>_<timestamp>_balance_calibration.json.
type FileStore struct {
	Dir string
}

// NewFileStore creates dir if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create calibration directory: %w", err)
	}
	return &FileStore{Dir: dir}, nil
}

// FileName returns the file name used for rec.
func FileName(rec report.Record) string {
	return fmt.Sprintf("%s_%s_%s%s",
		safeName(rec.UserID),
		safeName(rec.GameName),
		rec.EndedAt.Format("20060102_150405"),
		fileSuffix,
	)
}

// Save writes rec and returns the path of the written file.
func (s *FileStore) Save(_ context.Context, rec report.Record) (string, error) {
	path := filepath.Join(s.Dir, FileName(rec))

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal calibration record: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write calibration file: %w", err)
	}
	return path, nil
}

// LoadFile reads a record written by Save.
func LoadFile(path string) (report.Record, error) {
	var rec report.Record
	data, err := os.ReadFile(path)
	if err != nil {
		return rec, fmt.Errorf("failed to read calibration file: %w", err)
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("failed to parse calibration file %s: %w", path, err)
	}
	return rec, nil
}

// safeName keeps identifiers usable as a single path element.
func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "unknown"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ' ', ':', '*', '?', '"', '<', '>', '|':
			return '-'
		}
		return r
	}, s)
}
