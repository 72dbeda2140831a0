package sensors

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/relabs-tech/balance_board/internal/board"
)

func TestReplaySourceDropsIncompleteRows(t *testing.T) {
	data := `top_left,top_right,bottom_left,bottom_right,time
1,0,1,0,0.016
0.5,,0.5,0.2,0.033
NaN,1,1,1,0.05
0,2,0,2,0.066
3,3
`
	src, err := NewReplaySource(strings.NewReader(data))
	if err != nil {
		t.Fatalf("new replay: %v", err)
	}
	if src.Len() != 2 {
		t.Fatalf("expected 2 usable rows, got %d", src.Len())
	}

	want := []board.Reading{
		{TopLeft: 1, BottomLeft: 1},
		{TopRight: 2, BottomRight: 2},
	}
	for i, w := range want {
		r, ok, err := src.Next()
		if err != nil || !ok {
			t.Fatalf("row %d: ok=%v err=%v", i, ok, err)
		}
		if r != w {
			t.Errorf("row %d: expected %+v, got %+v", i, w, r)
		}
	}
	if _, ok, err := src.Next(); ok || !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF after the last row, got ok=%v err=%v", ok, err)
	}
}

func TestReplaySourceWithoutHeader(t *testing.T) {
	src, err := NewReplaySource(strings.NewReader("1,2,3,4\n5,6,7,8\n"))
	if err != nil {
		t.Fatalf("new replay: %v", err)
	}
	if src.Len() != 2 {
		t.Errorf("expected 2 rows, got %d", src.Len())
	}
}

func TestLoadReplay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "game_data_left.csv")
	if err := os.WriteFile(path, []byte("a,b,c,d\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadReplay(path); err == nil {
		t.Error("expected error for a dataset without usable rows")
	}
	if _, err := LoadReplay(filepath.Join(t.TempDir(), "missing.csv")); err == nil {
		t.Error("expected error for a missing file")
	}
}
