package frames

import (
	"errors"
	"testing"

	nchess "github.com/corentings/chess/v2"
	"github.com/park285/pgn2gif/internal/testsupport"
	"github.com/park285/pgn2gif/pkg/gifdto"
)

const startPlacement = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR"

func TestExtractZeroMoves(t *testing.T) {
	out, err := Extract(nchess.NewGame(), 60)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected exactly one frame, got %d", len(out))
	}
	first := out[0]
	if first.FEN != startPlacement {
		t.Fatalf("start placement = %q", first.FEN)
	}
	if first.Delay != 180 {
		t.Fatalf("first delay = %d, want 3x default", first.Delay)
	}
	if first.HasLastMove() || first.HasCheck() {
		t.Fatalf("first frame must not carry lastMove/check: %+v", first)
	}
}

func TestExtractFramePerPly(t *testing.T) {
	moves := []string{"e2e4", "e7e5", "g1f3", "b8c6", "f1b5", "a7a6"}
	out, err := Extract(testsupport.PlayUCI(t, moves...), 40)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(out) != len(moves)+1 {
		t.Fatalf("got %d frames for %d moves", len(out), len(moves))
	}
	if out[0].Delay != 120 {
		t.Fatalf("first delay = %d", out[0].Delay)
	}
	for i, f := range out[1:] {
		if f.Delay != 40 {
			t.Fatalf("frame %d delay = %d", i+1, f.Delay)
		}
		if !f.HasLastMove() || *f.LastMove != moves[i] {
			t.Fatalf("frame %d lastMove = %v, want %s", i+1, f.LastMove, moves[i])
		}
		if f.HasCheck() {
			t.Fatalf("frame %d unexpectedly in check", i+1)
		}
	}
	if out[1].FEN != "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR" {
		t.Fatalf("placement after e4 = %q", out[1].FEN)
	}
}

func TestExtractMarksCheckedKing(t *testing.T) {
	out, err := Extract(testsupport.PlayUCI(t, "e2e4", "f7f6", "d1h5"), 60)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	last := out[len(out)-1]
	if !last.HasCheck() || *last.Check != "e8" {
		t.Fatalf("expected check on e8, got %v", last.Check)
	}
	if out[1].HasCheck() || out[2].HasCheck() {
		t.Fatalf("quiet moves must not mark check")
	}
}

func TestExtractCheckSequence(t *testing.T) {
	moves := []string{"e2e4", "f7f6", "d1h5", "g7g6", "h5g6", "h7g6"}
	out, err := Extract(testsupport.PlayUCI(t, moves...), 60)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	want := []string{"", "", "", "e8", "", "e8", ""}
	for i, f := range out {
		got := ""
		if f.HasCheck() {
			got = *f.Check
		}
		if got != want[i] {
			t.Fatalf("frame %d check = %q, want %q", i, got, want[i])
		}
	}
}

func TestExtractMateMarksWhiteKing(t *testing.T) {
	out, err := Extract(testsupport.PlayUCI(t, "f2f3", "e7e5", "g2g4", "d8h4"), 60)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(out) != 5 {
		t.Fatalf("got %d frames", len(out))
	}
	last := out[4]
	if !last.HasCheck() || *last.Check != "e1" {
		t.Fatalf("expected check on e1, got %v", last.Check)
	}
	if *last.LastMove != "d8h4" {
		t.Fatalf("lastMove = %s", *last.LastMove)
	}
}

func TestExtractRejectsBadInput(t *testing.T) {
	if _, err := Extract(nil, 60); !errors.Is(err, ErrNoGame) {
		t.Fatalf("nil game: got %v", err)
	}
	if _, err := Extract(nchess.NewGame(), 0); !errors.Is(err, ErrInvalidDelay) {
		t.Fatalf("zero delay: got %v", err)
	}
}

func TestOrientation(t *testing.T) {
	cases := map[string]gifdto.Orientation{
		"0-1":     gifdto.OrientationBlack,
		"1-0":     gifdto.OrientationWhite,
		"1/2-1/2": gifdto.OrientationWhite,
		"*":       gifdto.OrientationWhite,
		"":        gifdto.OrientationWhite,
	}
	for in, want := range cases {
		if got := Orientation(in); got != want {
			t.Fatalf("Orientation(%q) = %s, want %s", in, got, want)
		}
	}
}
