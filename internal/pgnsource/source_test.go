package pgnsource

import (
	"errors"
	"io"
	"strings"
	"testing"

	nchess "github.com/corentings/chess/v2"
)

const threeGames = `[Event "Test"]
[White "StockNemo 2.0.0.3"]
[Black "Stockfish"]
[Result "1-0"]

1. e4 e5 2. Nf3 Nc6 3. Bb5 a6 1-0

[Event "Test"]
[White "Alice"]
[Black "Bob"]
[Result "0-1"]

1. f3 e5 2. g4 Qh4# 0-1

[Event "Test"]
[White "Carol"]
[Black "Dave"]
[Result "1/2-1/2"]

1. d4 d5 1/2-1/2
`

func readAll(t *testing.T, src *Source) []Record {
	t.Helper()
	var out []Record
	for {
		rec, err := src.Next()
		if errors.Is(err, io.EOF) {
			return out
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		out = append(out, rec)
	}
}

func TestSourceReadsGamesInOrder(t *testing.T) {
	recs := readAll(t, New(strings.NewReader(threeGames), nil))
	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}
	want := []struct {
		white, black, result string
		moves                int
	}{
		{"StockNemo 2.0.0.3", "Stockfish", "1-0", 6},
		{"Alice", "Bob", "0-1", 4},
		{"Carol", "Dave", "1/2-1/2", 2},
	}
	for i, w := range want {
		r := recs[i]
		if r.Index != i {
			t.Fatalf("record %d has index %d", i, r.Index)
		}
		if r.White != w.white || r.Black != w.black || r.Result != w.result {
			t.Fatalf("record %d: got %q/%q/%q", i, r.White, r.Black, r.Result)
		}
		if r.MoveCount() != w.moves {
			t.Fatalf("record %d: got %d moves want %d", i, r.MoveCount(), w.moves)
		}
	}
}

func TestSourceEmptyStream(t *testing.T) {
	src := New(strings.NewReader(""), nil)
	if _, err := src.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF on empty input, got %v", err)
	}
}

func TestParseErrorUnwraps(t *testing.T) {
	inner := errors.New("bad token")
	err := error(&ParseError{Index: 4, Err: inner})
	if !errors.Is(err, inner) {
		t.Fatalf("ParseError must unwrap to its cause")
	}
	var pe *ParseError
	if !errors.As(err, &pe) || pe.Index != 4 {
		t.Fatalf("errors.As failed: %v", err)
	}
	if !strings.Contains(err.Error(), "game 4") {
		t.Fatalf("message should name the game: %q", err.Error())
	}
}

type failingReader struct{ err error }

func (r failingReader) Read([]byte) (int, error) { return 0, r.err }

func TestSourceReadErrorIsNotEOF(t *testing.T) {
	boom := errors.New("disk gone")
	game := "[White \"A\"]\n[Black \"B\"]\n[Result \"1-0\"]\n\n1. e4 e5 1-0\n"
	src := New(io.MultiReader(strings.NewReader(game), failingReader{err: boom}), nil)

	rec, err := src.Next()
	if err != nil {
		t.Fatalf("first Next: %v", err)
	}
	if rec.White != "A" || rec.MoveCount() != 2 {
		t.Fatalf("unexpected first record: %+v", rec)
	}
	_, err = src.Next()
	if err == nil || errors.Is(err, io.EOF) {
		t.Fatalf("read failure must surface as an error, got %v", err)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped read error, got %v", err)
	}
	var pe *ParseError
	if errors.As(err, &pe) {
		t.Fatalf("read failure must not be a ParseError: %v", err)
	}
}

func TestSourceOversizedGame(t *testing.T) {
	small := "[White \"A\"]\n[Black \"B\"]\n[Result \"1-0\"]\n\n1. e4 e5 1-0\n\n"
	huge := "[White \"C\"]\n[Black \"D\"]\n[Result \"0-1\"]\n\n1. d4 {" +
		strings.Repeat("x", 100*1024) + "} d5 0-1\n\n"
	src := New(strings.NewReader(small+huge+small), nil)

	if _, err := src.Next(); err != nil {
		t.Fatalf("first Next: %v", err)
	}
	_, err := src.Next()
	if !errors.Is(err, ErrGameTooLarge) {
		t.Fatalf("expected ErrGameTooLarge, got %v", err)
	}
}

func TestSourceSkipsIllegalGame(t *testing.T) {
	input := `[White "A"]
[Black "B"]
[Result "1-0"]

1. e4 e5 1-0

[White "Bad"]
[Black "Moves"]
[Result "*"]

1. e4 e5 2. Ke3 *

[White "C"]
[Black "D"]
[Result "0-1"]

1. d4 d5 0-1
`
	src := New(strings.NewReader(input), nil)
	first, err := src.Next()
	if err != nil || first.White != "A" {
		t.Fatalf("first record: %+v %v", first, err)
	}
	_, err = src.Next()
	var pe *ParseError
	if !errors.As(err, &pe) || pe.Index != 1 {
		t.Fatalf("expected ParseError for game 1, got %v", err)
	}
	third, err := src.Next()
	if err != nil || third.White != "C" || third.Index != 2 {
		t.Fatalf("third record: %+v %v", third, err)
	}
	if _, err := src.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestFromGameNil(t *testing.T) {
	rec := FromGame(0, "W", "B", nil)
	if rec.Result != "*" || rec.MoveCount() != 0 {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestFromGame(t *testing.T) {
	rec := FromGame(7, "W", "B", nchess.NewGame())
	if rec.Index != 7 || rec.White != "W" || rec.Black != "B" || rec.MoveCount() != 0 {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.Result != "*" {
		t.Fatalf("unfinished game result = %q", rec.Result)
	}
}
