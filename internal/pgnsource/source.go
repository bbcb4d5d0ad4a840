package pgnsource

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	nchess "github.com/corentings/chess/v2"
	"go.uber.org/zap"
)

// ErrGameTooLarge is returned when a single game exceeds the scanner buffer.
var ErrGameTooLarge = errors.New("pgn game exceeds 64KiB scanner limit")

// Record is one parsed game from the input stream.
type Record struct {
	// Index is the position of the game in the input, counting unparsable games.
	Index  int
	White  string
	Black  string
	Result string
	Game   *nchess.Game
}

// MoveCount returns the number of mainline moves.
func (r Record) MoveCount() int {
	if r.Game == nil {
		return 0
	}
	return len(r.Game.Moves())
}

// ParseError reports a game that could not be parsed. The source stays usable.
type ParseError struct {
	Index int
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse game %d: %v", e.Index, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Source yields records from a PGN stream in input order.
type Source struct {
	scanner *nchess.Scanner
	next    int
	logger  *zap.Logger
}

func New(r io.Reader, logger *zap.Logger) *Source {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Source{scanner: nchess.NewScanner(r), logger: logger}
}

// Next returns the next record, io.EOF at end of stream, or a *ParseError
// for a game that failed to parse. Callers may keep reading after a ParseError.
// Any other error comes from reading the stream and ends the source.
func (s *Source) Next() (Record, error) {
	scanned, err := s.scanner.ScanGame()
	if errors.Is(err, io.EOF) {
		return Record{}, io.EOF
	}
	if err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return Record{}, fmt.Errorf("read pgn game %d: %w", s.next, ErrGameTooLarge)
		}
		return Record{}, fmt.Errorf("read pgn game %d: %w", s.next, err)
	}
	idx := s.next
	s.next++

	s.logger.Debug("pgn_read", zap.Int("game", idx))
	game, err := parse(scanned)
	if err != nil {
		return Record{}, &ParseError{Index: idx, Err: err}
	}
	return recordFromGame(idx, game), nil
}

func parse(scanned *nchess.GameScanned) (*nchess.Game, error) {
	tokens, err := nchess.TokenizeGame(scanned)
	if err != nil {
		return nil, err
	}
	game, err := nchess.NewParser(tokens).Parse()
	if err != nil {
		return nil, err
	}
	if game == nil {
		return nil, errors.New("empty game")
	}
	return game, nil
}

func recordFromGame(idx int, game *nchess.Game) Record {
	result := strings.TrimSpace(game.GetTagPair("Result"))
	if result == "" {
		result = string(game.Outcome())
	}
	return Record{
		Index:  idx,
		White:  game.GetTagPair("White"),
		Black:  game.GetTagPair("Black"),
		Result: result,
		Game:   game,
	}
}

// FromGame wraps an already built game, for callers that do not read PGN.
// A nil game yields a record with result "*" and no moves.
func FromGame(idx int, white, black string, game *nchess.Game) Record {
	result := "*"
	if game != nil {
		result = string(game.Outcome())
	}
	return Record{
		Index:  idx,
		White:  white,
		Black:  black,
		Result: result,
		Game:   game,
	}
}
