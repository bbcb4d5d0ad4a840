// Package frames turns a game's mainline into the frame list sent to the
// render service.
package frames

import (
	"errors"
	"fmt"

	nchess "github.com/corentings/chess/v2"
	"github.com/park285/pgn2gif/pkg/gifdto"
)

// FirstFrameFactor stretches the starting position so viewers can read it.
const FirstFrameFactor = 3

var (
	ErrNoGame       = errors.New("record has no game")
	ErrInvalidDelay = errors.New("frame delay must be positive")
	ErrMalformed    = errors.New("malformed move sequence")
)

// Extract returns len(moves)+1 frames: the starting position followed by the
// position after each move.
func Extract(game *nchess.Game, delay int) ([]gifdto.Frame, error) {
	if game == nil {
		return nil, ErrNoGame
	}
	if delay <= 0 {
		return nil, ErrInvalidDelay
	}

	moves := game.Moves()
	positions := game.Positions()
	if len(positions) != len(moves)+1 {
		return nil, fmt.Errorf("%w: %d positions for %d moves", ErrMalformed, len(positions), len(moves))
	}

	out := make([]gifdto.Frame, 0, len(moves)+1)
	out = append(out, gifdto.Frame{
		FEN:   positions[0].Board().String(),
		Delay: delay * FirstFrameFactor,
	})

	uci := nchess.UCINotation{}
	for i, mv := range moves {
		before, after := positions[i], positions[i+1]
		if mv == nil || before == nil || after == nil {
			return nil, fmt.Errorf("%w: missing data at ply %d", ErrMalformed, i+1)
		}
		frame := gifdto.Frame{
			FEN:      after.Board().String(),
			Delay:    delay,
			LastMove: gifdto.Some(uci.Encode(before, mv)),
		}
		if mv.HasTag(nchess.Check) {
			if sq, ok := kingSquare(after.Board(), after.Turn()); ok {
				frame.Check = gifdto.Some(sq.String())
			}
		}
		out = append(out, frame)
	}
	return out, nil
}

// Orientation shows the winner's side at the bottom: black for 0-1, white otherwise.
func Orientation(result string) gifdto.Orientation {
	if result == "0-1" {
		return gifdto.OrientationBlack
	}
	return gifdto.OrientationWhite
}
