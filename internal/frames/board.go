package frames

import (
	nchess "github.com/corentings/chess/v2"
)

// kingSquare returns the square holding side's king.
func kingSquare(board *nchess.Board, side nchess.Color) (nchess.Square, bool) {
	for sq, piece := range board.SquareMap() {
		if piece.Type() == nchess.King && piece.Color() == side {
			return sq, true
		}
	}
	return nchess.NoSquare, false
}
