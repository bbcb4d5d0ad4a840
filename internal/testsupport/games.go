package testsupport

import (
	"testing"

	nchess "github.com/corentings/chess/v2"
)

// PlayUCI builds a game by applying UCI moves from the starting position.
func PlayUCI(t testing.TB, moves ...string) *nchess.Game {
	t.Helper()
	game := nchess.NewGame()
	notation := nchess.UCINotation{}
	for _, mv := range moves {
		move, err := notation.Decode(game.Position(), mv)
		if err != nil {
			t.Fatalf("decode %s: %v", mv, err)
		}
		if err := game.Move(move, nil); err != nil {
			t.Fatalf("apply %s: %v", mv, err)
		}
	}
	return game
}
