package gifdto

// Orientation is the side shown at the bottom of the board.
type Orientation string

const (
	OrientationWhite Orientation = "white"
	OrientationBlack Orientation = "black"
)

// GameRequest is the body of POST /game.gif.
type GameRequest struct {
	White       string      `json:"white"`
	Black       string      `json:"black"`
	Comment     string      `json:"comment"`
	Orientation Orientation `json:"orientation"`
	Delay       int         `json:"delay"`
	Frames      []Frame     `json:"frames"`
}
