package gifdto

// Frame is one animation frame as accepted by the render service.
// LastMove and Check are omitted from the JSON body when nil.
type Frame struct {
	FEN      string  `json:"fen"`
	Delay    int     `json:"delay"`
	LastMove *string `json:"lastMove,omitempty"`
	Check    *string `json:"check,omitempty"`
}

// HasLastMove reports whether the frame carries a last-move highlight.
func (f Frame) HasLastMove() bool { return f.LastMove != nil }

// HasCheck reports whether the frame marks a checked king.
func (f Frame) HasCheck() bool { return f.Check != nil }

// Some returns a pointer to v, for filling optional frame fields.
func Some(v string) *string { return &v }
