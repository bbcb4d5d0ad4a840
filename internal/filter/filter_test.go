package filter

import "testing"

func TestPassThroughMatchesEverything(t *testing.T) {
	var zero Participant
	for _, names := range [][2]string{{"", ""}, {"Alice", "Bob"}, {"x", "y"}} {
		if !zero.Match(names[0], names[1]) {
			t.Fatalf("zero filter rejected %v", names)
		}
	}
	if !ByParticipant("").PassThrough() {
		t.Fatalf("empty target must be pass-through")
	}
}

func TestMatchIsExact(t *testing.T) {
	f := ByParticipant("StockNemo 2.0.0.3")
	cases := []struct {
		white, black string
		want         bool
	}{
		{"StockNemo 2.0.0.3", "Stockfish", true},
		{"Stockfish", "StockNemo 2.0.0.3", true},
		{"stocknemo 2.0.0.3", "Stockfish", false},
		{"StockNemo 2.0.0.3 ", "Stockfish", false},
		{"StockNemo", "StockNemo 2.0.0", false},
		{"", "", false},
	}
	for _, tc := range cases {
		if got := f.Match(tc.white, tc.black); got != tc.want {
			t.Fatalf("Match(%q, %q) = %v, want %v", tc.white, tc.black, got, tc.want)
		}
	}
	if f.PassThrough() || f.Target() != "StockNemo 2.0.0.3" {
		t.Fatalf("unexpected filter state: %+v", f)
	}
}
