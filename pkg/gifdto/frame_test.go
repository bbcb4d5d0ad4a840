package gifdto

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestFrameOmitsAbsentOptionalFields(t *testing.T) {
	raw, err := json.Marshal(Frame{FEN: "8/8/8/8/8/8/8/8", Delay: 180})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(raw)
	if strings.Contains(s, "lastMove") || strings.Contains(s, "check") {
		t.Fatalf("absent fields must be omitted, got %s", s)
	}
	if strings.Contains(s, "null") {
		t.Fatalf("absent fields must not serialize as null, got %s", s)
	}
}

func TestFrameIncludesPresentOptionalFields(t *testing.T) {
	raw, err := json.Marshal(Frame{FEN: "x", Delay: 60, LastMove: Some("e2e4"), Check: Some("e8")})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"fen":"x","delay":60,"lastMove":"e2e4","check":"e8"}`
	if string(raw) != want {
		t.Fatalf("got %s want %s", raw, want)
	}
}

func TestGameRequestShape(t *testing.T) {
	req := GameRequest{White: "A", Black: "B", Comment: "c", Orientation: OrientationBlack, Delay: 60, Frames: []Frame{{FEN: "x", Delay: 180}}}
	raw, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back map[string]any
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, k := range []string{"white", "black", "comment", "orientation", "delay", "frames"} {
		if _, ok := back[k]; !ok {
			t.Fatalf("missing key %q in %s", k, raw)
		}
	}
	if back["orientation"] != "black" {
		t.Fatalf("orientation = %v", back["orientation"])
	}
}
