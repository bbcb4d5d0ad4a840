package filter

// Participant selects records in which the target plays either side.
// The zero value matches every record.
type Participant struct {
	target string
}

// ByParticipant returns a filter for target. An empty target passes everything.
func ByParticipant(target string) Participant {
	return Participant{target: target}
}

// PassThrough reports whether the filter admits every record.
func (p Participant) PassThrough() bool { return p.target == "" }

// Target returns the configured identity, empty in pass-through mode.
func (p Participant) Target() string { return p.target }

// Match compares names exactly; no trimming or case folding.
func (p Participant) Match(white, black string) bool {
	if p.target == "" {
		return true
	}
	return white == p.target || black == p.target
}
