package interview

import "github.com/spigell/mock-interviewer/internal/ai"

// History is an append-only turn log. Append never writes into the backing
// array of a value handed out earlier, so snapshots stay valid.
type History []ai.Turn

// Append returns a new history with turns added after h.
func (h History) Append(turns ...ai.Turn) History {
	out := make(History, len(h), len(h)+len(turns))
	copy(out, h)
	return append(out, turns...)
}

// Truncate returns the first n turns.
func (h History) Truncate(n int) History {
	if n < 0 {
		n = 0
	}
	if n > len(h) {
		n = len(h)
	}
	return h[:n:n]
}

// Clone returns an independent copy.
func (h History) Clone() History {
	if h == nil {
		return nil
	}
	return h.Append()
}

// Turns exposes the history as the slice type collaborators accept.
func (h History) Turns() []ai.Turn {
	return []ai.Turn(h)
}
