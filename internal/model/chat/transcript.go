package chat

import "iter"

// Transcript is the ordered, append-only log of turns backing a chat
// window. Insertion order is display order. It has no locking: a single
// goroutine owns each transcript.
type Transcript struct {
	turns []Turn
}

// NewTranscript returns a transcript holding the given seed turns.
func NewTranscript(seed ...Turn) *Transcript {
	t := &Transcript{turns: make([]Turn, 0, 16)}
	t.turns = append(t.turns, seed...)
	return t
}

// Append adds a turn to the end of the log.
func (t *Transcript) Append(turn Turn) {
	t.turns = append(t.turns, turn)
}

// Clear drops every turn and leaves only the reset announcement.
func (t *Transcript) Clear(reset Turn) {
	// A fresh backing array keeps views taken before the reset intact.
	t.turns = make([]Turn, 0, 16)
	t.turns = append(t.turns, reset)
}

// All returns a restartable view over the turns, valid until the next
// Append or Clear.
func (t *Transcript) All() iter.Seq[Turn] {
	turns := t.turns[:len(t.turns):len(t.turns)]
	return func(yield func(Turn) bool) {
		for _, turn := range turns {
			if !yield(turn) {
				return
			}
		}
	}
}

// Snapshot copies the turns for use outside the owning goroutine.
func (t *Transcript) Snapshot() []Turn {
	copied := make([]Turn, len(t.turns))
	copy(copied, t.turns)
	return copied
}

// Len reports the number of turns.
func (t *Transcript) Len() int {
	return len(t.turns)
}

// Last returns the most recent turn.
func (t *Transcript) Last() (Turn, bool) {
	if len(t.turns) == 0 {
		return Turn{}, false
	}
	return t.turns[len(t.turns)-1], true
}
