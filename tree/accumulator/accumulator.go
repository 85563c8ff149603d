// Package accumulator implements a durable, append-only cryptographic
// accumulator over commitment leaves. State changes are committed to a
// database before they become visible, and every change is announced to a set
// of observers so that the tree can be reconstructed off-line by replaying
// them.
package accumulator

import (
	"errors"

	"github.com/Bren2010/notetree/tree/incremental"
)

var (
	// ErrInvalidLeaf is returned when a leaf isn't exactly 32 bytes.
	ErrInvalidLeaf = errors.New("accumulator: leaf must be 32 bytes")
	// ErrConfigMismatch is returned when the database holds a tree with a
	// different cipher suite or height than requested.
	ErrConfigMismatch = errors.New("accumulator: stored tree does not match configuration")
	// ErrLeafNotFound is returned when reading a leaf that hasn't been
	// appended.
	ErrLeafNotFound = errors.New("accumulator: leaf not found")
)

// EventKind distinguishes the events emitted by an accumulator.
type EventKind int

const (
	Created EventKind = iota + 1
	Appended
)

func (k EventKind) String() string {
	switch k {
	case Created:
		return "created"
	case Appended:
		return "appended"
	default:
		return "unknown"
	}
}

// Event describes one change to an accumulator. Created events carry the
// tree's height and its empty root. Appended events carry the new leaf, its
// index, the resulting root and the leaf's authentication path.
type Event struct {
	Kind   EventKind
	Levels int
	Index  uint64
	Root   incremental.Hash
	Leaf   incremental.Hash
	Path   []incremental.Hash
}

// Observer receives the events produced by an accumulator. Notify is called in
// the same order the changes were committed, while the accumulator is locked,
// so it must not call back into the accumulator.
type Observer interface {
	Notify(ev *Event)
}

// ObserverFunc adapts an ordinary function to the Observer interface.
type ObserverFunc func(ev *Event)

func (f ObserverFunc) Notify(ev *Event) { f(ev) }

// Receipt is returned to the caller of a successful append.
type Receipt struct {
	Index uint64
	Root  incremental.Hash
	Path  []incremental.Hash
}
