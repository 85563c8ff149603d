// Package db implements database wrappers that match a common interface.
package db

// LeafStore is the interface an accumulator uses to store the leaves it has
// appended, keyed by their index.
type LeafStore interface {
	BatchGet(keys []uint64) (data map[uint64][]byte, err error)
	BatchPut(data map[uint64][]byte) error
}

// AccumulatorStore is the interface an accumulator uses to communicate with
// its database. Writes are buffered until Commit is called, and a Commit
// either persists all of them or none.
type AccumulatorStore interface {
	// Clone returns a read-only clone of the current store, suitable for
	// distributing to child goroutines.
	Clone() AccumulatorStore

	// GetState returns the most recently committed tree state, or nil if
	// there is none yet.
	GetState() ([]byte, error)
	// SetState sets the input value as the most recent tree state.
	SetState(raw []byte) error

	LeafStore() LeafStore

	Commit() error
	Close() error
}
