// Package memory provides in-memory implementations of the database interfaces.
package memory

import (
	"errors"
	"sync"

	"github.com/Bren2010/notetree/db"
)

func dup(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// AccumulatorStore is an in-memory db.AccumulatorStore. Writes are buffered
// until Commit, like the on-disk implementations.
type AccumulatorStore struct {
	mu *sync.Mutex

	State  []byte
	Leaves map[uint64][]byte

	pendingState  []byte
	pendingLeaves map[uint64][]byte

	// FailCommit makes every call to Commit return an error and discard the
	// buffered writes.
	FailCommit bool
}

func NewAccumulatorStore() *AccumulatorStore {
	return &AccumulatorStore{
		mu:     &sync.Mutex{},
		Leaves: make(map[uint64][]byte),

		pendingLeaves: make(map[uint64][]byte),
	}
}

func (as *AccumulatorStore) Clone() db.AccumulatorStore {
	return &readOnlyStore{parent: as}
}

func (as *AccumulatorStore) GetState() ([]byte, error) {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.pendingState != nil {
		return dup(as.pendingState), nil
	}
	return dup(as.State), nil
}

func (as *AccumulatorStore) SetState(raw []byte) error {
	if raw == nil {
		return errors.New("unable to store nil state")
	}
	as.mu.Lock()
	defer as.mu.Unlock()

	as.pendingState = dup(raw)
	return nil
}

func (as *AccumulatorStore) LeafStore() db.LeafStore { return &leafStore{parent: as, pending: true} }

func (as *AccumulatorStore) Commit() error {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.FailCommit {
		as.pendingState = nil
		as.pendingLeaves = make(map[uint64][]byte)
		return errors.New("commit failed")
	}
	if as.pendingState != nil {
		as.State = as.pendingState
	}
	for key, value := range as.pendingLeaves {
		as.Leaves[key] = value
	}
	as.pendingState = nil
	as.pendingLeaves = make(map[uint64][]byte)
	return nil
}

func (as *AccumulatorStore) Close() error { return nil }

// readOnlyStore is a view of the committed contents of an AccumulatorStore.
type readOnlyStore struct {
	parent *AccumulatorStore
}

func (ro *readOnlyStore) Clone() db.AccumulatorStore { return ro }

func (ro *readOnlyStore) GetState() ([]byte, error) {
	ro.parent.mu.Lock()
	defer ro.parent.mu.Unlock()
	return dup(ro.parent.State), nil
}

func (ro *readOnlyStore) SetState(raw []byte) error {
	return errors.New("store is readonly")
}

func (ro *readOnlyStore) LeafStore() db.LeafStore { return &leafStore{parent: ro.parent} }
func (ro *readOnlyStore) Commit() error           { return errors.New("store is readonly") }
func (ro *readOnlyStore) Close() error            { return nil }

// leafStore implements db.LeafStore over an AccumulatorStore. Only stores
// handed out by the writable parent see, and produce, pending writes.
type leafStore struct {
	parent  *AccumulatorStore
	pending bool
}

func (ls *leafStore) BatchGet(keys []uint64) (map[uint64][]byte, error) {
	ls.parent.mu.Lock()
	defer ls.parent.mu.Unlock()

	out := make(map[uint64][]byte)
	for _, key := range keys {
		if val, ok := ls.parent.pendingLeaves[key]; ok && ls.pending {
			out[key] = dup(val)
		} else if val, ok := ls.parent.Leaves[key]; ok {
			out[key] = dup(val)
		}
	}
	return out, nil
}

func (ls *leafStore) BatchPut(data map[uint64][]byte) error {
	if !ls.pending {
		return errors.New("store is readonly")
	}
	ls.parent.mu.Lock()
	defer ls.parent.mu.Unlock()

	for key, value := range data {
		if value == nil {
			return errors.New("unable to store nil leaf")
		}
		ls.parent.pendingLeaves[key] = dup(value)
	}
	return nil
}
