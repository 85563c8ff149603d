package accumulator

import (
	"fmt"
	"math"
	"sync"

	"github.com/Bren2010/notetree/crypto/suites"
	"github.com/Bren2010/notetree/db"
	"github.com/Bren2010/notetree/tree/incremental"
)

// Accumulator is an incremental Merkle tree whose state is kept in a database.
type Accumulator struct {
	cs       suites.CipherSuite
	levels   int
	capacity uint64

	mu        sync.RWMutex
	tree      *incremental.Tree
	store     db.AccumulatorStore
	reader    db.AccumulatorStore // Read-only view of committed data.
	observers []Observer
}

// Open returns the accumulator stored in `store`, or creates a new, empty one
// with the given cipher suite and height if the store has no state yet.
func Open(cs suites.CipherSuite, levels int, store db.AccumulatorStore, observers ...Observer) (*Accumulator, error) {
	raw, err := store.GetState()
	if err != nil {
		return nil, err
	}
	acc := &Accumulator{
		cs:       cs,
		levels:   levels,
		capacity: incremental.Capacity(levels),

		store:     store,
		reader:    store.Clone(),
		observers: observers,
	}

	if raw == nil {
		tree, err := incremental.New(cs, levels)
		if err != nil {
			return nil, err
		} else if err := acc.commit(tree, nil); err != nil {
			return nil, err
		}
		acc.tree = tree
		acc.notify(&Event{Kind: Created, Levels: levels, Root: tree.Root()})
		return acc, nil
	}

	st, err := incremental.ParseState(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse stored tree state: %w", err)
	} else if st.Suite != cs.Id() || st.Levels != levels {
		stored := fmt.Sprint(st.Suite)
		if storedCS, err := suites.FromId(st.Suite); err == nil {
			stored = storedCS.Name()
		}
		return nil, fmt.Errorf("%w: stored suite=%v levels=%v, configured suite=%v levels=%v",
			ErrConfigMismatch, stored, st.Levels, cs.Name(), levels)
	}
	acc.tree, err = incremental.Restore(cs, st)
	if err != nil {
		return nil, err
	}
	return acc, nil
}

// commit writes the state of `tree`, and the leaves in `leaves`, to the
// database.
func (a *Accumulator) commit(tree *incremental.Tree, leaves map[uint64][]byte) error {
	raw, err := tree.State().Marshal()
	if err != nil {
		return err
	}
	if len(leaves) > 0 {
		if err := a.store.LeafStore().BatchPut(leaves); err != nil {
			return err
		}
	}
	if err := a.store.SetState(raw); err != nil {
		return err
	}
	return a.store.Commit()
}

func (a *Accumulator) notify(ev *Event) {
	for _, o := range a.observers {
		o.Notify(ev)
	}
}

// Append adds a new leaf to the accumulator and returns its index, the new
// root and the leaf's authentication path. Nothing is modified unless the new
// state is successfully committed to the database.
func (a *Accumulator) Append(leaf []byte) (*Receipt, error) {
	h, err := parseLeaf(leaf)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	next := a.tree.Clone()
	index, root, path, err := next.AppendWithPath(h)
	if err != nil {
		return nil, err
	}
	if err := a.commit(next, map[uint64][]byte{index: h[:]}); err != nil {
		return nil, fmt.Errorf("failed to commit append: %w", err)
	}
	a.tree = next

	a.notify(&Event{Kind: Appended, Levels: next.Levels(), Index: index, Root: root, Leaf: h, Path: path})
	return &Receipt{Index: index, Root: root, Path: path}, nil
}

// Root returns the current root of the accumulator.
func (a *Accumulator) Root() incremental.Hash {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.tree.Root()
}

// Size returns the number of leaves in the accumulator.
func (a *Accumulator) Size() uint64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.tree.Size()
}

// Full returns true if no more leaves can be appended.
func (a *Accumulator) Full() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.tree.Full()
}

// Levels returns the height of the tree.
func (a *Accumulator) Levels() int { return a.levels }

// Capacity returns the number of leaves the tree can hold, saturating at
// math.MaxUint64.
func (a *Accumulator) Capacity() uint64 { return a.capacity }

// Suite returns the cipher suite the tree hashes with.
func (a *Accumulator) Suite() suites.CipherSuite { return a.cs }

// Leaf returns the leaf that was appended at the given index. The leaf is read
// from a read-only view of the database, so it doesn't hold up appends.
func (a *Accumulator) Leaf(index uint64) (incremental.Hash, error) {
	a.mu.RLock()
	size, full := a.tree.Size(), a.tree.Full()
	a.mu.RUnlock()

	// Size saturates for a full 64-level tree, which leaves the last index
	// readable.
	if index >= size && !(full && size == math.MaxUint64) {
		return incremental.Hash{}, ErrLeafNotFound
	}
	data, err := a.reader.LeafStore().BatchGet([]uint64{index})
	if err != nil {
		return incremental.Hash{}, err
	}
	raw, ok := data[index]
	if !ok {
		return incremental.Hash{}, fmt.Errorf("leaf %v is missing from the database", index)
	}
	return parseLeaf(raw)
}
