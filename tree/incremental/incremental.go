// Package incremental implements a fixed-height, append-only Merkle tree that
// keeps only one scratch hash per level. Appending a leaf costs exactly one
// hash per level and the structure never needs to look at previous leaves.
package incremental

import (
	"encoding/hex"
	"errors"
	"math"
	"sync"

	"github.com/Bren2010/notetree/crypto/suites"
)

var (
	// ErrInvalidHeight is returned when a tree is constructed with a number of
	// levels outside of [1, 64].
	ErrInvalidHeight = errors.New("incremental: tree height must be between 1 and 64")
	// ErrTreeFull is returned by Append once every leaf position is used.
	ErrTreeFull = errors.New("incremental: tree is full")
)

// Hash is the value of a leaf or an intermediate node of the tree.
type Hash [32]byte

func (h Hash) String() string { return hex.EncodeToString(h[:]) }

// Tree is an incremental Merkle tree. All methods are safe for concurrent use;
// appends are serialized and readers observe either the state before or after
// an append, never something in between.
type Tree struct {
	mu sync.RWMutex

	cs     suites.CipherSuite
	levels int
	zeroes []Hash // Value of an empty subtree at each level. Never modified.

	filled    []Hash // Most recent left child at each level.
	nextIndex uint64
	full      bool
	root      Hash
}

// New returns an empty tree with capacity for 2^levels leaves.
func New(cs suites.CipherSuite, levels int) (*Tree, error) {
	zeroes, err := ZeroTable(cs, levels)
	if err != nil {
		return nil, err
	}
	filled := make([]Hash, levels)
	copy(filled, zeroes)

	return &Tree{
		cs:     cs,
		levels: levels,
		zeroes: zeroes,

		filled: filled,
		root:   treeHash(cs, zeroes[levels-1], zeroes[levels-1]),
	}, nil
}

// Root returns the current root of the tree.
func (t *Tree) Root() Hash {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.root
}

// Append adds a leaf at the next free position and returns the position along
// with the new root.
func (t *Tree) Append(leaf Hash) (uint64, Hash, error) {
	index, root, _, err := t.AppendWithPath(leaf)
	return index, root, err
}

// AppendWithPath is like Append but also returns the sibling that was paired
// with the new leaf's path at each level, starting from the leaves. Together
// with the index, this is an authentication path for the leaf against the
// returned root.
func (t *Tree) AppendWithPath(leaf Hash) (uint64, Hash, []Hash, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.full {
		return 0, Hash{}, nil, ErrTreeFull
	}
	idx := t.nextIndex

	path := make([]Hash, t.levels)
	cur := leaf
	for level := 0; level < t.levels; level++ {
		if !isRight(idx, level) {
			t.filled[level] = cur
			path[level] = t.zeroes[level]
			cur = treeHash(t.cs, cur, t.zeroes[level])
		} else {
			path[level] = t.filled[level]
			cur = treeHash(t.cs, t.filled[level], cur)
		}
	}

	t.root = cur
	if idx == lastIndex(t.levels) {
		t.full = true
	}
	if idx < math.MaxUint64 {
		t.nextIndex = idx + 1
	}

	return idx, t.root, path, nil
}

// Levels returns the height of the tree.
func (t *Tree) Levels() int { return t.levels }

// Suite returns the cipher suite the tree hashes with.
func (t *Tree) Suite() suites.CipherSuite { return t.cs }

// Capacity returns the number of leaves the tree can hold. A 64-level tree
// reports math.MaxUint64.
func (t *Tree) Capacity() uint64 { return Capacity(t.levels) }

// Size returns the number of leaves appended so far, which is also the index
// the next leaf will receive. Like Capacity, it saturates at math.MaxUint64.
func (t *Tree) Size() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.nextIndex
}

// Full returns true if no more leaves can be appended.
func (t *Tree) Full() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.full
}

// Zeroes returns a copy of the tree's zero table.
func (t *Tree) Zeroes() []Hash {
	out := make([]Hash, len(t.zeroes))
	copy(out, t.zeroes)
	return out
}

// Clone returns a deep copy of the tree. Appends to the copy do not affect the
// original.
func (t *Tree) Clone() *Tree {
	t.mu.RLock()
	defer t.mu.RUnlock()

	filled := make([]Hash, len(t.filled))
	copy(filled, t.filled)

	return &Tree{
		cs:     t.cs,
		levels: t.levels,
		zeroes: t.zeroes,

		filled:    filled,
		nextIndex: t.nextIndex,
		full:      t.full,
		root:      t.root,
	}
}
