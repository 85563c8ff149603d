package incremental

import (
	"math"

	"github.com/Bren2010/notetree/crypto/suites"
)

const (
	minLevels = 1
	maxLevels = 64
)

// lastIndex returns the index of the right-most leaf in a tree with the given
// number of levels. It's computed without shifting by 64, so it's valid for
// every supported height.
func lastIndex(levels int) uint64 {
	return ^uint64(0) >> (maxLevels - levels)
}

// Capacity returns the number of leaves a tree with the given number of levels
// can hold. It saturates at math.MaxUint64 for 64 levels.
func Capacity(levels int) uint64 {
	last := lastIndex(levels)
	if last == math.MaxUint64 {
		return last
	}
	return last + 1
}

// isRight returns true if, at the given level, the node on the path from leaf
// x to the root is a right child.
func isRight(x uint64, level int) bool {
	return (x>>level)&1 == 1
}

// treeHash returns the intermediate hash of left and right. The left operand
// is always written first.
func treeHash(cs suites.CipherSuite, left, right Hash) Hash {
	h := cs.Hash()
	h.Write(left[:])
	h.Write(right[:])

	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

// ZeroTable returns the value of an empty subtree at each level of a tree with
// the given number of levels. The first entry is the empty leaf, which is all
// zeroes, and each subsequent entry is the hash of the previous one with
// itself.
func ZeroTable(cs suites.CipherSuite, levels int) ([]Hash, error) {
	if levels < minLevels || levels > maxLevels {
		return nil, ErrInvalidHeight
	}
	zeroes := make([]Hash, levels)
	for i := 1; i < levels; i++ {
		zeroes[i] = treeHash(cs, zeroes[i-1], zeroes[i-1])
	}
	return zeroes, nil
}
