package accumulator

import (
	"github.com/Bren2010/notetree/tree/incremental"
)

// parseLeaf checks that raw is the right size for a leaf and converts it.
// Leaves are otherwise opaque: any 32-byte value is accepted, including the
// all-zero one.
func parseLeaf(raw []byte) (incremental.Hash, error) {
	var out incremental.Hash
	if len(raw) != len(out) {
		return out, ErrInvalidLeaf
	}
	copy(out[:], raw)
	return out, nil
}
