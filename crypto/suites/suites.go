// Package suites implements each supported cipher suite.
package suites

import (
	"fmt"
	"hash"
)

// CipherSuite is the interface implemented by each supported cipher suite.
//
// The suite fixes the hash function used everywhere in a tree: the zero table,
// the scratch values and the root. Two trees with different suites never
// produce comparable roots.
type CipherSuite interface {
	Id() uint16
	Name() string
	Hash() hash.Hash
	HashSize() int
	CommitmentOpeningSize() int
	CommitmentFixedBytes() []byte
}

var all = []CipherSuite{NTSha256{}, NTKeccak256{}}

// FromName returns the cipher suite with the given configuration name.
func FromName(name string) (CipherSuite, error) {
	for _, cs := range all {
		if cs.Name() == name {
			return cs, nil
		}
	}
	return nil, fmt.Errorf("unknown cipher suite: %q", name)
}

// FromId returns the cipher suite with the given identifier, as stored in
// persisted tree state.
func FromId(id uint16) (CipherSuite, error) {
	for _, cs := range all {
		if cs.Id() == id {
			return cs, nil
		}
	}
	return nil, fmt.Errorf("unknown cipher suite id: %v", id)
}
