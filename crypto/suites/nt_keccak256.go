package suites

import (
	"hash"

	"golang.org/x/crypto/sha3"
)

// NTKeccak256 implements the note tree cipher suite using legacy Keccak-256
// for hashing, matching trees that are maintained by EVM contracts.
type NTKeccak256 struct{}

var _ CipherSuite = NTKeccak256{}

func (s NTKeccak256) Id() uint16                 { return 0x02 }
func (s NTKeccak256) Name() string               { return "keccak256" }
func (s NTKeccak256) Hash() hash.Hash            { return sha3.NewLegacyKeccak256() }
func (s NTKeccak256) HashSize() int              { return 32 }
func (s NTKeccak256) CommitmentOpeningSize() int { return 16 }

func (s NTKeccak256) CommitmentFixedBytes() []byte {
	return []byte{
		0x5e, 0x1a, 0x0c, 0x93, 0x47, 0xb2, 0xe8, 0x16,
		0x2d, 0x71, 0x9f, 0xc4, 0x08, 0xa6, 0x3b, 0xde,
	}
}
