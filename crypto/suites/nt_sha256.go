package suites

import (
	"crypto/sha256"
	"hash"
)

// NTSha256 implements the note tree cipher suite using SHA-256 for hashing.
type NTSha256 struct{}

var _ CipherSuite = NTSha256{}

func (s NTSha256) Id() uint16                 { return 0x01 }
func (s NTSha256) Name() string               { return "sha256" }
func (s NTSha256) Hash() hash.Hash            { return sha256.New() }
func (s NTSha256) HashSize() int              { return 32 }
func (s NTSha256) CommitmentOpeningSize() int { return 16 }

func (s NTSha256) CommitmentFixedBytes() []byte {
	return []byte{
		0xd8, 0x21, 0xf8, 0x79, 0x0d, 0x97, 0x70, 0x97,
		0x96, 0xb4, 0xd7, 0x90, 0x33, 0x57, 0xc3, 0xf5,
	}
}
