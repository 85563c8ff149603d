// Package commitments implements a cryptographic commitment, whose output is
// suitable for use as a leaf of a note tree.
package commitments

import (
	"crypto/hmac"
	"crypto/rand"

	"github.com/Bren2010/notetree/crypto/suites"
)

// GenerateOpening returns a randomly generated opening for a commitment.
func GenerateOpening(cs suites.CipherSuite) ([]byte, error) {
	out := make([]byte, cs.CommitmentOpeningSize())
	if _, err := rand.Read(out); err != nil {
		return nil, err
	}
	return out, nil
}

// Commit returns a cryptographic commitment to `body` with the given `opening`.
// The output is always cs.HashSize() bytes.
func Commit(cs suites.CipherSuite, opening, body []byte) []byte {
	mac := hmac.New(cs.Hash, cs.CommitmentFixedBytes())
	mac.Write(opening)
	mac.Write(body)
	return mac.Sum(nil)
}

// Verify returns true if `commitment` corresponds to a commitment to `body`
// with the given `opening`.
func Verify(cs suites.CipherSuite, opening, body, commitment []byte) bool {
	cand := Commit(cs, opening, body)
	return hmac.Equal(commitment, cand)
}
