package incremental

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/Bren2010/notetree/crypto/suites"
)

// State is the persisted form of a tree: everything needed to continue
// appending after a restart.
type State struct {
	Suite          uint16
	Levels         int
	Zeroes         []Hash
	FilledSubtrees []Hash
	NextIndex      uint64
	Full           bool
	Root           Hash
}

// State returns a snapshot of the tree's current state.
func (t *Tree) State() *State {
	t.mu.RLock()
	defer t.mu.RUnlock()

	zeroes := make([]Hash, len(t.zeroes))
	copy(zeroes, t.zeroes)
	filled := make([]Hash, len(t.filled))
	copy(filled, t.filled)

	return &State{
		Suite:          t.cs.Id(),
		Levels:         t.levels,
		Zeroes:         zeroes,
		FilledSubtrees: filled,
		NextIndex:      t.nextIndex,
		Full:           t.full,
		Root:           t.root,
	}
}

// Restore returns a tree that continues from the given state. The state's zero
// table is checked against one computed with `cs`, so that state written under
// a different hash function is rejected.
func Restore(cs suites.CipherSuite, st *State) (*Tree, error) {
	if st.Suite != cs.Id() {
		return nil, fmt.Errorf("state was written with cipher suite %v, not %v", st.Suite, cs.Id())
	}
	zeroes, err := ZeroTable(cs, st.Levels)
	if err != nil {
		return nil, err
	} else if len(st.Zeroes) != st.Levels || len(st.FilledSubtrees) != st.Levels {
		return nil, errors.New("state has unexpected number of entries per level")
	}
	for i := range zeroes {
		if zeroes[i] != st.Zeroes[i] {
			return nil, fmt.Errorf("stored zero value at level %v does not match", i)
		}
	}
	if !consistentIndex(st.Levels, st.NextIndex, st.Full) {
		return nil, errors.New("stored next index is inconsistent with tree height")
	}

	filled := make([]Hash, st.Levels)
	copy(filled, st.FilledSubtrees)

	return &Tree{
		cs:     cs,
		levels: st.Levels,
		zeroes: zeroes,

		filled:    filled,
		nextIndex: st.NextIndex,
		full:      st.Full,
		root:      st.Root,
	}, nil
}

// consistentIndex returns true if nextIndex and full describe a reachable
// state of a tree with the given number of levels.
func consistentIndex(levels int, nextIndex uint64, full bool) bool {
	last := lastIndex(levels)
	if levels == maxLevels {
		return !full || nextIndex == last
	} else if full {
		return nextIndex == last+1
	}
	return nextIndex <= last
}

func readHashes(buf *bytes.Buffer, n int) ([]Hash, error) {
	out := make([]Hash, n)
	for i := range out {
		if _, err := io.ReadFull(buf, out[i][:]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func writeHashes(buf *bytes.Buffer, hashes []Hash) {
	for _, h := range hashes {
		buf.Write(h[:])
	}
}

// ParseState decodes a state previously produced by Marshal.
func ParseState(raw []byte) (*State, error) {
	buf := bytes.NewBuffer(raw)

	var (
		suite  uint16
		levels uint8
	)
	if err := binary.Read(buf, binary.BigEndian, &suite); err != nil {
		return nil, err
	} else if err := binary.Read(buf, binary.BigEndian, &levels); err != nil {
		return nil, err
	} else if levels < minLevels || levels > maxLevels {
		return nil, ErrInvalidHeight
	}

	zeroes, err := readHashes(buf, int(levels))
	if err != nil {
		return nil, err
	}
	filled, err := readHashes(buf, int(levels))
	if err != nil {
		return nil, err
	}

	var (
		nextIndex uint64
		full      uint8
		root      Hash
	)
	if err := binary.Read(buf, binary.BigEndian, &nextIndex); err != nil {
		return nil, err
	} else if err := binary.Read(buf, binary.BigEndian, &full); err != nil {
		return nil, err
	} else if full > 1 {
		return nil, errors.New("malformed full flag")
	} else if _, err := io.ReadFull(buf, root[:]); err != nil {
		return nil, err
	} else if buf.Len() != 0 {
		return nil, errors.New("unexpected data after tree state")
	}

	return &State{
		Suite:          suite,
		Levels:         int(levels),
		Zeroes:         zeroes,
		FilledSubtrees: filled,
		NextIndex:      nextIndex,
		Full:           full == 1,
		Root:           root,
	}, nil
}

// Marshal returns the serialized state.
func (st *State) Marshal() ([]byte, error) {
	if st.Levels < minLevels || st.Levels > maxLevels {
		return nil, ErrInvalidHeight
	} else if len(st.Zeroes) != st.Levels || len(st.FilledSubtrees) != st.Levels {
		return nil, errors.New("state has unexpected number of entries per level")
	}
	buf := &bytes.Buffer{}

	if err := binary.Write(buf, binary.BigEndian, st.Suite); err != nil {
		return nil, err
	} else if err := buf.WriteByte(byte(st.Levels)); err != nil {
		return nil, err
	}
	writeHashes(buf, st.Zeroes)
	writeHashes(buf, st.FilledSubtrees)
	if err := binary.Write(buf, binary.BigEndian, st.NextIndex); err != nil {
		return nil, err
	}
	var full byte
	if st.Full {
		full = 1
	}
	buf.WriteByte(full)
	buf.Write(st.Root[:])

	return buf.Bytes(), nil
}
