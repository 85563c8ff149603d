package incremental

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/Bren2010/notetree/crypto/suites"
)

var testSuites = []suites.CipherSuite{suites.NTSha256{}, suites.NTKeccak256{}}

func random() Hash {
	var out Hash
	if _, err := rand.Read(out[:]); err != nil {
		panic(err)
	}
	return out
}

func dh(h string) Hash {
	raw, err := hex.DecodeString(h)
	if err != nil || len(raw) != 32 {
		panic("DecodeString failed")
	}
	var out Hash
	copy(out[:], raw)
	return out
}

// naiveRoot rebuilds the entire tree from its leaves, padding the unused
// positions with the empty leaf, and returns the root.
func naiveRoot(cs suites.CipherSuite, levels int, leaves []Hash) Hash {
	nodes := make([]Hash, 1<<levels)
	copy(nodes, leaves)
	for len(nodes) > 1 {
		next := make([]Hash, len(nodes)/2)
		for i := range next {
			next[i] = treeHash(cs, nodes[2*i], nodes[2*i+1])
		}
		nodes = next
	}
	return nodes[0]
}

// evaluatePath returns the root implied by the given leaf, index and
// authentication path.
func evaluatePath(cs suites.CipherSuite, index uint64, leaf Hash, path []Hash) Hash {
	cur := leaf
	for level, sibling := range path {
		if isRight(index, level) {
			cur = treeHash(cs, sibling, cur)
		} else {
			cur = treeHash(cs, cur, sibling)
		}
	}
	return cur
}

func TestInvalidHeight(t *testing.T) {
	for _, levels := range []int{-1, 0, 65, 256} {
		if _, err := New(suites.NTSha256{}, levels); !errors.Is(err, ErrInvalidHeight) {
			t.Fatalf("levels=%v: expected ErrInvalidHeight, got %v", levels, err)
		}
	}
	for _, levels := range []int{1, 32, 64} {
		if _, err := New(suites.NTSha256{}, levels); err != nil {
			t.Fatalf("levels=%v: %v", levels, err)
		}
	}
}

func TestZeroTableVectors(t *testing.T) {
	for _, tc := range []struct {
		cs   suites.CipherSuite
		want []Hash
	}{
		{suites.NTSha256{}, []Hash{
			{},
			dh("f5a5fd42d16a20302798ef6ed309979b43003d2320d9f0e8ea9831a92759fb4b"),
			dh("db56114e00fdd4c1f85c892bf35ac9a89289aaecb1ebd0a96cde606a748b5d71"),
		}},
		{suites.NTKeccak256{}, []Hash{
			{},
			dh("ad3228b676f7d3cd4284a5443f17f1962b36e491b30a40b2405849e597ba5fb5"),
			dh("b4c11951957c6f8f642c4af61cd6b24640fec6dc7fc607ee8206a99e92410d30"),
		}},
	} {
		zeroes, err := ZeroTable(tc.cs, 3)
		if err != nil {
			t.Fatal(err)
		}
		for i, want := range tc.want {
			if zeroes[i] != want {
				t.Errorf("%v: zeroes[%v] = %v, want %v", tc.cs.Name(), i, zeroes[i], want)
			}
		}
	}
}

func TestEmptyTree(t *testing.T) {
	for _, cs := range testSuites {
		for levels := 1; levels <= 64; levels++ {
			a, err := New(cs, levels)
			if err != nil {
				t.Fatal(err)
			}
			b, err := New(cs, levels)
			if err != nil {
				t.Fatal(err)
			}

			za, zb := a.Zeroes(), b.Zeroes()
			if len(za) != levels {
				t.Fatalf("zero table has unexpected length: %v", len(za))
			}
			for i := range za {
				if za[i] != zb[i] {
					t.Fatalf("zero tables differ at level %v", i)
				}
			}
			if a.Root() != b.Root() {
				t.Fatal("empty roots differ")
			} else if a.Root() != treeHash(cs, za[levels-1], za[levels-1]) {
				t.Fatal("empty root is not the zero value one level above the table")
			} else if a.Size() != 0 || a.Full() {
				t.Fatal("empty tree reports leaves")
			}

			if levels <= 10 && a.Root() != naiveRoot(cs, levels, nil) {
				t.Fatalf("levels=%v: empty root does not match full rebuild", levels)
			}
		}
	}
}

func TestSingleLevel(t *testing.T) {
	cs := suites.NTSha256{}
	tree, err := New(cs, 1)
	if err != nil {
		t.Fatal(err)
	}
	x, y := random(), random()

	index, root, err := tree.Append(x)
	if err != nil {
		t.Fatal(err)
	} else if index != 0 {
		t.Fatalf("unexpected index: %v", index)
	} else if root != treeHash(cs, x, Hash{}) {
		t.Fatal("unexpected root after first append")
	}

	index, root, err = tree.Append(y)
	if err != nil {
		t.Fatal(err)
	} else if index != 1 {
		t.Fatalf("unexpected index: %v", index)
	} else if root != treeHash(cs, x, y) {
		t.Fatal("unexpected root after second append")
	} else if !tree.Full() {
		t.Fatal("tree should be full")
	}

	if _, _, err := tree.Append(random()); !errors.Is(err, ErrTreeFull) {
		t.Fatalf("expected ErrTreeFull, got %v", err)
	}
}

func TestCapacity(t *testing.T) {
	for levels := 1; levels <= 6; levels++ {
		tree, err := New(suites.NTSha256{}, levels)
		if err != nil {
			t.Fatal(err)
		}
		capacity := uint64(1) << levels
		if tree.Capacity() != capacity {
			t.Fatalf("unexpected capacity: %v", tree.Capacity())
		}

		for i := uint64(0); i < capacity; i++ {
			if tree.Full() {
				t.Fatalf("tree reported full after %v appends", i)
			}
			index, _, err := tree.Append(random())
			if err != nil {
				t.Fatal(err)
			} else if index != i {
				t.Fatalf("unexpected index: wanted=%v, got=%v", i, index)
			}
		}

		root, size := tree.Root(), tree.Size()
		for i := 0; i < 3; i++ {
			_, _, err := tree.Append(random())
			if !errors.Is(err, ErrTreeFull) {
				t.Fatalf("expected ErrTreeFull, got %v", err)
			}
		}
		if tree.Root() != root {
			t.Fatal("failed append changed the root")
		} else if tree.Size() != size || size != capacity {
			t.Fatal("failed append changed the size")
		}
	}
}

func TestRootConsistency(t *testing.T) {
	for _, cs := range testSuites {
		levels := 7
		tree, err := New(cs, levels)
		if err != nil {
			t.Fatal(err)
		}
		leaves := make([]Hash, 0)

		for i := 0; i < 1<<levels; i++ {
			leaf := random()
			leaves = append(leaves, leaf)

			index, root, path, err := tree.AppendWithPath(leaf)
			if err != nil {
				t.Fatal(err)
			} else if index != uint64(i) {
				t.Fatalf("unexpected index: wanted=%v, got=%v", i, index)
			} else if root != tree.Root() {
				t.Fatal("returned root does not match current root")
			} else if root != naiveRoot(cs, levels, leaves) {
				t.Fatalf("root after %v appends does not match full rebuild", i+1)
			} else if len(path) != levels {
				t.Fatalf("path has unexpected length: %v", len(path))
			} else if evaluatePath(cs, index, leaf, path) != root {
				t.Fatalf("path for leaf %v does not lead to root", index)
			}
		}
	}
}

func TestZeroLeaf(t *testing.T) {
	tree, err := New(suites.NTSha256{}, 4)
	if err != nil {
		t.Fatal(err)
	}
	empty := tree.Root()

	index, root, err := tree.Append(Hash{})
	if err != nil {
		t.Fatal(err)
	} else if index != 0 {
		t.Fatalf("unexpected index: %v", index)
	} else if root != empty {
		t.Fatal("appending the empty leaf should not change the root")
	} else if tree.Size() != 1 {
		t.Fatal("empty leaf was not counted")
	}

	index, _, err = tree.Append(Hash{})
	if err != nil {
		t.Fatal(err)
	} else if index != 1 {
		t.Fatalf("unexpected index: %v", index)
	}
}

func TestIdempotentReads(t *testing.T) {
	tree, err := New(suites.NTKeccak256{}, 16)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		if _, _, err := tree.Append(random()); err != nil {
			t.Fatal(err)
		}
		root := tree.Root()
		for j := 0; j < 5; j++ {
			if tree.Root() != root {
				t.Fatal("repeated reads returned different roots")
			}
		}
	}
}

func TestClone(t *testing.T) {
	tree, err := New(suites.NTSha256{}, 8)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		if _, _, err := tree.Append(random()); err != nil {
			t.Fatal(err)
		}
	}
	root, size := tree.Root(), tree.Size()

	clone := tree.Clone()
	leaf := random()
	_, cloneRoot, err := clone.Append(leaf)
	if err != nil {
		t.Fatal(err)
	} else if tree.Root() != root || tree.Size() != size {
		t.Fatal("append to clone modified original")
	}

	_, origRoot, err := tree.Append(leaf)
	if err != nil {
		t.Fatal(err)
	} else if origRoot != cloneRoot {
		t.Fatal("clone diverged from original")
	}
}

func TestMaxLevels(t *testing.T) {
	tree, err := New(suites.NTSha256{}, 64)
	if err != nil {
		t.Fatal(err)
	} else if tree.Capacity() != math.MaxUint64 {
		t.Fatalf("unexpected capacity: %v", tree.Capacity())
	}

	// Jump to the last leaf position.
	st := tree.State()
	st.NextIndex = math.MaxUint64
	tree, err = Restore(suites.NTSha256{}, st)
	if err != nil {
		t.Fatal(err)
	}

	index, _, err := tree.Append(random())
	if err != nil {
		t.Fatal(err)
	} else if index != math.MaxUint64 {
		t.Fatalf("unexpected index: %v", index)
	} else if !tree.Full() {
		t.Fatal("tree should be full")
	}
	root := tree.Root()
	if _, _, err := tree.Append(random()); !errors.Is(err, ErrTreeFull) {
		t.Fatalf("expected ErrTreeFull, got %v", err)
	} else if tree.Root() != root {
		t.Fatal("failed append changed the root")
	}
}

func TestConcurrentReads(t *testing.T) {
	cs := suites.NTSha256{}
	leaves := make([]Hash, 200)
	for i := range leaves {
		leaves[i] = random()
	}

	// Compute every root the tree will go through.
	ref, err := New(cs, 10)
	if err != nil {
		t.Fatal(err)
	}
	valid := map[Hash]struct{}{ref.Root(): {}}
	for _, leaf := range leaves {
		_, root, err := ref.Append(leaf)
		if err != nil {
			t.Fatal(err)
		}
		valid[root] = struct{}{}
	}

	tree, err := New(cs, 10)
	if err != nil {
		t.Fatal(err)
	}
	done := make(chan struct{})
	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				if _, ok := valid[tree.Root()]; !ok {
					errs <- errors.New("reader observed a root that was never committed")
					return
				}
			}
		}()
	}

	for _, leaf := range leaves {
		if _, _, err := tree.Append(leaf); err != nil {
			t.Fatal(err)
		}
	}
	close(done)
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}
	if tree.Root() != ref.Root() {
		t.Fatal("final roots differ")
	}
}

func BenchmarkAppend(b *testing.B) {
	tree, err := New(suites.NTSha256{}, 32)
	if err != nil {
		b.Fatal(err)
	}
	leaf := random()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := tree.Append(leaf); err != nil {
			b.Fatal(err)
		}
	}
}
