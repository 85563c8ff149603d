package db

import (
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/errors"
)

const stateKey = "tree-state"

func dup(in []byte) []byte {
	out := make([]byte, len(in))
	copy(out, in)
	return out
}

func leafKey(index uint64) string { return "l" + fmt.Sprint(index) }

// ldbConn is a wrapper around a base LevelDB database that handles batching
// writes between commits transparently.
type ldbConn struct {
	conn     *leveldb.DB
	readonly bool
	batch    map[string][]byte
}

func newLDBConn(conn *leveldb.DB, readonly bool) *ldbConn {
	return &ldbConn{conn, readonly, make(map[string][]byte)}
}

func (c *ldbConn) Get(key string) ([]byte, error) {
	if value, ok := c.batch[key]; ok {
		return dup(value), nil
	}
	return c.conn.Get([]byte(key), nil)
}

func (c *ldbConn) Put(key string, value []byte) {
	if c.readonly {
		panic("connection is readonly")
	}
	c.batch[key] = dup(value)
}

// Commit writes the buffered changes to the database. The buffer is emptied
// whether or not the write succeeds.
func (c *ldbConn) Commit() error {
	if c.readonly {
		panic("connection is readonly")
	}
	batch := c.batch
	c.batch = make(map[string][]byte)

	// Leaves are written before the state that references them, so a crash
	// between the two writes leaves the previous state intact.
	b := new(leveldb.Batch)
	for key, value := range batch {
		if key == stateKey {
			continue
		}
		b.Put([]byte(key), value)
	}
	if err := c.conn.Write(b, nil); err != nil {
		return err
	}
	if value, ok := batch[stateKey]; ok {
		return c.conn.Put([]byte(stateKey), value, nil)
	}
	return nil
}

// ldbAccumulatorStore implements the AccumulatorStore interface over a LevelDB
// database.
type ldbAccumulatorStore struct {
	conn *ldbConn
}

func NewLDBAccumulatorStore(file string) (AccumulatorStore, error) {
	conn, err := leveldb.OpenFile(file, nil)
	if errors.IsCorrupted(err) {
		conn, err = leveldb.RecoverFile(file, nil)
	}
	if err != nil {
		return nil, err
	}
	return &ldbAccumulatorStore{newLDBConn(conn, false)}, nil
}

func (ldb *ldbAccumulatorStore) Clone() AccumulatorStore {
	return &ldbAccumulatorStore{newLDBConn(ldb.conn.conn, true)}
}

func (ldb *ldbAccumulatorStore) GetState() ([]byte, error) {
	raw, err := ldb.conn.Get(stateKey)
	if err == leveldb.ErrNotFound {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return raw, nil
}

func (ldb *ldbAccumulatorStore) SetState(raw []byte) error {
	ldb.conn.Put(stateKey, raw)
	return nil
}

func (ldb *ldbAccumulatorStore) LeafStore() LeafStore {
	return &ldbLeafStore{ldb.conn}
}

func (ldb *ldbAccumulatorStore) Commit() error {
	return ldb.conn.Commit()
}

func (ldb *ldbAccumulatorStore) Close() error {
	if ldb.conn.readonly {
		return nil
	}
	return ldb.conn.conn.Close()
}

// ldbLeafStore implements the LeafStore interface over LevelDB.
type ldbLeafStore struct {
	conn *ldbConn
}

func (ls *ldbLeafStore) BatchGet(keys []uint64) (map[uint64][]byte, error) {
	out := make(map[uint64][]byte)

	for _, key := range keys {
		value, err := ls.conn.Get(leafKey(key))
		if err == leveldb.ErrNotFound {
			continue
		} else if err != nil {
			return nil, err
		}
		out[key] = value
	}

	return out, nil
}

func (ls *ldbLeafStore) BatchPut(data map[uint64][]byte) error {
	for key, value := range data {
		ls.conn.Put(leafKey(key), value)
	}
	return nil
}
