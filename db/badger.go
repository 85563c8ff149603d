package db

import (
	"errors"
	"path/filepath"

	badger "github.com/dgraph-io/badger/v4"
)

// badgerConn is a wrapper around a base Badger database that buffers writes
// between commits, the same way ldbConn does.
type badgerConn struct {
	conn     *badger.DB
	readonly bool
	batch    map[string][]byte
}

func (c *badgerConn) Get(key string) ([]byte, error) {
	if value, ok := c.batch[key]; ok {
		return dup(value), nil
	}
	var out []byte
	err := c.conn.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *badgerConn) Put(key string, value []byte) {
	if c.readonly {
		panic("connection is readonly")
	}
	c.batch[key] = dup(value)
}

func (c *badgerConn) Commit() error {
	if c.readonly {
		panic("connection is readonly")
	}
	batch := c.batch
	c.batch = make(map[string][]byte)

	return c.conn.Update(func(txn *badger.Txn) error {
		for key, value := range batch {
			if err := txn.Set([]byte(key), value); err != nil {
				return err
			}
		}
		return nil
	})
}

// badgerAccumulatorStore implements the AccumulatorStore interface over a
// Badger database. Unlike LevelDB, all writes of a commit land in a single
// transaction.
type badgerAccumulatorStore struct {
	conn *badgerConn
}

func NewBadgerAccumulatorStore(dir string) (AccumulatorStore, error) {
	opts := badger.DefaultOptions(filepath.Clean(dir)).WithLoggingLevel(badger.WARNING)
	conn, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &badgerAccumulatorStore{&badgerConn{conn: conn, batch: make(map[string][]byte)}}, nil
}

func (bs *badgerAccumulatorStore) Clone() AccumulatorStore {
	return &badgerAccumulatorStore{&badgerConn{
		conn:     bs.conn.conn,
		readonly: true,
		batch:    make(map[string][]byte),
	}}
}

func (bs *badgerAccumulatorStore) GetState() ([]byte, error) {
	raw, err := bs.conn.Get(stateKey)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return raw, nil
}

func (bs *badgerAccumulatorStore) SetState(raw []byte) error {
	bs.conn.Put(stateKey, raw)
	return nil
}

func (bs *badgerAccumulatorStore) LeafStore() LeafStore {
	return &badgerLeafStore{bs.conn}
}

func (bs *badgerAccumulatorStore) Commit() error {
	return bs.conn.Commit()
}

func (bs *badgerAccumulatorStore) Close() error {
	if bs.conn.readonly {
		return nil
	}
	return bs.conn.conn.Close()
}

// badgerLeafStore implements the LeafStore interface over Badger.
type badgerLeafStore struct {
	conn *badgerConn
}

func (ls *badgerLeafStore) BatchGet(keys []uint64) (map[uint64][]byte, error) {
	out := make(map[uint64][]byte)

	for _, key := range keys {
		value, err := ls.conn.Get(leafKey(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			continue
		} else if err != nil {
			return nil, err
		}
		out[key] = value
	}

	return out, nil
}

func (ls *badgerLeafStore) BatchPut(data map[uint64][]byte) error {
	for key, value := range data {
		ls.conn.Put(leafKey(key), value)
	}
	return nil
}
