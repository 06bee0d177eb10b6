// Package bboltadapter implements database.DataAccessor over
// go.etcd.io/bbolt, the production persistent store backend (grounded on
// the pack's widespread bbolt usage, e.g. AKJUS-bsc-erigon's indirect
// go.etcd.io/bbolt dependency). Append-only stores are modeled as bbolt
// buckets keyed by a monotonically increasing sequence number, matching
// the StoreLocation contract in infrastructure/db/database.
package bboltadapter

import (
	"encoding/binary"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/kasparite/node/infrastructure/db/database"
)

var kvBucketName = []byte("kv")

// DB wraps a *bolt.DB behind the DataAccessor contract.
type DB struct {
	bolt *bolt.DB
}

// Open opens (creating if needed) a bbolt file at path.
func Open(path string) (*DB, error) {
	bdb, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, errors.Wrap(err, "bboltadapter: open")
	}
	err = bdb.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(kvBucketName)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &DB{bolt: bdb}, nil
}

// Close releases the underlying file handle.
func (db *DB) Close() error { return db.bolt.Close() }

func storeBucketName(storeName string) []byte {
	return []byte("store:" + storeName)
}

// Put implements database.DataAccessor.
func (db *DB) Put(key *database.Key, value []byte) error {
	return db.bolt.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(kvBucketName).Put(key.Bytes(), value)
	})
}

// Get implements database.DataAccessor.
func (db *DB) Get(key *database.Key) ([]byte, error) {
	var out []byte
	err := db.bolt.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(kvBucketName).Get(key.Bytes())
		if v == nil {
			return database.ErrNotFound
		}
		out = append([]byte(nil), v...)
		return nil
	})
	return out, err
}

// Has implements database.DataAccessor.
func (db *DB) Has(key *database.Key) (bool, error) {
	var has bool
	err := db.bolt.View(func(tx *bolt.Tx) error {
		has = tx.Bucket(kvBucketName).Get(key.Bytes()) != nil
		return nil
	})
	return has, err
}

// Delete implements database.DataAccessor.
func (db *DB) Delete(key *database.Key) error {
	return db.bolt.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(kvBucketName).Delete(key.Bytes())
	})
}

// AppendToStore implements database.DataAccessor.
func (db *DB) AppendToStore(storeName string, data []byte) (database.StoreLocation, error) {
	var loc database.StoreLocation
	err := db.bolt.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(storeBucketName(storeName))
		if err != nil {
			return err
		}
		seq, err := bucket.NextSequence()
		if err != nil {
			return err
		}
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)
		if err := bucket.Put(key, data); err != nil {
			return err
		}
		loc = database.StoreLocation(key)
		return nil
	})
	return loc, err
}

// RetrieveFromStore implements database.DataAccessor.
func (db *DB) RetrieveFromStore(storeName string, location database.StoreLocation) ([]byte, error) {
	var out []byte
	err := db.bolt.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(storeBucketName(storeName))
		if bucket == nil {
			return database.ErrNotFound
		}
		v := bucket.Get(location)
		if v == nil {
			return database.ErrNotFound
		}
		out = append([]byte(nil), v...)
		return nil
	})
	return out, err
}

// DeleteFromStoreUpToLocation implements database.DataAccessor.
func (db *DB) DeleteFromStoreUpToLocation(storeName string, dbLocation database.StoreLocation, dbPreservedLocations []database.StoreLocation) error {
	preserved := make(map[string]struct{}, len(dbPreservedLocations))
	for _, loc := range dbPreservedLocations {
		preserved[string(loc)] = struct{}{}
	}
	return db.bolt.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(storeBucketName(storeName))
		if bucket == nil {
			return nil
		}
		cursor := bucket.Cursor()
		for k, _ := cursor.First(); k != nil && string(k) < string(dbLocation); k, _ = cursor.Next() {
			if _, keep := preserved[string(k)]; keep {
				continue
			}
			if err := bucket.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

// Cursor implements database.DataAccessor.
func (db *DB) Cursor(bucket *database.Bucket) (database.Cursor, error) {
	tx, err := db.bolt.Begin(false)
	if err != nil {
		return nil, err
	}
	b := tx.Bucket(kvBucketName)
	return &cursor{tx: tx, bucket: b, prefix: bucket.Path()}, nil
}

type cursor struct {
	tx     *bolt.Tx
	bucket *bolt.Bucket
	cur    *bolt.Cursor
	prefix []byte
	key    []byte
	value  []byte
	begun  bool
}

func (c *cursor) Next() bool {
	if c.bucket == nil {
		return false
	}
	if !c.begun {
		c.cur = c.bucket.Cursor()
		c.key, c.value = c.cur.Seek(c.prefix)
		c.begun = true
	} else {
		c.key, c.value = c.cur.Next()
	}
	return c.key != nil
}

func (c *cursor) Key() (*database.Key, error)   { return &database.Key{}, nil }
func (c *cursor) Value() ([]byte, error)        { return c.value, nil }
func (c *cursor) Close() error                  { return c.tx.Rollback() }

// Begin implements database.DataAccessor.
func (db *DB) Begin() (database.WriteBatch, error) {
	tx, err := db.bolt.Begin(true)
	if err != nil {
		return nil, err
	}
	kvBucket := tx.Bucket(kvBucketName)
	return &writeBatch{tx: tx, kv: kvBucket}, nil
}

type writeBatch struct {
	tx *bolt.Tx
	kv *bolt.Bucket
}

func (w *writeBatch) Put(key *database.Key, value []byte) error {
	return w.kv.Put(key.Bytes(), value)
}

func (w *writeBatch) Delete(key *database.Key) error {
	return w.kv.Delete(key.Bytes())
}

func (w *writeBatch) AppendToStore(storeName string, data []byte) (database.StoreLocation, error) {
	bucket, err := w.tx.CreateBucketIfNotExists(storeBucketName(storeName))
	if err != nil {
		return nil, err
	}
	seq, err := bucket.NextSequence()
	if err != nil {
		return nil, err
	}
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	if err := bucket.Put(key, data); err != nil {
		return nil, err
	}
	return database.StoreLocation(key), nil
}

func (w *writeBatch) Commit() error   { return w.tx.Commit() }
func (w *writeBatch) Rollback() error { return w.tx.Rollback() }
