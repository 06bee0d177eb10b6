// Package memdb is the in-memory DataAccessor substitute used by tests,
// satisfying the same contract as bboltadapter
// substitutes note.
package memdb

import (
	"sort"
	"strconv"
	"sync"

	"github.com/kasparite/node/infrastructure/db/database"
)

// DB is a process-local, lock-protected map backing DataAccessor.
type DB struct {
	mu      sync.RWMutex
	kv      map[string][]byte
	appends map[string]map[int][]byte
	next    map[string]int
}

// New constructs an empty in-memory database.
func New() *DB {
	return &DB{
		kv:      make(map[string][]byte),
		appends: make(map[string]map[int][]byte),
		next:    make(map[string]int),
	}
}

func locationKey(index int) database.StoreLocation {
	return database.StoreLocation(strconv.Itoa(index))
}

func locationIndex(loc database.StoreLocation) int {
	n, _ := strconv.Atoi(string(loc))
	return n
}

// Put implements database.DataAccessor.
func (db *DB) Put(key *database.Key, value []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.kv[string(key.Bytes())] = append([]byte(nil), value...)
	return nil
}

// Get implements database.DataAccessor.
func (db *DB) Get(key *database.Key) ([]byte, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	v, ok := db.kv[string(key.Bytes())]
	if !ok {
		return nil, database.ErrNotFound
	}
	return v, nil
}

// Has implements database.DataAccessor.
func (db *DB) Has(key *database.Key) (bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	_, ok := db.kv[string(key.Bytes())]
	return ok, nil
}

// Delete implements database.DataAccessor.
func (db *DB) Delete(key *database.Key) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	delete(db.kv, string(key.Bytes()))
	return nil
}

// AppendToStore implements database.DataAccessor.
func (db *DB) AppendToStore(storeName string, data []byte) (database.StoreLocation, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.appends[storeName] == nil {
		db.appends[storeName] = make(map[int][]byte)
	}
	idx := db.next[storeName]
	db.appends[storeName][idx] = append([]byte(nil), data...)
	db.next[storeName] = idx + 1
	return locationKey(idx), nil
}

// RetrieveFromStore implements database.DataAccessor.
func (db *DB) RetrieveFromStore(storeName string, location database.StoreLocation) ([]byte, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	store, ok := db.appends[storeName]
	if !ok {
		return nil, database.ErrNotFound
	}
	data, ok := store[locationIndex(location)]
	if !ok {
		return nil, database.ErrNotFound
	}
	return data, nil
}

// DeleteFromStoreUpToLocation implements database.DataAccessor.
func (db *DB) DeleteFromStoreUpToLocation(storeName string, dbLocation database.StoreLocation, dbPreservedLocations []database.StoreLocation) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	store, ok := db.appends[storeName]
	if !ok {
		return nil
	}
	preserved := make(map[int]struct{}, len(dbPreservedLocations))
	for _, loc := range dbPreservedLocations {
		preserved[locationIndex(loc)] = struct{}{}
	}
	cutoff := locationIndex(dbLocation)
	for idx := range store {
		if idx < cutoff {
			if _, keep := preserved[idx]; !keep {
				delete(store, idx)
			}
		}
	}
	return nil
}

// Cursor implements database.DataAccessor.
func (db *DB) Cursor(bucket *database.Bucket) (database.Cursor, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	prefix := string(bucket.Path()) + "\x00"
	keys := make([]string, 0)
	for k := range db.kv {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return &cursor{db: db, keys: keys, pos: -1}, nil
}

type cursor struct {
	db   *DB
	keys []string
	pos  int
}

func (c *cursor) Next() bool {
	c.pos++
	return c.pos < len(c.keys)
}

func (c *cursor) Key() (*database.Key, error) {
	return &database.Key{}, nil
}

func (c *cursor) Value() ([]byte, error) {
	c.db.mu.RLock()
	defer c.db.mu.RUnlock()
	return c.db.kv[c.keys[c.pos]], nil
}

func (c *cursor) Close() error { return nil }

// Begin implements database.DataAccessor, returning a batch over the same
// in-memory maps as the rest of the DB. Put and Delete are buffered until
// Commit and dropped by Rollback; AppendToStore is applied to the store
// immediately and is not undone by Rollback.
func (db *DB) Begin() (database.WriteBatch, error) {
	return &batch{db: db}, nil
}

type batch struct {
	db      *DB
	pending []func() error
}

func (b *batch) Put(key *database.Key, value []byte) error {
	b.pending = append(b.pending, func() error { return b.db.Put(key, value) })
	return nil
}

func (b *batch) Delete(key *database.Key) error {
	b.pending = append(b.pending, func() error { return b.db.Delete(key) })
	return nil
}

func (b *batch) AppendToStore(storeName string, data []byte) (database.StoreLocation, error) {
	return b.db.AppendToStore(storeName, data)
}

func (b *batch) Commit() error {
	for _, op := range b.pending {
		if err := op(); err != nil {
			return err
		}
	}
	b.pending = nil
	return nil
}

func (b *batch) Rollback() error {
	b.pending = nil
	return nil
}
