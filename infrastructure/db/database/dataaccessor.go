// Package database defines the storage-engine contract used by every
// consensus store: a single atomic write batch per commit, with the
// disk-level key-value encoding left to the implementation - only the
// contract is specified here.
package database

import "errors"

// ErrNotFound is returned by Get/RetrieveFromStore when the key or
// location does not exist.
var ErrNotFound = errors.New("database: key not found")

// IsNotFoundError reports whether err is ErrNotFound.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Bucket namespaces keys, following the same MakeBucket/Key nesting pattern
// used throughout infrastructure/db/dbaccess.
type Bucket struct {
	path []byte
}

// MakeBucket constructs a top-level bucket from a name.
func MakeBucket(name []byte) *Bucket {
	return &Bucket{path: append([]byte(nil), name...)}
}

// Bucket returns a sub-bucket nested under this one.
func (b *Bucket) Bucket(name []byte) *Bucket {
	path := make([]byte, 0, len(b.path)+1+len(name))
	path = append(path, b.path...)
	path = append(path, 0)
	path = append(path, name...)
	return &Bucket{path: path}
}

// Key builds a fully-qualified key under this bucket.
func (b *Bucket) Key(suffix []byte) *Key {
	full := make([]byte, 0, len(b.path)+1+len(suffix))
	full = append(full, b.path...)
	full = append(full, 0)
	full = append(full, suffix...)
	return &Key{bytes: full, bucketLen: len(b.path)}
}

// Path returns the bucket's raw path bytes, used by Cursor implementations
// to filter by prefix.
func (b *Bucket) Path() []byte { return b.path }

// Key is a fully-qualified, bucket-prefixed database key.
type Key struct {
	bytes     []byte
	bucketLen int
}

// Bytes returns the raw key bytes, suitable for use as a map key via
// string conversion or as a KV-store key.
func (k *Key) Bytes() []byte { return k.bytes }

// StoreLocation is an opaque handle into an append-only store, returned by
// AppendToStore and consumed by RetrieveFromStore / pruning.
type StoreLocation []byte

// Serialize returns the location's byte encoding for persistence inside a
// Put value.
func (l StoreLocation) Serialize() []byte { return []byte(l) }

// Deserialize populates the location from previously-serialized bytes.
func (l *StoreLocation) Deserialize(data []byte) { *l = StoreLocation(append([]byte(nil), data...)) }

// Cursor iterates over all keys in a bucket, in key order.
type Cursor interface {
	Next() bool
	Key() (*Key, error)
	Value() ([]byte, error)
	Close() error
}

// WriteBatch accumulates Put/Delete/AppendToStore operations so they can be
// applied atomically, backing the header processor's single commit batch.
type WriteBatch interface {
	Put(key *Key, value []byte) error
	Delete(key *Key) error
	AppendToStore(storeName string, data []byte) (StoreLocation, error)
	Commit() error
	Rollback() error
}

// DataAccessor defines the common interface by which data gets accessed in
// a generic consensus database, plus WriteBatch/Begin so callers can group
// several writes atomically.
type DataAccessor interface {
	// Put sets the value for the given key. It overwrites
	// any previous value for that key.
	Put(key *Key, value []byte) error

	// Get gets the value for the given key. It returns
	// ErrNotFound if the given key does not exist.
	Get(key *Key) ([]byte, error)

	// Has returns true if the database does contains the
	// given key.
	Has(key *Key) (bool, error)

	// Delete deletes the value for the given key. Will not
	// return an error if the key doesn't exist.
	Delete(key *Key) error

	// AppendToStore appends the given data to the store
	// defined by storeName. This function returns a location
	// handle that's meant to be stored and later used
	// when querying the data that has just now been inserted.
	AppendToStore(storeName string, data []byte) (StoreLocation, error)

	// RetrieveFromStore retrieves data from the store defined by
	// storeName using the given location handle. It returns
	// ErrNotFound if the location does not exist. See
	// AppendToStore for further details.
	RetrieveFromStore(storeName string, location StoreLocation) ([]byte, error)

	// DeleteFromStoreUpToLocation deletes all data in the store that predate `dbLocation`.
	// If `dbPreservedLocations` is not nil - it also excludes from deletion any location specified in it.
	DeleteFromStoreUpToLocation(storeName string, dbLocation StoreLocation, dbPreservedLocations []StoreLocation) error

	// Cursor begins a new cursor over the given bucket.
	Cursor(bucket *Bucket) (Cursor, error)

	// Begin opens a new WriteBatch for grouping several writes into one
	// atomic commit.
	Begin() (WriteBatch, error)
}
