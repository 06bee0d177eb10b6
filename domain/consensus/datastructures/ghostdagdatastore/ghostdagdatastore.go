// Package ghostdagdatastore is the append-only, per-level GHOSTDAG data
// store.
package ghostdagdatastore

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"sync"

	"github.com/kasparite/node/domain/consensus/model"
	"github.com/kasparite/node/domain/consensus/model/externalapi"
	"github.com/kasparite/node/infrastructure/db/database"
)

var bucket = database.MakeBucket([]byte("ghostdag"))

type key struct {
	level int
	hash  externalapi.DomainHash
}

// Store is the in-memory-cached, DataAccessor-backed GHOSTDAG data store.
type Store struct {
	mu  sync.RWMutex
	db  database.DataAccessor
	hot map[key]*externalapi.GhostdagData
}

// New constructs a Store backed by db.
func New(db database.DataAccessor) *Store {
	return &Store{db: db, hot: make(map[key]*externalapi.GhostdagData)}
}

func dbKey(level int, hash *externalapi.DomainHash) *database.Key {
	return bucket.Key([]byte(fmt.Sprintf("%d:%x", level, hash[:])))
}

// Stage implements model.GHOSTDAGDataStore.
func (s *Store) Stage(stagingArea *model.StagingArea, level int, hash *externalapi.DomainHash, data *externalapi.GhostdagData) {
	stagingArea.AddCommitHook(func() error {
		var buf bytes.Buffer
		if err := gob.NewEncoder(&buf).Encode(data); err != nil {
			return err
		}
		if err := s.db.Put(dbKey(level, hash), buf.Bytes()); err != nil {
			return err
		}
		s.mu.Lock()
		s.hot[key{level, *hash}] = data
		s.mu.Unlock()
		return nil
	})
}

// Get implements model.GHOSTDAGDataStore.
func (s *Store) Get(level int, hash *externalapi.DomainHash) (*externalapi.GhostdagData, bool) {
	k := key{level, *hash}
	s.mu.RLock()
	data, ok := s.hot[k]
	s.mu.RUnlock()
	if ok {
		return data, true
	}

	raw, err := s.db.Get(dbKey(level, hash))
	if err != nil {
		return nil, false
	}
	var data2 externalapi.GhostdagData
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&data2); err != nil {
		return nil, false
	}
	s.mu.Lock()
	s.hot[k] = &data2
	s.mu.Unlock()
	return &data2, true
}
