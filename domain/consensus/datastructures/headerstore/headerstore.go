// Package headerstore is the append-only header store.
// Headers are immutable once committed, so Stage simply records a pending
// write that Commit makes visible; there is no update path.
package headerstore

import (
	"bytes"
	"encoding/gob"
	"sync"

	"github.com/kasparite/node/domain/consensus/model"
	"github.com/kasparite/node/domain/consensus/model/externalapi"
	"github.com/kasparite/node/infrastructure/db/database"
)

var bucket = database.MakeBucket([]byte("headers"))

// Store is the in-memory-cached, DataAccessor-backed header store.
type Store struct {
	mu  sync.RWMutex
	db  database.DataAccessor
	hot map[externalapi.DomainHash]*externalapi.DomainHeader
}

// New constructs a Store backed by db.
func New(db database.DataAccessor) *Store {
	return &Store{db: db, hot: make(map[externalapi.DomainHash]*externalapi.DomainHeader)}
}

// Stage implements model.HeaderStore.
func (s *Store) Stage(stagingArea *model.StagingArea, hash *externalapi.DomainHash, header *externalapi.DomainHeader) {
	stagingArea.AddCommitHook(func() error {
		var buf bytes.Buffer
		if err := gob.NewEncoder(&buf).Encode(header); err != nil {
			return err
		}
		if err := s.db.Put(bucket.Key(hash[:]), buf.Bytes()); err != nil {
			return err
		}
		s.mu.Lock()
		s.hot[*hash] = header
		s.mu.Unlock()
		return nil
	})
}

// HeaderByHash implements model.HeaderStore.
func (s *Store) HeaderByHash(hash *externalapi.DomainHash) (*externalapi.DomainHeader, bool) {
	s.mu.RLock()
	header, ok := s.hot[*hash]
	s.mu.RUnlock()
	if ok {
		return header, true
	}

	data, err := s.db.Get(bucket.Key(hash[:]))
	if err != nil {
		return nil, false
	}
	var header2 externalapi.DomainHeader
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&header2); err != nil {
		return nil, false
	}
	s.mu.Lock()
	s.hot[*hash] = &header2
	s.mu.Unlock()
	return &header2, true
}

// Has implements model.HeaderStore.
func (s *Store) Has(hash *externalapi.DomainHash) bool {
	_, ok := s.HeaderByHash(hash)
	return ok
}
