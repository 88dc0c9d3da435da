package lstore

import (
	"sync"

	"github.com/ValentinKolb/sKV/lib/store"
)

type storeImpl struct {
	mu   sync.Mutex
	data map[string]store.Entry
}

// NewLocalStore creates a new in-memory store instance.
// All reads and writes are serialized by one mutex. The mapping is the unit of
// consistency and each operation is a single map access, so a coarse lock is enough.
func NewLocalStore() store.IStore {
	return &storeImpl{
		data: make(map[string]store.Entry),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Put(key, value, digest string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = store.Entry{Value: value, Digest: digest}
}

func (s *storeImpl) Get(key string) (store.Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.data[key]
	return entry, ok
}

func (s *storeImpl) Delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[key]; !ok {
		return false
	}
	delete(s.data, key)
	return true
}

func (s *storeImpl) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

func (s *storeImpl) Info() store.Info {
	s.mu.Lock()
	defer s.mu.Unlock()

	info := store.Info{Keys: len(s.data)}
	for _, entry := range s.data {
		info.ValueBytes += len(entry.Value)
	}
	return info
}
