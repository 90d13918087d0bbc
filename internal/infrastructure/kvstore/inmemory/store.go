package inmemorystore

import (
	"sync"

	"github.com/blocknetdx/xlited/internal/core/ports"
)

const StoreType = "inmemory"

type store struct {
	data map[string]string
	lock *sync.RWMutex
}

func NewStore() (ports.KVStore, error) {
	return &store{
		data: make(map[string]string),
		lock: &sync.RWMutex{},
	}, nil
}

func (s *store) GetType() string {
	return StoreType
}

func (s *store) GetItem(key string) (string, bool, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	value, ok := s.data[key]
	return value, ok, nil
}

func (s *store) SetItem(key, value string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.data[key] = value
	return nil
}

func (s *store) Clear() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.data = make(map[string]string)
	return nil
}

func (s *store) Close() error {
	return nil
}
