package filestore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/blocknetdx/xlited/internal/core/ports"
)

const (
	StoreType = "file"
	filename  = "storage.json"
)

type store struct {
	filePath string
	data     map[string]string
	lock     *sync.RWMutex
}

func NewStore(baseDir string) (ports.KVStore, error) {
	if len(baseDir) <= 0 {
		return nil, fmt.Errorf("missing base directory")
	}
	datadir := cleanAndExpandPath(baseDir)
	if err := makeDirectoryIfNotExists(datadir); err != nil {
		return nil, fmt.Errorf("failed to initialize datadir: %s", err)
	}

	s := &store{
		filePath: filepath.Join(datadir, filename),
		data:     make(map[string]string),
		lock:     &sync.RWMutex{},
	}
	if err := s.open(); err != nil {
		return nil, err
	}
	return s, nil
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

	prev, existed := s.data[key]
	s.data[key] = value
	if err := s.write(); err != nil {
		if existed {
			s.data[key] = prev
		} else {
			delete(s.data, key)
		}
		return fmt.Errorf("failed to write to file store: %s", err)
	}
	return nil
}

func (s *store) Clear() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.data = make(map[string]string)
	if err := s.write(); err != nil {
		return fmt.Errorf("failed to write to file store: %s", err)
	}
	return nil
}

func (s *store) Close() error {
	return nil
}

func (s *store) open() error {
	file, err := os.ReadFile(s.filePath)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to open file store: %s", err)
		}
		if err := s.write(); err != nil {
			return fmt.Errorf("failed to initialize file store: %s", err)
		}
		return nil
	}

	if len(file) <= 0 {
		return nil
	}
	if err := json.Unmarshal(file, &s.data); err != nil {
		return fmt.Errorf("failed to read file store: %s", err)
	}
	if s.data == nil {
		s.data = make(map[string]string)
	}
	return nil
}

// write replaces the file atomically so that a crash never leaves a
// partially written store behind.
func (s *store) write() error {
	buf, err := json.Marshal(s.data)
	if err != nil {
		return err
	}

	tmpPath := s.filePath + ".tmp"
	if err := os.WriteFile(tmpPath, buf, 0600); err != nil {
		return err
	}
	return os.Rename(tmpPath, s.filePath)
}
