package badgerstore

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/blocknetdx/xlited/internal/core/ports"
	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/timshannon/badgerhold/v4"
)

const (
	StoreType = "badger"
	storeDir  = "kvstore"
)

type entry struct {
	Key   string
	Value string
}

type store struct {
	db     *badgerhold.Store
	stopCh chan struct{}
	once   *sync.Once
}

// NewStore opens a badger backed store under baseDir. An empty baseDir
// creates an in-memory database.
func NewStore(baseDir string, logger badger.Logger) (ports.KVStore, error) {
	dir := ""
	if len(baseDir) > 0 {
		dir = filepath.Join(baseDir, storeDir)
	}

	stopCh := make(chan struct{})
	db, err := createDB(dir, logger, stopCh)
	if err != nil {
		return nil, fmt.Errorf("failed to open kv store: %s", err)
	}
	return &store{db, stopCh, &sync.Once{}}, nil
}

func (s *store) GetType() string {
	return StoreType
}

func (s *store) GetItem(key string) (string, bool, error) {
	var e entry
	if err := s.db.Get(key, &e); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return e.Value, true, nil
}

func (s *store) SetItem(key, value string) error {
	return s.db.Upsert(key, &entry{Key: key, Value: value})
}

func (s *store) Clear() error {
	return s.db.DeleteMatching(&entry{}, nil)
}

func (s *store) Close() error {
	var err error
	s.once.Do(func() {
		close(s.stopCh)
		err = s.db.Close()
	})
	return err
}

func createDB(
	dbDir string, logger badger.Logger, stopCh <-chan struct{},
) (*badgerhold.Store, error) {
	isInMemory := len(dbDir) <= 0

	opts := badger.DefaultOptions(dbDir)
	opts.Logger = logger

	if isInMemory {
		opts.InMemory = true
	} else {
		opts.Compression = options.ZSTD
	}

	db, err := badgerhold.Open(badgerhold.Options{
		Encoder:          badgerhold.DefaultEncode,
		Decoder:          badgerhold.DefaultDecode,
		SequenceBandwith: 100,
		Options:          opts,
	})
	if err != nil {
		return nil, err
	}

	if !isInMemory {
		ticker := time.NewTicker(30 * time.Minute)

		go func() {
			defer ticker.Stop()
			for {
				select {
				case <-stopCh:
					return
				case <-ticker.C:
					if err := db.Badger().RunValueLogGC(0.5); err != nil && err != badger.ErrNoRewrite {
						if logger != nil {
							logger.Errorf("%s", err)
						}
					}
				}
			}
		}()
	}

	return db, nil
}
