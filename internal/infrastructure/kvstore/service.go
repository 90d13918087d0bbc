package kvstore

import (
	"fmt"
	"sort"
	"strings"

	"github.com/blocknetdx/xlited/internal/core/ports"
	badgerstore "github.com/blocknetdx/xlited/internal/infrastructure/kvstore/badger"
	filestore "github.com/blocknetdx/xlited/internal/infrastructure/kvstore/file"
	inmemorystore "github.com/blocknetdx/xlited/internal/infrastructure/kvstore/inmemory"
	sqlitestore "github.com/blocknetdx/xlited/internal/infrastructure/kvstore/sqlite"
	"github.com/dgraph-io/badger/v4"
)

const (
	InMemoryStore = inmemorystore.StoreType
	FileStore     = filestore.StoreType
	BadgerStore   = badgerstore.StoreType
	SqliteStore   = sqlitestore.StoreType
)

var storeTypes = map[string]func(dir string, logger badger.Logger) (ports.KVStore, error){
	InMemoryStore: func(_ string, _ badger.Logger) (ports.KVStore, error) {
		return inmemorystore.NewStore()
	},
	FileStore: func(dir string, _ badger.Logger) (ports.KVStore, error) {
		return filestore.NewStore(dir)
	},
	BadgerStore: badgerstore.NewStore,
	SqliteStore: func(dir string, _ badger.Logger) (ports.KVStore, error) {
		return sqlitestore.NewStore(dir)
	},
}

// NewStore opens the key-value store of the given type under dir.
func NewStore(storeType, dir string, logger badger.Logger) (ports.KVStore, error) {
	factory, ok := storeTypes[storeType]
	if !ok {
		return nil, fmt.Errorf(
			"invalid store type %s, please select one of: %s", storeType, SupportedTypes(),
		)
	}
	store, err := factory(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s store: %w", storeType, err)
	}
	return store, nil
}

func SupportedTypes() string {
	types := make([]string, 0, len(storeTypes))
	for t := range storeTypes {
		types = append(types, t)
	}
	sort.Strings(types)
	return strings.Join(types, " | ")
}
