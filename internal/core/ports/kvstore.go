package ports

// KVStore is a durable string-keyed storage shared by every wallet. Each
// wallet uses its own disjoint key namespace. Calls never suspend.
type KVStore interface {
	GetType() string
	GetItem(key string) (value string, found bool, err error)
	SetItem(key, value string) error
	Clear() error
	Close() error
}
