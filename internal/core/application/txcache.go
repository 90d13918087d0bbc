package application

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/blocknetdx/xlited/internal/core/domain"
	"github.com/blocknetdx/xlited/internal/core/ports"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultMinRefetchInterval = 30 * time.Second
	// DefaultFetchOverlap is the number of seconds before the watermark that
	// are fetched again, to catch txs the daemon indexed late.
	DefaultFetchOverlap = int64(600)

	txStorageNamespace          = "transactions"
	txFetchTimeStorageNamespace = "txLastFetchTime"
)

type TxCacheOption func(*TxCache)

func WithMinRefetchInterval(interval time.Duration) TxCacheOption {
	return func(c *TxCache) {
		if interval >= 0 {
			c.minRefetchInterval = int64(interval / time.Second)
		}
	}
}

func WithFetchOverlap(seconds int64) TxCacheOption {
	return func(c *TxCache) {
		if seconds >= 0 {
			c.fetchOverlap = seconds
		}
	}
}

func WithClock(now func() time.Time) TxCacheOption {
	return func(c *TxCache) {
		if now != nil {
			c.now = now
		}
	}
}

// TxCache mirrors the tx history of one asset into the kv store. Txs are
// kept in insertion order, deduplicated by txid.
type TxCache struct {
	ticker string
	store  ports.KVStore
	daemon ports.AssetDaemon

	minRefetchInterval int64
	fetchOverlap       int64
	now                func() time.Time

	inFlight *atomic.Bool
	lock     *sync.Mutex
}

func NewTxCache(
	ticker string, store ports.KVStore, daemon ports.AssetDaemon, opts ...TxCacheOption,
) (*TxCache, error) {
	if len(ticker) <= 0 {
		return nil, fmt.Errorf("missing ticker")
	}
	if store == nil {
		return nil, fmt.Errorf("missing kv store")
	}
	if daemon == nil {
		return nil, fmt.Errorf("missing daemon client")
	}

	c := &TxCache{
		ticker:             ticker,
		store:              store,
		daemon:             daemon,
		minRefetchInterval: int64(DefaultMinRefetchInterval / time.Second),
		fetchOverlap:       DefaultFetchOverlap,
		now:                time.Now,
		inFlight:           &atomic.Bool{},
		lock:               &sync.Mutex{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// TransactionsKey returns the storage key of the tx set of the ticker.
func (c *TxCache) TransactionsKey() string {
	return fmt.Sprintf("%s_%s", txStorageNamespace, c.ticker)
}

// LastFetchTimeKey returns the storage key of the fetch watermark of the ticker.
func (c *TxCache) LastFetchTimeKey() string {
	return fmt.Sprintf("%s_%s", txFetchTimeStorageNamespace, c.ticker)
}

// UpdateTransactions fetches the txs of the daemon up to now. It returns
// whether the daemon was actually contacted successfully.
func (c *TxCache) UpdateTransactions(ctx context.Context) (bool, error) {
	now := c.now().Unix()
	return c.UpdateTransactionsBetween(ctx, now, now)
}

// UpdateTransactionsBetween is like UpdateTransactions but bounds the fetch
// by end. A start earlier than the incremental window extends the fetch
// backwards. A non-positive end means now.
func (c *TxCache) UpdateTransactionsBetween(ctx context.Context, start, end int64) (bool, error) {
	if !c.inFlight.CompareAndSwap(false, true) {
		log.WithField("ticker", c.ticker).Debug("tx update already in progress, skipping")
		return false, nil
	}
	defer c.inFlight.Store(false)

	needsUpdate, err := c.NeedsTransactionUpdate()
	if err != nil {
		return false, err
	}
	if !needsUpdate {
		return false, nil
	}

	_, fetched, err := c.fetchTransactions(ctx, start, end)
	return fetched, err
}

// NeedsTransactionUpdate returns whether the minimum refetch interval has
// elapsed since the last fetch.
func (c *TxCache) NeedsTransactionUpdate() (bool, error) {
	lastFetch, err := c.LastFetchTime()
	if err != nil {
		return false, err
	}
	return c.now().Unix()-lastFetch >= c.minRefetchInterval, nil
}

// GetTransactions returns the cached txs with time in [start, end]. If end
// is before start the window collapses to the single instant start.
func (c *TxCache) GetTransactions(start, end int64) ([]domain.Transaction, error) {
	if end < start {
		end = start
	}

	txs, err := c.loadTransactions()
	if err != nil {
		return nil, err
	}

	filtered := make([]domain.Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.InWindow(start, end) {
			filtered = append(filtered, tx)
		}
	}
	return filtered, nil
}

// GetAllTransactions returns every cached tx in insertion order.
func (c *TxCache) GetAllTransactions() ([]domain.Transaction, error) {
	return c.loadTransactions()
}

// AddTransactions merges the given txs into storage. Txs whose txid is
// already stored, or repeated within the batch, are dropped. A nil list or
// a tx without txid rejects the whole batch and leaves storage untouched.
func (c *TxCache) AddTransactions(txs []domain.Transaction) error {
	if txs == nil {
		return ErrMalformedTransactions
	}
	for i, tx := range txs {
		if err := tx.Validate(); err != nil {
			return fmt.Errorf("%w: tx %d: %s", ErrMalformedTransactions, i, err)
		}
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	_, err := c.mergeTransactions(txs)
	return err
}

func (c *TxCache) LastFetchTime() (int64, error) {
	value, found, err := c.store.GetItem(c.LastFetchTimeKey())
	if err != nil {
		return 0, fmt.Errorf("failed to get last fetch time: %w", err)
	}
	if !found || len(value) <= 0 {
		return 0, nil
	}

	lastFetch, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		log.WithField("ticker", c.ticker).WithError(err).Warn(
			"corrupt last fetch time in storage, defaulting to 0",
		)
		return 0, nil
	}
	if lastFetch < 0 {
		return 0, nil
	}
	return lastFetch, nil
}

// SetLastFetchTime stores the fetch watermark. Negative values are stored
// as 0.
func (c *TxCache) SetLastFetchTime(timestamp int64) error {
	if timestamp < 0 {
		timestamp = 0
	}
	if err := c.store.SetItem(
		c.LastFetchTimeKey(), strconv.FormatInt(timestamp, 10),
	); err != nil {
		return fmt.Errorf("failed to set last fetch time: %w", err)
	}
	return nil
}

// fetchTransactions returns the cached txs of the requested window together
// with whether the daemon was contacted successfully. Daemon failures are
// not returned as errors.
func (c *TxCache) fetchTransactions(
	ctx context.Context, start, end int64,
) ([]domain.Transaction, bool, error) {
	now := c.now().Unix()
	if end <= 0 || end > now {
		end = now
	}
	if start < 0 {
		start = 0
	}

	lastFetch, err := c.LastFetchTime()
	if err != nil {
		return nil, false, err
	}

	if end <= lastFetch {
		txs, err := c.GetTransactions(start, end)
		return txs, false, err
	}

	fetchStart := lastFetch - c.fetchOverlap
	if start < fetchStart {
		fetchStart = start
	}
	if fetchStart < 0 {
		fetchStart = 0
	}

	logger := log.WithField("ticker", c.ticker)

	fetched, err := c.daemon.GetTransactions(ctx, fetchStart, end)
	if err != nil {
		logger.WithError(err).Warn("failed to fetch txs from daemon, serving cached ones")
		txs, err := c.GetTransactions(start, end)
		return txs, false, err
	}

	valid := make([]domain.Transaction, 0, len(fetched))
	for _, tx := range fetched {
		if err := tx.Validate(); err != nil {
			logger.WithError(err).Warn("skipping invalid tx reported by daemon")
			continue
		}
		valid = append(valid, tx)
	}

	c.lock.Lock()
	added, err := c.mergeTransactions(valid)
	if err == nil {
		err = c.SetLastFetchTime(end)
	}
	c.lock.Unlock()
	if err != nil {
		return nil, false, err
	}

	logger.Debugf("fetched %d txs in [%d, %d], %d new", len(fetched), fetchStart, end, added)

	txs, err := c.GetTransactions(start, end)
	return txs, true, err
}

// mergeTransactions must be called with the lock held.
func (c *TxCache) mergeTransactions(txs []domain.Transaction) (int, error) {
	stored, err := c.loadTransactions()
	if err != nil {
		return 0, err
	}

	known := make(map[string]struct{}, len(stored)+len(txs))
	for _, tx := range stored {
		known[tx.Txid] = struct{}{}
	}

	added := 0
	for _, tx := range txs {
		if _, ok := known[tx.Txid]; ok {
			continue
		}
		known[tx.Txid] = struct{}{}
		stored = append(stored, tx)
		added++
	}
	if added == 0 {
		return 0, nil
	}

	buf, err := json.Marshal(stored)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize txs: %w", err)
	}
	if err := c.store.SetItem(c.TransactionsKey(), string(buf)); err != nil {
		return 0, fmt.Errorf("failed to store txs: %w", err)
	}
	return added, nil
}

func (c *TxCache) loadTransactions() ([]domain.Transaction, error) {
	value, found, err := c.store.GetItem(c.TransactionsKey())
	if err != nil {
		return nil, fmt.Errorf("failed to get txs: %w", err)
	}
	if !found || len(value) <= 0 {
		return []domain.Transaction{}, nil
	}

	txs := make([]domain.Transaction, 0)
	if err := json.Unmarshal([]byte(value), &txs); err != nil {
		log.WithField("ticker", c.ticker).WithError(err).Warn(
			"corrupt txs in storage, defaulting to empty set",
		)
		return []domain.Transaction{}, nil
	}
	return txs, nil
}
