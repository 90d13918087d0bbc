package rpcdaemon

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/blocknetdx/xlited/internal/core/domain"
	"github.com/blocknetdx/xlited/internal/core/ports"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/rpcclient"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

const (
	defaultAccount = "main"
	defaultCoin    = int64(100000000)
)

type Config struct {
	Ticker string
	Host   string
	User   string
	Pass   string
	// Coin is the number of base units per coin, used to round amounts.
	Coin int64
}

type client struct {
	ticker   string
	rpc      *rpcclient.Client
	decimals int32
	now      func() time.Time

	lock      *sync.Mutex
	unspent   []domain.Utxo
	unspentAt time.Time
}

// NewClient returns a json-rpc client for the wallet daemon of one asset.
func NewClient(cfg Config) (ports.AssetDaemon, error) {
	if len(cfg.Ticker) <= 0 {
		return nil, fmt.Errorf("missing ticker")
	}
	if len(cfg.Host) <= 0 {
		return nil, fmt.Errorf("missing rpc host")
	}
	coin := cfg.Coin
	if coin <= 0 {
		coin = defaultCoin
	}

	rpc, err := rpcclient.New(&rpcclient.ConnConfig{
		Host:         cfg.Host,
		User:         cfg.User,
		Pass:         cfg.Pass,
		HTTPPostMode: true,
		DisableTLS:   true,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create rpc client: %w", err)
	}

	return &client{
		ticker:   cfg.Ticker,
		rpc:      rpc,
		decimals: int32(math.Round(math.Log10(float64(coin)))),
		now:      time.Now,
		lock:     &sync.Mutex{},
	}, nil
}

// RPCEnabled reports whether the daemon answers rpc calls. An unreachable
// daemon is not an error.
func (c *client) RPCEnabled(ctx context.Context) (bool, error) {
	var height int64
	if err := c.call(ctx, "getblockcount", &height); err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		log.WithField("ticker", c.ticker).WithError(err).Debug("rpc not enabled")
		return false, nil
	}
	return true, nil
}

func (c *client) GetBalance(ctx context.Context) (*domain.Balance, error) {
	var total decimal.Decimal
	if err := c.call(ctx, "getbalance", &total); err != nil {
		return nil, err
	}

	utxos, err := c.listUnspent(ctx)
	if err != nil {
		return nil, err
	}
	spendable := decimal.Zero
	for _, u := range utxos {
		if u.Spendable {
			spendable = spendable.Add(u.Amount)
		}
	}

	return &domain.Balance{Total: total, Spendable: spendable}, nil
}

func (c *client) GetTransactions(
	ctx context.Context, start, end int64,
) ([]domain.Transaction, error) {
	txs := make([]domain.Transaction, 0)
	if err := c.call(ctx, "gettransactions", &txs, start, end); err != nil {
		return nil, err
	}
	return txs, nil
}

func (c *client) GetAddresses(ctx context.Context) ([]string, error) {
	addresses := make([]string, 0)
	if err := c.call(ctx, "getaddressesbyaccount", &addresses, defaultAccount); err != nil {
		return nil, err
	}
	return addresses, nil
}

func (c *client) GenerateNewAddress(ctx context.Context) (string, error) {
	var address string
	if err := c.call(ctx, "getnewaddress", &address); err != nil {
		return "", err
	}
	if len(address) <= 0 {
		return "", fmt.Errorf("daemon returned an empty address")
	}
	return address, nil
}

// GetCachedUnspent returns the unspent outputs fetched at most maxAge ago,
// refreshing them otherwise.
func (c *client) GetCachedUnspent(ctx context.Context, maxAge time.Duration) ([]domain.Utxo, error) {
	c.lock.Lock()
	if c.unspent != nil && c.now().Sub(c.unspentAt) <= maxAge {
		utxos := append([]domain.Utxo(nil), c.unspent...)
		c.lock.Unlock()
		return utxos, nil
	}
	c.lock.Unlock()

	utxos, err := c.listUnspent(ctx)
	if err != nil {
		return nil, err
	}
	return append([]domain.Utxo(nil), utxos...), nil
}

func (c *client) Send(ctx context.Context, recipients []domain.Recipient) (string, error) {
	if len(recipients) <= 0 {
		return "", fmt.Errorf("missing recipients")
	}

	amounts := make(map[string]json.RawMessage, len(recipients))
	for _, r := range recipients {
		if err := r.Validate(); err != nil {
			return "", err
		}
		if _, ok := amounts[r.Address]; ok {
			return "", fmt.Errorf("duplicated recipient %s", r.Address)
		}
		if _, err := btcutil.NewAmount(r.Amount.InexactFloat64()); err != nil {
			return "", fmt.Errorf("invalid amount for recipient %s: %w", r.Address, err)
		}
		amounts[r.Address] = json.RawMessage(r.Amount.StringFixed(c.decimals))
	}

	var txid string
	if err := c.call(ctx, "sendmany", &txid, "", amounts); err != nil {
		return "", err
	}
	if _, err := chainhash.NewHashFromStr(txid); err != nil || len(txid) != chainhash.MaxHashStringSize {
		return "", fmt.Errorf("daemon returned invalid txid %q", txid)
	}

	c.lock.Lock()
	c.unspent = nil
	c.lock.Unlock()

	log.WithField("ticker", c.ticker).Debugf("sent tx %s to %d recipients", txid, len(recipients))
	return txid, nil
}

func (c *client) listUnspent(ctx context.Context) ([]domain.Utxo, error) {
	utxos := make([]domain.Utxo, 0)
	if err := c.call(ctx, "listunspent", &utxos); err != nil {
		return nil, err
	}

	c.lock.Lock()
	c.unspent = utxos
	c.unspentAt = c.now()
	c.lock.Unlock()
	return utxos, nil
}

type rpcResult struct {
	res json.RawMessage
	err error
}

func (c *client) call(ctx context.Context, method string, result interface{}, params ...interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	rawParams := make([]json.RawMessage, 0, len(params))
	for _, p := range params {
		buf, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("failed to encode %s params: %w", method, err)
		}
		rawParams = append(rawParams, buf)
	}

	resCh := make(chan rpcResult, 1)
	go func() {
		res, err := c.rpc.RawRequest(method, rawParams)
		resCh <- rpcResult{res, err}
	}()

	var res rpcResult
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res = <-resCh:
	}
	if res.err != nil {
		return fmt.Errorf("%s rpc %s failed: %w", c.ticker, method, res.err)
	}

	if result == nil {
		return nil
	}
	if err := json.Unmarshal(res.res, result); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", method, err)
	}
	return nil
}
