package application

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/blocknetdx/xlited/internal/core/domain"
	"github.com/blocknetdx/xlited/internal/core/ports"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

const primaryTicker = "BLOCK"

// Wallet is the runtime view of one asset. Its txs are cached through the
// embedded TxCache, every other operation goes straight to the daemon.
type Wallet struct {
	*TxCache

	asset  domain.Asset
	daemon ports.AssetDaemon
}

func NewWallet(
	asset domain.Asset, store ports.KVStore, daemon ports.AssetDaemon, opts ...TxCacheOption,
) (*Wallet, error) {
	if asset.IsEmpty() {
		return nil, fmt.Errorf("missing asset")
	}
	cache, err := NewTxCache(asset.Ticker, store, daemon, opts...)
	if err != nil {
		return nil, err
	}
	return &Wallet{cache, asset, daemon}, nil
}

func (w *Wallet) Ticker() string {
	return w.asset.Ticker
}

func (w *Wallet) Name() string {
	return w.asset.Blockchain
}

func (w *Wallet) Asset() domain.Asset {
	return w.asset
}

func (w *Wallet) RPCEnabled(ctx context.Context) (bool, error) {
	return w.daemon.RPCEnabled(ctx)
}

func (w *Wallet) GetBalance(ctx context.Context) (*domain.Balance, error) {
	return w.daemon.GetBalance(ctx)
}

func (w *Wallet) GetAddresses(ctx context.Context) ([]string, error) {
	return w.daemon.GetAddresses(ctx)
}

func (w *Wallet) GenerateNewAddress(ctx context.Context) (string, error) {
	return w.daemon.GenerateNewAddress(ctx)
}

func (w *Wallet) GetCachedUnspent(ctx context.Context, maxAge time.Duration) ([]domain.Utxo, error) {
	return w.daemon.GetCachedUnspent(ctx, maxAge)
}

// Send pays the given recipients and returns the txid.
func (w *Wallet) Send(ctx context.Context, recipients []domain.Recipient) (string, error) {
	if len(recipients) <= 0 {
		return "", fmt.Errorf("missing recipients")
	}
	for _, r := range recipients {
		if err := r.Validate(); err != nil {
			return "", err
		}
	}
	return w.daemon.Send(ctx, recipients)
}

func (w *Wallet) ExplorerLinkForTx(txid string) string {
	return w.asset.ExplorerLinkForTx(txid)
}

// SortWallets orders wallets for display: BLOCK first, then by total balance
// descending, then by name. Wallets whose balance can't be retrieved count
// as empty.
func SortWallets(ctx context.Context, wallets []*Wallet) []*Wallet {
	balances := make(map[string]decimal.Decimal, len(wallets))
	for _, w := range wallets {
		balance, err := w.GetBalance(ctx)
		if err != nil || balance == nil {
			log.WithField("ticker", w.Ticker()).WithError(err).Debug("failed to get balance")
			balances[w.Ticker()] = decimal.Zero
			continue
		}
		balances[w.Ticker()] = balance.Total
	}

	sorted := append([]*Wallet(nil), wallets...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Ticker() == primaryTicker || b.Ticker() == primaryTicker {
			return a.Ticker() == primaryTicker && b.Ticker() != primaryTicker
		}
		if cmp := balances[a.Ticker()].Cmp(balances[b.Ticker()]); cmp != 0 {
			return cmp > 0
		}
		return a.Name() < b.Name()
	})
	return sorted
}
