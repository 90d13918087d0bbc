package ports

import (
	"context"
	"time"

	"github.com/blocknetdx/xlited/internal/core/domain"
)

// AssetDaemon exposes the wallet daemon operations of a single asset.
type AssetDaemon interface {
	RPCEnabled(ctx context.Context) (bool, error)
	GetBalance(ctx context.Context) (*domain.Balance, error)
	GetTransactions(ctx context.Context, start, end int64) ([]domain.Transaction, error)
	GetAddresses(ctx context.Context) ([]string, error)
	GenerateNewAddress(ctx context.Context) (string, error)
	GetCachedUnspent(ctx context.Context, maxAge time.Duration) ([]domain.Utxo, error)
	Send(ctx context.Context, recipients []domain.Recipient) (string, error)
}

// WalletHost manages the wallet daemon process and its stored credential.
type WalletHost interface {
	IsWalletCreated(ctx context.Context) (bool, error)
	IsWalletRPCRunning(ctx context.Context) (bool, error)
	StartWallet(ctx context.Context, password string) (bool, error)
	CreateWallet(ctx context.Context, password string) (string, error)
	GetStoredPasswordHash(ctx context.Context) (string, error)
	GetStoredSalt(ctx context.Context) ([]byte, error)
	SaveCredential(ctx context.Context, credential domain.Credential) error
	LoadConfigurations(ctx context.Context) error
}
