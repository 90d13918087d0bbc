package domain_test

import (
	"testing"

	"github.com/blocknetdx/xlited/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestAsset(t *testing.T) {
	asset := domain.Asset{Ticker: "BLOCK", Versions: []string{"v4.3.0"}}
	require.False(t, asset.IsEmpty())
	require.True(t, domain.Asset{}.IsEmpty())

	require.Equal(t, int64(100000000), asset.SmallestUnit())
	require.Equal(
		t, "https://chainz.cryptoid.info/block/tx.dws?abcd.htm",
		asset.ExplorerLinkForTx("abcd"),
	)

	fee := &domain.FeeInfo{Ticker: "BLOCK", Coin: 1000, RPCPort: 41414}
	withFee := asset.WithFee(fee)
	require.Equal(t, int64(1000), withFee.SmallestUnit())

	fee.Coin = 5
	withFee.Versions[0] = "changed"
	require.Equal(t, int64(1000), withFee.SmallestUnit())
	require.Equal(t, "v4.3.0", asset.Versions[0])
	require.Nil(t, asset.Fee)
}

func TestTransaction(t *testing.T) {
	require.Error(t, domain.Transaction{}.Validate())

	tx := domain.Transaction{Txid: "abcd", Time: 100}
	require.NoError(t, tx.Validate())
	require.True(t, tx.InWindow(100, 100))
	require.True(t, tx.InWindow(0, 200))
	require.False(t, tx.InWindow(101, 200))
	require.False(t, tx.InWindow(0, 99))
}

func TestRecipient(t *testing.T) {
	fixtures := []struct {
		name      string
		recipient domain.Recipient
		valid     bool
	}{
		{"valid", domain.Recipient{Address: "addr", Amount: decimal.NewFromInt(1)}, true},
		{"missing address", domain.Recipient{Amount: decimal.NewFromInt(1)}, false},
		{"zero amount", domain.Recipient{Address: "addr"}, false},
		{"negative amount", domain.Recipient{Address: "addr", Amount: decimal.NewFromInt(-1)}, false},
	}
	for _, f := range fixtures {
		t.Run(f.name, func(t *testing.T) {
			err := f.recipient.Validate()
			if f.valid {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
		})
	}
}

func TestCredential(t *testing.T) {
	require.True(t, domain.Credential{}.IsEmpty())

	credential := domain.Credential{
		PasswordHash:      "hash",
		Salt:              make([]byte, domain.SaltLength),
		EncryptedMnemonic: []byte{1},
	}
	require.False(t, credential.IsEmpty())
	require.NoError(t, credential.Validate())

	short := credential
	short.Salt = make([]byte, 16)
	require.Error(t, short.Validate())

	missing := credential
	missing.EncryptedMnemonic = nil
	require.Error(t, missing.Validate())
}
