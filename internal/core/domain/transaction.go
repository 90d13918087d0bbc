package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	TxSend    TxCategory = "send"
	TxReceive TxCategory = "receive"
)

type TxCategory string

// Transaction is a wallet transaction as reported by the daemon. Txid is
// unique within the stored set of one asset.
type Transaction struct {
	Txid          string          `json:"txid"`
	Address       string          `json:"address"`
	Amount        decimal.Decimal `json:"amount"`
	Fee           decimal.Decimal `json:"fee"`
	Time          int64           `json:"time"`
	Confirmations int64           `json:"confirmations"`
	Category      TxCategory      `json:"category"`
	Vout          uint32          `json:"vout"`
	BlockHash     string          `json:"blockhash,omitempty"`
}

func (t Transaction) Validate() error {
	if len(t.Txid) <= 0 {
		return fmt.Errorf("missing txid")
	}
	return nil
}

// InWindow reports whether the tx time falls in [start, end].
func (t Transaction) InWindow(start, end int64) bool {
	return t.Time >= start && t.Time <= end
}

type Recipient struct {
	Address     string
	Amount      decimal.Decimal
	Description string
}

func (r Recipient) Validate() error {
	if len(r.Address) <= 0 {
		return fmt.Errorf("missing recipient address")
	}
	if !r.Amount.IsPositive() {
		return fmt.Errorf("invalid amount %s for recipient %s", r.Amount, r.Address)
	}
	return nil
}

type Utxo struct {
	Txid          string          `json:"txid"`
	Vout          uint32          `json:"vout"`
	Address       string          `json:"address"`
	Amount        decimal.Decimal `json:"amount"`
	Confirmations int64           `json:"confirmations"`
	Spendable     bool            `json:"spendable"`
}

type Balance struct {
	Total     decimal.Decimal
	Spendable decimal.Decimal
}
