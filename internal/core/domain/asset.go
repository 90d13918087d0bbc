package domain

import "strings"

// FeeInfo holds the xbridge fee metadata of an asset.
type FeeInfo struct {
	Ticker     string
	FeePerByte int64
	MinTxFee   int64
	Coin       int64
	RPCPort    int
}

// Asset identifies a supported blockchain asset. It is built once from the
// static manifest and never mutated afterwards.
type Asset struct {
	Blockchain   string
	Ticker       string
	VersionID    string
	VersionName  string
	ConfName     string
	DirNameLinux string
	DirNameMac   string
	DirNameWin   string
	RepoURL      string
	Versions     []string
	XBridgeConf  string
	WalletConf   string
	Fee          *FeeInfo
}

func (a Asset) IsEmpty() bool {
	return len(a.Ticker) <= 0
}

// WithFee returns a copy of the asset carrying the given fee metadata.
func (a Asset) WithFee(fee *FeeInfo) Asset {
	cpy := a
	cpy.Versions = append([]string(nil), a.Versions...)
	if fee != nil {
		f := *fee
		cpy.Fee = &f
	}
	return cpy
}

// SmallestUnit is the number of base units per coin, defaulting to 1e8.
func (a Asset) SmallestUnit() int64 {
	if a.Fee == nil || a.Fee.Coin <= 0 {
		return defaultCoin
	}
	return a.Fee.Coin
}

func (a Asset) ExplorerLinkForTx(txid string) string {
	return explorerTxURL(strings.ToLower(a.Ticker), txid)
}

const defaultCoin = 100000000
