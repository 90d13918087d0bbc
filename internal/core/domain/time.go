package domain

import (
	"fmt"
	"time"
)

const (
	OneHourSeconds   int64 = 3600
	OneDaySeconds    int64 = 86400
	OneWeekSeconds   int64 = 604800
	OneMonthSeconds  int64 = 2592000
	HalfYearSeconds  int64 = 15768000
	OneYearSeconds   int64 = 31536000
	explorerTxFormat       = "https://chainz.cryptoid.info/%s/tx.dws?%s.htm"
)

func UnixTime() int64 {
	return time.Now().Unix()
}

func explorerTxURL(ticker, txid string) string {
	return fmt.Sprintf(explorerTxFormat, ticker, txid)
}
