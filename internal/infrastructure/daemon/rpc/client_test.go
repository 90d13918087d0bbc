package rpcdaemon

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/blocknetdx/xlited/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const (
	testTxid   = "3a2b1c0d9e8f7a6b5c4d3e2f1a0b9c8d7e6f5a4b3c2d1e0f9a8b7c6d5e4f3a2b"
	testUser   = "user"
	testPass   = "pass"
	testTicker = "BLOCK"
)

var ctx = context.Background()

type rpcRequest struct {
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
	ID     json.RawMessage   `json:"id"`
}

type fakeDaemon struct {
	lock      sync.Mutex
	calls     map[string]int
	params    map[string][]json.RawMessage
	responses map[string]string
}

func newFakeDaemon(t *testing.T, responses map[string]string) (*fakeDaemon, string) {
	d := &fakeDaemon{
		calls:     make(map[string]int),
		params:    make(map[string][]json.RawMessage),
		responses: responses,
	}
	srv := httptest.NewServer(http.HandlerFunc(d.serve))
	t.Cleanup(srv.Close)
	return d, strings.TrimPrefix(srv.URL, "http://")
}

func (d *fakeDaemon) serve(w http.ResponseWriter, r *http.Request) {
	user, pass, ok := r.BasicAuth()
	if !ok || user != testUser || pass != testPass {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	d.lock.Lock()
	d.calls[req.Method]++
	d.params[req.Method] = req.Params
	result, ok := d.responses[req.Method]
	d.lock.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if !ok {
		// nolint
		w.Write([]byte(`{"result":null,"error":{"code":-32601,"message":"Method not found"},"id":` +
			string(req.ID) + `}`))
		return
	}
	// nolint
	w.Write([]byte(`{"result":` + result + `,"error":null,"id":` + string(req.ID) + `}`))
}

func (d *fakeDaemon) callCount(method string) int {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.calls[method]
}

func (d *fakeDaemon) lastParams(method string) []json.RawMessage {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.params[method]
}

func newTestClient(t *testing.T, host string) *client {
	svc, err := NewClient(Config{Ticker: testTicker, Host: host, User: testUser, Pass: testPass})
	require.NoError(t, err)
	return svc.(*client)
}

func TestNewClient(t *testing.T) {
	_, err := NewClient(Config{Host: "127.0.0.1:41414"})
	require.Error(t, err)

	_, err = NewClient(Config{Ticker: testTicker})
	require.Error(t, err)

	svc, err := NewClient(Config{Ticker: testTicker, Host: "127.0.0.1:41414", Coin: 1000000})
	require.NoError(t, err)
	require.Equal(t, int32(6), svc.(*client).decimals)
}

func TestRPCEnabled(t *testing.T) {
	_, host := newFakeDaemon(t, map[string]string{"getblockcount": "1234"})
	enabled, err := newTestClient(t, host).RPCEnabled(ctx)
	require.NoError(t, err)
	require.True(t, enabled)

	_, host = newFakeDaemon(t, map[string]string{})
	enabled, err = newTestClient(t, host).RPCEnabled(ctx)
	require.NoError(t, err)
	require.False(t, enabled)
}

func TestGetBalance(t *testing.T) {
	_, host := newFakeDaemon(t, map[string]string{
		"getbalance": "12.5",
		"listunspent": `[
			{"txid":"a","vout":0,"address":"addr","amount":10,"confirmations":6,"spendable":true},
			{"txid":"b","vout":1,"address":"addr","amount":2.5,"confirmations":0,"spendable":false}
		]`,
	})

	balance, err := newTestClient(t, host).GetBalance(ctx)
	require.NoError(t, err)
	require.True(t, decimal.RequireFromString("12.5").Equal(balance.Total))
	require.True(t, decimal.NewFromInt(10).Equal(balance.Spendable))
}

func TestGetTransactions(t *testing.T) {
	d, host := newFakeDaemon(t, map[string]string{
		"gettransactions": `[
			{"txid":"a","address":"addr","amount":1.25,"fee":-0.0001,"time":1000,
			 "confirmations":3,"category":"send","vout":0},
			{"txid":"b","address":"addr","amount":2,"time":1100,"confirmations":1,
			 "category":"receive","vout":1,"blockhash":"00ff"}
		]`,
	})

	txs, err := newTestClient(t, host).GetTransactions(ctx, 400, 2000)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	require.Equal(t, "a", txs[0].Txid)
	require.Equal(t, domain.TxSend, txs[0].Category)
	require.True(t, decimal.RequireFromString("1.25").Equal(txs[0].Amount))
	require.Equal(t, int64(1100), txs[1].Time)
	require.Equal(t, "00ff", txs[1].BlockHash)

	params := d.lastParams("gettransactions")
	require.Len(t, params, 2)
	require.Equal(t, "400", string(params[0]))
	require.Equal(t, "2000", string(params[1]))
}

func TestGetTransactionsFailure(t *testing.T) {
	_, host := newFakeDaemon(t, map[string]string{})
	txs, err := newTestClient(t, host).GetTransactions(ctx, 0, 2000)
	require.Error(t, err)
	require.Nil(t, txs)
}

func TestAddresses(t *testing.T) {
	d, host := newFakeDaemon(t, map[string]string{
		"getaddressesbyaccount": `["addr1","addr2"]`,
		"getnewaddress":         `"addr3"`,
	})
	svc := newTestClient(t, host)

	addresses, err := svc.GetAddresses(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"addr1", "addr2"}, addresses)
	require.Equal(t, `"main"`, string(d.lastParams("getaddressesbyaccount")[0]))

	address, err := svc.GenerateNewAddress(ctx)
	require.NoError(t, err)
	require.Equal(t, "addr3", address)
}

func TestGetCachedUnspent(t *testing.T) {
	d, host := newFakeDaemon(t, map[string]string{
		"listunspent": `[{"txid":"a","vout":0,"address":"addr","amount":1,"confirmations":6,"spendable":true}]`,
	})
	svc := newTestClient(t, host)

	now := time.Unix(1000, 0)
	svc.now = func() time.Time { return now }

	utxos, err := svc.GetCachedUnspent(ctx, time.Minute)
	require.NoError(t, err)
	require.Len(t, utxos, 1)
	require.Equal(t, 1, d.callCount("listunspent"))

	now = now.Add(30 * time.Second)
	utxos, err = svc.GetCachedUnspent(ctx, time.Minute)
	require.NoError(t, err)
	require.Len(t, utxos, 1)
	require.Equal(t, 1, d.callCount("listunspent"))

	now = now.Add(time.Minute)
	_, err = svc.GetCachedUnspent(ctx, time.Minute)
	require.NoError(t, err)
	require.Equal(t, 2, d.callCount("listunspent"))

	_, err = svc.GetCachedUnspent(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, 2, d.callCount("listunspent"))
}

func TestSend(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		d, host := newFakeDaemon(t, map[string]string{"sendmany": `"` + testTxid + `"`})
		svc := newTestClient(t, host)

		txid, err := svc.Send(ctx, []domain.Recipient{
			{Address: "addr1", Amount: decimal.RequireFromString("1.5")},
			{Address: "addr2", Amount: decimal.RequireFromString("0.00000001")},
		})
		require.NoError(t, err)
		require.Equal(t, testTxid, txid)

		params := d.lastParams("sendmany")
		require.Len(t, params, 2)
		require.Equal(t, `""`, string(params[0]))

		amounts := make(map[string]json.Number)
		decoder := json.NewDecoder(strings.NewReader(string(params[1])))
		decoder.UseNumber()
		require.NoError(t, decoder.Decode(&amounts))
		require.Equal(t, json.Number("1.50000000"), amounts["addr1"])
		require.Equal(t, json.Number("0.00000001"), amounts["addr2"])
	})

	t.Run("invalid", func(t *testing.T) {
		d, host := newFakeDaemon(t, map[string]string{"sendmany": `"not a txid"`})
		svc := newTestClient(t, host)

		fixtures := []struct {
			name       string
			recipients []domain.Recipient
		}{
			{"no recipients", nil},
			{"missing address", []domain.Recipient{{Amount: decimal.NewFromInt(1)}}},
			{"zero amount", []domain.Recipient{{Address: "addr"}}},
			{"duplicated recipient", []domain.Recipient{
				{Address: "addr", Amount: decimal.NewFromInt(1)},
				{Address: "addr", Amount: decimal.NewFromInt(2)},
			}},
		}
		for _, f := range fixtures {
			t.Run(f.name, func(t *testing.T) {
				_, err := svc.Send(ctx, f.recipients)
				require.Error(t, err)
			})
		}
		require.Zero(t, d.callCount("sendmany"))

		_, err := svc.Send(ctx, []domain.Recipient{{Address: "addr", Amount: decimal.NewFromInt(1)}})
		require.Error(t, err)
		require.Equal(t, 1, d.callCount("sendmany"))
	})
}

func TestCallCanceled(t *testing.T) {
	_, host := newFakeDaemon(t, map[string]string{"getblockcount": "1"})
	svc := newTestClient(t, host)

	canceledCtx, cancel := context.WithCancel(ctx)
	cancel()

	_, err := svc.GetAddresses(canceledCtx)
	require.ErrorIs(t, err, context.Canceled)
}
