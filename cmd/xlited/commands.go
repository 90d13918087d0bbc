package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/blocknetdx/xlited/internal/core/application"
	"github.com/blocknetdx/xlited/internal/core/domain"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"golang.org/x/term"
)

var periods = map[string]int64{
	"hour":      domain.OneHourSeconds,
	"day":       domain.OneDaySeconds,
	"week":      domain.OneWeekSeconds,
	"month":     domain.OneMonthSeconds,
	"half-year": domain.HalfYearSeconds,
	"year":      domain.OneYearSeconds,
}

// flags
var (
	tickerFlag = &cli.StringFlag{
		Name:     "ticker",
		Usage:    "ticker of the asset",
		Required: true,
	}
	syncFlag = &cli.BoolFlag{
		Name:  "sync",
		Usage: "fetch new transactions from the daemon before listing",
	}
	periodFlag = &cli.StringFlag{
		Name:  "period",
		Usage: "list transactions of the last hour | day | week | month | half-year | year",
	}
	startFlag = &cli.Int64Flag{
		Name:  "start",
		Usage: "unix timestamp of the beginning of the window",
	}
	endFlag = &cli.Int64Flag{
		Name:  "end",
		Usage: "unix timestamp of the end of the window, defaults to now",
	}
	newAddressFlag = &cli.BoolFlag{
		Name:  "new",
		Usage: "generate a new receiving address",
	}
	maxAgeFlag = &cli.DurationFlag{
		Name:  "max-age",
		Usage: "max age of cached unspent outputs, defaults to UNSPENT_MAX_AGE",
	}
	receiversFlag = &cli.StringFlag{
		Name:  "receivers",
		Usage: "receivers of the send transaction, JSON encoded: '[{\"to\": \"<...>\", \"amount\": \"<...>\"}, ...]'",
	}
	toFlag = &cli.StringFlag{
		Name:  "to",
		Usage: "address of the recipient",
	}
	amountFlag = &cli.StringFlag{
		Name:  "amount",
		Usage: "amount to send in coins",
	}
)

// commands
var (
	startCmd = &cli.Command{
		Name:   "start",
		Usage:  "Unlock or create the wallet and keep its transactions in sync",
		Action: startAction,
	}
	balanceCmd = &cli.Command{
		Name:   "balance",
		Usage:  "Print the balance of every enabled asset",
		Action: balanceAction,
	}
	transactionsCmd = &cli.Command{
		Name:   "transactions",
		Usage:  "List the cached transactions of an asset",
		Action: transactionsAction,
		Flags:  []cli.Flag{tickerFlag, syncFlag, periodFlag, startFlag, endFlag},
	}
	receiveCmd = &cli.Command{
		Name:   "receive",
		Usage:  "Print the receiving addresses of an asset",
		Action: receiveAction,
		Flags:  []cli.Flag{tickerFlag, newAddressFlag},
	}
	unspentCmd = &cli.Command{
		Name:   "unspent",
		Usage:  "List the unspent outputs of an asset",
		Action: unspentAction,
		Flags:  []cli.Flag{tickerFlag, maxAgeFlag},
	}
	sendCmd = &cli.Command{
		Name:   "send",
		Usage:  "Send coins of an asset to one or many recipients",
		Action: sendAction,
		Flags:  []cli.Flag{tickerFlag, receiversFlag, toFlag, amountFlag},
	}
)

func startAction(ctx *cli.Context) error {
	cfg, err := getConfig()
	if err != nil {
		return err
	}
	log.RegisterExitHandler(cfg.Close)

	lc := cfg.LifecycleController()
	if _, err := lc.Load(ctx.Context); err != nil {
		cfg.Close()
		return err
	}
	if err := runLifecycle(ctx.Context, lc); err != nil {
		cfg.Close()
		return err
	}

	log.Infof("wallet ready, syncing %d assets", len(cfg.Wallets()))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT, os.Interrupt)
	<-sigChan

	log.Info("shutting down service...")
	log.Exit(0)
	return nil
}

// runLifecycle prompts the user until the wallet is ready.
func runLifecycle(ctx context.Context, lc *application.LifecycleController) error {
	for {
		switch state := lc.State(); state {
		case application.StateReady:
			return nil
		case application.StateUnlock:
			password, err := readPassword("password: ")
			if err != nil {
				return err
			}
			if err := reportFailure(lc.SubmitUnlock(ctx, password)); err != nil {
				return err
			}
		case application.StateRegister:
			fmt.Println("no wallet found, choose a password to create a new one")
			password, err := readPassword("password: ")
			if err != nil {
				return err
			}
			repeat, err := readPassword("repeat password: ")
			if err != nil {
				return err
			}
			if err := reportFailure(lc.SubmitRegister(ctx, password, repeat)); err != nil {
				return err
			}
		case application.StateMnemonicConfirm:
			mnemonic, err := lc.Mnemonic()
			if err != nil {
				return err
			}
			fmt.Printf("\nwrite down your mnemonic, it won't be shown again:\n\n%s\n\n", mnemonic)
			fmt.Print("press enter to continue...")
			if _, err := bufio.NewReader(os.Stdin).ReadString('\n'); err != nil {
				return err
			}
			if err := lc.ConfirmMnemonic(); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unexpected wallet state %s", state)
		}
	}
}

// reportFailure prints the message of a lifecycle failure and swallows it so
// the user can retry. Any other error is returned.
func reportFailure(err error) error {
	if err == nil {
		return nil
	}
	var failure *application.Failure
	if errors.As(err, &failure) {
		fmt.Println(failure.Message)
		if failure.Err != nil {
			log.WithError(failure.Err).Debug(failure.Kind)
		}
		return nil
	}
	return err
}

func balanceAction(ctx *cli.Context) error {
	cfg, err := getConfig()
	if err != nil {
		return err
	}
	defer cfg.Close()

	balances := make([]map[string]interface{}, 0, len(cfg.Wallets()))
	for _, w := range application.SortWallets(ctx.Context, cfg.Wallets()) {
		balance, err := w.GetBalance(ctx.Context)
		if err != nil {
			log.WithError(err).Warnf("failed to get %s balance", w.Ticker())
			balance = &domain.Balance{}
		}
		balances = append(balances, map[string]interface{}{
			"ticker":    w.Ticker(),
			"name":      w.Name(),
			"total":     balance.Total,
			"spendable": balance.Spendable,
		})
	}
	return printJSON(balances)
}

func transactionsAction(ctx *cli.Context) error {
	start, end, err := parseWindow(ctx, time.Now().Unix())
	if err != nil {
		return err
	}

	cfg, err := getConfig()
	if err != nil {
		return err
	}
	defer cfg.Close()

	w, err := cfg.Wallet(ctx.String(tickerFlag.Name))
	if err != nil {
		return err
	}

	if ctx.Bool(syncFlag.Name) {
		if _, err := w.UpdateTransactionsBetween(ctx.Context, start, end); err != nil {
			return err
		}
	}

	txs, err := w.GetTransactions(start, end)
	if err != nil {
		return err
	}

	list := make([]map[string]interface{}, 0, len(txs))
	for _, tx := range txs {
		list = append(list, map[string]interface{}{
			"txid":          tx.Txid,
			"address":       tx.Address,
			"amount":        tx.Amount,
			"fee":           tx.Fee,
			"time":          tx.Time,
			"confirmations": tx.Confirmations,
			"category":      tx.Category,
			"explorer":      w.ExplorerLinkForTx(tx.Txid),
		})
	}
	return printJSON(list)
}

// parseWindow returns the [start, end] window selected by the flags.
// A period takes precedence over start.
func parseWindow(ctx *cli.Context, now int64) (int64, int64, error) {
	end := ctx.Int64(endFlag.Name)
	if end <= 0 {
		end = now
	}

	start := ctx.Int64(startFlag.Name)
	if period := ctx.String(periodFlag.Name); len(period) > 0 {
		seconds, ok := periods[period]
		if !ok {
			return 0, 0, fmt.Errorf("invalid period %s", period)
		}
		start = end - seconds
	}
	if start < 0 {
		start = 0
	}
	if start > end {
		return 0, 0, fmt.Errorf("start must not be after end")
	}
	return start, end, nil
}

func receiveAction(ctx *cli.Context) error {
	cfg, err := getConfig()
	if err != nil {
		return err
	}
	defer cfg.Close()

	w, err := cfg.Wallet(ctx.String(tickerFlag.Name))
	if err != nil {
		return err
	}

	if ctx.Bool(newAddressFlag.Name) {
		address, err := w.GenerateNewAddress(ctx.Context)
		if err != nil {
			return err
		}
		return printJSON(map[string]interface{}{"address": address})
	}

	addresses, err := w.GetAddresses(ctx.Context)
	if err != nil {
		return err
	}
	return printJSON(map[string]interface{}{"addresses": addresses})
}

func unspentAction(ctx *cli.Context) error {
	cfg, err := getConfig()
	if err != nil {
		return err
	}
	defer cfg.Close()

	w, err := cfg.Wallet(ctx.String(tickerFlag.Name))
	if err != nil {
		return err
	}

	maxAge := cfg.UnspentMaxAge
	if ctx.IsSet(maxAgeFlag.Name) {
		maxAge = ctx.Duration(maxAgeFlag.Name)
	}
	utxos, err := w.GetCachedUnspent(ctx.Context, maxAge)
	if err != nil {
		return err
	}
	return printJSON(utxos)
}

type receiver struct {
	To     string          `json:"to"`
	Amount decimal.Decimal `json:"amount"`
}

func sendAction(ctx *cli.Context) error {
	recipients, err := parseRecipients(ctx)
	if err != nil {
		return err
	}

	cfg, err := getConfig()
	if err != nil {
		return err
	}
	defer cfg.Close()

	w, err := cfg.Wallet(ctx.String(tickerFlag.Name))
	if err != nil {
		return err
	}

	txid, err := w.Send(ctx.Context, recipients)
	if err != nil {
		return err
	}
	return printJSON(map[string]interface{}{
		"txid":     txid,
		"explorer": w.ExplorerLinkForTx(txid),
	})
}

func parseRecipients(ctx *cli.Context) ([]domain.Recipient, error) {
	receivers := ctx.String(receiversFlag.Name)
	to := ctx.String(toFlag.Name)
	amount := ctx.String(amountFlag.Name)
	if len(receivers) <= 0 && (len(to) <= 0 || len(amount) <= 0) {
		return nil, fmt.Errorf("missing destination, either use --to and --amount to send or --receivers to send to many")
	}

	var list []receiver
	if len(receivers) > 0 {
		if err := json.Unmarshal([]byte(receivers), &list); err != nil {
			return nil, fmt.Errorf("invalid receivers: %s", err)
		}
	} else {
		value, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("invalid amount: %s", err)
		}
		list = []receiver{{to, value}}
	}

	recipients := make([]domain.Recipient, 0, len(list))
	for _, r := range list {
		recipients = append(recipients, domain.Recipient{Address: r.To, Amount: r.Amount})
	}
	return recipients, nil
}

func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println() // new line
	if err != nil {
		return "", err
	}
	return string(password), nil
}

func printJSON(resp interface{}) error {
	jsonBytes, err := json.MarshalIndent(resp, "", "\t")
	if err != nil {
		return err
	}

	fmt.Println(string(jsonBytes))
	return nil
}
