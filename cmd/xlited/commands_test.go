package main

import (
	"flag"
	"testing"

	"github.com/blocknetdx/xlited/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

const now = int64(1_700_000_000)

func TestParseWindow(t *testing.T) {
	fixtures := []struct {
		name          string
		args          []string
		expectedStart int64
		expectedEnd   int64
	}{
		{"defaults", nil, 0, now},
		{"start", []string{"--start", "100"}, 100, now},
		{"start and end", []string{"--start", "100", "--end", "200"}, 100, 200},
		{"period", []string{"--period", "day"}, now - domain.OneDaySeconds, now},
		{"period overrides start", []string{"--period", "hour", "--start", "5"}, now - domain.OneHourSeconds, now},
		{"period before epoch", []string{"--period", "year", "--end", "1000"}, 0, 1000},
	}
	for _, f := range fixtures {
		t.Run(f.name, func(t *testing.T) {
			ctx := newContext(t, transactionsCmd.Flags, f.args...)
			start, end, err := parseWindow(ctx, now)
			require.NoError(t, err)
			require.Equal(t, f.expectedStart, start)
			require.Equal(t, f.expectedEnd, end)
		})
	}

	t.Run("invalid", func(t *testing.T) {
		for _, args := range [][]string{
			{"--period", "decade"},
			{"--start", "300", "--end", "200"},
		} {
			ctx := newContext(t, transactionsCmd.Flags, args...)
			_, _, err := parseWindow(ctx, now)
			require.Error(t, err)
		}
	})
}

func TestParseRecipients(t *testing.T) {
	t.Run("single", func(t *testing.T) {
		ctx := newContext(t, sendCmd.Flags, "--to", "addr1", "--amount", "1.5")
		recipients, err := parseRecipients(ctx)
		require.NoError(t, err)
		require.Len(t, recipients, 1)
		require.Equal(t, "addr1", recipients[0].Address)
		require.True(t, decimal.RequireFromString("1.5").Equal(recipients[0].Amount))
	})

	t.Run("many", func(t *testing.T) {
		ctx := newContext(
			t, sendCmd.Flags,
			"--receivers", `[{"to": "addr1", "amount": "1"}, {"to": "addr2", "amount": "0.00000001"}]`,
		)
		recipients, err := parseRecipients(ctx)
		require.NoError(t, err)
		require.Len(t, recipients, 2)
		require.Equal(t, "addr2", recipients[1].Address)
		require.True(t, decimal.RequireFromString("0.00000001").Equal(recipients[1].Amount))
	})

	t.Run("invalid", func(t *testing.T) {
		for _, args := range [][]string{
			nil,
			{"--to", "addr1"},
			{"--to", "addr1", "--amount", "one"},
			{"--receivers", "{"},
		} {
			ctx := newContext(t, sendCmd.Flags, args...)
			_, err := parseRecipients(ctx)
			require.Error(t, err)
		}
	})
}

func newContext(t *testing.T, flags []cli.Flag, args ...string) *cli.Context {
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	for _, f := range flags {
		require.NoError(t, f.Apply(set))
	}
	require.NoError(t, set.Parse(args))
	return cli.NewContext(cli.NewApp(), set, nil)
}
