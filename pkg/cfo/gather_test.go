package cfo

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wisbric/nova/pkg/collab"
)

// fakeMarket prices SOL at $100 and jitoSOL at its redemption-rate premium
// of $112.50 — exercising the case where an LST does not redeem 1:1 for
// its underlying, so folding must go through USD value, not raw units.
type fakeMarket struct{}

func (fakeMarket) GetPrice(ctx context.Context, symbol string) (float64, error) {
	if symbol == "SOL" {
		return 100, nil
	}
	return 0, nil
}

func (fakeMarket) GetPrices(ctx context.Context, ids []string) (map[string]collab.PriceQuote, error) {
	return map[string]collab.PriceQuote{
		"SOL":     {USD: 100},
		"jitoSOL": {USD: 112.5},
	}, nil
}

type fakeWallet struct{ balances []collab.TokenBalance }

func (f fakeWallet) GetBalance(ctx context.Context, asset string) (float64, error) { return 0, nil }
func (f fakeWallet) GetWalletTokenBalances(ctx context.Context) ([]collab.TokenBalance, error) {
	return f.balances, nil
}

func TestGatherPortfolio_FoldsLSTByUSDValueBeforeMinExposureFilter(t *testing.T) {
	e := &Engine{
		logger: slog.Default(),
		market: fakeMarket{},
		wallet: fakeWallet{balances: []collab.TokenBalance{
			{Symbol: "SOL", Balance: 0.4},     // $40 raw SOL
			{Symbol: "jitoSOL", Balance: 2.0}, // 2 * $112.50 = $225
		}},
	}

	state := e.gatherPortfolio(context.Background())

	require.Contains(t, state.BalancesUSD, "SOL")
	assert.InDelta(t, 265.0, state.BalancesUSD["SOL"], 0.01)
	assert.InDelta(t, 265.0, state.TotalUSD, 0.01)

	// SOL-equivalent units: 0.4 raw + ($225 / $100 per SOL) = 2.65, not
	// 0.4 + 2.0 (which would wrongly treat jitoSOL as redeeming 1:1).
	assert.InDelta(t, 2.65, state.Balances["SOL"], 0.001)
}

func TestGatherPortfolio_DropsFoldedBalanceBelowMinExposure(t *testing.T) {
	e := &Engine{
		logger: slog.Default(),
		market: fakeMarket{},
		wallet: fakeWallet{balances: []collab.TokenBalance{
			{Symbol: "SOL", Balance: 0.001}, // $0.10, under the $1 floor alone
		}},
	}

	state := e.gatherPortfolio(context.Background())

	assert.NotContains(t, state.BalancesUSD, "SOL")
}
