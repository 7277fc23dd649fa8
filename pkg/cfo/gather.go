package cfo

import (
	"context"
	"sync"
	"time"

	"github.com/wisbric/nova/pkg/collab"
)

// lstSymbols are liquid-staking-token symbols folded into the underlying
// "SOL" balance entry before the minimum-exposure filter runs.
var lstSymbols = map[string]bool{
	"mSOL":    true,
	"jitoSOL": true,
	"bSOL":    true,
	"jSOL":    true,
}

// minExposureUSD is the floor below which a balance entry is dropped
// after LST aggregation, to keep dust out of downstream decision rules.
const minExposureUSD = 1.0

// gatherPortfolio reads every collaborator concurrently. Each source
// defaults to its zero value on error rather than failing the cycle.
func (e *Engine) gatherPortfolio(ctx context.Context) PortfolioState {
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)

	state := PortfolioState{
		Balances:    make(map[string]float64),
		BalancesUSD: make(map[string]float64),
		GatheredAt:  time.Now(),
	}

	if e.wallet != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			balances, err := e.wallet.GetWalletTokenBalances(ctx)
			if err != nil {
				e.logger.Debug("gathering wallet balances", "error", err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			for _, b := range balances {
				state.Balances[b.Symbol] += b.Balance
			}
		}()
	}

	if e.staking != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pos, err := e.staking.GetStakePosition(ctx, e.solPrice(ctx))
			if err != nil {
				e.logger.Debug("gathering stake position", "error", err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			state.StakePosition = pos.StakedAmount
			state.StakePositionUSD = pos.ValueUSD
		}()
	}

	if e.lending != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pos, err := e.lending.GetPosition(ctx)
			if err != nil {
				e.logger.Debug("gathering lending position", "error", err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			state.LendingDeposited = pos.DepositedUSD
			state.LendingBorrowed = pos.BorrowedUSD
			state.LendingHealth = pos.HealthFactor
		}()
	}

	if e.perp != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			summary, err := e.perp.GetAccountSummary(ctx)
			if err != nil {
				e.logger.Debug("gathering perp summary", "error", err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			for _, p := range summary.Positions {
				state.PerpPositions = append(state.PerpPositions, PerpExposure{
					Coin:          p.Coin,
					SizeUSD:       p.SizeUSD,
					MarginUSD:     p.MarginUSD,
					UnrealizedPnl: p.UnrealizedPnl,
					MarkPrice:     p.MarkPrice,
					LiquidationPx: p.LiquidationPx,
					IsShort:       p.IsShort,
				})
			}
		}()
	}

	if e.prediction != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			positions, err := e.prediction.FetchPositions(ctx)
			if err != nil {
				e.logger.Debug("gathering prediction positions", "error", err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			state.PredictionPositions = len(positions)
		}()
	}

	for _, lp := range e.lpVenues {
		lp := lp
		wg.Add(1)
		go func() {
			defer wg.Done()
			positions, err := lp.GetPositions(ctx)
			if err != nil {
				e.logger.Debug("gathering LP positions", "error", err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			state.LPPositions += len(positions)
		}()
	}

	wg.Wait()

	e.priceAndFoldLSTs(ctx, &state)
	return state
}

// solPrice is a best-effort SOL quote used to value the stake position;
// zero on failure, which the staking collaborator is expected to handle
// by returning a zero-value ValueUSD.
func (e *Engine) solPrice(ctx context.Context) float64 {
	if e.market == nil {
		return 0
	}
	price, err := e.market.GetPrice(ctx, "SOL")
	if err != nil {
		return 0
	}
	return price
}

// priceAndFoldLSTs prices every raw balance in USD, then folds each LST's
// USD value into the "SOL" entry as SOL-equivalent units (divided by the
// SOL spot price, not its own raw token amount — an LST does not redeem
// 1:1 for its underlying). The minimum-exposure filter runs only after
// folding, per spec: a raw SOL balance combined with an LST balance that
// individually falls under the floor must still count once aggregated.
func (e *Engine) priceAndFoldLSTs(ctx context.Context, state *PortfolioState) {
	symbols := make([]string, 0, len(state.Balances))
	for s := range state.Balances {
		symbols = append(symbols, s)
	}

	var quotes map[string]collab.PriceQuote
	if e.market != nil && len(symbols) > 0 {
		q, err := e.market.GetPrices(ctx, symbols)
		if err == nil {
			quotes = q
		}
	}
	solPrice := quotes["SOL"].USD

	folded := make(map[string]float64)
	foldedUSD := make(map[string]float64)
	for symbol, amount := range state.Balances {
		usd := amount * quotes[symbol].USD
		if lstSymbols[symbol] {
			foldedUSD["SOL"] += usd
			if solPrice > 0 {
				folded["SOL"] += usd / solPrice
			}
			continue
		}
		folded[symbol] += amount
		foldedUSD[symbol] += usd
	}
	state.Balances = folded

	total := state.StakePositionUSD + state.LendingDeposited - state.LendingBorrowed
	for symbol, usd := range foldedUSD {
		if usd < minExposureUSD {
			delete(state.Balances, symbol)
			continue
		}
		state.BalancesUSD[symbol] = usd
		total += usd
		if symbol == "SOL" || symbol == "USDC" || symbol == "USDT" {
			state.IdleUSD += usd
		}
	}
	state.TotalUSD = total
}
