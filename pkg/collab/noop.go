package collab

import (
	"context"
	"fmt"
)

// These noop implementations let the decision engine run end-to-end in
// tests and in environments with no venue wired up. Every mutating call
// returns an error; every read except NoopPredictionVenue.FetchMarket
// returns a zero-value result rather than an error, matching the gather step's try/catch-and-default-to-zero
// semantics described in spec.md §4.4.1.

// ErrNotConfigured is returned by every mutating noop collaborator call
// and by NoopPredictionVenue.FetchMarket.
var ErrNotConfigured = fmt.Errorf("collaborator not configured")

type NoopMarketData struct{}

func (NoopMarketData) GetPrice(ctx context.Context, symbol string) (float64, error) { return 0, nil }
func (NoopMarketData) GetPrices(ctx context.Context, ids []string) (map[string]PriceQuote, error) {
	return map[string]PriceQuote{}, nil
}

type NoopWallet struct{}

func (NoopWallet) GetBalance(ctx context.Context, asset string) (float64, error) { return 0, nil }
func (NoopWallet) GetWalletTokenBalances(ctx context.Context) ([]TokenBalance, error) {
	return nil, nil
}

type NoopPerpVenue struct{}

func (NoopPerpVenue) GetAccountSummary(ctx context.Context) (PerpAccountSummary, error) {
	return PerpAccountSummary{}, nil
}
func (NoopPerpVenue) HedgeTreasury(ctx context.Context, p HedgeParams) (string, error) {
	return "", ErrNotConfigured
}
func (NoopPerpVenue) ClosePosition(ctx context.Context, coin string, size float64, isBuy bool) (string, error) {
	return "", ErrNotConfigured
}
func (NoopPerpVenue) GetHLListedCoins(ctx context.Context) ([]string, error) { return nil, nil }

type NoopPredictionVenue struct{}

func (NoopPredictionVenue) ScanOpportunities(ctx context.Context, headroomUSD float64, scoutCtx map[string]any) ([]PredictionOpportunity, error) {
	return nil, nil
}
func (NoopPredictionVenue) FetchMarket(ctx context.Context, id string) (PredictionOpportunity, error) {
	return PredictionOpportunity{}, ErrNotConfigured
}
func (NoopPredictionVenue) PlaceBuyOrder(ctx context.Context, marketID, token string, sizeUSD float64) (string, error) {
	return "", ErrNotConfigured
}
func (NoopPredictionVenue) FetchPositions(ctx context.Context) ([]PredictionPosition, error) {
	return nil, nil
}
func (NoopPredictionVenue) ExitPosition(ctx context.Context, pos PredictionPosition, fraction float64) (string, error) {
	return "", ErrNotConfigured
}

type NoopStaking struct{}

func (NoopStaking) StakeSol(ctx context.Context, amount float64) (string, error) {
	return "", ErrNotConfigured
}
func (NoopStaking) InstantUnstake(ctx context.Context, amount float64) (string, error) {
	return "", ErrNotConfigured
}
func (NoopStaking) GetStakePosition(ctx context.Context, priceUSD float64) (StakePosition, error) {
	return StakePosition{}, nil
}

type NoopLending struct{}

func (NoopLending) GetPosition(ctx context.Context) (LendingPosition, error) {
	return LendingPosition{HealthFactor: 0}, nil
}
func (NoopLending) GetApys(ctx context.Context) (map[string]float64, error) {
	return map[string]float64{}, nil
}
func (NoopLending) Deposit(ctx context.Context, asset string, amount float64) (string, error) {
	return "", ErrNotConfigured
}
func (NoopLending) Borrow(ctx context.Context, asset string, amount float64) (string, error) {
	return "", ErrNotConfigured
}
func (NoopLending) Repay(ctx context.Context, asset string, amount float64) (string, error) {
	return "", ErrNotConfigured
}
func (NoopLending) LoopLst(ctx context.Context, lst string, amount float64, loops int) (string, error) {
	return "", ErrNotConfigured
}
func (NoopLending) UnwindLstLoop(ctx context.Context, lst string) (string, error) {
	return "", ErrNotConfigured
}
func (NoopLending) GetLstAssets(ctx context.Context) ([]LstAsset, error) { return nil, nil }

type NoopLPVenue struct{ name string }

func NewNoopLPVenue(name string) NoopLPVenue { return NoopLPVenue{name: name} }

func (n NoopLPVenue) GetPositions(ctx context.Context) ([]LPPosition, error) { return nil, nil }
func (n NoopLPVenue) DiscoverPools(ctx context.Context) ([]LPPoolCandidate, error) {
	return nil, nil
}
func (n NoopLPVenue) OpenPosition(ctx context.Context, poolID string, amountUSD float64, tickSpacing int) (string, error) {
	return "", ErrNotConfigured
}
func (n NoopLPVenue) RebalancePosition(ctx context.Context, poolID string) (string, error) {
	return "", ErrNotConfigured
}
func (n NoopLPVenue) ClaimFees(ctx context.Context, poolID string) (string, error) {
	return "", ErrNotConfigured
}

type NoopBridge struct{}

func (NoopBridge) Bridge(ctx context.Context, asset string, amount float64, toChain string) (string, error) {
	return "", ErrNotConfigured
}
func (NoopBridge) Swap(ctx context.Context, fromAsset, toAsset string, amount float64) (string, error) {
	return "", ErrNotConfigured
}
func (NoopBridge) ScanForOpportunity(ctx context.Context) (*FlashArbOpportunity, error) {
	return nil, nil
}
func (NoopBridge) ExecuteFlashArb(ctx context.Context, opp FlashArbOpportunity) (string, error) {
	return "", ErrNotConfigured
}
