// Package collab defines the external collaborator interfaces the
// decision engine is built against: market data, wallet, perpetual and
// prediction-market venues, staking, lending, concentrated-LP venues, and
// a bridge/flash-arb service. Per spec, the concrete integrations with
// any exchange, DEX, or bridge are out of scope — this package only fixes
// the contract, plus a noop reference implementation of each so the
// engine is runnable end-to-end without a live venue.
package collab

import "context"

// PriceQuote is a single asset's spot price and 24h change.
type PriceQuote struct {
	USD       float64
	Change24h float64
}

// MarketData is the price-feed collaborator.
type MarketData interface {
	GetPrice(ctx context.Context, symbol string) (float64, error)
	GetPrices(ctx context.Context, ids []string) (map[string]PriceQuote, error)
}

// TokenBalance is a single SPL/ERC20-style wallet holding.
type TokenBalance struct {
	Mint    string
	Symbol  string
	Balance float64
}

// Wallet is the balance-reading collaborator.
type Wallet interface {
	GetBalance(ctx context.Context, asset string) (float64, error)
	GetWalletTokenBalances(ctx context.Context) ([]TokenBalance, error)
}

// PerpPosition is one open position on the perpetual-futures venue.
type PerpPosition struct {
	Coin          string
	IsShort       bool
	SizeUSD       float64
	MarginUSD     float64
	EntryPrice    float64
	MarkPrice     float64
	LiquidationPx float64
	UnrealizedPnl float64
}

// PerpAccountSummary summarizes the perpetual venue's account.
type PerpAccountSummary struct {
	Positions     []PerpPosition
	AccountValueUSD float64
}

// HedgeParams describes a treasury hedge to open.
type HedgeParams struct {
	Coin        string
	ExposureUSD float64
	Leverage    float64
}

// PerpVenue is the perpetual-futures collaborator (e.g. Hyperliquid).
type PerpVenue interface {
	GetAccountSummary(ctx context.Context) (PerpAccountSummary, error)
	HedgeTreasury(ctx context.Context, p HedgeParams) (txID string, err error)
	ClosePosition(ctx context.Context, coin string, size float64, isBuy bool) (txID string, err error)
	GetHLListedCoins(ctx context.Context) ([]string, error)
}

// PredictionOpportunity is a candidate prediction-market bet.
type PredictionOpportunity struct {
	MarketID    string
	Question    string
	Token       string
	Probability float64
	EdgeUSD     float64
}

// PredictionPosition is a held prediction-market position.
type PredictionPosition struct {
	MarketID string
	Token    string
	SizeUSD  float64
}

// PredictionVenue is the prediction-market collaborator (e.g. Polymarket).
type PredictionVenue interface {
	ScanOpportunities(ctx context.Context, headroomUSD float64, scoutCtx map[string]any) ([]PredictionOpportunity, error)
	FetchMarket(ctx context.Context, id string) (PredictionOpportunity, error)
	PlaceBuyOrder(ctx context.Context, marketID, token string, sizeUSD float64) (txID string, err error)
	FetchPositions(ctx context.Context) ([]PredictionPosition, error)
	ExitPosition(ctx context.Context, pos PredictionPosition, fraction float64) (txID string, err error)
}

// StakePosition is the current staked balance, valued in USD.
type StakePosition struct {
	StakedAmount float64
	ValueUSD     float64
}

// Staking is the liquid-staking collaborator.
type Staking interface {
	StakeSol(ctx context.Context, amount float64) (txID string, err error)
	InstantUnstake(ctx context.Context, amount float64) (txID string, err error)
	GetStakePosition(ctx context.Context, priceUSD float64) (StakePosition, error)
}

// LendingPosition summarizes one lending-protocol account.
type LendingPosition struct {
	DepositedUSD float64
	BorrowedUSD  float64
	HealthFactor float64
}

// LstAsset is a liquid-staking-token accepted by a lending protocol's loop
// strategy.
type LstAsset struct {
	Symbol        string
	SupplyAPY     float64
	BorrowAPY     float64
	LtvMax        float64
}

// Lending is the lending-protocol collaborator.
type Lending interface {
	GetPosition(ctx context.Context) (LendingPosition, error)
	GetApys(ctx context.Context) (map[string]float64, error)
	Deposit(ctx context.Context, asset string, amount float64) (txID string, err error)
	Borrow(ctx context.Context, asset string, amount float64) (txID string, err error)
	Repay(ctx context.Context, asset string, amount float64) (txID string, err error)
	LoopLst(ctx context.Context, lst string, amount float64, loops int) (txID string, err error)
	UnwindLstLoop(ctx context.Context, lst string) (txID string, err error)
	GetLstAssets(ctx context.Context) ([]LstAsset, error)
}

// LPPosition is one open concentrated-liquidity position.
type LPPosition struct {
	PoolID       string
	Pair         string
	Chain        string
	ValueUSD     float64
	InRange      bool
	LastOpenedAt int64 // unix seconds the position was opened
}

// LPPoolCandidate is a discovered pool available for a new LP position.
type LPPoolCandidate struct {
	PoolID       string
	Pair         string
	Chain        string
	FeeTierBps   int
	TickSpacing  int
	Stablecoin   bool
	Score        float64
	LastOpenedAt int64
}

// LPVenue is a concentrated-liquidity venue collaborator. NOVA wires two
// instances of this interface (e.g. one per chain/DEX).
type LPVenue interface {
	GetPositions(ctx context.Context) ([]LPPosition, error)
	DiscoverPools(ctx context.Context) ([]LPPoolCandidate, error)
	OpenPosition(ctx context.Context, poolID string, amountUSD float64, tickSpacing int) (txID string, err error)
	RebalancePosition(ctx context.Context, poolID string) (txID string, err error)
	ClaimFees(ctx context.Context, poolID string) (txID string, err error)
}

// FlashArbOpportunity is a precomputed arbitrage the bridge collaborator
// has already sized and net-profited.
type FlashArbOpportunity struct {
	Route        string
	NotionalUSD  float64
	NetProfitUSD float64
}

// Bridge is the cross-chain bridge / flash-arb collaborator.
type Bridge interface {
	Bridge(ctx context.Context, asset string, amount float64, toChain string) (txID string, err error)
	Swap(ctx context.Context, fromAsset, toAsset string, amount float64) (txID string, err error)
	ScanForOpportunity(ctx context.Context) (*FlashArbOpportunity, error)
	ExecuteFlashArb(ctx context.Context, opp FlashArbOpportunity) (txID string, err error)
}
