package cfo

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/wisbric/nova/pkg/collab"
)

// generateCandidates runs every rule block and concatenates whatever
// candidate decisions they surface. Each block is independently gated by
// its own feature flag, cooldown, and preconditions; a block finding
// nothing actionable simply contributes no decisions.
func (e *Engine) generateCandidates(ctx context.Context, portfolio PortfolioState, intel IntelSummary) []Decision {
	var decisions []Decision
	decisions = append(decisions, e.stopLossRules(ctx, portfolio, intel)...)
	decisions = append(decisions, e.hedgeRules(ctx, portfolio, intel)...)
	decisions = append(decisions, e.stakingRules(ctx, portfolio)...)
	decisions = append(decisions, e.predictionRules(ctx, intel)...)
	decisions = append(decisions, e.lendingRules(ctx, portfolio)...)
	decisions = append(decisions, e.lpRules(ctx, intel)...)
	decisions = append(decisions, e.flashArbRules(ctx)...)
	return decisions
}

// cooldownReady checks key against the production window, or the shorter
// dry-run window when the engine is configured for simulation, so a
// dry-run cycle never blocks on the production cooldown it never earned.
func (e *Engine) cooldownReady(ctx context.Context, key string, liveWindow time.Duration) bool {
	if e.cfg.DryRun {
		dryWindow := time.Duration(e.cfg.CooldownDryRunHours * float64(time.Hour))
		return e.cooldowns.ready(ctx, key, dryWindow)
	}
	return e.cooldowns.ready(ctx, key, liveWindow)
}

func hours(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour))
}

// applyLearned blends base with a strategy's learned multiplier; with no
// learning engine wired the base passes through unchanged.
func (e *Engine) applyLearned(ctx context.Context, strategy string, base float64) float64 {
	if e.learning == nil {
		return base
	}
	return e.learning.Apply(ctx, strategy, base)
}

// stopLossRules closes perpetual positions whose unrealised loss (as a
// fraction of margin) breaches the risk-adjusted stop-loss threshold, or
// whose mark price has drifted too close to liquidation.
func (e *Engine) stopLossRules(ctx context.Context, portfolio PortfolioState, intel IntelSummary) []Decision {
	if !e.cfg.EnableStopLoss || e.perp == nil {
		return nil
	}

	var decisions []Decision
	threshold := (e.applyLearned(ctx, "CLOSE_LOSING", e.cfg.HLStopLossPct) / 100) / math.Max(intel.RiskMultiplier, 0.5)

	for _, pos := range portfolio.PerpPositions {
		key := fmt.Sprintf("CLOSE_LOSING_%s", pos.Coin)
		if !e.cooldownReady(ctx, key, hours(e.cfg.CooldownCloseHours)) {
			continue
		}

		liqDistance := 1.0
		if pos.MarkPrice > 0 {
			liqDistance = math.Abs(pos.MarkPrice-pos.LiquidationPx) / pos.MarkPrice
		}
		nearLiquidation := liqDistance < e.cfg.HLLiquidationWarningPct/100

		lossPct := 0.0
		if pos.MarginUSD > 0 && pos.UnrealizedPnl < 0 {
			lossPct = -pos.UnrealizedPnl / pos.MarginUSD
		}

		if !nearLiquidation && lossPct <= threshold {
			continue
		}

		urgency := UrgencyHigh
		if nearLiquidation {
			urgency = UrgencyCritical
		}

		pos := pos
		decisions = append(decisions, Decision{
			Type:        CloseLosing,
			Urgency:     urgency,
			Tier:        e.classifyTier(CloseLosing, urgency, pos.SizeUSD, intel.MarketCondition),
			ImpactUSD:   pos.SizeUSD,
			Description: fmt.Sprintf("close %s position, loss %.1f%% of margin", pos.Coin, lossPct*100),
			CooldownKey: key,
			DryRun:      e.cfg.DryRun,
			Action: func() (string, error) {
				txID, err := e.perp.ClosePosition(ctx, pos.Coin, pos.SizeUSD, pos.IsShort)
				if err == nil {
					e.recordClosedPerp(ctx, pos)
				}
				return txID, err
			},
		})
	}
	return decisions
}

// hedgeRules keeps each hedgeable treasury exposure's short ratio near an
// intel-adjusted target, opening or closing hedge size as it drifts
// outside the configured band.
func (e *Engine) hedgeRules(ctx context.Context, portfolio PortfolioState, intel IntelSummary) []Decision {
	if !e.cfg.EnableHedge || e.perp == nil {
		return nil
	}

	listed, err := e.perp.GetHLListedCoins(ctx)
	if err != nil {
		e.logger.Debug("listing HL coins", "error", err)
		return nil
	}
	hlListed := make(map[string]bool, len(listed))
	for _, c := range listed {
		hlListed[c] = true
	}

	account, err := e.perp.GetAccountSummary(ctx)
	if err != nil {
		e.logger.Debug("fetching perp account summary", "error", err)
		return nil
	}

	shortUSD := make(map[string]float64)
	for _, p := range account.Positions {
		if p.IsShort {
			shortUSD[p.Coin] += p.SizeUSD
		}
	}

	target := e.cfg.HedgeTargetRatio * intel.RiskMultiplier
	target = min(target, 1.0)
	target = e.applyLearned(ctx, "OPEN_HEDGE", target)
	target = min(target, 1.0)

	var decisions []Decision
	for symbol, usd := range portfolio.BalancesUSD {
		if usd < e.cfg.HedgeMinExposureUSD || !hlListed[symbol] {
			continue
		}

		currentRatio := shortUSD[symbol] / usd
		drift := currentRatio - target
		if math.Abs(drift) <= e.cfg.HedgeRebalanceThreshold {
			continue
		}

		needed := math.Abs(drift) * usd
		if needed < 10 {
			continue
		}

		urgency := UrgencyMedium
		if math.Abs(drift) > 2*e.cfg.HedgeRebalanceThreshold {
			urgency = UrgencyHigh
		}

		symbol := symbol
		if drift < 0 {
			key := fmt.Sprintf("OPEN_HEDGE_%s", symbol)
			if !e.cooldownReady(ctx, key, hours(e.cfg.CooldownHedgeHours)) {
				continue
			}
			needed = min(needed, account.AccountValueUSD)
			if needed < 10 {
				continue
			}
			decisions = append(decisions, Decision{
				Type:        OpenHedge,
				Urgency:     urgency,
				Tier:        e.classifyTier(OpenHedge, urgency, needed, intel.MarketCondition),
				ImpactUSD:   needed,
				Description: fmt.Sprintf("open %s hedge for $%.2f (ratio %.2f -> %.2f)", symbol, needed, currentRatio, target),
				CooldownKey: key,
				DryRun:      e.cfg.DryRun,
				Action: func() (string, error) {
					return e.perp.HedgeTreasury(ctx, collab.HedgeParams{Coin: symbol, ExposureUSD: needed, Leverage: 1})
				},
			})
		} else {
			key := fmt.Sprintf("CLOSE_HEDGE_%s", symbol)
			if !e.cooldownReady(ctx, key, hours(e.cfg.CooldownHedgeHours)) {
				continue
			}
			decisions = append(decisions, Decision{
				Type:        CloseHedge,
				Urgency:     urgency,
				Tier:        e.classifyTier(CloseHedge, urgency, needed, intel.MarketCondition),
				ImpactUSD:   needed,
				Description: fmt.Sprintf("reduce %s hedge by $%.2f (ratio %.2f -> %.2f)", symbol, needed, currentRatio, target),
				CooldownKey: key,
				DryRun:      e.cfg.DryRun,
				Action: func() (string, error) {
					return e.perp.ClosePosition(ctx, symbol, needed, true)
				},
			})
		}
	}
	return decisions
}

// stakingRules deploys idle capital into the staking collaborator once it
// clears the configured reserve, and pulls back out in an emergency when
// liquidity runs low.
func (e *Engine) stakingRules(ctx context.Context, portfolio PortfolioState) []Decision {
	if !e.cfg.EnableStaking || e.staking == nil {
		return nil
	}
	var decisions []Decision
	price := e.solPrice(ctx)

	if portfolio.IdleUSD < e.cfg.StakeReserve/2 && portfolio.StakePosition > 0 {
		key := "EMERGENCY_UNSTAKE"
		if e.cooldownReady(ctx, key, hours(e.cfg.CooldownStakeHours)) && price > 0 {
			neededUSD := e.cfg.StakeReserve/2 - portfolio.IdleUSD
			amountSOL := min(neededUSD/price, portfolio.StakePosition)
			if amountSOL > 0 {
				decisions = append(decisions, Decision{
					Type:        EmergencyUnstake,
					Urgency:     UrgencyCritical,
					Tier:        TierAuto,
					ImpactUSD:   amountSOL * price,
					Description: fmt.Sprintf("emergency unstake %.4f SOL, idle below half reserve", amountSOL),
					CooldownKey: key,
					DryRun:      e.cfg.DryRun,
					Action: func() (string, error) {
						return e.staking.InstantUnstake(ctx, amountSOL)
					},
				})
			}
		}
	}

	if portfolio.IdleUSD > e.cfg.StakeReserve {
		key := "STAKE_IDLE"
		if e.cooldownReady(ctx, key, hours(e.cfg.CooldownStakeHours)) {
			amountUSD := (portfolio.IdleUSD - e.cfg.StakeReserve) * 0.8
			if portfolio.StakePositionUSD+amountUSD > e.cfg.StakeMaxPositionUSD {
				amountUSD = max(0, e.cfg.StakeMaxPositionUSD-portfolio.StakePositionUSD)
			}
			amountUSD = e.applyLearned(ctx, "STAKE_IDLE", amountUSD)
			if amountUSD >= e.cfg.StakeMinAmount && price > 0 {
				amountSOL := amountUSD / price
				decisions = append(decisions, Decision{
					Type:        StakeIdle,
					Urgency:     UrgencyLow,
					Tier:        TierAuto,
					ImpactUSD:   amountUSD,
					Description: fmt.Sprintf("stake %.4f SOL ($%.2f) of idle capital", amountSOL, amountUSD),
					CooldownKey: key,
					DryRun:      e.cfg.DryRun,
					Action: func() (string, error) {
						return e.staking.StakeSol(ctx, amountSOL)
					},
				})
			}
		}
	}
	return decisions
}

// predictionRules sizes Kelly bets over the prediction venue's scanned
// opportunities, adjusted by swarm intel and the learned Kelly multiplier.
func (e *Engine) predictionRules(ctx context.Context, intel IntelSummary) []Decision {
	if !e.cfg.EnablePrediction || e.prediction == nil {
		return nil
	}

	scoutCtx := map[string]any{
		"bullish":     intel.ScoutBullish,
		"priceMovers": intel.PriceMovers,
	}
	opportunities, err := e.prediction.ScanOpportunities(ctx, e.cfg.PredictionHeadroomUSD, scoutCtx)
	if err != nil {
		e.logger.Debug("scanning prediction opportunities", "error", err)
		return nil
	}

	kellyFraction := e.applyLearned(ctx, "PREDICTION_BET", e.cfg.PredictionKellyFraction)

	var decisions []Decision
	for _, opp := range opportunities {
		key := fmt.Sprintf("PREDICTION_BET_%s", opp.MarketID)
		if !e.cooldownReady(ctx, key, hours(e.cfg.CooldownPredictionHours)) {
			continue
		}

		edgeFraction := math.Abs(opp.Probability-0.5) * 2
		for _, mover := range intel.PriceMovers {
			if mover == opp.Token {
				edgeFraction *= 1.1
				break
			}
		}
		if edgeFraction < e.cfg.PredictionMinEdge {
			continue
		}

		betUSD := kellyFraction * opp.EdgeUSD
		betUSD = min(betUSD, e.cfg.PredictionMaxBetUSD, e.cfg.PredictionHeadroomUSD)
		if betUSD < 1 {
			continue
		}

		opp := opp
		urgency := UrgencyLow
		if edgeFraction > 2*e.cfg.PredictionMinEdge {
			urgency = UrgencyMedium
		}

		decisions = append(decisions, Decision{
			Type:        PredictionBet,
			Urgency:     urgency,
			Tier:        e.classifyTier(PredictionBet, urgency, betUSD, intel.MarketCondition),
			ImpactUSD:   betUSD,
			Description: fmt.Sprintf("bet $%.2f on %q (edge %.1f%%)", betUSD, opp.Question, edgeFraction*100),
			CooldownKey: key,
			DryRun:      e.cfg.DryRun,
			Action: func() (string, error) {
				return e.prediction.PlaceBuyOrder(ctx, opp.MarketID, opp.Token, betUSD)
			},
		})
	}
	return decisions
}

// lendingRules unwinds leverage when health drops below the configured
// floor; otherwise it chooses the best-spread LST loop and, separately,
// deploys idle stables above twice the stake reserve.
func (e *Engine) lendingRules(ctx context.Context, portfolio PortfolioState) []Decision {
	if !e.cfg.EnableLending || e.lending == nil {
		return nil
	}

	var decisions []Decision

	if portfolio.LendingBorrowed > 0 && portfolio.LendingHealth > 0 && portfolio.LendingHealth < e.cfg.LendingLoopHealthMin {
		key := "LENDING_UNWIND"
		if e.cooldownReady(ctx, key, hours(e.cfg.CooldownLendingHours)) {
			repayUSD := portfolio.LendingBorrowed * 0.3
			urgency := UrgencyHigh
			if portfolio.LendingHealth < 1.05 {
				urgency = UrgencyCritical
			}
			decisions = append(decisions, Decision{
				Type:        LendingUnwind,
				Urgency:     urgency,
				Tier:        e.classifyTier(LendingUnwind, urgency, repayUSD, ConditionNeutral),
				ImpactUSD:   repayUSD,
				Description: fmt.Sprintf("repay $%.2f, health factor %.2f below floor", repayUSD, portfolio.LendingHealth),
				CooldownKey: key,
				DryRun:      e.cfg.DryRun,
				Action: func() (string, error) {
					return e.lending.Repay(ctx, "USDC", repayUSD)
				},
			})
		}
		return decisions
	}

	if portfolio.LendingHealth > 0 && portfolio.LendingHealth < e.cfg.LendingHealthFactorMin {
		return decisions
	}

	lstAssets, err := e.lending.GetLstAssets(ctx)
	if err != nil {
		e.logger.Debug("listing LST lending assets", "error", err)
	} else if len(lstAssets) > 0 && portfolio.IdleUSD > e.cfg.StakeReserve {
		best := lstAssets[0]
		for _, a := range lstAssets[1:] {
			if (a.SupplyAPY - a.BorrowAPY) > (best.SupplyAPY - best.BorrowAPY) {
				best = a
			}
		}
		spreadPct := (best.SupplyAPY - best.BorrowAPY) * 100
		key := fmt.Sprintf("LENDING_LOOP_%s", best.Symbol)
		if spreadPct >= e.cfg.LendingMinSpreadPct && e.cooldownReady(ctx, key, hours(e.cfg.CooldownLendingHours)) {
			amount := e.applyLearned(ctx, "LENDING_LOOP", (portfolio.IdleUSD-e.cfg.StakeReserve)*0.5)
			if amount >= 10 {
				best := best
				loops := e.cfg.LendingLoopCount
				decisions = append(decisions, Decision{
					Type:        LendingLoop,
					Urgency:     UrgencyMedium,
					Tier:        TierApproval,
					ImpactUSD:   amount,
					Description: fmt.Sprintf("loop %s %dx, spread %.2f%%", best.Symbol, loops, spreadPct),
					CooldownKey: key,
					DryRun:      e.cfg.DryRun,
					Action: func() (string, error) {
						return e.lending.LoopLst(ctx, best.Symbol, amount, loops)
					},
				})
			}
		}
	}

	if portfolio.IdleUSD > e.cfg.StakeReserve*2 {
		key := "LENDING_DEPOSIT"
		if e.cooldownReady(ctx, key, hours(e.cfg.CooldownLendingHours)) {
			amount := portfolio.IdleUSD - e.cfg.StakeReserve*2
			if amount >= 100 {
				decisions = append(decisions, Decision{
					Type:        LendingDeposit,
					Urgency:     UrgencyLow,
					Tier:        e.classifyTier(LendingDeposit, UrgencyLow, amount, ConditionNeutral),
					ImpactUSD:   amount,
					Description: fmt.Sprintf("deposit $%.2f USDC into lending", amount),
					CooldownKey: key,
					DryRun:      e.cfg.DryRun,
					Action: func() (string, error) {
						return e.lending.Deposit(ctx, "USDC", amount)
					},
				})
			}
		}
	}

	return decisions
}

// lpRules rebalances out-of-range positions, claims fees on in-range
// ones, and opens new positions on the best-scoring discovered pool after
// applying the diversity rotation and recency gate.
func (e *Engine) lpRules(ctx context.Context, intel IntelSummary) []Decision {
	if !e.cfg.EnableLP {
		return nil
	}

	var decisions []Decision
	staleIntel := !intel.ScoutFresh && !intel.VolumeSpikeFresh

	for venueIdx, venue := range e.lpVenues {
		venue := venue
		positions, err := venue.GetPositions(ctx)
		if err != nil {
			e.logger.Debug("listing LP positions", "venue", venueIdx, "error", err)
		}

		for _, pos := range positions {
			pos := pos
			if !pos.InRange {
				key := fmt.Sprintf("LP_REBALANCE_%s", pos.PoolID)
				if e.cooldownReady(ctx, key, hours(e.cfg.CooldownLPHours)) {
					decisions = append(decisions, Decision{
						Type:        LPRebalance,
						Urgency:     UrgencyMedium,
						Tier:        e.classifyTier(LPRebalance, UrgencyMedium, e.cfg.LPOpenAmountUSD, intel.MarketCondition),
						ImpactUSD:   e.cfg.LPOpenAmountUSD,
						Description: fmt.Sprintf("rebalance out-of-range pool %s (%s)", pos.PoolID, pos.Pair),
						CooldownKey: key,
						DryRun:      e.cfg.DryRun,
						Action: func() (string, error) {
							return venue.RebalancePosition(ctx, pos.PoolID)
						},
					})
				}
				continue
			}

			key := fmt.Sprintf("LP_CLAIM_%s", pos.PoolID)
			if e.cooldownReady(ctx, key, hours(e.cfg.CooldownLPHours)) {
				decisions = append(decisions, Decision{
					Type:        LPClaim,
					Urgency:     UrgencyLow,
					Tier:        TierAuto,
					ImpactUSD:   0,
					Description: fmt.Sprintf("claim fees on pool %s (%s)", pos.PoolID, pos.Pair),
					CooldownKey: key,
					DryRun:      e.cfg.DryRun,
					Action: func() (string, error) {
						return venue.ClaimFees(ctx, pos.PoolID)
					},
				})
			}
		}

		if len(positions) > 0 {
			continue
		}

		key := fmt.Sprintf("LP_OPEN_%d", venueIdx)
		if !e.cooldownReady(ctx, key, hours(e.cfg.CooldownLPHours)) {
			continue
		}

		candidates, err := venue.DiscoverPools(ctx)
		if err != nil || len(candidates) == 0 {
			continue
		}

		if staleIntel {
			var safe []collab.LPPoolCandidate
			for _, c := range candidates {
				if c.Stablecoin {
					safe = append(safe, c)
				}
			}
			if len(safe) > 0 {
				candidates = safe
			}
		}

		now := time.Now()
		diversityWindow := hours(e.cfg.CooldownDiversityHours)
		sort.Slice(candidates, func(i, j int) bool {
			si, sj := adjustedPoolScore(candidates[i], now, diversityWindow, e.cfg.LPDiversityPenalty), adjustedPoolScore(candidates[j], now, diversityWindow, e.cfg.LPDiversityPenalty)
			if si != sj {
				return si > sj
			}
			if candidates[i].Stablecoin && candidates[j].Stablecoin {
				return candidates[i].TickSpacing < candidates[j].TickSpacing
			}
			return candidates[i].FeeTierBps > candidates[j].FeeTierBps
		})

		best := candidates[0]
		decisions = append(decisions, Decision{
			Type:        LPOpen,
			Urgency:     UrgencyLow,
			Tier:        e.classifyTier(LPOpen, UrgencyLow, e.cfg.LPOpenAmountUSD, intel.MarketCondition),
			ImpactUSD:   e.cfg.LPOpenAmountUSD,
			Description: fmt.Sprintf("open LP position on %s (%s, chain %s)", best.PoolID, best.Pair, best.Chain),
			CooldownKey: key,
			DryRun:      e.cfg.DryRun,
			Action: func() (string, error) {
				return venue.OpenPosition(ctx, best.PoolID, e.cfg.LPOpenAmountUSD, best.TickSpacing)
			},
		})
	}
	return decisions
}

// adjustedPoolScore applies the diversity rotation penalty to a pool
// candidate's raw score when it was opened within the rotation window.
func adjustedPoolScore(c collab.LPPoolCandidate, now time.Time, window time.Duration, penalty float64) float64 {
	if c.LastOpenedAt == 0 {
		return c.Score
	}
	openedAt := time.Unix(c.LastOpenedAt, 0)
	if now.Sub(openedAt) < window {
		return c.Score - penalty
	}
	return c.Score
}

// flashArbRules executes a bridge-sourced arbitrage opportunity whenever
// its precomputed net profit clears the configured minimum.
func (e *Engine) flashArbRules(ctx context.Context) []Decision {
	if !e.cfg.EnableFlashArb || e.bridge == nil {
		return nil
	}
	key := "FLASH_ARB"
	if !e.cooldownReady(ctx, key, hours(e.cfg.CooldownFlashArbHours)) {
		return nil
	}

	opp, err := e.bridge.ScanForOpportunity(ctx)
	if err != nil || opp == nil || opp.NetProfitUSD < e.cfg.FlashArbMinProfitUSD {
		return nil
	}

	opp2 := *opp
	return []Decision{{
		Type:        FlashArb,
		Urgency:     UrgencyMedium,
		Tier:        TierAuto,
		ImpactUSD:   opp2.NetProfitUSD,
		Description: fmt.Sprintf("flash arb %s, net profit $%.2f", opp2.Route, opp2.NetProfitUSD),
		CooldownKey: key,
		DryRun:      e.cfg.DryRun,
		Action: func() (string, error) {
			return e.bridge.ExecuteFlashArb(ctx, opp2)
		},
	}}
}
