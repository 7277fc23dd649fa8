// Package app wires NOVA's swarm together: infrastructure, every worker
// agent, the supervisor, the decision engine, and the admin HTTP surface.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wisbric/nova/internal/config"
	"github.com/wisbric/nova/internal/db"
	"github.com/wisbric/nova/internal/httpserver"
	"github.com/wisbric/nova/internal/platform"
	"github.com/wisbric/nova/internal/telemetry"
	"github.com/wisbric/nova/pkg/agent"
	"github.com/wisbric/nova/pkg/bus"
	"github.com/wisbric/nova/pkg/cfo"
	"github.com/wisbric/nova/pkg/collab"
	"github.com/wisbric/nova/pkg/contentfilter"
	"github.com/wisbric/nova/pkg/learning"
	"github.com/wisbric/nova/pkg/messaging"
	"github.com/wisbric/nova/pkg/slack"
	"github.com/wisbric/nova/pkg/supervisor"
	"github.com/wisbric/nova/pkg/worker"
)

// Run is the application entry point. It reads config, connects to
// infrastructure, and starts the appropriate mode.
func Run(ctx context.Context, cfg *config.Config) error {
	logger := telemetry.NewLogger(cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(logger)

	logger.Info("starting nova", "mode", cfg.Mode, "listen", cfg.ListenAddr())

	if err := platform.RunMigrations(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("migrations applied")

	if cfg.Mode == "migrate" {
		return nil
	}

	pool, err := platform.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	rdb, err := platform.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Error("closing redis", "error", err)
		}
	}()

	metricsReg := telemetry.NewMetricsRegistry()

	switch cfg.Mode {
	case "decide-once":
		return runDecideOnce(ctx, cfg, logger, pool)
	case "swarm", "":
		return runSwarm(ctx, cfg, logger, pool, rdb, metricsReg)
	default:
		return fmt.Errorf("unknown mode: %s", cfg.Mode)
	}
}

// runDecideOnce runs a single CFO gather->consult->assess->decide->execute
// cycle against live infrastructure and exits, for cron-style invocation.
func runDecideOnce(ctx context.Context, cfg *config.Config, logger *slog.Logger, pool *pgxpool.Pool) error {
	b := bus.New(pool)
	queries := db.New(pool)
	learningEngine := learning.New(queries, logger)

	rt := agent.NewRuntime("nova-cfo", "cfo", b, queries, logger)
	engine := cfo.New(rt, cfg, learningEngine, noopDependencies(), nil)

	results := engine.RunCycle(ctx)
	logger.Info("decide-once cycle complete", "decisions", len(results))
	return nil
}

// runSwarm starts every worker agent, the supervisor, the CFO, and the
// admin HTTP surface, and blocks until ctx is cancelled.
func runSwarm(ctx context.Context, cfg *config.Config, logger *slog.Logger, pool *pgxpool.Pool, rdb *redis.Client, metricsReg *prometheus.Registry) error {
	b := bus.New(pool)
	queries := db.New(pool)

	gc := bus.NewGC(b, logger, time.Duration(cfg.BusGCIntervalHours)*time.Hour, time.Duration(cfg.BusAuditWindowHours)*time.Hour)
	go func() {
		if err := gc.Run(ctx); err != nil {
			logger.Error("bus gc stopped with error", "error", err)
		}
	}()

	learningEngine := learning.New(queries, logger)
	deps := noopDependencies()
	pollInterval := time.Duration(cfg.PollIntervalMS) * time.Millisecond

	msgRegistry := messaging.NewRegistry()
	if cfg.SlackBotToken != "" {
		notifier := slack.NewNotifier(cfg.SlackBotToken, cfg.SlackAdminChannel, logger)
		provider := slack.NewProvider(notifier, logger)
		msgRegistry.Register(provider)
		logger.Info("slack integration enabled", "channel", cfg.SlackAdminChannel)
	} else {
		logger.Info("slack integration disabled (SLACK_BOT_TOKEN not set)")
	}

	scout := worker.NewScout(agent.NewRuntime("nova-scout", "scout", b, queries, logger), deps.Market, pollInterval, cfg.WatchSymbols)
	guardian := worker.NewGuardian(agent.NewRuntime("nova-guardian", "guardian", b, queries, logger), deps.Perp, pollInterval, cfg.HLStopLossPct, cfg.HLLiquidationWarningPct)
	analyst := worker.NewAnalyst(agent.NewRuntime("nova-analyst", "analyst", b, queries, logger), deps.Lending, deps.Market, pollInterval, cfg.WatchSymbols)
	community := worker.NewCommunity(agent.NewRuntime("nova-community", "community", b, queries, logger), worker.NoopEngagementSource{}, pollInterval, time.Duration(cfg.CommunityBanWindowMin)*time.Minute, cfg.CommunityBanBurstMax)
	launcher := worker.NewLauncher(agent.NewRuntime("nova-launcher", "launcher", b, queries, logger), worker.NoopLaunchSource{}, pollInterval)
	health := worker.NewHealth(agent.NewRuntime("nova-health", "health", b, queries, logger), pollInterval)

	spawnChild := func(ctx context.Context, mintAddress, symbol string) (func(), error) {
		childRt := agent.NewRuntime(worker.ChildAgentName(mintAddress), "token-child", b, queries, logger)
		child := worker.NewTokenChild(childRt, deps.Market, mintAddress, symbol, pollInterval)
		if err := child.Start(ctx); err != nil {
			return nil, fmt.Errorf("starting token child %s: %w", mintAddress, err)
		}
		return child.Stop, nil
	}

	sup := supervisor.New(
		agent.NewRuntime("nova-supervisor", "supervisor", b, queries, logger),
		supervisor.Config{
			PollInterval:      pollInterval,
			BatchSize:         10,
			BriefingInterval:  time.Duration(cfg.BriefingIntervalMin) * time.Minute,
			NarrativeCooldown: time.Duration(cfg.CooldownNarrativeHours) * time.Hour,
		},
		msgRegistry,
		contentfilter.NewDefault(),
		spawnChild,
	)

	cfoEngine := cfo.New(agent.NewRuntime("nova-cfo", "cfo", b, queries, logger), cfg, learningEngine, deps, rdb)
	sup.SetPortfolioSource(cfoEngine.PortfolioLine)
	sup.SetCycleEvents(rdb, cfo.CycleCompleteChannel)

	agents := []interface{ Start(context.Context) error }{
		scout, guardian, analyst, community, launcher, health, sup, cfoEngine,
	}
	for _, a := range agents {
		if err := a.Start(ctx); err != nil {
			return fmt.Errorf("starting agent: %w", err)
		}
	}

	srv := httpserver.NewServer(cfg, logger, pool, rdb, metricsReg)
	if cfg.SlackSigningSecret != "" {
		slackHandler := slack.NewHandler(b, logger, cfg.SlackSigningSecret)
		srv.AdminHost.Mount("/slack", slackHandler.Routes())
	}

	httpSrv := &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      srv,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("admin http server listening", "addr", cfg.ListenAddr())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down swarm")
	case err := <-errCh:
		logger.Error("admin http server failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutting down http server", "error", err)
	}

	// CFO and the supervisor stop first so no new decisions or fan-out
	// are generated while workers and token children are still winding
	// down; the supervisor's own Stop() tears down every spawned child.
	cfoEngine.Stop()
	sup.Stop()
	for _, a := range []interface{ Stop() }{scout, guardian, analyst, community, launcher, health} {
		a.Stop()
	}

	return nil
}

// noopDependencies returns the collaborator set for venues with no
// concrete integration configured. Concrete venue wiring (Hyperliquid,
// Polymarket, Kamino, Orca/Raydium, deBridge) is out of scope; every
// mutating call simply reports collab.ErrNotConfigured and every rule
// block degrades to skipping that strategy.
func noopDependencies() cfo.Dependencies {
	return cfo.Dependencies{
		Wallet:     collab.NoopWallet{},
		Market:     collab.NoopMarketData{},
		Perp:       collab.NoopPerpVenue{},
		Prediction: collab.NoopPredictionVenue{},
		Staking:    collab.NoopStaking{},
		Lending:    collab.NoopLending{},
		LPVenues:   []collab.LPVenue{collab.NewNoopLPVenue("orca"), collab.NewNoopLPVenue("raydium")},
		Bridge:     collab.NoopBridge{},
	}
}
