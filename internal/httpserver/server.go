package httpserver

import (
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wisbric/nova/internal/config"
	"github.com/wisbric/nova/internal/version"
)

// Server is NOVA's admin HTTP surface: health/readiness, Prometheus metrics,
// a status summary, and (optionally) the Slack webhook router mounted by
// the caller.
type Server struct {
	Router    *chi.Mux
	AdminHost chi.Router // unauthenticated admin sub-router; providers mount webhooks here
	Logger    *slog.Logger
	DB        *pgxpool.Pool
	Redis     *redis.Client
	Metrics   *prometheus.Registry
	startedAt time.Time
}

// NewServer creates the HTTP server with middleware and health/metrics endpoints.
func NewServer(cfg *config.Config, logger *slog.Logger, db *pgxpool.Pool, rdb *redis.Client, metricsReg *prometheus.Registry) *Server {
	s := &Server{
		Router:    chi.NewRouter(),
		Logger:    logger,
		DB:        db,
		Redis:     rdb,
		Metrics:   metricsReg,
		startedAt: time.Now(),
	}

	s.Router.Use(RequestID)
	s.Router.Use(Logger(logger))
	s.Router.Use(Metrics)
	s.Router.Use(middleware.Recoverer)
	s.Router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	s.Router.Get("/healthz", s.handleHealthz)
	s.Router.Get("/readyz", s.handleReadyz)
	s.Router.Get(cfg.MetricsPath, promhttp.HandlerFor(metricsReg, promhttp.HandlerOpts{}).ServeHTTP)
	s.Router.Get("/status", s.HandleStatus)

	s.AdminHost = s.Router

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	Respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := s.DB.Ping(ctx); err != nil {
		s.Logger.Error("readiness check: database ping failed", "error", err)
		RespondError(w, http.StatusServiceUnavailable, "unavailable", "database not ready")
		return
	}

	if s.Redis != nil {
		if err := s.Redis.Ping(ctx).Err(); err != nil {
			s.Logger.Error("readiness check: redis ping failed", "error", err)
			RespondError(w, http.StatusServiceUnavailable, "unavailable", "redis not ready")
			return
		}
	}

	Respond(w, http.StatusOK, map[string]string{"status": "ready"})
}

// statusResponse is the JSON shape returned by HandleStatus.
type statusResponse struct {
	Status          string  `json:"status"`
	Version         string  `json:"version"`
	CommitSHA       string  `json:"commit_sha"`
	Uptime          string  `json:"uptime"`
	UptimeSeconds   int64   `json:"uptime_seconds"`
	Database        string  `json:"database"`
	DatabaseLatency float64 `json:"database_latency_ms"`
	Redis           string  `json:"redis"`
	RedisLatency    float64 `json:"redis_latency_ms"`
}

// HandleStatus returns system health information including DB/Redis
// connectivity and process uptime.
func (s *Server) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uptime := time.Since(s.startedAt)

	resp := statusResponse{
		Version:       version.Version,
		CommitSHA:     version.Commit,
		Uptime:        uptime.Truncate(time.Second).String(),
		UptimeSeconds: int64(uptime.Seconds()),
	}

	dbStart := time.Now()
	if err := s.DB.Ping(ctx); err != nil {
		s.Logger.Error("status check: database ping failed", "error", err)
		resp.Database = "error"
	} else {
		resp.Database = "ok"
	}
	resp.DatabaseLatency = math.Round(float64(time.Since(dbStart).Microseconds())/10) / 100

	if s.Redis != nil {
		redisStart := time.Now()
		if err := s.Redis.Ping(ctx).Err(); err != nil {
			s.Logger.Error("status check: redis ping failed", "error", err)
			resp.Redis = "error"
		} else {
			resp.Redis = "ok"
		}
		resp.RedisLatency = math.Round(float64(time.Since(redisStart).Microseconds())/10) / 100
	} else {
		resp.Redis = "disabled"
	}

	if resp.Database == "ok" && resp.Redis != "error" {
		resp.Status = "ok"
	} else {
		resp.Status = "degraded"
	}

	Respond(w, http.StatusOK, resp)
}
