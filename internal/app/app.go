// Package app monta o grafo de dependências do servidor HTTP.
package app

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"gowatch/config"
	"gowatch/internal/api/admin"
	"gowatch/internal/api/health"
	"gowatch/internal/api/router"
	"gowatch/internal/api/user"
	"gowatch/internal/api/watchlist"
	"gowatch/internal/pkg/audit"
	"gowatch/internal/pkg/cache"
	"gowatch/internal/pkg/database"
	"gowatch/internal/pkg/logger"
	"gowatch/internal/pkg/metrics"
	"gowatch/internal/pkg/password"
	"gowatch/internal/pkg/ratelimit"
	"gowatch/internal/pkg/token"
	"gowatch/internal/repository/userrepo"
	"gowatch/internal/repository/watchlistrepo"
	"gowatch/internal/service/userservice"
	"gowatch/internal/service/watchlistservice"
)

// Deps são os recursos de infraestrutura já abertos pelo chamador.
type Deps struct {
	Config *config.Config
	DB     *database.DB
	// Store guarda os contadores do rate limit e o cache de respostas.
	Store    cache.Client
	Logger   logger.Logger
	Audit    audit.Recorder
	Metrics  metrics.Recorder
	// Gatherer expõe /metrics; nil desativa a rota.
	Gatherer prometheus.Gatherer
	// Now pode ser nil (relógio do sistema).
	Now    func() time.Time
	Hasher *password.Hasher
}

// App expõe o handler HTTP e os serviços montados.
type App struct {
	Handler   http.Handler
	Users     *userservice.UserService
	Watchlist *watchlistservice.Service
	Tokens    *token.Service
}

// Build faz a injeção de dependências. Ordem: Repository -> Service -> Handler.
func Build(d Deps) (*App, error) {
	cfg := d.Config
	log := d.Logger
	now := d.Now
	if now == nil {
		now = time.Now
	}

	rec := metrics.OrNop(d.Metrics)

	hasher := d.Hasher
	if hasher == nil {
		hasher = password.NewDefaultHasher()
	}

	// 1. Token e infraestrutura compartilhada
	tokenSvc, err := token.NewService(cfg.JWTSecretKey, cfg.JWTAlgorithm, cfg.TokenExpiry, now)
	if err != nil {
		return nil, err
	}
	limiter := ratelimit.NewLimiter(d.Store, cfg.CacheTimeout, now, log, rec)
	responseCache := cache.NewResponseCache(d.Store, cfg.CacheTTL, cfg.CacheTimeout, log, rec)

	// 2. Repositórios
	userRepo := userrepo.NewUserRepository(d.DB, cfg.DBTimeout, log)
	watchlistRepo := watchlistrepo.NewWatchlistRepository(d.DB, cfg.DBTimeout, log)
	log.Debug("Repositórios inicializados.", nil)

	// 3. Serviços
	userSvc := userservice.NewService(userRepo, watchlistRepo, tokenSvc, hasher, log, d.Audit)
	watchlistSvc := watchlistservice.NewService(watchlistRepo, responseCache, log, d.Audit)

	// 4. Handlers e roteador
	var redisProbe health.Pinger
	if d.Store != nil {
		redisProbe = health.PingFunc(d.Store.Ping)
	}

	handler := router.NewRouter(router.Deps{
		UserHandler:      user.NewHandler(userSvc, log),
		WatchlistHandler: watchlist.NewHandler(watchlistSvc, log),
		AdminHandler:     admin.NewHandler(userSvc, log),
		HealthHandler:    health.NewHandler(d.DB, redisProbe, log),
		Tokens:           tokenSvc,
		Users:            userRepo,
		Limiter:          limiter,
		Policies:         cfg.RateLimits,
		Logger:           log,
		Metrics:          rec,
		Gatherer:         d.Gatherer,
		TrustProxy:       cfg.TrustProxy,
	})

	return &App{
		Handler:   handler,
		Users:     userSvc,
		Watchlist: watchlistSvc,
		Tokens:    tokenSvc,
	}, nil
}
