package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"gowatch/internal/api/admin"
	"gowatch/internal/api/health"
	"gowatch/internal/api/user"
	"gowatch/internal/api/watchlist"
	"gowatch/internal/domain"
	"gowatch/internal/pkg/logger"
	"gowatch/internal/pkg/metrics"
	"gowatch/internal/pkg/middleware"
	"gowatch/internal/pkg/ratelimit"
	"gowatch/internal/pkg/requestid"
)

// Deps reúne os handlers e a infraestrutura já inicializados por injeção de dependências.
type Deps struct {
	UserHandler      *user.Handler
	WatchlistHandler *watchlist.Handler
	AdminHandler     *admin.Handler
	HealthHandler    *health.Handler

	Tokens   middleware.SubjectVerifier
	Users    middleware.UserFinder
	Limiter  middleware.Admitter
	Policies map[string]ratelimit.Policy

	Logger   logger.Logger
	Metrics  metrics.Recorder
	Gatherer prometheus.Gatherer

	// TrustProxy habilita X-Forwarded-For/X-Real-IP como endereço do cliente.
	TrustProxy bool
}

// NewRouter configura e retorna o roteador HTTP principal.
//
// Ordem em cada rota protegida: rate limit → autenticação → handler.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	// --- 1. Middlewares globais ---
	if d.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(requestid.Middleware)
	r.Use(middleware.NewLoggingMiddleware(d.Logger, d.Metrics))
	r.Use(chimw.Recoverer)

	limit := func(action string, key middleware.KeyFunc) func(http.Handler) http.Handler {
		return middleware.RateLimit(d.Limiter, d.Policies[action], key, d.Logger)
	}
	byIP := middleware.ByIP()
	byIdentity := middleware.ByIdentityOrIP(d.Tokens)
	auth := middleware.NewAuthMiddleware(d.Tokens, d.Users, d.Logger)

	// --- 2. Rotas de Health Check e infraestrutura ---
	r.Get("/ping", health.Ping)
	r.Get("/health", d.HealthHandler.Health)
	r.Get("/health/detailed", d.HealthHandler.Detailed)
	if d.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(d.Gatherer))
	}
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	r.Route("/v1", func(r chi.Router) {
		// --- 3. Autenticação (limitada por endereço) ---
		r.Route("/auth", func(r chi.Router) {
			r.With(limit(ratelimit.ActionRegister, byIP)).Post("/register", d.UserHandler.RegisterUserHandler)
			r.With(limit(ratelimit.ActionLogin, byIP)).Post("/login", d.UserHandler.LoginUserHandler)
			r.With(limit(ratelimit.ActionWatchlistRead, byIdentity), auth).Get("/me", d.UserHandler.MeHandler)
		})

		// --- 4. Watchlist (limitada por identidade, senão endereço) ---
		r.Route("/watchlists", func(r chi.Router) {
			r.With(limit(ratelimit.ActionWatchlistRead, byIdentity), auth).Get("/", d.WatchlistHandler.ListHandler)

			r.Group(func(r chi.Router) {
				r.Use(limit(ratelimit.ActionWatchlistWrite, byIdentity), auth)
				r.Post("/items", d.WatchlistHandler.AddItemHandler)
				r.Patch("/items/{id}", d.WatchlistHandler.UpdateItemHandler)
				r.Delete("/items/{id}", d.WatchlistHandler.DeleteItemHandler)
			})
		})

		// --- 5. Administração ---
		r.With(
			limit(ratelimit.ActionAdmin, byIdentity),
			auth,
			middleware.RequireRole(domain.RoleAdmin, d.Logger),
		).Get("/admin/stats", d.AdminHandler.StatsHandler)
	})

	return r
}
