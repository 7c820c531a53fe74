// Package health expõe as rotas de verificação de saúde.
package health

import (
	"context"
	"net/http"
	"time"

	"gowatch/internal/pkg/logger"
	"gowatch/internal/pkg/requestid"
	"gowatch/internal/pkg/respond"
)

const probeTimeout = time.Second

// Pinger é satisfeito por *sql.DB e por cache.Client.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PingFunc adapta uma função a Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) PingContext(ctx context.Context) error { return f(ctx) }

// DetailedResponse é a resposta de GET /health/detailed.
type DetailedResponse struct {
	Status    string `json:"status"`
	Database  string `json:"database"`
	Redis     string `json:"redis"`
	RequestID string `json:"request_id"`
}

type Handler struct {
	DB     Pinger
	Redis  Pinger
	Logger logger.Logger
}

func NewHandler(db, redis Pinger, log logger.Logger) *Handler {
	return &Handler{DB: db, Redis: redis, Logger: log}
}

// Health é a verificação simples, sem dependências.
// @Summary Verificação de saúde
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Detailed consulta banco e Redis. Redis fora do ar degrada, mas não derruba a API.
// @Summary Verificação de saúde detalhada
// @Tags health
// @Produce json
// @Success 200 {object} DetailedResponse
// @Router /health/detailed [get]
func (h *Handler) Detailed(w http.ResponseWriter, r *http.Request) {
	resp := DetailedResponse{
		Status:    "ok",
		Database:  h.probe(r.Context(), "database", h.DB),
		Redis:     h.probe(r.Context(), "redis", h.Redis),
		RequestID: requestid.FromContext(r.Context()),
	}
	if resp.Database != "ok" || resp.Redis != "ok" {
		resp.Status = "degraded"
	}
	respond.JSON(w, http.StatusOK, resp)
}

func (h *Handler) probe(ctx context.Context, name string, p Pinger) string {
	if p == nil {
		return "unavailable"
	}
	ctxTimeout, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	if err := p.PingContext(ctxTimeout); err != nil {
		h.Logger.Warn("Dependência indisponível.", map[string]interface{}{"dependency": name, "error": err.Error()})
		return "unavailable"
	}
	return "ok"
}

// Ping lida com GET /ping.
func Ping(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("pong"))
}
