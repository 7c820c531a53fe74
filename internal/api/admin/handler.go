package admin

import (
	"context"
	"net/http"

	"gowatch/internal/domain"
	"gowatch/internal/pkg/logger"
	"gowatch/internal/pkg/respond"
)

// StatsService é o contrato do serviço de usuários usado aqui.
type StatsService interface {
	Stats(ctx context.Context) (domain.Stats, error)
}

// StatsResponse é a resposta de GET /v1/admin/stats.
type StatsResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Users   int64  `json:"users"`
	Items   int64  `json:"items"`
}

type Handler struct {
	Service StatsService
	Logger  logger.Logger
}

func NewHandler(svc StatsService, log logger.Logger) *Handler {
	return &Handler{Service: svc, Logger: log}
}

// StatsHandler lida com GET /v1/admin/stats. O papel admin é exigido pelo roteador.
// @Summary Totais de usuários e itens
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} StatsResponse
// @Failure 401 {object} domain.ErrorResponse "Não autenticado"
// @Failure 403 {object} domain.ErrorResponse "Papel admin exigido"
// @Router /admin/stats [get]
func (h *Handler) StatsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Service.Stats(r.Context())
	if err != nil {
		respond.Error(w, r, h.Logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, StatsResponse{
		Status:  "ok",
		Message: "Bem-vindo, admin.",
		Users:   stats.Users,
		Items:   stats.Items,
	})
}
