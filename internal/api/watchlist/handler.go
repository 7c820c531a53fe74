package watchlist

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"gowatch/internal/domain"
	apperror "gowatch/internal/errors"
	"gowatch/internal/pkg/logger"
	"gowatch/internal/pkg/middleware"
	"gowatch/internal/pkg/respond"
	"gowatch/internal/service/watchlistservice"
)

// WatchlistService define o contrato que o Handler espera da camada de Serviço.
type WatchlistService interface {
	List(ctx context.Context, user domain.User, p watchlistservice.ListParams) ([]byte, error)
	Add(ctx context.Context, user domain.User, in domain.NewItem) (domain.WatchlistItem, error)
	Update(ctx context.Context, user domain.User, itemID string, patch domain.ItemPatch) (domain.WatchlistItem, error)
	Delete(ctx context.Context, user domain.User, itemID string) error
}

// ItemResponse envolve o item criado ou alterado.
type ItemResponse struct {
	Status string               `json:"status"`
	Item   domain.WatchlistItem `json:"item"`
}

// Handler agrupa os métodos de Handler da watchlist.
type Handler struct {
	Service WatchlistService
	Logger  logger.Logger
}

// NewHandler cria uma nova instância do Handler.
func NewHandler(svc WatchlistService, log logger.Logger) *Handler {
	return &Handler{
		Service: svc,
		Logger:  log,
	}
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.NewValidationError(fmt.Sprintf("O parâmetro '%s' deve ser um inteiro.", name))
	}
	return n, nil
}

func currentUser(r *http.Request) (domain.User, error) {
	u, ok := middleware.UserFromContext(r.Context())
	if !ok {
		return domain.User{}, apperror.NewUnauthorizedError("Não autenticado.")
	}
	return u, nil
}

// ListHandler lida com GET /v1/watchlists/.
// @Summary Lista a watchlist do usuário
// @Description Paginação com skip (>= 0) e limit (1 a 100); filtro por tipo e ordenação por data de criação.
// @Tags watchlist
// @Produce json
// @Security BearerAuth
// @Param skip query int false "Itens a pular" default(0)
// @Param limit query int false "Tamanho da página" default(20)
// @Param type query string false "Filtro de tipo" Enums(movie, show)
// @Param sort query string false "Ordenação" Enums(created_at_asc, created_at_desc)
// @Success 200 {object} domain.WatchlistPage
// @Failure 400 {object} domain.ErrorResponse "Parâmetro inválido"
// @Failure 401 {object} domain.ErrorResponse "Não autenticado"
// @Failure 429 {object} domain.ErrorResponse "Limite de requisições excedido"
// @Router /watchlists/ [get]
func (h *Handler) ListHandler(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		respond.Error(w, r, h.Logger, err)
		return
	}

	// 1. Parâmetros de consulta
	skip, err := queryInt(r, "skip", 0)
	if err != nil {
		respond.Error(w, r, h.Logger, err)
		return
	}
	limit, err := queryInt(r, "limit", domain.DefaultListLimit)
	if err != nil {
		respond.Error(w, r, h.Logger, err)
		return
	}

	// 2. Serviço (o corpo pode vir pronto do cache)
	body, err := h.Service.List(r.Context(), user, watchlistservice.ListParams{
		Skip:  skip,
		Limit: limit,
		Type:  r.URL.Query().Get("type"),
		Sort:  r.URL.Query().Get("sort"),
	})
	if err != nil {
		respond.Error(w, r, h.Logger, err)
		return
	}
	respond.RawJSON(w, http.StatusOK, body)
}

// AddItemHandler lida com POST /v1/watchlists/items.
// @Summary Adiciona um item à watchlist
// @Tags watchlist
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param item body domain.NewItem true "Título e tipo (movie por padrão)"
// @Success 201 {object} ItemResponse
// @Failure 400 {object} domain.ErrorResponse "Payload inválido"
// @Failure 401 {object} domain.ErrorResponse "Não autenticado"
// @Failure 429 {object} domain.ErrorResponse "Limite de requisições excedido"
// @Router /watchlists/items [post]
func (h *Handler) AddItemHandler(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		respond.Error(w, r, h.Logger, err)
		return
	}

	var in domain.NewItem
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.Error(w, r, h.Logger, apperror.NewValidationError("Payload JSON inválido."))
		return
	}

	item, err := h.Service.Add(r.Context(), user, in)
	if err != nil {
		respond.Error(w, r, h.Logger, err)
		return
	}
	respond.JSON(w, http.StatusCreated, ItemResponse{Status: "ok", Item: item})
}

// UpdateItemHandler lida com PATCH /v1/watchlists/items/{id}.
// @Summary Atualiza parcialmente um item
// @Tags watchlist
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID do item"
// @Param patch body domain.ItemPatch true "Campos a alterar"
// @Success 200 {object} ItemResponse
// @Failure 400 {object} domain.ErrorResponse "Payload inválido"
// @Failure 404 {object} domain.ErrorResponse "Item não encontrado"
// @Router /watchlists/items/{id} [patch]
func (h *Handler) UpdateItemHandler(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		respond.Error(w, r, h.Logger, err)
		return
	}

	var patch domain.ItemPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		respond.Error(w, r, h.Logger, apperror.NewValidationError("Payload JSON inválido."))
		return
	}

	item, err := h.Service.Update(r.Context(), user, chi.URLParam(r, "id"), patch)
	if err != nil {
		respond.Error(w, r, h.Logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, ItemResponse{Status: "ok", Item: item})
}

// DeleteItemHandler lida com DELETE /v1/watchlists/items/{id}.
// @Summary Remove um item
// @Tags watchlist
// @Security BearerAuth
// @Param id path string true "ID do item"
// @Success 204
// @Failure 404 {object} domain.ErrorResponse "Item não encontrado"
// @Router /watchlists/items/{id} [delete]
func (h *Handler) DeleteItemHandler(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		respond.Error(w, r, h.Logger, err)
		return
	}

	if err := h.Service.Delete(r.Context(), user, chi.URLParam(r, "id")); err != nil {
		respond.Error(w, r, h.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
