package domain

import (
	"context"
	"time"
)

// MediaType é o tipo de mídia de um item.
type MediaType string

const (
	MediaMovie MediaType = "movie"
	MediaShow  MediaType = "show"
)

func (m MediaType) Valid() bool {
	return m == MediaMovie || m == MediaShow
}

// SortOrder define a ordenação da listagem.
type SortOrder string

const (
	SortCreatedAtAsc  SortOrder = "created_at_asc"
	SortCreatedAtDesc SortOrder = "created_at_desc"
)

func (s SortOrder) Valid() bool {
	return s == SortCreatedAtAsc || s == SortCreatedAtDesc
}

// Limites de paginação da listagem.
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// WatchlistItem pertence a exatamente um usuário.
type WatchlistItem struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	Title     string    `json:"title"`
	Type      MediaType `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

// ListQuery são os parâmetros já normalizados de uma listagem.
// Type vazio significa sem filtro.
type ListQuery struct {
	Skip  int
	Limit int
	Type  MediaType
	Sort  SortOrder
}

// NewItem é o payload de criação.
type NewItem struct {
	Title string    `json:"title" validate:"required,max=255"`
	Type  MediaType `json:"type" validate:"omitempty,oneof=movie show"`
}

// ItemPatch é o payload de atualização parcial; campos nil não mudam.
type ItemPatch struct {
	Title *string    `json:"title" validate:"omitempty,max=255"`
	Type  *MediaType `json:"type" validate:"omitempty,oneof=movie show"`
}

// WatchlistPage é o envelope da listagem.
type WatchlistPage struct {
	User      string          `json:"user"`
	Skip      int             `json:"skip"`
	Limit     int             `json:"limit"`
	Watchlist []WatchlistItem `json:"watchlist"`
}

// WatchlistRepository define o contrato de persistência dos itens.
// Update e Delete só afetam itens do userID informado; caso contrário devolvem NotFound.
type WatchlistRepository interface {
	FindByUser(ctx context.Context, userID string, q ListQuery) ([]WatchlistItem, error)
	Insert(ctx context.Context, item WatchlistItem) (WatchlistItem, error)
	Update(ctx context.Context, userID, itemID string, patch ItemPatch) (WatchlistItem, error)
	Delete(ctx context.Context, userID, itemID string) error
	Count(ctx context.Context) (int64, error)
}
