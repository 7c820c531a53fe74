// Package watchlistservice implementa as operações da watchlist com cache de leitura.
package watchlistservice

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"gowatch/internal/domain"
	apperror "gowatch/internal/errors"
	"gowatch/internal/pkg/audit"
	"gowatch/internal/pkg/logger"
	"gowatch/internal/pkg/validation"
)

// ResponseCache é o contrato de internal/pkg/cache.ResponseCache.
type ResponseCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte)
	InvalidatePrefix(ctx context.Context, prefix string) int64
}

// ListParams são os parâmetros de listagem como chegaram do cliente.
type ListParams struct {
	Skip  int
	Limit int
	Type  string
	Sort  string
}

// Service orquestra repositório, cache e auditoria.
type Service struct {
	repo      domain.WatchlistRepository
	cache     ResponseCache
	validator *validation.Validator
	logger    logger.Logger
	audit     audit.Recorder
}

// NewService cria o serviço. auditor pode ser nil.
func NewService(repo domain.WatchlistRepository, cache ResponseCache, log logger.Logger, auditor audit.Recorder) *Service {
	if auditor == nil {
		auditor = audit.Nop{}
	}
	return &Service{
		repo:      repo,
		cache:     cache,
		validator: validation.New(),
		logger:    log,
		audit:     auditor,
	}
}

// Namespace é o prefixo de todas as entradas de cache de um usuário.
func Namespace(email string) string {
	return "watchlist:" + email + ":"
}

// CacheKey inclui o usuário e todos os parâmetros que alteram a resposta.
func CacheKey(email string, q domain.ListQuery) string {
	return fmt.Sprintf("%sskip=%d:limit=%d:type=%s:sort=%s", Namespace(email), q.Skip, q.Limit, q.Type, q.Sort)
}

// Normalize ajusta a paginação aos limites e valida tipo e ordenação.
func Normalize(p ListParams) (domain.ListQuery, error) {
	q := domain.ListQuery{Skip: p.Skip, Limit: p.Limit}
	if q.Skip < 0 {
		q.Skip = 0
	}
	if q.Limit < 1 {
		q.Limit = 1
	}
	if q.Limit > domain.MaxListLimit {
		q.Limit = domain.MaxListLimit
	}

	if p.Type != "" {
		q.Type = domain.MediaType(p.Type)
		if !q.Type.Valid() {
			return domain.ListQuery{}, apperror.NewValidationError(fmt.Sprintf("Tipo inválido: '%s'. Use movie ou show.", p.Type))
		}
	}

	q.Sort = domain.SortCreatedAtDesc
	if p.Sort != "" {
		q.Sort = domain.SortOrder(p.Sort)
		if !q.Sort.Valid() {
			return domain.ListQuery{}, apperror.NewValidationError(fmt.Sprintf("Ordenação inválida: '%s'.", p.Sort))
		}
	}
	return q, nil
}

// List devolve o envelope serializado da listagem. Um HIT não toca o banco.
func (s *Service) List(ctx context.Context, user domain.User, p ListParams) ([]byte, error) {
	// 1. Normalização dos parâmetros
	q, err := Normalize(p)
	if err != nil {
		return nil, err
	}

	// 2. Cache
	key := CacheKey(user.Email, q)
	if body, ok := s.cache.Get(ctx, key); ok {
		return body, nil
	}

	// 3. Banco
	items, err := s.repo.FindByUser(ctx, user.ID, q)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.WatchlistItem{}
	}

	body, err := json.Marshal(domain.WatchlistPage{
		User:      user.Email,
		Skip:      q.Skip,
		Limit:     q.Limit,
		Watchlist: items,
	})
	if err != nil {
		return nil, apperror.NewInternalError("Falha ao serializar a watchlist.", err)
	}

	// 4. Popula o cache (falha apenas registrada)
	s.cache.Set(ctx, key, body)
	return body, nil
}

// Add cria um item; o tipo padrão é movie.
func (s *Service) Add(ctx context.Context, user domain.User, in domain.NewItem) (domain.WatchlistItem, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := s.validator.Struct(in); err != nil {
		return domain.WatchlistItem{}, err
	}
	if in.Type == "" {
		in.Type = domain.MediaMovie
	}

	item, err := s.repo.Insert(ctx, domain.WatchlistItem{
		UserID: user.ID,
		Title:  in.Title,
		Type:   in.Type,
	})
	if err != nil {
		return domain.WatchlistItem{}, err
	}

	s.afterWrite(ctx, user, fmt.Sprintf("user=%s action=add_item item=%s", user.Email, item.ID))
	return item, nil
}

// Update aplica a atualização parcial. Item de outro usuário é NotFound.
func (s *Service) Update(ctx context.Context, user domain.User, itemID string, patch domain.ItemPatch) (domain.WatchlistItem, error) {
	if patch.Title != nil {
		trimmed := strings.TrimSpace(*patch.Title)
		if trimmed == "" {
			return domain.WatchlistItem{}, apperror.NewValidationError("O campo 'title' não pode ser vazio.")
		}
		patch.Title = &trimmed
	}
	if err := s.validator.Struct(patch); err != nil {
		return domain.WatchlistItem{}, err
	}

	item, err := s.repo.Update(ctx, user.ID, itemID, patch)
	if err != nil {
		return domain.WatchlistItem{}, err
	}

	s.afterWrite(ctx, user, fmt.Sprintf("user=%s action=update_item item=%s", user.Email, item.ID))
	return item, nil
}

// Delete remove o item do usuário.
func (s *Service) Delete(ctx context.Context, user domain.User, itemID string) error {
	if err := s.repo.Delete(ctx, user.ID, itemID); err != nil {
		return err
	}
	s.afterWrite(ctx, user, fmt.Sprintf("user=%s action=delete_item item=%s", user.Email, itemID))
	return nil
}

// Count é usado pelas estatísticas administrativas.
func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}

// afterWrite roda depois do commit: invalida o namespace inteiro do usuário
// (todas as combinações de paginação e filtro) e registra a auditoria.
func (s *Service) afterWrite(ctx context.Context, user domain.User, event string) {
	deleted := s.cache.InvalidatePrefix(ctx, Namespace(user.Email))
	s.logger.Debug("Cache da watchlist invalidado.", map[string]interface{}{
		"user_id": user.ID,
		"deleted": deleted,
	})
	s.audit.Record(event)
}
