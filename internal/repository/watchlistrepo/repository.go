package watchlistrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"gowatch/internal/domain"
	apperror "gowatch/internal/errors"
	"gowatch/internal/pkg/database"
	"gowatch/internal/pkg/logger"
)

const itemColumns = `id, user_id, title, media_type, created_at`

// WatchlistRepository implementa a interface domain.WatchlistRepository.
// Toda operação de escrita filtra por user_id: item de outro usuário se comporta como inexistente.
type WatchlistRepository struct {
	DB        *database.DB
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewWatchlistRepository cria uma nova instância do repositório.
func NewWatchlistRepository(db *database.DB, dbTimeout time.Duration, logger logger.Logger) *WatchlistRepository {
	return &WatchlistRepository{
		DB:        db,
		DBTimeout: dbTimeout,
		logger:    logger,
	}
}

func itemNotFound(id string) error {
	return apperror.NewNotFoundError(fmt.Sprintf("Item '%s' não encontrado.", id))
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanItem(s scanner) (domain.WatchlistItem, error) {
	var it domain.WatchlistItem
	var mediaType string
	if err := s.Scan(&it.ID, &it.UserID, &it.Title, &mediaType, &it.CreatedAt); err != nil {
		return domain.WatchlistItem{}, err
	}
	it.Type = domain.MediaType(mediaType)
	it.CreatedAt = it.CreatedAt.UTC()
	return it, nil
}

// FindByUser lista os itens do usuário com filtro, ordenação e paginação já normalizados.
func (r *WatchlistRepository) FindByUser(ctx context.Context, userID string, q domain.ListQuery) ([]domain.WatchlistItem, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	// 1. Monta a query de acordo com os filtros
	var sb strings.Builder
	args := []interface{}{userID}
	sb.WriteString(`SELECT ` + itemColumns + ` FROM watchlist_items WHERE user_id = $1`)
	if q.Type != "" {
		args = append(args, string(q.Type))
		fmt.Fprintf(&sb, ` AND media_type = $%d`, len(args))
	}
	if q.Sort == domain.SortCreatedAtAsc {
		sb.WriteString(` ORDER BY created_at ASC, id ASC`)
	} else {
		sb.WriteString(` ORDER BY created_at DESC, id DESC`)
	}
	args = append(args, q.Limit)
	fmt.Fprintf(&sb, ` LIMIT $%d`, len(args))
	args = append(args, q.Skip)
	fmt.Fprintf(&sb, ` OFFSET $%d`, len(args))

	// 2. Executa
	rows, err := r.DB.QueryContext(ctxTimeout, r.DB.Rebind(sb.String()), args...)
	if err != nil {
		r.logger.Error("Falha ao listar itens da watchlist.", err)
		return nil, apperror.NewDBError("failed to list watchlist items", err)
	}
	defer rows.Close()

	// 3. Mapeia
	items := make([]domain.WatchlistItem, 0, q.Limit)
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, apperror.NewDBError("failed to scan watchlist item", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDBError("failed to iterate watchlist items", err)
	}

	r.logger.Debug("Itens da watchlist listados.", map[string]interface{}{"user_id": userID, "count": len(items)})
	return items, nil
}

// Insert grava um item novo, gerando ID e data de criação.
func (r *WatchlistRepository) Insert(ctx context.Context, item domain.WatchlistItem) (domain.WatchlistItem, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	item.ID = uuid.NewString()
	item.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)

	_, err := r.DB.ExecContext(ctxTimeout,
		r.DB.Rebind(`INSERT INTO watchlist_items (`+itemColumns+`) VALUES ($1, $2, $3, $4, $5)`),
		item.ID, item.UserID, item.Title, string(item.Type), item.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Falha ao inserir item na watchlist.", err)
		return domain.WatchlistItem{}, apperror.NewDBError("failed to insert watchlist item", err)
	}

	r.logger.Info("Item adicionado à watchlist.", map[string]interface{}{"item_id": item.ID, "user_id": item.UserID})
	return item, nil
}

// Update aplica a alteração parcial e devolve o item atualizado num único comando (RETURNING).
func (r *WatchlistRepository) Update(ctx context.Context, userID, itemID string, patch domain.ItemPatch) (domain.WatchlistItem, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	var sets []string
	var args []interface{}
	if patch.Title != nil {
		args = append(args, *patch.Title)
		sets = append(sets, fmt.Sprintf("title = $%d", len(args)))
	}
	if patch.Type != nil {
		args = append(args, string(*patch.Type))
		sets = append(sets, fmt.Sprintf("media_type = $%d", len(args)))
	}

	var query string
	if len(sets) == 0 {
		// nada para alterar: apenas confirma a posse e devolve o item
		query = `SELECT ` + itemColumns + ` FROM watchlist_items WHERE id = $1 AND user_id = $2`
	} else {
		query = fmt.Sprintf(`UPDATE watchlist_items SET %s WHERE id = $%d AND user_id = $%d RETURNING `+itemColumns,
			strings.Join(sets, ", "), len(args)+1, len(args)+2)
	}
	args = append(args, itemID, userID)

	item, err := scanItem(r.DB.QueryRowContext(ctxTimeout, r.DB.Rebind(query), args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.WatchlistItem{}, itemNotFound(itemID)
		}
		r.logger.Error("Falha ao atualizar item da watchlist.", err)
		return domain.WatchlistItem{}, apperror.NewDBError("failed to update watchlist item", err)
	}
	return item, nil
}

// Delete remove o item se pertencer ao usuário.
func (r *WatchlistRepository) Delete(ctx context.Context, userID, itemID string) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	res, err := r.DB.ExecContext(ctxTimeout, r.DB.Rebind(`DELETE FROM watchlist_items WHERE id = $1 AND user_id = $2`), itemID, userID)
	if err != nil {
		r.logger.Error("Falha ao remover item da watchlist.", err)
		return apperror.NewDBError("failed to delete watchlist item", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperror.NewDBError("failed to read affected rows", err)
	}
	if n == 0 {
		return itemNotFound(itemID)
	}
	return nil
}

// Count devolve o total de itens de todos os usuários.
func (r *WatchlistRepository) Count(ctx context.Context) (int64, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	var n int64
	if err := r.DB.QueryRowContext(ctxTimeout, `SELECT COUNT(*) FROM watchlist_items`).Scan(&n); err != nil {
		r.logger.Error("Falha ao contar itens.", err)
		return 0, apperror.NewDBError("failed to count watchlist items", err)
	}
	return n, nil
}
