package userrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"gowatch/internal/domain"
	apperror "gowatch/internal/errors"
	"gowatch/internal/pkg/database"
	"gowatch/internal/pkg/logger"
)

const (
	insertUserSQL = `INSERT INTO users (id, email, password_hash, role, created_at)
                  VALUES ($1, $2, $3, $4, $5)`
	findByEmailSQL    = `SELECT id, email, password_hash, role, created_at FROM users WHERE email = $1`
	updateRoleSQL     = `UPDATE users SET role = $1 WHERE email = $2`
	updatePasswordSQL = `UPDATE users SET password_hash = $1 WHERE id = $2`
	countUsersSQL     = `SELECT COUNT(*) FROM users`
)

// UserRepository implementa a interface domain.UserRepository
type UserRepository struct {
	DB        *database.DB
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewUserRepository cria uma nova instância do UserRepository, injetando o DB.
func NewUserRepository(db *database.DB, dbTimeout time.Duration, logger logger.Logger) *UserRepository {
	return &UserRepository{
		DB:        db,
		DBTimeout: dbTimeout,
		logger:    logger,
	}
}

// Save insere um novo usuário no banco de dados. Email duplicado vira ConflictError.
func (r *UserRepository) Save(ctx context.Context, user domain.User) (domain.User, error) {
	r.logger.Debug("Iniciando Save de usuário no repositório.", map[string]interface{}{"email": user.Email})

	// 1. Configura Contexto com Timeout
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	// 2. Prepara dados e ID
	user.ID = uuid.NewString()
	user.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)

	// 3. Executa o INSERT
	_, err := r.DB.ExecContext(
		ctxTimeout,
		r.DB.Rebind(insertUserSQL),
		user.ID,
		user.Email,
		user.PasswordHash,
		string(user.Role),
		user.CreatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return domain.User{}, apperror.NewConflictError("Email já cadastrado.")
		}
		r.logger.Error("Falha ao inserir usuário no DB.", err)
		return domain.User{}, apperror.NewDBError("failed to insert user", err)
	}

	r.logger.Info("Usuário salvo com sucesso no repositório.", map[string]interface{}{"user_id": user.ID})
	return user, nil
}

// FindByEmail busca um usuário pelo endereço de e-mail (já normalizado pelo chamador).
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	row := r.DB.QueryRowContext(ctxTimeout, r.DB.Rebind(findByEmailSQL), email)

	var user domain.User
	var role string
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &role, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.logger.Debug("Usuário não encontrado no DB por email.", map[string]interface{}{"email": email})
			return domain.User{}, apperror.NewNotFoundError(fmt.Sprintf("Usuário com email '%s' não encontrado", email))
		}
		r.logger.Error("Falha ao buscar usuário por email no DB.", err)
		return domain.User{}, apperror.NewDBError("failed to find user by email", err)
	}
	user.Role = domain.UserRole(role)

	return user, nil
}

// UpdateRole altera o papel do usuário.
func (r *UserRepository) UpdateRole(ctx context.Context, email string, role domain.UserRole) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	res, err := r.DB.ExecContext(ctxTimeout, r.DB.Rebind(updateRoleSQL), string(role), email)
	if err != nil {
		r.logger.Error("Falha ao atualizar papel do usuário.", err)
		return apperror.NewDBError("failed to update user role", err)
	}
	return requireAffected(res, fmt.Sprintf("Usuário com email '%s' não encontrado", email))
}

// UpdatePasswordHash troca o hash armazenado (rehash após login).
func (r *UserRepository) UpdatePasswordHash(ctx context.Context, id string, hash string) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	res, err := r.DB.ExecContext(ctxTimeout, r.DB.Rebind(updatePasswordSQL), hash, id)
	if err != nil {
		r.logger.Error("Falha ao atualizar hash de senha.", err)
		return apperror.NewDBError("failed to update password hash", err)
	}
	return requireAffected(res, fmt.Sprintf("Usuário '%s' não encontrado", id))
}

// Count devolve o total de usuários.
func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	var n int64
	if err := r.DB.QueryRowContext(ctxTimeout, countUsersSQL).Scan(&n); err != nil {
		r.logger.Error("Falha ao contar usuários.", err)
		return 0, apperror.NewDBError("failed to count users", err)
	}
	return n, nil
}

func requireAffected(res sql.Result, notFoundMsg string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return apperror.NewDBError("failed to read affected rows", err)
	}
	if n == 0 {
		return apperror.NewNotFoundError(notFoundMsg)
	}
	return nil
}
