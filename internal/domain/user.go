package domain

import (
	"context"
	"time"
)

// User representa a entidade do usuário no sistema.
// O email é sempre armazenado em minúsculas e é a identidade do usuário.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Oculta o hash da senha no JSON de resposta
	Role         UserRole  `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserRole é um tipo string para representar o papel do usuário no sistema.
type UserRole string

// Conjunto fechado de papéis.
const (
	RoleAdmin UserRole = "admin"
	RoleUser  UserRole = "user"
)

// Valid informa se o papel pertence ao conjunto conhecido.
func (r UserRole) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// UserRegistration representa o payload de entrada para o registro.
type UserRegistration struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required"`
}

// LoginResult é o que o serviço devolve num login bem-sucedido.
type LoginResult struct {
	AccessToken string
	ExpiresIn   time.Duration
}

// Stats resume a base para a rota administrativa.
type Stats struct {
	Users int64 `json:"users"`
	Items int64 `json:"items"`
}

// UserRepository define o contrato de persistência para a entidade User.
type UserRepository interface {
	Save(ctx context.Context, user User) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	UpdateRole(ctx context.Context, email string, role UserRole) error
	UpdatePasswordHash(ctx context.Context, id string, hash string) error
	Count(ctx context.Context) (int64, error)
}
