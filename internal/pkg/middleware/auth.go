package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"gowatch/internal/domain"
	apperror "gowatch/internal/errors"
	"gowatch/internal/pkg/logger"
	"gowatch/internal/pkg/respond"
)

// ContextKey é o tipo das chaves de contexto deste pacote.
type ContextKey int

const (
	UserKey ContextKey = iota
)

// UserFinder é a parte do repositório de usuários usada na autenticação.
type UserFinder interface {
	FindByEmail(ctx context.Context, email string) (domain.User, error)
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	scheme, tok, found := strings.Cut(authHeader, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	tok = strings.TrimSpace(tok)
	return tok, tok != ""
}

// Authenticate resolve o usuário da requisição: Bearer → verificação do token →
// busca do usuário. Qualquer falha de identidade responde 401 sem detalhar a causa.
func Authenticate(r *http.Request, tokens SubjectVerifier, users UserFinder) (domain.User, error) {
	// 1. Extrair o Token do Header Authorization: Bearer <token>
	tokenString, ok := bearerToken(r)
	if !ok {
		return domain.User{}, apperror.NewUnauthorizedError("Token de autorização ausente ou malformado.")
	}

	// 2. Validar o Token
	subject, err := tokens.Verify(tokenString)
	if err != nil {
		return domain.User{}, apperror.NewUnauthorizedError("Token inválido ou expirado.")
	}

	// 3. Buscar o usuário (pode ter sido removido depois da emissão do token)
	user, err := users.FindByEmail(r.Context(), strings.ToLower(subject))
	if err != nil {
		var nf *apperror.NotFoundError
		if errors.As(err, &nf) {
			return domain.User{}, apperror.NewUnauthorizedError("Usuário não encontrado.")
		}
		return domain.User{}, err
	}
	return user, nil
}

// NewAuthMiddleware anexa o domain.User autenticado ao contexto da requisição.
func NewAuthMiddleware(tokens SubjectVerifier, users UserFinder, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := Authenticate(r, tokens, users)
			if err != nil {
				respond.Error(w, r, log, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// WithUser anexa o usuário ao contexto.
func WithUser(ctx context.Context, user domain.User) context.Context {
	return context.WithValue(ctx, UserKey, user)
}

// UserFromContext é uma função utilitária para extrair o usuário no handler.
func UserFromContext(ctx context.Context) (domain.User, bool) {
	user, ok := ctx.Value(UserKey).(domain.User)
	return user, ok
}

// CheckRole devolve ForbiddenError se o papel do usuário não for o exigido.
func CheckRole(user domain.User, role domain.UserRole) error {
	if user.Role != role {
		return apperror.NewForbiddenError("Acesso negado. Você não tem a permissão necessária.")
	}
	return nil
}

// RequireRole deve rodar depois de NewAuthMiddleware.
func RequireRole(role domain.UserRole, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				respond.Error(w, r, log, apperror.NewUnauthorizedError("Autorização necessária."))
				return
			}
			if err := CheckRole(user, role); err != nil {
				respond.Error(w, r, log, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
