package userservice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gowatch/internal/domain"
	apperror "gowatch/internal/errors"
	"gowatch/internal/pkg/audit"
	"gowatch/internal/pkg/logger"
	"gowatch/internal/pkg/password"
	"gowatch/internal/pkg/validation"
)

// TokenIssuer é o contrato da camada de token (internal/pkg/token).
type TokenIssuer interface {
	Issue(subject string) (string, error)
	Expiry() time.Duration
}

// PasswordHasher é o contrato de internal/pkg/password.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, hash string) bool
	NeedsRehash(hash string) bool
}

// ItemCounter é usado apenas pelas estatísticas administrativas.
type ItemCounter interface {
	Count(ctx context.Context) (int64, error)
}

// UserService define o serviço de lógica de negócio para a entidade User.
type UserService struct {
	UserRepo  domain.UserRepository
	Items     ItemCounter
	TokenSvc  TokenIssuer
	Hasher    PasswordHasher
	validator *validation.Validator
	logger    logger.Logger
	audit     audit.Recorder
}

// NewService cria uma nova instância do UserService.
func NewService(repo domain.UserRepository, items ItemCounter, tokenSvc TokenIssuer, hasher PasswordHasher, log logger.Logger, auditor audit.Recorder) *UserService {
	if auditor == nil {
		auditor = audit.Nop{}
	}
	return &UserService{
		UserRepo:  repo,
		Items:     items,
		TokenSvc:  tokenSvc,
		Hasher:    hasher,
		validator: validation.New(),
		logger:    log,
		audit:     auditor,
	}
}

// NormalizeEmail é aplicada antes de qualquer busca ou gravação.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register registra um novo usuário com papel "user".
func (s *UserService) Register(ctx context.Context, registration domain.UserRegistration) (domain.User, error) {
	// 1. Validação do payload e das regras de senha
	registration.Email = NormalizeEmail(registration.Email)
	if err := s.validator.Struct(registration); err != nil {
		return domain.User{}, err
	}
	if err := password.Validate(registration.Password); err != nil {
		return domain.User{}, apperror.NewValidationError(err.Error())
	}

	// 2. Hashing da Senha
	hashedPassword, err := s.Hasher.Hash(registration.Password)
	if err != nil {
		return domain.User{}, apperror.NewInternalError("Falha ao gerar hash da senha.", err)
	}

	// 3. Persistência (email duplicado chega como ConflictError)
	user, err := s.UserRepo.Save(ctx, domain.User{
		Email:        registration.Email,
		PasswordHash: hashedPassword,
		Role:         domain.RoleUser,
	})
	if err != nil {
		return domain.User{}, err
	}

	s.logger.Info("Usuário registrado.", map[string]interface{}{"user_id": user.ID})
	s.audit.Record(fmt.Sprintf("user=%s action=register", user.Email))
	return user, nil
}

// Login autentica um usuário, verifica a senha e gera um JWT.
func (s *UserService) Login(ctx context.Context, email string, plain string) (domain.LoginResult, error) {
	// 1. Validação Básica
	email = NormalizeEmail(email)
	if email == "" || plain == "" {
		return domain.LoginResult{}, apperror.NewValidationError("Email e senha são obrigatórios.")
	}

	// 2. Buscar Usuário pelo Email
	user, err := s.UserRepo.FindByEmail(ctx, email)
	if err != nil {
		// NotFound vira 401 para não revelar quais emails existem.
		var notFoundErr *apperror.NotFoundError
		if errors.As(err, &notFoundErr) {
			return domain.LoginResult{}, apperror.NewUnauthorizedError("Credenciais inválidas.")
		}
		return domain.LoginResult{}, err
	}

	// 3. Comparar Senhas (formato desconhecido também falha aqui)
	if !s.Hasher.Verify(plain, user.PasswordHash) {
		return domain.LoginResult{}, apperror.NewUnauthorizedError("Credenciais inválidas.")
	}

	// 4. Hash legado é regravado com o esquema preferido; falha aqui não impede o login
	if s.Hasher.NeedsRehash(user.PasswordHash) {
		s.rehash(ctx, user, plain)
	}

	// 5. Gerar JWT
	tokenString, err := s.TokenSvc.Issue(user.Email)
	if err != nil {
		return domain.LoginResult{}, apperror.NewInternalError("Falha ao gerar token de autenticação.", err)
	}

	return domain.LoginResult{AccessToken: tokenString, ExpiresIn: s.TokenSvc.Expiry()}, nil
}

func (s *UserService) rehash(ctx context.Context, user domain.User, plain string) {
	newHash, err := s.Hasher.Hash(plain)
	if err != nil {
		s.logger.Error("Falha ao regerar hash de senha legado.", err)
		return
	}
	if err := s.UserRepo.UpdatePasswordHash(ctx, user.ID, newHash); err != nil {
		s.logger.Error("Falha ao gravar hash de senha atualizado.", err)
		return
	}
	s.logger.Info("Hash de senha migrado para o esquema preferido.", map[string]interface{}{"user_id": user.ID})
}

// SetRole altera o papel de um usuário (uso administrativo, via cmd/admin).
func (s *UserService) SetRole(ctx context.Context, email string, role domain.UserRole) error {
	if !role.Valid() {
		return apperror.NewValidationError(fmt.Sprintf("Papel inválido: '%s'.", role))
	}
	email = NormalizeEmail(email)
	if err := s.UserRepo.UpdateRole(ctx, email, role); err != nil {
		return err
	}
	s.audit.Record(fmt.Sprintf("user=%s action=set_role role=%s", email, role))
	return nil
}

// Stats devolve os totais de usuários e itens.
func (s *UserService) Stats(ctx context.Context) (domain.Stats, error) {
	users, err := s.UserRepo.Count(ctx)
	if err != nil {
		return domain.Stats{}, err
	}
	items, err := s.Items.Count(ctx)
	if err != nil {
		return domain.Stats{}, err
	}
	return domain.Stats{Users: users, Items: items}, nil
}
