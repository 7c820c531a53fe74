package user

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"gowatch/internal/domain"
	apperror "gowatch/internal/errors"
	"gowatch/internal/pkg/logger"
	"gowatch/internal/pkg/middleware"
	"gowatch/internal/pkg/respond"
)

// UserService define o contrato para as operações de registro e login.
type UserService interface {
	Register(ctx context.Context, registration domain.UserRegistration) (domain.User, error)
	Login(ctx context.Context, email string, password string) (domain.LoginResult, error)
}

// LoginRequest representa o payload de entrada para o login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterResponse é a resposta do registro.
type RegisterResponse struct {
	Status string          `json:"status"`
	Email  string          `json:"email"`
	Role   domain.UserRole `json:"role"`
}

// LoginResponse segue o formato OAuth2 de token bearer.
type LoginResponse struct {
	Status      string `json:"status"`
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// MeResponse descreve o usuário autenticado.
type MeResponse struct {
	Status    string          `json:"status"`
	Email     string          `json:"email"`
	Role      domain.UserRole `json:"role"`
	CreatedAt time.Time       `json:"created_at"`
}

// Handler agrupa todos os métodos de Handler do usuário.
type Handler struct {
	Service UserService
	Logger  logger.Logger
}

// NewHandler cria uma nova instância do Handler, injetando o Service e o Logger.
func NewHandler(svc UserService, log logger.Logger) *Handler {
	return &Handler{
		Service: svc,
		Logger:  log,
	}
}

// RegisterUserHandler lida com a requisição POST /v1/auth/register.
// @Summary Registra um novo usuário
// @Description Cria um novo usuário com papel "user". A senha deve ter de 8 caracteres a 72 bytes.
// @Tags auth
// @Accept json
// @Produce json
// @Param registration body domain.UserRegistration true "Credenciais de registro (email e senha)"
// @Success 201 {object} RegisterResponse "Usuário criado com sucesso"
// @Failure 400 {object} domain.ErrorResponse "Payload inválido"
// @Failure 409 {object} domain.ErrorResponse "Email já cadastrado"
// @Failure 429 {object} domain.ErrorResponse "Limite de requisições excedido"
// @Failure 500 {object} domain.ErrorResponse "Erro interno do servidor"
// @Router /auth/register [post]
func (h *Handler) RegisterUserHandler(w http.ResponseWriter, r *http.Request) {
	var reg domain.UserRegistration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		respond.Error(w, r, h.Logger, apperror.NewValidationError("Payload JSON inválido."))
		return
	}

	// 1. Chamar o Serviço (Haverá hashing e persistência)
	newUser, err := h.Service.Register(r.Context(), reg)
	if err != nil {
		// Ex: ConflictError (e-mail duplicado) -> 409
		respond.Error(w, r, h.Logger, err)
		return
	}

	// 2. Resposta de Sucesso (201 Created)
	respond.JSON(w, http.StatusCreated, RegisterResponse{Status: "ok", Email: newUser.Email, Role: newUser.Role})
}

// LoginUserHandler lida com a requisição POST /v1/auth/login.
// @Summary Autentica um usuário e retorna um JWT
// @Description Recebe email/senha, verifica a validade e emite um JSON Web Token.
// @Tags auth
// @Accept json
// @Produce json
// @Param login body LoginRequest true "Credenciais do usuário (email e senha)"
// @Success 200 {object} LoginResponse "Token JWT emitido"
// @Failure 400 {object} domain.ErrorResponse "Payload inválido"
// @Failure 401 {object} domain.ErrorResponse "Credenciais inválidas"
// @Failure 429 {object} domain.ErrorResponse "Limite de requisições excedido"
// @Failure 500 {object} domain.ErrorResponse "Erro interno do servidor"
// @Router /auth/login [post]
func (h *Handler) LoginUserHandler(w http.ResponseWriter, r *http.Request) {
	var loginReq LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&loginReq); err != nil {
		respond.Error(w, r, h.Logger, apperror.NewValidationError("Payload JSON inválido."))
		return
	}

	// 1. Chamar o Serviço de Login
	result, err := h.Service.Login(r.Context(), loginReq.Email, loginReq.Password)
	if err != nil {
		respond.Error(w, r, h.Logger, err)
		return
	}

	// 2. Resposta de Sucesso (200 OK com o Token)
	respond.JSON(w, http.StatusOK, LoginResponse{
		Status:      "ok",
		AccessToken: result.AccessToken,
		TokenType:   "bearer",
		ExpiresIn:   int64(result.ExpiresIn / time.Second),
	})
}

// MeHandler lida com GET /v1/auth/me.
// @Summary Dados do usuário autenticado
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} MeResponse
// @Failure 401 {object} domain.ErrorResponse "Token ausente, inválido ou expirado"
// @Router /auth/me [get]
func (h *Handler) MeHandler(w http.ResponseWriter, r *http.Request) {
	u, ok := middleware.UserFromContext(r.Context())
	if !ok {
		respond.Error(w, r, h.Logger, apperror.NewUnauthorizedError("Não autenticado."))
		return
	}
	respond.JSON(w, http.StatusOK, MeResponse{Status: "ok", Email: u.Email, Role: u.Role, CreatedAt: u.CreatedAt})
}
