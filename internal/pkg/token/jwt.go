package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken cobre qualquer falha de verificação (assinatura, formato, expiração).
// As causas são colapsadas para não revelar ao cliente por que o token foi recusado.
var ErrInvalidToken = errors.New("token inválido ou expirado")

// TokenService define o contrato para manipulação de JWTs.
type TokenService interface {
	Issue(subject string) (string, error)
	Verify(tokenString string) (string, error)
}

// Service implementa a interface TokenService com um segredo simétrico (HS256/384/512).
type Service struct {
	secretKey []byte
	method    jwt.SigningMethod
	expiry    time.Duration
	now       func() time.Time
}

// NewService cria uma nova instância do serviço Token.
// now pode ser nil (relógio do sistema).
func NewService(secretKey, algorithm string, expiry time.Duration, now func() time.Time) (*Service, error) {
	if secretKey == "" {
		return nil, errors.New("segredo do JWT não pode ser vazio")
	}
	if algorithm == "" {
		algorithm = jwt.SigningMethodHS256.Alg()
	}
	method, ok := jwt.GetSigningMethod(algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("algoritmo de assinatura não suportado: %q", algorithm)
	}
	if now == nil {
		now = time.Now
	}
	return &Service{
		secretKey: []byte(secretKey),
		method:    method,
		expiry:    expiry,
		now:       now,
	}, nil
}

// Expiry devolve a validade configurada dos tokens emitidos.
func (s *Service) Expiry() time.Duration { return s.expiry }

// Issue cria um novo JWT assinado com sub, iat e exp.
func (s *Service) Issue(subject string) (string, error) {
	issuedAt := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.expiry)),
	}

	token := jwt.NewWithClaims(s.method, claims)

	// Assina o token com a chave secreta
	tokenString, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", fmt.Errorf("falha ao assinar o token: %w", err)
	}

	return tokenString, nil
}

// Verify valida o token e devolve o subject. Qualquer falha vira ErrInvalidToken.
// Não há tolerância de relógio: now >= exp é expirado.
func (s *Service) Verify(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.secretKey, nil
	},
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}

	if claims.Subject == "" {
		return "", ErrInvalidToken
	}

	return claims.Subject, nil
}
