package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	apperror "gowatch/internal/errors"
	"gowatch/internal/pkg/logger"
	"gowatch/internal/pkg/ratelimit"
	"gowatch/internal/pkg/respond"
)

// Admitter decide a admissão de uma requisição. *ratelimit.Limiter satisfaz a interface.
type Admitter interface {
	Allow(ctx context.Context, p ratelimit.Policy, clientID string) ratelimit.Decision
}

// SubjectVerifier valida um token e devolve o subject. *token.Service satisfaz a interface.
type SubjectVerifier interface {
	Verify(tokenString string) (string, error)
}

// KeyFunc resolve o identificador do cliente para o rate limit.
type KeyFunc func(r *http.Request) string

// ClientIP devolve o endereço de origem sem a porta. Atrás de proxy confiável,
// o chi middleware.RealIP já terá reescrito r.RemoteAddr.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// ByIP identifica o cliente apenas pelo endereço (rotas sem autenticação, ex.: login).
func ByIP() KeyFunc {
	return ClientIP
}

// ByIdentityOrIP prefere a identidade do token e cai para o endereço.
// A verificação aqui é só da assinatura (sem consulta ao banco): o limite roda antes da
// autenticação e um token inválido é tratado como ausente.
func ByIdentityOrIP(verifier SubjectVerifier) KeyFunc {
	return func(r *http.Request) string {
		if tok, ok := bearerToken(r); ok {
			if sub, err := verifier.Verify(tok); err == nil {
				return strings.ToLower(sub)
			}
		}
		return ClientIP(r)
	}
}

// RateLimit aplica a política antes do handler. Toda resposta recebe os cabeçalhos
// X-RateLimit-*; a negação responde 429 com Retry-After.
func RateLimit(limiter Admitter, policy ratelimit.Policy, key KeyFunc, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := limiter.Allow(r.Context(), policy, key(r))

			if !d.Allowed {
				respond.Error(w, r, log, &apperror.RateLimitedError{
					Limit:      d.Limit,
					Remaining:  d.Remaining,
					Reset:      d.Reset,
					RetryAfter: d.RetryAfter,
				})
				return
			}

			respond.RateLimitHeaders(w, d.Limit, d.Remaining, d.Reset)
			next.ServeHTTP(w, r)
		})
	}
}
