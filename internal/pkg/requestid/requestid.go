// Package requestid propaga o identificador de correlação da requisição.
package requestid

import (
	"context"
	"net/http"
	"regexp"

	"github.com/google/uuid"
)

// Header é o cabeçalho aceito na entrada e devolvido na resposta.
const Header = "X-Request-ID"

type ctxKey struct{}

// IDs externos só são reaproveitados se forem curtos e seguros para logs.
var validID = regexp.MustCompile(`^[A-Za-z0-9._-]{1,128}$`)

// FromContext devolve o ID da requisição, ou "" se não houver.
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// WithID anexa o ID ao contexto.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// Middleware reaproveita o X-Request-ID do cliente ou gera um UUID novo.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(Header)
		if !validID.MatchString(id) {
			id = uuid.NewString()
		}
		w.Header().Set(Header, id)
		next.ServeHTTP(w, r.WithContext(WithID(r.Context(), id)))
	})
}
