// Package respond padroniza as respostas JSON da API.
package respond

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"gowatch/internal/domain"
	apperror "gowatch/internal/errors"
	"gowatch/internal/pkg/logger"
	"gowatch/internal/pkg/requestid"
)

// JSON escreve data com o status informado.
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// RawJSON escreve um corpo já serializado (ex.: vindo do cache) sem re-codificar.
func RawJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// Error traduz err para o corpo {error:{code,message,request_id}}.
// Erros 5xx são registrados com a causa; o cliente recebe apenas a mensagem genérica.
func Error(w http.ResponseWriter, r *http.Request, log logger.Logger, err error) {
	status, category, message := apperror.MapToHTTPStatus(err)
	reqID := requestid.FromContext(r.Context())

	if status >= http.StatusInternalServerError {
		log.With(map[string]interface{}{"request_id": reqID, "path": r.URL.Path}).Error("Erro interno ao processar requisição.", err)
	} else {
		log.Debug("Requisição rejeitada.", map[string]interface{}{
			"request_id": reqID,
			"path":       r.URL.Path,
			"status":     status,
			"code":       category,
		})
	}

	var limited *apperror.RateLimitedError
	if errors.As(err, &limited) {
		RateLimitHeaders(w, limited.Limit, limited.Remaining, limited.Reset)
		w.Header().Set("Retry-After", apperror.RetryAfterHeader(limited))
	}

	JSON(w, status, domain.ErrorResponse{Error: domain.ErrorBody{
		Code:      category,
		Message:   message,
		RequestID: reqID,
	}})
}

// RateLimitHeaders escreve os cabeçalhos X-RateLimit-*.
func RateLimitHeaders(w http.ResponseWriter, limit, remaining int, reset int64) {
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(reset, 10))
}
