package errors_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	apperror "gowatch/internal/errors"
)

func TestMapToHTTPStatus_TypedErrors(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		status   int
		category string
	}{
		{"validation", apperror.NewValidationError("campo inválido"), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"not found", apperror.NewNotFoundError("item"), http.StatusNotFound, "NOT_FOUND"},
		{"conflict", apperror.NewConflictError("email"), http.StatusConflict, "CONFLICT"},
		{"unauthorized", apperror.NewUnauthorizedError("token"), http.StatusUnauthorized, "UNAUTHORIZED"},
		{"forbidden", apperror.NewForbiddenError("role"), http.StatusForbidden, "FORBIDDEN"},
		{"rate limited", &apperror.RateLimitedError{Limit: 5}, http.StatusTooManyRequests, "RATE_LIMITED"},
		{"internal", apperror.NewInternalError("falha", errors.New("boom")), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, category, _ := apperror.MapToHTTPStatus(tc.err)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.category, category)
		})
	}
}

func TestMapToHTTPStatus_WrappedError(t *testing.T) {
	err := fmt.Errorf("camada de serviço: %w", apperror.NewNotFoundError("Item não encontrado."))

	status, category, message := apperror.MapToHTTPStatus(err)

	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", category)
	assert.Equal(t, "Item não encontrado.", message)
}

func TestMapToHTTPStatus_UntypedErrorIsInternal(t *testing.T) {
	status, category, message := apperror.MapToHTTPStatus(errors.New("pq: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "INTERNAL_ERROR", category)
	assert.NotContains(t, message, "pq")
}

func TestInternalError_HidesCauseFromMessage(t *testing.T) {
	cause := errors.New("duplicate key value")
	err := apperror.NewDBError("falha ao inserir usuário", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "duplicate key value")
	assert.NotContains(t, err.Message(), "duplicate")
}

func TestRateLimitedError_RetryAfterRoundsUp(t *testing.T) {
	err := &apperror.RateLimitedError{RetryAfter: 1500 * time.Millisecond}
	assert.Equal(t, int64(2), err.RetryAfterSeconds())
	assert.Equal(t, "2", apperror.RetryAfterHeader(err))

	err = &apperror.RateLimitedError{RetryAfter: -time.Second}
	assert.Equal(t, int64(0), err.RetryAfterSeconds())
}
