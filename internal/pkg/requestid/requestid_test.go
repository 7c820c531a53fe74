package requestid_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"gowatch/internal/pkg/requestid"
)

func serve(header string) (seen string, rec *httptest.ResponseRecorder) {
	h := requestid.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestid.FromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(requestid.Header, header)
	}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return seen, rec
}

func TestMiddleware_GeneratesID(t *testing.T) {
	seen, rec := serve("")
	_, err := uuid.Parse(seen)
	assert.NoError(t, err)
	assert.Equal(t, seen, rec.Header().Get(requestid.Header))
}

func TestMiddleware_KeepsClientID(t *testing.T) {
	seen, rec := serve("req-123.abc")
	assert.Equal(t, "req-123.abc", seen)
	assert.Equal(t, "req-123.abc", rec.Header().Get(requestid.Header))
}

func TestMiddleware_ReplacesUnsafeID(t *testing.T) {
	seen, _ := serve("abc\ninjected")
	assert.NotEqual(t, "abc\ninjected", seen)
	_, err := uuid.Parse(seen)
	assert.NoError(t, err)
}
