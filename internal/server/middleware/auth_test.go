package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonstake/pollhouse/internal/auth"
)

func TestAuthMiddleware(t *testing.T) {
	tokens := auth.NewTokenIssuer("secret", time.Hour)
	token, err := tokens.Issue("user-1", 42)
	require.NoError(t, err)

	echo := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := UserID(r.Context())
		if !ok {
			id = "anonymous"
		}
		_, _ = w.Write([]byte(id))
	})

	tests := []struct {
		name       string
		required   bool
		authHeader string
		wantStatus int
		wantBody   string
	}{
		{name: "required with valid token", required: true, authHeader: "Bearer " + token, wantStatus: http.StatusOK, wantBody: "user-1"},
		{name: "required without token", required: true, wantStatus: http.StatusUnauthorized},
		{name: "required with garbage token", required: true, authHeader: "Bearer nope", wantStatus: http.StatusUnauthorized},
		{name: "required with malformed header", required: true, authHeader: token, wantStatus: http.StatusUnauthorized},
		{name: "optional with valid token", required: false, authHeader: "Bearer " + token, wantStatus: http.StatusOK, wantBody: "user-1"},
		{name: "optional without token", required: false, wantStatus: http.StatusOK, wantBody: "anonymous"},
		{name: "optional with garbage token", required: false, authHeader: "Bearer nope", wantStatus: http.StatusOK, wantBody: "anonymous"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()

			Auth(tokens, tt.required)(echo).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}
