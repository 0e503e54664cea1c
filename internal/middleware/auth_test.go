package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

type fakeVerifier map[string]*auth.Token

func (f fakeVerifier) VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error) {
	if tok, ok := f[idToken]; ok {
		return tok, nil
	}
	return nil, errors.New("invalid token")
}

func TestRequireAdmin(t *testing.T) {
	verifier := fakeVerifier{
		"admin-id-token":    {UID: "u1", Claims: map[string]interface{}{"email": "Council@Strata.example"}},
		"resident-id-token": {UID: "u2", Claims: map[string]interface{}{"email": "resident@example.com"}},
	}
	mw := NewAdminAuthWithVerifier("s3cret", verifier, []string{"council@strata.example"}, nil)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"static token", "Bearer s3cret", http.StatusOK},
		{"wrong static token", "Bearer nope", http.StatusUnauthorized},
		{"firebase admin", "Bearer admin-id-token", http.StatusOK},
		{"firebase non-admin", "Bearer resident-id-token", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodPost, "/api/admin/cleanup", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)
			h := mw.RequireAdmin(func(c echo.Context) error {
				return c.NoContent(http.StatusOK)
			})
			assert.NoError(t, h(c))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestNewAdminAuthDisabled(t *testing.T) {
	mw, err := NewAdminAuth(context.Background(), "", "", nil, nil)
	assert.NoError(t, err)
	assert.Nil(t, mw)
}
