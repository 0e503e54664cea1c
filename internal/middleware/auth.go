package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// TokenVerifier is the part of the Firebase auth client used here.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// AdminAuth guards admin routes. A bearer token is accepted when it equals
// the static admin token, or when it is a Firebase ID token whose email is
// on the admin list.
type AdminAuth struct {
	token    string
	verifier TokenVerifier
	admins   map[string]bool
	log      *zap.Logger
}

// NewAdminAuth returns nil when neither a static token nor a Firebase
// project is configured.
func NewAdminAuth(ctx context.Context, token, firebaseProjectID string, adminEmails []string, log *zap.Logger) (*AdminAuth, error) {
	if token == "" && firebaseProjectID == "" {
		return nil, nil
	}
	var verifier TokenVerifier
	if firebaseProjectID != "" {
		app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: firebaseProjectID})
		if err != nil {
			return nil, err
		}
		client, err := app.Auth(ctx)
		if err != nil {
			return nil, err
		}
		verifier = client
	}
	return NewAdminAuthWithVerifier(token, verifier, adminEmails, log), nil
}

func NewAdminAuthWithVerifier(token string, verifier TokenVerifier, adminEmails []string, log *zap.Logger) *AdminAuth {
	if log == nil {
		log = zap.NewNop()
	}
	admins := make(map[string]bool, len(adminEmails))
	for _, e := range adminEmails {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			admins[e] = true
		}
	}
	return &AdminAuth{token: token, verifier: verifier, admins: admins, log: log}
}

func (m *AdminAuth) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authz := c.Request().Header.Get("Authorization")
		if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized", "code": "unauthorized"})
		}
		tokenStr := strings.TrimPrefix(authz, "Bearer ")

		if m.token != "" && subtle.ConstantTimeCompare([]byte(tokenStr), []byte(m.token)) == 1 {
			c.Set("admin", "token")
			return next(c)
		}
		if m.verifier != nil {
			token, err := m.verifier.VerifyIDToken(c.Request().Context(), tokenStr)
			if err == nil {
				email, _ := token.Claims["email"].(string)
				if m.admins[strings.ToLower(email)] {
					c.Set("admin", email)
					return next(c)
				}
				m.log.Warn("non-admin user attempted admin route", zap.String("uid", token.UID), zap.String("path", c.Path()))
				return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden", "code": "forbidden"})
			}
		}
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid_token", "code": "unauthorized"})
	}
}
