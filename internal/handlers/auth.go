package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sand/crypto-wallet-admin/backend/internal/entities"
)

type contextKey string

const adminContextKey contextKey = "admin"

type adminClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// AuthMiddleware validates the bearer token and requires the admin role.
// The authenticated principal is placed in the request context and later
// stamped into audit events.
type AuthMiddleware struct {
	logger *slog.Logger
	secret []byte
}

func NewAuthMiddleware(logger *slog.Logger, secret string) *AuthMiddleware {
	return &AuthMiddleware{logger: logger, secret: []byte(secret)}
}

// ErrNotAdmin is returned for valid tokens that lack the admin role.
var ErrNotAdmin = errors.New("admin role required")

// Authenticate validates a bearer token and returns the admin principal it
// carries. Returns ErrNotAdmin when the token is valid but the role is not
// admin.
func (m *AuthMiddleware) Authenticate(tokenString string) (entities.AdminPrincipal, error) {
	claims := &adminClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return m.secret, nil
	})
	if err != nil {
		return entities.AdminPrincipal{}, err
	}
	if !token.Valid {
		return entities.AdminPrincipal{}, jwt.ErrTokenUnverifiable
	}

	if claims.Role != "admin" {
		return entities.AdminPrincipal{}, ErrNotAdmin
	}

	adminID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return entities.AdminPrincipal{}, fmt.Errorf("invalid token subject: %w", err)
	}

	return entities.AdminPrincipal{ID: adminID, Email: claims.Email}, nil
}

func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			http.Error(w, "Missing or malformed authorization header", http.StatusUnauthorized)
			return
		}

		admin, err := m.Authenticate(strings.TrimPrefix(header, "Bearer "))
		if errors.Is(err, ErrNotAdmin) {
			http.Error(w, "Admin role required", http.StatusForbidden)
			return
		}
		if err != nil {
			m.logger.Warn("Rejected invalid token", "error", err)
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), adminContextKey, admin)))
	})
}

// AdminFromContext returns the authenticated admin principal, if any.
func AdminFromContext(ctx context.Context) (entities.AdminPrincipal, bool) {
	admin, ok := ctx.Value(adminContextKey).(entities.AdminPrincipal)
	return admin, ok
}

// ContextWithAdmin is used by tests to inject a principal directly.
func ContextWithAdmin(ctx context.Context, admin entities.AdminPrincipal) context.Context {
	return context.WithValue(ctx, adminContextKey, admin)
}
