package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ContextKey is a custom type for context keys to avoid collisions.
type ContextKey string

const (
	AuthenticatedOperatorContextKey = ContextKey("authenticatedOperator")
)

// AuthenticatedOperator identifies the caller of the operator API.
type AuthenticatedOperator struct {
	Subject   string
	ExpiresAt time.Time
}

// OperatorFromContext returns the operator stored by JWTAuth.
func OperatorFromContext(ctx context.Context) (AuthenticatedOperator, bool) {
	op, ok := ctx.Value(AuthenticatedOperatorContextKey).(AuthenticatedOperator)
	return op, ok
}

// JWTAuth validates HS256 bearer tokens signed with secret. Tokens must carry sub and exp.
func JWTAuth(secret []byte, logger *slog.Logger) func(next http.Handler) http.Handler {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(30*time.Second),
		jwt.WithExpirationRequired(),
	)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.WarnContext(r.Context(), "Authorization header missing")
				unauthorized(w, "authorization header required")
				return
			}

			scheme, tokenString, found := strings.Cut(authHeader, " ")
			if !found || !strings.EqualFold(scheme, "Bearer") || tokenString == "" {
				logger.WarnContext(r.Context(), "Invalid Authorization header format")
				unauthorized(w, "missing bearer token")
				return
			}

			claims := &jwt.RegisteredClaims{}
			tok, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
				return secret, nil
			})
			if err != nil || !tok.Valid {
				logger.WarnContext(r.Context(), "Token validation failed", "error", err)
				unauthorized(w, "invalid or expired token")
				return
			}
			if claims.Subject == "" {
				logger.WarnContext(r.Context(), "Token has no subject")
				unauthorized(w, "invalid token subject")
				return
			}

			op := AuthenticatedOperator{Subject: claims.Subject}
			if claims.ExpiresAt != nil {
				op.ExpiresAt = claims.ExpiresAt.Time
			}
			ctx := context.WithValue(r.Context(), AuthenticatedOperatorContextKey, op)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
