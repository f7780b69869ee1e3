// internal/auth/middleware.go
// JWT bearer authentication for protected routes.
// Identity storage and token issuance live in the external identity service;
// this middleware only validates access tokens and exposes the user id.

package auth

import (
    "context"
    "net/http"
    "strings"

    "github.com/golang-jwt/jwt/v4"

    "github.com/emberly-app/emberly-backend/internal/common/utils"
)

type contextKey string

const userIDKey contextKey = "userID"

// Claims are the access-token claims issued by the identity service
type Claims struct {
    UserID int64  `json:"user_id"`
    Type   string `json:"type"` // "access" or "refresh"
    jwt.RegisteredClaims
}

// Middleware provides authentication middleware
type Middleware struct {
    secret          []byte
    onAuthenticated func(ctx context.Context, userID int64)
}

// NewMiddleware creates a new auth middleware
func NewMiddleware(jwtSecret string) *Middleware {
    return &Middleware{
        secret: []byte(jwtSecret),
    }
}

// OnAuthenticated registers a hook run after every successful token check,
// e.g. to keep last-activity timestamps fresh. The hook must not block.
func (m *Middleware) OnAuthenticated(fn func(ctx context.Context, userID int64)) {
    m.onAuthenticated = fn
}

// Authenticate verifies the bearer token and adds the user id to the request context
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        token := m.extractToken(r)
        if token == "" {
            utils.RespondWithError(w, http.StatusUnauthorized, "Missing or invalid authorization header")
            return
        }

        claims, err := m.parseToken(token)
        if err != nil {
            utils.RespondWithError(w, http.StatusUnauthorized, "Invalid or expired token")
            return
        }

        // Refresh tokens cannot be used against the API
        if claims.Type != "access" {
            utils.RespondWithError(w, http.StatusUnauthorized, "Invalid token type")
            return
        }

        ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
        if m.onAuthenticated != nil {
            m.onAuthenticated(ctx, claims.UserID)
        }
        next.ServeHTTP(w, r.WithContext(ctx))
    })
}

// parseToken validates the signature and expiry of an access token
func (m *Middleware) parseToken(tokenString string) (*Claims, error) {
    claims := &Claims{}
    token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
        if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
            return nil, jwt.ErrSignatureInvalid
        }
        return m.secret, nil
    })
    if err != nil {
        return nil, err
    }
    if !token.Valid {
        return nil, jwt.ErrTokenInvalidClaims
    }
    return claims, nil
}

// extractToken extracts the JWT token from the Authorization header
// Supports "Bearer <token>" format
func (m *Middleware) extractToken(r *http.Request) string {
    authHeader := r.Header.Get("Authorization")
    if authHeader == "" {
        return ""
    }

    parts := strings.Split(authHeader, " ")
    if len(parts) != 2 || parts[0] != "Bearer" {
        return ""
    }

    return parts[1]
}

// GetUserIDFromContext extracts user ID from request context
func GetUserIDFromContext(ctx context.Context) (int64, bool) {
    userID, ok := ctx.Value(userIDKey).(int64)
    return userID, ok
}

// ContextWithUserID injects a user id the way Authenticate does. For
// handlers exercised outside the middleware chain.
func ContextWithUserID(ctx context.Context, userID int64) context.Context {
    return context.WithValue(ctx, userIDKey, userID)
}
