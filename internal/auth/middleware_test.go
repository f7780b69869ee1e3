package auth

import (
    "context"
    "net/http"
    "net/http/httptest"
    "testing"
    "time"

    "github.com/golang-jwt/jwt/v4"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, userID int64, tokenType string) string {
    t.Helper()
    claims := &Claims{
        UserID: userID,
        Type:   tokenType,
        RegisteredClaims: jwt.RegisteredClaims{
            ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
        },
    }
    signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
    require.NoError(t, err)
    return signed
}

func TestAuthenticateRunsOnAuthenticatedHook(t *testing.T) {
    m := NewMiddleware(testSecret)

    var hookUserID int64
    m.OnAuthenticated(func(ctx context.Context, userID int64) {
        hookUserID = userID
    })

    var ctxUserID int64
    handler := m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        id, ok := GetUserIDFromContext(r.Context())
        require.True(t, ok)
        ctxUserID = id
    }))

    req := httptest.NewRequest(http.MethodGet, "/api/v1/discovery/profiles", nil)
    req.Header.Set("Authorization", "Bearer "+signToken(t, 42, "access"))
    rr := httptest.NewRecorder()
    handler.ServeHTTP(rr, req)

    assert.Equal(t, http.StatusOK, rr.Code)
    assert.Equal(t, int64(42), ctxUserID)
    assert.Equal(t, int64(42), hookUserID)
}

func TestAuthenticateRejectsRefreshToken(t *testing.T) {
    m := NewMiddleware(testSecret)

    hookCalled := false
    m.OnAuthenticated(func(ctx context.Context, userID int64) {
        hookCalled = true
    })

    handler := m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        t.Error("handler should not run for a refresh token")
    }))

    req := httptest.NewRequest(http.MethodGet, "/", nil)
    req.Header.Set("Authorization", "Bearer "+signToken(t, 42, "refresh"))
    rr := httptest.NewRecorder()
    handler.ServeHTTP(rr, req)

    assert.Equal(t, http.StatusUnauthorized, rr.Code)
    assert.False(t, hookCalled)
}

func TestAuthenticateMissingOrMalformedHeader(t *testing.T) {
    m := NewMiddleware(testSecret)
    handler := m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        t.Error("handler should not run without a valid bearer token")
    }))

    for _, header := range []string{"", "Bearer", "Basic abc123"} {
        req := httptest.NewRequest(http.MethodGet, "/", nil)
        if header != "" {
            req.Header.Set("Authorization", header)
        }
        rr := httptest.NewRecorder()
        handler.ServeHTTP(rr, req)
        assert.Equal(t, http.StatusUnauthorized, rr.Code)
    }
}
