package discovery

import (
    "context"
    "net/http"
    "net/http/httptest"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/emberly-app/emberly-backend/internal/auth"
)

// stubListService captures the query the ledger-view handlers build
type stubListService struct {
    Service
    gotUserID int64
    gotQuery  InteractionQuery
}

func (s *stubListService) ListInteractions(ctx context.Context, userID int64, q InteractionQuery) (*InteractionPageDTO, error) {
    s.gotUserID = userID
    s.gotQuery = q
    return &InteractionPageDTO{Results: []*InteractionDTO{}}, nil
}

func listRequest(target string) *http.Request {
    req := httptest.NewRequest(http.MethodGet, target, nil)
    return req.WithContext(auth.ContextWithUserID(req.Context(), 7))
}

func TestListMyLikesQueryParams(t *testing.T) {
    svc := &stubListService{}
    h := NewHandler(svc)

    rr := httptest.NewRecorder()
    h.ListMyLikes(rr, listRequest("/interactions/my-likes?order_by=oldest&include_revoked=true&page=2&page_size=10"))

    require.Equal(t, http.StatusOK, rr.Code)
    assert.Equal(t, int64(7), svc.gotUserID)
    assert.Equal(t, []InteractionType{InteractionLike, InteractionSuperLike}, svc.gotQuery.Types)
    assert.True(t, svc.gotQuery.OldestFirst)
    assert.True(t, svc.gotQuery.IncludeRevoked)
    assert.Equal(t, 2, svc.gotQuery.Page)
    assert.Equal(t, 10, svc.gotQuery.PageSize)
}

func TestListMyPassesDefaultsToNewestFirst(t *testing.T) {
    svc := &stubListService{}
    h := NewHandler(svc)

    rr := httptest.NewRecorder()
    h.ListMyPasses(rr, listRequest("/interactions/my-passes"))

    require.Equal(t, http.StatusOK, rr.Code)
    assert.Equal(t, []InteractionType{InteractionDislike}, svc.gotQuery.Types)
    assert.False(t, svc.gotQuery.OldestFirst)
    assert.False(t, svc.gotQuery.IncludeRevoked)
}
