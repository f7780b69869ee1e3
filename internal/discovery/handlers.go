package discovery

import (
    "encoding/json"
    "net/http"
    "strconv"

    "github.com/gorilla/mux"

    "github.com/emberly-app/emberly-backend/internal/auth"
    "github.com/emberly-app/emberly-backend/internal/common/utils"
)

type Handler struct {
    service Service
}

func NewHandler(service Service) *Handler {
    return &Handler{service: service}
}

func (h *Handler) DiscoverProfiles(w http.ResponseWriter, r *http.Request) {
    userID, ok := auth.GetUserIDFromContext(r.Context())
    if !ok {
        utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
        return
    }

    page := queryInt(r, "page", 1)
    pageSize := queryInt(r, "page_size", 0)

    result, err := h.service.DiscoverProfiles(r.Context(), userID, page, pageSize)
    if err != nil {
        utils.RespondWithError(w, http.StatusInternalServerError, "Failed to load discovery feed")
        return
    }

    utils.RespondWithJSON(w, http.StatusOK, result)
}

func (h *Handler) LikeProfile(w http.ResponseWriter, r *http.Request) {
    h.swipe(w, r, func(userID, targetID int64) (*SwipeResultDTO, error) {
        return h.service.LikeProfile(r.Context(), userID, targetID, false)
    })
}

func (h *Handler) SuperLikeProfile(w http.ResponseWriter, r *http.Request) {
    h.swipe(w, r, func(userID, targetID int64) (*SwipeResultDTO, error) {
        return h.service.LikeProfile(r.Context(), userID, targetID, true)
    })
}

func (h *Handler) DislikeProfile(w http.ResponseWriter, r *http.Request) {
    h.swipe(w, r, func(userID, targetID int64) (*SwipeResultDTO, error) {
        return h.service.DislikeProfile(r.Context(), userID, targetID)
    })
}

func (h *Handler) swipe(w http.ResponseWriter, r *http.Request, do func(userID, targetID int64) (*SwipeResultDTO, error)) {
    userID, ok := auth.GetUserIDFromContext(r.Context())
    if !ok {
        utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
        return
    }

    var dto SwipeRequestDTO
    if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
        utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
        return
    }
    if err := utils.ValidateStruct(dto); err != nil {
        utils.RespondWithError(w, http.StatusBadRequest, err.Error())
        return
    }

    result, err := do(userID, dto.TargetUserID)
    if err != nil {
        respondServiceError(w, err)
        return
    }

    utils.RespondWithJSON(w, http.StatusOK, result)
}

func (h *Handler) RewindLastAction(w http.ResponseWriter, r *http.Request) {
    userID, ok := auth.GetUserIDFromContext(r.Context())
    if !ok {
        utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
        return
    }

    result, err := h.service.RewindLastAction(r.Context(), userID)
    if err != nil {
        respondServiceError(w, err)
        return
    }

    utils.RespondWithJSON(w, http.StatusOK, result)
}

func (h *Handler) RevokeInteraction(w http.ResponseWriter, r *http.Request) {
    userID, ok := auth.GetUserIDFromContext(r.Context())
    if !ok {
        utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
        return
    }

    interactionID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
    if err != nil {
        utils.RespondWithError(w, http.StatusBadRequest, "Invalid interaction ID")
        return
    }

    if err := h.service.RevokeInteraction(r.Context(), userID, interactionID); err != nil {
        respondServiceError(w, err)
        return
    }

    utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}

func (h *Handler) Unmatch(w http.ResponseWriter, r *http.Request) {
    userID, ok := auth.GetUserIDFromContext(r.Context())
    if !ok {
        utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
        return
    }

    matchID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
    if err != nil {
        utils.RespondWithError(w, http.StatusBadRequest, "Invalid match ID")
        return
    }

    if err := h.service.Unmatch(r.Context(), userID, matchID); err != nil {
        respondServiceError(w, err)
        return
    }

    utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "unmatched"})
}

func (h *Handler) ListMyLikes(w http.ResponseWriter, r *http.Request) {
    h.listInteractions(w, r, []InteractionType{InteractionLike, InteractionSuperLike})
}

func (h *Handler) ListMyPasses(w http.ResponseWriter, r *http.Request) {
    h.listInteractions(w, r, []InteractionType{InteractionDislike})
}

func (h *Handler) listInteractions(w http.ResponseWriter, r *http.Request, types []InteractionType) {
    userID, ok := auth.GetUserIDFromContext(r.Context())
    if !ok {
        utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
        return
    }

    q := InteractionQuery{
        Types:          types,
        IncludeRevoked: r.URL.Query().Get("include_revoked") == "true",
        OldestFirst:    r.URL.Query().Get("order_by") == "oldest",
        Page:           queryInt(r, "page", 1),
        PageSize:       queryInt(r, "page_size", 0),
    }

    result, err := h.service.ListInteractions(r.Context(), userID, q)
    if err != nil {
        utils.RespondWithError(w, http.StatusInternalServerError, "Failed to list interactions")
        return
    }

    utils.RespondWithJSON(w, http.StatusOK, result)
}

func (h *Handler) InteractionStats(w http.ResponseWriter, r *http.Request) {
    userID, ok := auth.GetUserIDFromContext(r.Context())
    if !ok {
        utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
        return
    }

    stats, err := h.service.InteractionStats(r.Context(), userID)
    if err != nil {
        respondServiceError(w, err)
        return
    }

    utils.RespondWithJSON(w, http.StatusOK, stats)
}

func (h *Handler) DailyLimits(w http.ResponseWriter, r *http.Request) {
    userID, ok := auth.GetUserIDFromContext(r.Context())
    if !ok {
        utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
        return
    }

    limits, err := h.service.DailyLikeStatus(r.Context(), userID)
    if err != nil {
        respondServiceError(w, err)
        return
    }

    utils.RespondWithJSON(w, http.StatusOK, limits)
}

// respondServiceError maps engine errors to status codes with stable
// machine-readable reason codes.
func respondServiceError(w http.ResponseWriter, err error) {
    switch err {
    case ErrPremiumRequired:
        utils.RespondWithReason(w, http.StatusForbidden, "premium_required", err.Error())
    case ErrDailyLimitReached:
        utils.RespondWithReason(w, http.StatusTooManyRequests, "daily_limit_reached", err.Error())
    case ErrSuperLikeLimitReached:
        utils.RespondWithReason(w, http.StatusTooManyRequests, "super_like_limit_reached", err.Error())
    case ErrRewindLimitReached:
        utils.RespondWithReason(w, http.StatusTooManyRequests, "rewind_limit_reached", err.Error())
    case ErrAlreadyLiked:
        utils.RespondWithReason(w, http.StatusBadRequest, "already_liked", err.Error())
    case ErrAlreadyDisliked:
        utils.RespondWithReason(w, http.StatusBadRequest, "already_disliked", err.Error())
    case ErrAlreadyRevoked:
        utils.RespondWithReason(w, http.StatusBadRequest, "already_revoked", err.Error())
    case ErrCannotRevokeMatch:
        utils.RespondWithReason(w, http.StatusBadRequest, "active_match", err.Error())
    case ErrCannotActOnSelf, ErrNothingToRewind:
        utils.RespondWithError(w, http.StatusBadRequest, err.Error())
    case ErrTargetNotFound, ErrInteractionNotFound, ErrMatchNotFound, ErrProfileNotFound:
        utils.RespondWithError(w, http.StatusNotFound, err.Error())
    default:
        utils.RespondWithError(w, http.StatusInternalServerError, "Something went wrong")
    }
}

func queryInt(r *http.Request, key string, fallback int) int {
    raw := r.URL.Query().Get(key)
    if raw == "" {
        return fallback
    }
    value, err := strconv.Atoi(raw)
    if err != nil {
        return fallback
    }
    return value
}
