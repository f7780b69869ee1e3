package profile

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

func (h *Handler) GetMyProfile(w http.ResponseWriter, r *http.Request) {
    userID, ok := auth.GetUserIDFromContext(r.Context())
    if !ok {
        utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
        return
    }

    p, err := h.service.GetProfile(r.Context(), userID)
    if err != nil {
        if err == ErrProfileNotFound {
            utils.RespondWithError(w, http.StatusNotFound, err.Error())
            return
        }
        utils.RespondWithError(w, http.StatusInternalServerError, "Failed to get profile")
        return
    }

    utils.RespondWithJSON(w, http.StatusOK, p)
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
    userID, ok := auth.GetUserIDFromContext(r.Context())
    if !ok {
        utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
        return
    }

    var dto UpdateProfileDTO
    if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
        utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
        return
    }
    if err := utils.ValidateStruct(dto); err != nil {
        utils.RespondWithError(w, http.StatusBadRequest, err.Error())
        return
    }

    p, err := h.service.UpdateProfile(r.Context(), userID, &dto)
    if err != nil {
        switch err {
        case ErrProfileNotFound:
            utils.RespondWithError(w, http.StatusNotFound, err.Error())
        case ErrInvalidBirthDate:
            utils.RespondWithError(w, http.StatusBadRequest, err.Error())
        default:
            utils.RespondWithError(w, http.StatusInternalServerError, "Failed to update profile")
        }
        return
    }

    utils.RespondWithJSON(w, http.StatusOK, p)
}

func (h *Handler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
    userID, ok := auth.GetUserIDFromContext(r.Context())
    if !ok {
        utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
        return
    }

    var dto UpdatePreferencesDTO
    if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
        utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
        return
    }
    if err := utils.ValidateStruct(dto); err != nil {
        utils.RespondWithError(w, http.StatusBadRequest, err.Error())
        return
    }

    p, err := h.service.UpdatePreferences(r.Context(), userID, &dto)
    if err != nil {
        switch err {
        case ErrProfileNotFound:
            utils.RespondWithError(w, http.StatusNotFound, err.Error())
        case ErrInvalidAgeRange:
            utils.RespondWithError(w, http.StatusBadRequest, err.Error())
        default:
            utils.RespondWithError(w, http.StatusInternalServerError, "Failed to update preferences")
        }
        return
    }

    utils.RespondWithJSON(w, http.StatusOK, p)
}

func (h *Handler) BlockUser(w http.ResponseWriter, r *http.Request) {
    userID, ok := auth.GetUserIDFromContext(r.Context())
    if !ok {
        utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
        return
    }

    targetID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
    if err != nil {
        utils.RespondWithError(w, http.StatusBadRequest, "Invalid user ID")
        return
    }

    if err := h.service.BlockUser(r.Context(), userID, targetID); err != nil {
        if err == ErrCannotBlockSelf {
            utils.RespondWithError(w, http.StatusBadRequest, err.Error())
            return
        }
        utils.RespondWithError(w, http.StatusInternalServerError, "Failed to block user")
        return
    }

    utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "blocked"})
}

func (h *Handler) UnblockUser(w http.ResponseWriter, r *http.Request) {
    userID, ok := auth.GetUserIDFromContext(r.Context())
    if !ok {
        utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
        return
    }

    targetID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
    if err != nil {
        utils.RespondWithError(w, http.StatusBadRequest, "Invalid user ID")
        return
    }

    if err := h.service.UnblockUser(r.Context(), userID, targetID); err != nil {
        utils.RespondWithError(w, http.StatusInternalServerError, "Failed to unblock user")
        return
    }

    utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "unblocked"})
}

func (h *Handler) GetBlockedUsers(w http.ResponseWriter, r *http.Request) {
    userID, ok := auth.GetUserIDFromContext(r.Context())
    if !ok {
        utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
        return
    }

    ids, err := h.service.BlockedUserIDs(r.Context(), userID)
    if err != nil {
        utils.RespondWithError(w, http.StatusInternalServerError, "Failed to get blocked users")
        return
    }
    if ids == nil {
        ids = []int64{}
    }

    utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"blocked_user_ids": ids})
}
