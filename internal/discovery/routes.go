package discovery

import (
    "github.com/gorilla/mux"

    "github.com/emberly-app/emberly-backend/internal/auth"
)

func RegisterRoutes(router *mux.Router, handler *Handler, authMiddleware *auth.Middleware) {
    api := router.PathPrefix("/api/v1/discovery").Subrouter()
    api.Use(authMiddleware.Authenticate)

    // Feed
    api.HandleFunc("/profiles", handler.DiscoverProfiles).Methods("GET")

    // Swipes. Literal segments registered before the {id} route.
    api.HandleFunc("/interactions/like", handler.LikeProfile).Methods("POST")
    api.HandleFunc("/interactions/dislike", handler.DislikeProfile).Methods("POST")
    api.HandleFunc("/interactions/superlike", handler.SuperLikeProfile).Methods("POST")
    api.HandleFunc("/interactions/rewind", handler.RewindLastAction).Methods("POST")

    // Ledger views
    api.HandleFunc("/interactions/my-likes", handler.ListMyLikes).Methods("GET")
    api.HandleFunc("/interactions/my-passes", handler.ListMyPasses).Methods("GET")
    api.HandleFunc("/interactions/stats", handler.InteractionStats).Methods("GET")
    api.HandleFunc("/interactions/limits", handler.DailyLimits).Methods("GET")

    // Revocation
    api.HandleFunc("/interactions/{id}/revoke", handler.RevokeInteraction).Methods("POST")

    // Matches
    api.HandleFunc("/matches/{id}/unmatch", handler.Unmatch).Methods("POST")
}
