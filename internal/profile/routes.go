package profile

import (
    "github.com/gorilla/mux"

    "github.com/emberly-app/emberly-backend/internal/auth"
)

func RegisterRoutes(router *mux.Router, handler *Handler, authMiddleware *auth.Middleware) {
    api := router.PathPrefix("/api/v1").Subrouter()
    api.Use(authMiddleware.Authenticate)

    // Profile management
    api.HandleFunc("/profile", handler.GetMyProfile).Methods("GET")
    api.HandleFunc("/profile", handler.UpdateProfile).Methods("PUT")
    api.HandleFunc("/profile/preferences", handler.UpdatePreferences).Methods("PUT")

    // Blocks
    api.HandleFunc("/profile/blocked", handler.GetBlockedUsers).Methods("GET")
    api.HandleFunc("/users/{id}/block", handler.BlockUser).Methods("POST")
    api.HandleFunc("/users/{id}/block", handler.UnblockUser).Methods("DELETE")
}
