package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// SetupRoutes wires the WebSocket endpoint and the HTTP API
func SetupRoutes(ws *WebSocketHandler, api *APIHandler) *mux.Router {
	router := mux.NewRouter()

	// Realtime sync
	router.HandleFunc("/ws", ws.ServeWS).Methods(http.MethodGet)

	// Presenter cookie issuance
	router.HandleFunc("/presenter", api.ClaimPresenter).Methods(http.MethodGet)

	// Telemetry read surface
	router.HandleFunc("/api/stats", api.GetStats).Methods(http.MethodGet)
	router.HandleFunc("/api/stats/viewers", api.GetViewers).Methods(http.MethodGet)
	router.HandleFunc("/api/questions", api.GetQuestions).Methods(http.MethodGet)
	router.HandleFunc("/api/feedback/{slide}", api.GetFeedback).Methods(http.MethodGet)

	// Downloads
	router.HandleFunc("/api/downloads", api.ListDownloads).Methods(http.MethodGet)
	router.HandleFunc("/api/downloads/{slide}", api.GetDownloads).Methods(http.MethodGet)
	router.HandleFunc("/api/downloads/{slide}", api.RegisterDownloads).Methods(http.MethodPost)

	// Forms
	router.HandleFunc("/api/forms/{slide}", api.GetForm).Methods(http.MethodGet)
	router.HandleFunc("/api/forms/{slide}", api.SubmitForm).Methods(http.MethodPost)

	// Rendered slide cache
	router.HandleFunc("/slides/{locale}/{name}", api.GetSlide).Methods(http.MethodGet)
	router.HandleFunc("/api/cache/invalidate", api.InvalidateCache).Methods(http.MethodPost)
	router.HandleFunc("/api/cache/stats", api.GetCacheStats).Methods(http.MethodGet)

	return router
}
