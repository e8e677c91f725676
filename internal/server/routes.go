// Package server wires HTTP handlers into a gorilla/mux router for the
// TalkNow application.
package server

import (
	"net/http"

	"github.com/gorilla/mux"
)

// SetupRoutes configures the application routes and wraps them with the
// cross-origin policy.
func SetupRoutes(api *API) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/create-meeting", api.CreateMeetingHandler).Methods(http.MethodPost)
	r.HandleFunc("/join-meeting", api.JoinMeetingHandler).Methods(http.MethodPost)
	r.HandleFunc("/ws", api.WebSocketHandler)
	r.HandleFunc("/health", HealthHandler)
	r.HandleFunc("/test", TestPageHandler)
	r.HandleFunc("/", HealthHandler)
	return api.origins.cors(r)
}
