// Package server wires HTTP handlers into a gorilla/mux router.
package server

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Tyrowin/tapwars/internal/middleware"
)

// Routes returns the application router: health check, WebSocket endpoint,
// play page, icon upload and uploaded icon files.
func (s *Server) Routes() http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.Recovery(s.logger, nil))
	r.Use(middleware.Logging(s.logger))

	r.HandleFunc("/", HealthHandler).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/ws", s.WebSocketHandler)
	r.HandleFunc("/play", s.PlayPageHandler).Methods(http.MethodGet)
	r.HandleFunc("/upload", s.IconUploadHandler).Methods(http.MethodPost)
	r.PathPrefix(IconPathPrefix).Handler(
		http.StripPrefix(IconPathPrefix, http.FileServer(http.Dir(s.cfg.IconDir))),
	).Methods(http.MethodGet, http.MethodHead)

	return r
}
