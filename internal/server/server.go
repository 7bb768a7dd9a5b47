package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/michaelbrown/coderoom/internal/relay"
	"github.com/michaelbrown/coderoom/internal/room"
	"github.com/michaelbrown/coderoom/internal/runner"
	"github.com/michaelbrown/coderoom/internal/storage"
)

// Server hosts the WebSocket relay endpoint and the read-only REST API.
type Server struct {
	registry *room.Registry
	relay    *relay.Relay
	store    storage.Store
	router   chi.Router
	http     *http.Server
}

// New creates a new Server. store may be nil when run history is disabled.
func New(registry *room.Registry, rl *relay.Relay, store storage.Store) *Server {
	s := &Server{
		registry: registry,
		relay:    rl,
		store:    store,
		router:   chi.NewRouter(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := s.router

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	// WebSocket relay endpoint (no JSON content-type)
	r.Get("/ws", s.handleWebSocket)

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Use(jsonContentType)

		r.Get("/rooms", s.handleListRooms)
		r.Get("/rooms/{token}/members", s.handleRoomMembers)
		r.Get("/rooms/{token}/runs", s.handleRoomRuns)
		r.Get("/languages", s.handleListLanguages)
	})
}

// jsonContentType sets Content-Type to application/json for API routes.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// handleListLanguages reports the supported language identifiers and their
// source extensions.
func (s *Server) handleListLanguages(w http.ResponseWriter, r *http.Request) {
	type languageInfo struct {
		ID        string `json:"id"`
		Extension string `json:"extension"`
		Compiled  bool   `json:"compiled"`
	}
	langs := make([]languageInfo, 0, len(runner.Languages))
	for _, l := range runner.Languages {
		langs = append(langs, languageInfo{
			ID:        l.String(),
			Extension: l.Ext(),
			Compiled:  l.Compiled(),
		})
	}
	writeJSON(w, http.StatusOK, langs)
}

// Start begins listening on the given port.
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	s.http = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	log.Printf("coderoom server starting on http://localhost%s", addr)
	return s.http.ListenAndServe()
}

// Shutdown gracefully shuts down the server. In-flight runs finish and
// broadcast before the listener closes.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down server...")
	s.relay.Drain()

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return s.http.Shutdown(shutdownCtx)
}
