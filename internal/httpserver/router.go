package httpserver

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/StephanieCaroll/Sustentech-sub000/internal/config"
	"github.com/StephanieCaroll/Sustentech-sub000/internal/domain"
	"github.com/StephanieCaroll/Sustentech-sub000/internal/feed"
	"github.com/StephanieCaroll/Sustentech-sub000/internal/security"
	"github.com/StephanieCaroll/Sustentech-sub000/internal/service"
	"github.com/StephanieCaroll/Sustentech-sub000/internal/store/sqlite"
	"github.com/StephanieCaroll/Sustentech-sub000/internal/ws"
)

// NewRouter constructs the main HTTP router and wires routes, services, and middleware.
func NewRouter(cfg *config.Config, db *sql.DB, events *feed.Feed, tokenSvc *security.TokenService, log *zap.SugaredLogger) http.Handler {
	r := chi.NewRouter()

	// Middlewares
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Repositories
	profileRepo := sqlite.NewProfileRepo(db)
	convRepo := sqlite.NewConversationRepo(db)
	msgRepo := sqlite.NewMessageRepo(db)

	// Services
	profileSvc := service.NewProfileService(profileRepo, log)
	convSvc := service.NewConversationService(convRepo, msgRepo, profileSvc, log)
	msgSvc := service.NewMessageService(convRepo, msgRepo, events, log)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"message":"Sustentech Messaging API","version":"1.0.0"}`))
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	// API routes (all bearer-authenticated)
	r.Route("/api", func(r chi.Router) {
		r.Use(AuthMiddleware(tokenSvc))

		r.Get("/inbox", handleInbox(convSvc))

		r.Route("/conversations", func(r chi.Router) {
			r.Post("/", handleStartConversation(convSvc))
			r.Get("/{conversationID}", handleGetConversation(convSvc))
			r.Post("/{conversationID}/read", handleMarkConversationRead(msgSvc))
			r.Get("/{conversationID}/messages", handleListMessages(msgSvc))
			r.Post("/{conversationID}/messages", handleCreateMessage(msgSvc))
		})

		r.Route("/profiles", func(r chi.Router) {
			r.Post("/", handleSyncProfile(profileSvc))
			r.Get("/{userID}", handleGetProfile(profileSvc))
		})
	})

	// WebSocket endpoint
	r.Get("/ws", ws.MakeHandler(tokenSvc, convSvc, msgSvc, events, cfg.CORSOrigins, log))

	return r
}

// writeJSON is a small helper to send JSON responses.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// writeError maps sentinel errors onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrConflict):
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
