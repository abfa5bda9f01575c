package httpserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"messaging_go/internal/config"
	"messaging_go/internal/domain"
	"messaging_go/internal/security"
	"messaging_go/internal/service"
	"messaging_go/internal/ws"
)

// NewRouter constructs the main HTTP router and wires routes, services,
// and middleware. The websocket endpoint carries the real-time intents;
// the REST surface is a read-side convenience for client applications.
func NewRouter(
	cfg *config.Config,
	svc *service.MessagingService,
	gw *ws.Gateway,
	tokenSvc *security.TokenService,
	users domain.UserDirectory,
) http.Handler {
	r := chi.NewRouter()

	// Middlewares
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"message":"Marketplace Messaging API","version":"1.0.0"}`))
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(tokenSvc, users))

			r.Route("/conversations", func(r chi.Router) {
				r.Get("/", handleListConversations(svc))
				r.Post("/{conversationID}/read", handleMarkConversationSeen(svc))
				r.Get("/{conversationID}/messages", handleListMessages(svc))
			})
			r.Post("/messages/{messageID}/read", handleMarkMessageRead(svc))
		})

		// Stored image blobs; no auth so message URLs stay directly usable.
		r.Mount("/uploads", UploadRoutes(cfg))
	})

	// WebSocket endpoint
	r.Get("/ws", ws.MakeHandler(gw, cfg.CORSOrigins))

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
