package api

import (
	"chatopia-backend/internal/auth"
	"chatopia-backend/internal/handlers"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// RouterDependencies holds all the dependencies required by the router setup,
// primarily handlers and configuration.
type RouterDependencies struct {
	ChatHandler        *handlers.ChatHandlers
	Verifier           auth.Verifier
	Logger             *zap.Logger
	CORSAllowedOrigins []string
	// FrontendDir holds the built single-page app. Empty or missing means
	// "/" answers with the welcome message.
	FrontendDir string
}

// NewRouter creates and configures the main Chi router for the application.
func NewRouter(deps RouterDependencies) *chi.Mux {
	if deps.ChatHandler == nil {
		panic("ChatHandler dependency is nil in router setup")
	}
	if deps.Verifier == nil {
		panic("Verifier dependency is nil in router setup")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()

	// --- Base Middleware Stack ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// --- CORS Configuration ---
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// --- Public Routes ---
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// --- Authenticated Routes ---
	r.Route("/api", func(r chi.Router) {
		r.Use(AuthMiddleware(deps.Verifier, logger))

		r.Post("/chat", deps.ChatHandler.HandleSendMessage)
		r.Route("/conversations", func(r chi.Router) {
			r.Get("/", deps.ChatHandler.HandleListConversations)
			r.Post("/", deps.ChatHandler.HandleCreateConversation)
			r.Get("/{conversationID}", deps.ChatHandler.HandleGetConversation)
		})
	})

	// Everything else belongs to the frontend.
	root := handlers.NewRootHandler(deps.FrontendDir)
	if handlers.HasFrontend(deps.FrontendDir) {
		logger.Info("serving frontend", zap.String("dir", deps.FrontendDir))
	} else {
		logger.Warn("frontend build not found, serving welcome message at /", zap.String("dir", deps.FrontendDir))
	}
	r.Handle("/*", root)

	return r
}
