package main

import (
	"chatopia-backend/internal/api"
	"chatopia-backend/internal/auth"
	"chatopia-backend/internal/config"
	"chatopia-backend/internal/handlers"
	"chatopia-backend/internal/llm"
	"chatopia-backend/internal/logging"
	"chatopia-backend/internal/services"
	"chatopia-backend/internal/store"
	firestorestore "chatopia-backend/internal/store/firestore"
	"chatopia-backend/internal/store/postgres"
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Environment)
	if err != nil {
		log.Fatalf("FATAL: Failed to build logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting Chatopia backend",
		zap.String("store_backend", cfg.StoreBackend),
		zap.String("auth_mode", cfg.AuthMode),
	)

	// appCtx outlives startup; client credentials and the JWKS refresher run under it.
	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()

	// 2. Initialize Store
	chatStore, err := openStore(appCtx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize store", zap.Error(err))
	}
	defer chatStore.Close()

	// 3. Initialize Token Verifier
	verifier, err := newVerifier(appCtx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize token verifier", zap.Error(err))
	}

	// 4. Initialize Model Client
	gemini, err := llm.NewGeminiClient(appCtx, cfg.GeminiAPIKey, cfg.GeminiModel, logger)
	if err != nil {
		logger.Fatal("failed to initialize gemini client", zap.Error(err))
	}

	// 5. Initialize Services & Handlers
	chatService := services.NewChatService(chatStore, gemini, logger, cfg.GenerationTimeout)
	chatHandler := handlers.NewChatHandlers(chatService, logger)

	// 6. Setup Router & Inject Dependencies
	router := api.NewRouter(api.RouterDependencies{
		ChatHandler:        chatHandler,
		Verifier:           verifier,
		Logger:             logger,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		FrontendDir:        cfg.FrontendDir,
	})

	// 7. Configure and Start HTTP Server
	// WriteTimeout leaves room for two model calls per /api/chat request.
	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 2*cfg.GenerationTimeout + 15*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("server listening", zap.String("port", cfg.HTTPPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("could not listen", zap.String("port", cfg.HTTPPort), zap.Error(err))
		}
	}()

	<-stopChan
	logger.Info("shutdown signal received, initiating graceful shutdown")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server graceful shutdown failed", zap.Error(err))
		return
	}

	logger.Info("server shutdown complete")
}

func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (store.Store, error) {
	switch cfg.StoreBackend {
	case config.StoreBackendPostgres:
		ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()

		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		pgStore := postgres.NewPostgresStore(pool, logger)
		if err := pgStore.Migrate(ctx); err != nil {
			pgStore.Close()
			return nil, err
		}
		logger.Info("postgres store initialized")
		return pgStore, nil

	case config.StoreBackendFirestore:
		creds, err := cfg.Google.CredentialsJSON()
		if err != nil {
			return nil, fmt.Errorf("encode service account: %w", err)
		}
		client, err := firestorestore.NewClient(ctx, cfg.Google.ProjectID, creds)
		if err != nil {
			return nil, err
		}
		logger.Info("firestore store initialized", zap.String("project_id", cfg.Google.ProjectID))
		return firestorestore.NewFirestoreStore(client, logger), nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}

func newVerifier(ctx context.Context, cfg *config.Config, logger *zap.Logger) (auth.Verifier, error) {
	switch cfg.AuthMode {
	case config.AuthModeFirebase:
		return auth.NewFirebaseVerifier(ctx, cfg.FirebaseProjectID, cfg.FirebaseJWKSURL, logger)
	case config.AuthModeHMAC:
		logger.Warn("accepting locally signed tokens; do not use AUTH_MODE=hmac in production")
		return auth.NewHMACVerifier(cfg.JWTSecret)
	}
	return nil, fmt.Errorf("unknown auth mode %q", cfg.AuthMode)
}
