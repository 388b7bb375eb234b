package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	"github.com/Rrens/sommelier/internal/api/handler"
	customMiddleware "github.com/Rrens/sommelier/internal/api/middleware"
	"github.com/Rrens/sommelier/internal/config"
	"github.com/Rrens/sommelier/internal/repository/postgres"
	"github.com/Rrens/sommelier/internal/repository/redis"
	"github.com/Rrens/sommelier/internal/security"
	"github.com/Rrens/sommelier/internal/service"
)

// NewRouter creates the Remote Conversation API router. A nil redisClient
// disables rate limiting and an empty JWT secret disables authentication.
func NewRouter(cfg *config.Config, db *postgres.DB, redisClient *redis.Client) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(customMiddleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Server.MiddlewareTimeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{"X-Request-ID", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		MaxAge:         300,
	}))

	conversationRepo := postgres.NewConversationRepository(db.Pool)
	messageRepo := postgres.NewMessageRepository(db.Pool)
	conversationService := service.NewConversationService(conversationRepo, messageRepo)
	conversationHandler := handler.NewConversationHandler(conversationService)

	identify := customMiddleware.Anonymous
	if cfg.Auth.JWTSecret != "" {
		jwtManager := security.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
		identify = customMiddleware.NewAuthMiddleware(jwtManager).Authenticate
	} else {
		log.Warn().Msg("auth.jwt_secret is empty, serving every request as the default owner")
	}

	limit := func(next http.Handler) http.Handler { return next }
	if redisClient != nil && cfg.Server.RateLimit.RequestsPerMinute > 0 {
		rateLimiter := redis.NewRateLimiter(
			redisClient,
			cfg.Server.RateLimit.RequestsPerMinute,
			cfg.Server.RateLimit.Burst,
		)
		limit = customMiddleware.NewRateLimitMiddleware(rateLimiter).Limit
	}

	mount := func(r chi.Router) {
		r.Get("/health", handler.HealthCheck)
		r.Get("/ready", handler.ReadyCheck(db))

		r.Group(func(r chi.Router) {
			r.Use(identify)

			r.Get("/conversations", conversationHandler.List)
			r.Get("/conversations/{conversationID}/messages", conversationHandler.Messages)
			r.With(limit).Post("/messages", conversationHandler.PostMessage)
		})
	}

	r.Route("/api/v1", mount)
	// Clients configured with a bare base URL talk to the root
	r.Group(mount)

	return r
}
