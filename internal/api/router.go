package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	"github.com/quochai/cookflow/internal/agent"
	"github.com/quochai/cookflow/internal/api/handler"
	customMiddleware "github.com/quochai/cookflow/internal/api/middleware"
	"github.com/quochai/cookflow/internal/config"
	"github.com/quochai/cookflow/internal/domain"
	"github.com/quochai/cookflow/internal/llm"
	"github.com/quochai/cookflow/internal/llm/gemini"
	"github.com/quochai/cookflow/internal/llm/ollama"
	"github.com/quochai/cookflow/internal/llm/openai"
	"github.com/quochai/cookflow/internal/llm/together"
	"github.com/quochai/cookflow/internal/notify"
	"github.com/quochai/cookflow/internal/repository/redis"
	"github.com/quochai/cookflow/internal/security"
)

const completionTemperature = 0.7

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, store domain.SessionStore, pinger handler.Pinger, redisClient *redis.Client) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(customMiddleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Server.MiddlewareTimeout))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Security components
	jwtManager := security.NewJWTManager(cfg.Auth.JWTSecret)
	selectionTokens := security.NewSelectionTokenManager(cfg.Auth.JWTSecret, cfg.Auth.SelectionTokenTTL)

	// Completion providers
	llmRouter := llm.NewRouter(cfg.LLM.DefaultProvider)
	log.Info().Msgf("Initializing LLM providers. Default: %s", cfg.LLM.DefaultProvider)

	if cfg.LLM.Ollama.Host != "" {
		log.Info().Str("host", cfg.LLM.Ollama.Host).Msg("Registering Ollama provider")
		llmRouter.RegisterProvider(ollama.NewProvider(cfg.LLM.Ollama.Host, cfg.LLM.Ollama.DefaultModel))
	}
	if cfg.LLM.OpenAI.APIKey != "" {
		llmRouter.RegisterProvider(openai.NewProvider(cfg.LLM.OpenAI.APIKey, cfg.LLM.OpenAI.Model))
	}
	if cfg.LLM.Together.APIKey != "" {
		llmRouter.RegisterProvider(together.NewProvider(cfg.LLM.Together.APIKey, cfg.LLM.Together.Model))
	}
	if cfg.LLM.Gemini.APIKey != "" {
		llmRouter.RegisterProvider(gemini.NewProvider(cfg.LLM.Gemini.APIKey, cfg.LLM.Gemini.Model))
	} else {
		log.Warn().Msg("Gemini API Key is empty, skipping registration")
	}

	// Notification channel
	notifier := notify.NewSendGridNotifier(cfg.Email.SendGridAPIKey, cfg.Email.FromEmail, cfg.Email.FromName)

	// Optional Redis-backed rate limiting and status caching
	var rateLimitMiddleware *customMiddleware.RateLimitMiddleware
	var statusCache agent.StatusCache
	if redisClient != nil {
		rateLimitMiddleware = customMiddleware.NewRateLimitMiddleware(redis.NewRateLimiter(
			redisClient,
			cfg.Security.RateLimit.RequestsPerMinute,
			cfg.Security.RateLimit.Burst,
		))
		statusCache = redis.NewStatusCache(redisClient)
	}

	// Workflow engine
	engine := agent.NewEngine(store, llmRouter, notifier, selectionTokens, agent.Options{
		PublicURL:   cfg.Server.PublicURL,
		Provider:    cfg.LLM.DefaultProvider,
		Temperature: completionTemperature,
		Cache:       statusCache,
	})

	// Handlers
	agentHandler := handler.NewAgentHandler(engine, selectionTokens)
	authMiddleware := customMiddleware.NewAuthMiddleware(jwtManager)

	r.Route("/api/v1", func(r chi.Router) {
		// Health check
		r.Get("/health", handler.HealthCheck)
		r.Get("/ready", handler.ReadyCheck(pinger))

		// The selection link from the suggestion email carries its own
		// credential, so it bypasses bearer auth.
		r.Get("/agent/select-dish", agentHandler.SelectDish)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)
			if rateLimitMiddleware != nil {
				r.Use(rateLimitMiddleware.Limit)
			}

			r.Get("/llm-providers", handler.ListLLMProviders(llmRouter))

			r.Route("/agent", func(r chi.Router) {
				r.Post("/detect", agentHandler.Detect)

				r.Route("/sessions", func(r chi.Router) {
					r.Get("/", agentHandler.ListPending)

					r.Route("/{sessionID}", func(r chi.Router) {
						r.Get("/", agentHandler.Detail)
						r.Get("/status", agentHandler.Status)
						r.Delete("/", agentHandler.Delete)
					})
				})
			})
		})
	})

	return r
}
