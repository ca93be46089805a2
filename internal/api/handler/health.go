package handler

import (
	"context"
	"net/http"

	"github.com/quochai/cookflow/internal/api/response"
	"github.com/quochai/cookflow/internal/llm"
)

// Pinger reports backend connectivity. Satisfied by the postgres pool; nil
// means no backend participates in readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthCheck returns a simple health check response
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]string{
		"status": "ok",
	})
}

// ReadyCheck returns readiness status including store connectivity
func ReadyCheck(store Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store != nil {
			if err := store.Ping(r.Context()); err != nil {
				response.Error(w, http.StatusServiceUnavailable, "session store not ready")
				return
			}
		}

		response.OK(w, map[string]string{
			"status": "ready",
		})
	}
}

// ListLLMProviders returns available completion providers
func ListLLMProviders(router *llm.Router) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.OK(w, map[string]any{
			"default":   router.DefaultProvider(),
			"providers": router.GetProvidersInfo(),
		})
	}
}
