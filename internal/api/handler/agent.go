package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/quochai/cookflow/internal/agent"
	"github.com/quochai/cookflow/internal/api/middleware"
	"github.com/quochai/cookflow/internal/api/response"
	"github.com/quochai/cookflow/internal/domain"
	"github.com/quochai/cookflow/internal/security"
)

var validate = validator.New()

// AgentHandler handles cooking workflow endpoints
type AgentHandler struct {
	engine *agent.Engine
	tokens *security.SelectionTokenManager
}

// NewAgentHandler creates a new agent handler
func NewAgentHandler(engine *agent.Engine, tokens *security.SelectionTokenManager) *AgentHandler {
	return &AgentHandler{engine: engine, tokens: tokens}
}

type detectRequest struct {
	Detections []domain.Detection `json:"detections" validate:"required,min=1,dive"`
}

type detectResponse struct {
	SessionID     uuid.UUID    `json:"session_id"`
	Stage         domain.Stage `json:"stage"`
	StatusMessage string       `json:"status_message"`
}

// Detect starts a cooking session from detected ingredients. The suggestion
// stage runs synchronously, so the response already reflects whether the
// suggestion email went out.
func (h *AgentHandler) Detect(w http.ResponseWriter, r *http.Request) {
	requester, ok := middleware.GetRequester(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req detectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	session, err := h.engine.Start(r.Context(), requester, req.Detections)
	if err != nil {
		response.InternalError(w, err.Error())
		return
	}

	response.Created(w, detectResponse{
		SessionID:     session.ID,
		Stage:         session.Stage,
		StatusMessage: statusMessage(session.Stage),
	})
}

// SelectDish resumes a suspended session from an emailed selection link. The
// capability token is the sole credential; the endpoint renders HTML because
// it is opened in a browser, not called by an API client.
func (h *AgentHandler) SelectDish(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		renderSelectionError(w, http.StatusBadRequest, "Missing selection token.")
		return
	}

	dishIndex, err := strconv.Atoi(r.URL.Query().Get("dish_index"))
	if err != nil {
		renderSelectionError(w, http.StatusBadRequest, "Invalid dish index.")
		return
	}

	// Token verification happens before any session lookup.
	claims, err := h.tokens.Verify(token)
	if err != nil {
		renderSelectionError(w, http.StatusUnauthorized, "This selection link is invalid or has expired.")
		return
	}

	session, err := h.engine.Resume(r.Context(), claims.SessionID, claims.UserID, dishIndex)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrSessionNotFound):
			renderSelectionError(w, http.StatusNotFound, "This cooking session no longer exists.")
		case errors.Is(err, domain.ErrStageConflict), errors.Is(err, domain.ErrVersionMismatch):
			// A version mismatch means another resumption won the save race,
			// which is the same situation as re-clicking a used link.
			renderSelectionError(w, http.StatusConflict, "This session is not waiting for a selection. You may have already chosen a dish.")
		case errors.Is(err, domain.ErrInvalidSelection):
			renderSelectionError(w, http.StatusBadRequest, "That dish choice is not valid for this session.")
		default:
			renderSelectionError(w, http.StatusInternalServerError, "Something went wrong while processing your selection.")
		}
		return
	}

	renderSelectionConfirmed(w, session)
}

type statusResponse struct {
	SessionID uuid.UUID     `json:"session_id"`
	Stage     domain.Stage  `json:"stage"`
	Status    domain.Status `json:"status"`
	CreatedAt string        `json:"created_at"`
	UpdatedAt string        `json:"updated_at"`
}

// Status returns the coarse status projection for a session
func (h *AgentHandler) Status(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		response.BadRequest(w, "invalid session ID")
		return
	}

	status, err := h.engine.Status(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			response.NotFound(w, "session not found")
			return
		}
		response.InternalError(w, err.Error())
		return
	}

	response.OK(w, status)
}

// Detail returns the full session record, including error detail, to its
// owner
func (h *AgentHandler) Detail(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		response.BadRequest(w, "invalid session ID")
		return
	}

	session, err := h.engine.Detail(r.Context(), sessionID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			response.NotFound(w, "session not found")
			return
		}
		response.InternalError(w, err.Error())
		return
	}

	response.OK(w, session)
}

// ListPending returns ids of sessions suspended waiting for a selection
func (h *AgentHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	ids, err := h.engine.ListPending(r.Context())
	if err != nil {
		response.InternalError(w, err.Error())
		return
	}
	if ids == nil {
		ids = []uuid.UUID{}
	}

	response.OK(w, map[string]any{
		"session_ids": ids,
		"count":       len(ids),
	})
}

// Delete removes a session owned by the caller
func (h *AgentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		response.BadRequest(w, "invalid session ID")
		return
	}

	// Ownership check before deleting.
	if _, err := h.engine.Detail(r.Context(), sessionID, userID); err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			response.NotFound(w, "session not found")
			return
		}
		response.InternalError(w, err.Error())
		return
	}

	if err := h.engine.Delete(r.Context(), sessionID); err != nil {
		response.InternalError(w, err.Error())
		return
	}

	response.NoContent(w)
}

// statusMessage is the human-readable line returned when a session starts.
func statusMessage(stage domain.Stage) string {
	switch stage {
	case domain.StageWaitingSelection:
		return "Dish suggestions have been sent to your email. Pick one to get the full recipe."
	case domain.StageError:
		return "We could not prepare dish suggestions. Please try again with a new photo."
	default:
		return "Your ingredients are being processed."
	}
}

var selectionConfirmedPage = template.Must(template.New("confirmed").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>Dish Selected - AI Chef</title>
  <style>
    body { font-family: Arial, sans-serif; background-color: #f5f5f5; margin: 0; padding: 40px 20px; }
    .card { max-width: 520px; margin: 0 auto; background: #fff; border-radius: 8px; padding: 32px; box-shadow: 0 2px 8px rgba(0,0,0,0.1); text-align: center; }
    h1 { color: #2e7d32; font-size: 22px; }
    p { color: #555; line-height: 1.6; }
    .dish { font-weight: bold; color: #333; }
  </style>
</head>
<body>
  <div class="card">
    <h1>You picked {{.Dish}}!</h1>
    {{if .Completed}}
    <p>The full recipe for <span class="dish">{{.Dish}}</span> is on its way to your inbox. Happy cooking!</p>
    {{else}}
    <p>We recorded your choice of <span class="dish">{{.Dish}}</span>, but preparing the recipe ran into a problem. Check the session status for details.</p>
    {{end}}
  </div>
</body>
</html>`))

var selectionErrorPage = template.Must(template.New("error").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>Selection Failed - AI Chef</title>
  <style>
    body { font-family: Arial, sans-serif; background-color: #f5f5f5; margin: 0; padding: 40px 20px; }
    .card { max-width: 520px; margin: 0 auto; background: #fff; border-radius: 8px; padding: 32px; box-shadow: 0 2px 8px rgba(0,0,0,0.1); text-align: center; }
    h1 { color: #c62828; font-size: 22px; }
    p { color: #555; line-height: 1.6; }
  </style>
</head>
<body>
  <div class="card">
    <h1>Selection Failed</h1>
    <p>{{.Message}}</p>
  </div>
</body>
</html>`))

func renderSelectionConfirmed(w http.ResponseWriter, session *domain.Session) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	data := struct {
		Dish      string
		Completed bool
	}{
		Dish:      session.SelectedDish,
		Completed: session.Stage == domain.StageCompleted,
	}
	if err := selectionConfirmedPage.Execute(w, data); err != nil {
		fmt.Fprint(w, "Selection recorded.")
	}
}

func renderSelectionError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)

	data := struct{ Message string }{Message: message}
	if err := selectionErrorPage.Execute(w, data); err != nil {
		fmt.Fprint(w, message)
	}
}
