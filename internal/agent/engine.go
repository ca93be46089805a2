package agent

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/quochai/cookflow/internal/domain"
	"github.com/quochai/cookflow/internal/llm"
	"github.com/quochai/cookflow/internal/notify"
	"github.com/rs/zerolog/log"
)

// StatusCache is an optional read-through cache for status projections.
// Satisfied by the Redis-backed cache; nil disables caching.
type StatusCache interface {
	Get(ctx context.Context, sessionID uuid.UUID) (*domain.SessionStatus, error)
	Set(ctx context.Context, sessionID uuid.UUID, status *domain.SessionStatus) error
	Invalidate(ctx context.Context, sessionID uuid.UUID) error
}

// Options tune the engine's completion calls and link building.
type Options struct {
	// PublicURL is the externally reachable base URL used in selection links.
	PublicURL string
	// Provider selects the completion provider; empty uses the router default.
	Provider string
	// Model overrides the provider's default model when non-empty.
	Model       string
	Temperature float64
	// Cache is the optional status projection cache.
	Cache StatusCache
}

// Engine drives the cooking workflow state machine. Each session moves
// through suggesting, waiting_selection, generating_recipe and completed,
// with error terminal from any non-terminal stage. The store is the only
// state that survives the suspension at waiting_selection; the engine keeps
// no session cache of its own.
type Engine struct {
	store    domain.SessionStore
	llm      *llm.Router
	notifier notify.Notifier
	tokens   TokenIssuer
	opts     Options
	locks    *sessionLocks
}

// TokenIssuer mints dish-selection capability tokens. Satisfied by
// security.SelectionTokenManager.
type TokenIssuer interface {
	Generate(sessionID uuid.UUID, userID string) (string, error)
}

// NewEngine creates a workflow engine with injected dependencies.
func NewEngine(store domain.SessionStore, llmRouter *llm.Router, notifier notify.Notifier, tokens TokenIssuer, opts Options) *Engine {
	return &Engine{
		store:    store,
		llm:      llmRouter,
		notifier: notifier,
		tokens:   tokens,
		opts:     opts,
		locks:    newSessionLocks(),
	}
}

// Start creates a session from detected ingredients and runs the suggestion
// stage synchronously. The returned session is in waiting_selection on
// success or in the error stage when suggestion or dispatch failed; either
// way the session is persisted and queryable.
func (e *Engine) Start(ctx context.Context, requester domain.Requester, detections []domain.Detection) (*domain.Session, error) {
	session := domain.NewSession(requester, detections)
	session.AppendMessage(fmt.Sprintf("Detected ingredients: %s", strings.Join(session.IngredientNames, ", ")))

	if err := e.store.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	log.Info().
		Str("session_id", session.ID.String()).
		Str("user_id", requester.UserID).
		Int("ingredients", len(session.IngredientNames)).
		Msg("cooking session started")

	e.runSuggestion(ctx, session)
	return session, nil
}

// Resume records a dish selection and synchronously runs the remaining
// stages. Only valid against a session in waiting_selection; anything else
// is a conflict. The per-session lock guarantees that of two racing
// resumptions exactly one passes the stage check.
func (e *Engine) Resume(ctx context.Context, sessionID uuid.UUID, userID string, dishIndex int) (*domain.Session, error) {
	unlock := e.locks.Lock(sessionID)
	defer unlock()

	session, err := e.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	// A token for someone else's session is indistinguishable from a
	// missing session to the caller.
	if session.Requester.UserID != userID {
		return nil, domain.ErrSessionNotFound
	}

	if session.Stage != domain.StageWaitingSelection {
		return nil, fmt.Errorf("%w: session is in stage %s", domain.ErrStageConflict, session.Stage)
	}
	if len(session.SuggestedDishes) == 0 {
		return nil, fmt.Errorf("%w: session has no suggested dishes", domain.ErrInvalidSelection)
	}
	if dishIndex < 0 || dishIndex >= len(session.SuggestedDishes) {
		return nil, fmt.Errorf("%w: dish index %d out of range [0,%d)", domain.ErrInvalidSelection, dishIndex, len(session.SuggestedDishes))
	}

	dish := session.SuggestedDishes[dishIndex]
	session.SelectedDish = dish.Name
	session.SelectedAdditional = dish.AdditionalIngredients
	session.AwaitingFeedback = false
	session.Stage = domain.StageGeneratingRecipe
	session.AppendMessage(fmt.Sprintf("User selected dish: %s", dish.Name))

	// The selection must be durable before any further model call, so a
	// recipe-stage failure remains diagnosable against the chosen dish.
	if err := e.persist(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save selection: %w", err)
	}

	log.Info().
		Str("session_id", session.ID.String()).
		Str("dish", dish.Name).
		Msg("session resumed with dish selection")

	e.runRecipe(ctx, session)
	return session, nil
}

// Status returns the external projection for a session, serving from the
// cache when one is configured.
func (e *Engine) Status(ctx context.Context, sessionID uuid.UUID) (*domain.SessionStatus, error) {
	if e.opts.Cache != nil {
		cached, err := e.opts.Cache.Get(ctx, sessionID)
		if err != nil {
			log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("status cache read failed")
		}
		if cached != nil {
			return cached, nil
		}
	}

	status, err := e.store.Status(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if e.opts.Cache != nil {
		if err := e.opts.Cache.Set(ctx, sessionID, status); err != nil {
			log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("status cache write failed")
		}
	}
	return status, nil
}

// Detail returns the full session record, including error detail, for its
// owner. Callers are responsible for authenticating userID.
func (e *Engine) Detail(ctx context.Context, sessionID uuid.UUID, userID string) (*domain.Session, error) {
	session, err := e.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Requester.UserID != userID {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// Delete removes a session record.
func (e *Engine) Delete(ctx context.Context, sessionID uuid.UUID) error {
	if err := e.store.Delete(ctx, sessionID); err != nil {
		return err
	}
	if e.opts.Cache != nil {
		if err := e.opts.Cache.Invalidate(ctx, sessionID); err != nil {
			log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("status cache invalidation failed")
		}
	}
	return nil
}

// ListPending returns the ids of sessions suspended in waiting_selection.
func (e *Engine) ListPending(ctx context.Context) ([]uuid.UUID, error) {
	return e.store.ListPending(ctx)
}

// runSuggestion executes the suggestion stage and dispatches the selection
// notice. Failures never propagate; they land on the session as a terminal
// error stage.
func (e *Engine) runSuggestion(ctx context.Context, session *domain.Session) {
	dishes, err := e.suggestDishes(ctx, session)
	if err != nil {
		e.fail(ctx, session, fmt.Sprintf("dish suggestion failed: %v", err))
		return
	}

	session.SuggestedDishes = dishes
	session.AppendMessage(fmt.Sprintf("Suggested %d dishes", len(dishes)))

	options := make([]notify.DishOption, 0, len(dishes))
	for i, dish := range dishes {
		token, err := e.tokens.Generate(session.ID, session.Requester.UserID)
		if err != nil {
			e.fail(ctx, session, fmt.Sprintf("failed to issue selection token: %v", err))
			return
		}
		options = append(options, notify.DishOption{
			Dish:         dish,
			SelectionURL: e.selectionURL(token, i),
		})
	}

	email := notify.DishSelectionEmail{
		To:          session.Requester.Email,
		Username:    session.Requester.Username,
		Ingredients: session.IngredientNames,
		Options:     options,
	}
	if err := e.notifier.SendDishSelection(ctx, email); err != nil {
		// A session whose suggestion email never went out must not sit in
		// waiting_selection forever.
		e.fail(ctx, session, fmt.Sprintf("failed to send dish suggestions: %v", err))
		return
	}

	session.Stage = domain.StageWaitingSelection
	session.AwaitingFeedback = true
	session.AppendMessage("Dish suggestions sent, waiting for selection")

	if err := e.persist(ctx, session); err != nil {
		log.Error().Err(err).Str("session_id", session.ID.String()).Msg("failed to persist suspended session")
	}
}

// runRecipe executes the recipe stage and dispatches the recipe notice. A
// generation failure is terminal; a delivery failure after successful
// generation keeps the completed stage and only records the failure.
func (e *Engine) runRecipe(ctx context.Context, session *domain.Session) {
	recipe, err := e.generateRecipe(ctx, session)
	if err != nil {
		e.fail(ctx, session, fmt.Sprintf("recipe generation failed: %v", err))
		return
	}

	session.Recipe = recipe
	session.Stage = domain.StageCompleted
	session.AppendMessage(fmt.Sprintf("Recipe generated for %s", session.SelectedDish))

	if err := e.persist(ctx, session); err != nil {
		log.Error().Err(err).Str("session_id", session.ID.String()).Msg("failed to persist completed session")
		return
	}

	email := notify.RecipeEmail{
		To:       session.Requester.Email,
		Username: session.Requester.Username,
		DishName: session.SelectedDish,
		Recipe:   recipe,
	}
	if err := e.notifier.SendRecipe(ctx, email); err != nil {
		// The recipe exists and is retrievable; only delivery failed, so the
		// stage stays completed.
		session.Error = fmt.Sprintf("recipe notification failed: %v", err)
		session.AppendMessage(session.Error)
		if err := e.persist(ctx, session); err != nil {
			log.Error().Err(err).Str("session_id", session.ID.String()).Msg("failed to record notification failure")
		}
		return
	}

	session.AppendMessage("Recipe sent")
	if err := e.persist(ctx, session); err != nil {
		log.Error().Err(err).Str("session_id", session.ID.String()).Msg("failed to persist session after recipe notice")
	}
}

// suggestDishes runs the suggestion completion and parses the dish list.
func (e *Engine) suggestDishes(ctx context.Context, session *domain.Session) ([]domain.Dish, error) {
	resp, err := e.complete(ctx, llm.BuildSuggestionPrompt(session.IngredientNames))
	if err != nil {
		return nil, err
	}

	raw, err := llm.ExtractJSON(resp.Content, session.ID.String())
	if err != nil {
		return nil, err
	}
	return ParseDishes(raw)
}

// generateRecipe runs the recipe completion and parses the tolerant recipe
// schema.
func (e *Engine) generateRecipe(ctx context.Context, session *domain.Session) (*domain.Recipe, error) {
	prompt := llm.BuildRecipePrompt(session.SelectedDish, session.IngredientNames, session.SelectedAdditional)
	resp, err := e.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	raw, err := llm.ExtractJSON(resp.Content, session.ID.String())
	if err != nil {
		return nil, err
	}

	recipe, err := ParseRecipe(raw)
	if err != nil {
		return nil, err
	}
	if recipe.DishName == "" {
		recipe.DishName = session.SelectedDish
	}
	return recipe, nil
}

func (e *Engine) complete(ctx context.Context, prompt string) (*llm.Response, error) {
	provider, err := e.llm.GetProvider(e.opts.Provider)
	if err != nil {
		return nil, err
	}

	model := e.opts.Model
	if model == "" {
		model = provider.DefaultModel()
	}

	req := llm.Request{
		System:      llm.SystemPrompt,
		Prompt:      prompt,
		Temperature: e.opts.Temperature,
	}
	return provider.Complete(ctx, req, model)
}

// fail marks a session terminally failed and persists it.
func (e *Engine) fail(ctx context.Context, session *domain.Session, msg string) {
	session.Stage = domain.StageError
	session.AwaitingFeedback = false
	session.Error = msg
	session.AppendMessage(msg)

	log.Error().
		Str("session_id", session.ID.String()).
		Str("error", msg).
		Msg("session failed")

	if err := e.persist(ctx, session); err != nil {
		log.Error().Err(err).Str("session_id", session.ID.String()).Msg("failed to persist failed session")
	}
}

// persist saves the session and drops any cached status projection.
func (e *Engine) persist(ctx context.Context, session *domain.Session) error {
	if err := e.store.Save(ctx, session); err != nil {
		return err
	}
	if e.opts.Cache != nil {
		if err := e.opts.Cache.Invalidate(ctx, session.ID); err != nil {
			log.Warn().Err(err).Str("session_id", session.ID.String()).Msg("status cache invalidation failed")
		}
	}
	return nil
}

// selectionURL builds the link a user clicks to select a dish.
func (e *Engine) selectionURL(token string, dishIndex int) string {
	base := strings.TrimRight(e.opts.PublicURL, "/")
	params := url.Values{}
	params.Set("token", token)
	params.Set("dish_index", fmt.Sprintf("%d", dishIndex))
	return fmt.Sprintf("%s/api/v1/agent/select-dish?%s", base, params.Encode())
}
