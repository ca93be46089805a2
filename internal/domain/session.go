package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Stage is the workflow state of a cooking session.
type Stage string

const (
	StageDetecting        Stage = "detecting"
	StageSuggesting       Stage = "suggesting"
	StageWaitingSelection Stage = "waiting_selection"
	StageGeneratingRecipe Stage = "generating_recipe"
	StageCompleted        Stage = "completed"
	StageError            Stage = "error"
)

// stageOrder defines the monotonic progression of non-terminal stages.
var stageOrder = map[Stage]int{
	StageDetecting:        0,
	StageSuggesting:       1,
	StageWaitingSelection: 2,
	StageGeneratingRecipe: 3,
	StageCompleted:        4,
}

// Terminal reports whether no further stage handler may run.
func (s Stage) Terminal() bool {
	return s == StageCompleted || s == StageError
}

// Before reports whether s precedes other in the stage ordering.
// Error is not ordered; it is reachable from any non-terminal stage.
func (s Stage) Before(other Stage) bool {
	a, okA := stageOrder[s]
	b, okB := stageOrder[other]
	return okA && okB && a < b
}

// Status is the coarse externally-visible projection of a stage.
type Status string

const (
	StatusProcessing  Status = "processing"
	StatusWaitingUser Status = "waiting_user"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
	StatusPending     Status = "pending"
)

// StatusFor maps a stage to its external status.
func StatusFor(stage Stage) Status {
	switch stage {
	case StageDetecting, StageSuggesting, StageGeneratingRecipe:
		return StatusProcessing
	case StageWaitingSelection:
		return StatusWaitingUser
	case StageCompleted:
		return StatusCompleted
	case StageError:
		return StatusFailed
	default:
		return StatusPending
	}
}

// Detection is one labeled bounding box from the external ingredient classifier.
type Detection struct {
	Label      string    `json:"label" validate:"required"`
	Confidence float64   `json:"confidence" validate:"gte=0,lte=1"`
	BBox       []float64 `json:"bbox" validate:"required,len=4"`
}

// Dish is a single dish suggestion produced by the suggestion stage.
type Dish struct {
	Name                  string   `json:"name"`
	Description           string   `json:"description"`
	Difficulty            string   `json:"difficulty"`
	CookingTime           string   `json:"cooking_time"`
	AdditionalIngredients []string `json:"additional_ingredients"`
}

// RecipeIngredients splits a recipe's ingredient list by availability.
type RecipeIngredients struct {
	Available []string `json:"available"`
	Needed    []string `json:"needed"`
}

// Recipe is the structured recipe produced by the recipe stage. The schema is
// tolerant: absent sub-fields decode to empty values.
type Recipe struct {
	DishName    string            `json:"dish_name"`
	Ingredients RecipeIngredients `json:"ingredients"`
	Preparation []string          `json:"preparation"`
	Steps       []string          `json:"steps"`
	Tips        []string          `json:"tips"`
	Nutrition   map[string]string `json:"nutrition"`
	Time        map[string]string `json:"time"`
	Servings    int               `json:"servings"`
}

// Requester identifies who started a session and where to reach them.
type Requester struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

// Session is the aggregate root of one cooking workflow run. Field names are
// stable: records are read back after process restarts.
type Session struct {
	ID                  uuid.UUID   `json:"session_id"`
	Requester           Requester   `json:"requester"`
	DetectedIngredients []Detection `json:"detected_ingredients"`
	IngredientNames     []string    `json:"ingredient_names"`
	Stage               Stage       `json:"stage"`
	SuggestedDishes     []Dish      `json:"suggested_dishes,omitempty"`
	SelectedDish        string      `json:"selected_dish,omitempty"`
	SelectedAdditional  []string    `json:"selected_additional_ingredients,omitempty"`
	Recipe              *Recipe     `json:"recipe,omitempty"`
	AwaitingFeedback    bool        `json:"awaiting_feedback"`
	Error               string      `json:"error,omitempty"`
	Messages            []string    `json:"messages"`
	CreatedAt           time.Time   `json:"created_at"`
	UpdatedAt           time.Time   `json:"updated_at"`

	// Version supports optimistic saves; bumped by the store on every write.
	Version int64 `json:"version"`
}

// NewSession creates the initial state for a workflow run.
func NewSession(requester Requester, detections []Detection) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:                  uuid.New(),
		Requester:           requester,
		DetectedIngredients: detections,
		IngredientNames:     IngredientNames(detections),
		Stage:               StageSuggesting,
		Messages:            []string{},
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

// IngredientNames deduplicates detection labels preserving first-seen order.
func IngredientNames(detections []Detection) []string {
	seen := make(map[string]struct{}, len(detections))
	names := make([]string, 0, len(detections))
	for _, d := range detections {
		if _, ok := seen[d.Label]; ok {
			continue
		}
		seen[d.Label] = struct{}{}
		names = append(names, d.Label)
	}
	return names
}

// AppendMessage adds an entry to the session's audit trail.
func (s *Session) AppendMessage(msg string) {
	s.Messages = append(s.Messages, msg)
}

// SessionStatus is the external status projection of a session. It carries no
// error detail; that is a separate authenticated query.
type SessionStatus struct {
	SessionID uuid.UUID `json:"session_id"`
	Stage     Stage     `json:"stage"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StatusProjection builds the external projection for a session.
func StatusProjection(s *Session) *SessionStatus {
	return &SessionStatus{
		SessionID: s.ID,
		Stage:     s.Stage,
		Status:    StatusFor(s.Stage),
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

// SessionStore is durable, keyed persistence for sessions. Save must be atomic
// for a single session and must reject a write whose Version does not match
// the persisted record.
type SessionStore interface {
	Create(ctx context.Context, session *Session) error
	Save(ctx context.Context, session *Session) error
	Load(ctx context.Context, id uuid.UUID) (*Session, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Status(ctx context.Context, id uuid.UUID) (*SessionStatus, error)
	ListPending(ctx context.Context) ([]uuid.UUID, error)
}
