package agent

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/quochai/cookflow/internal/domain"
	"github.com/quochai/cookflow/internal/llm"
	"github.com/quochai/cookflow/internal/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dishesJSON = "```json\n" +
	`{"dishes": [
		{"name": "Fried Rice", "description": "Classic fried rice", "difficulty": "Easy", "cooking_time": "20 minutes", "additional_ingredients": ["soy sauce"]},
		{"name": "Egg Soup", "description": "Light soup", "difficulty": "Easy", "cooking_time": "15 minutes", "additional_ingredients": []},
		{"name": "Omelette", "description": "Fluffy omelette", "difficulty": "Medium", "cooking_time": "10 minutes", "additional_ingredients": ["butter"]}
	]}` + "\n```"

const recipeJSON = "```json\n" +
	`{"dish_name": "Fried Rice",
	  "ingredients": {"available": ["2 eggs", "1 bowl rice"], "needed": ["2 tbsp soy sauce"]},
	  "preparation": ["Beat the eggs"],
	  "steps": ["Heat the pan", "Fry the rice"],
	  "tips": ["Use day-old rice"],
	  "nutrition": {"calories": "450 kcal"},
	  "time": {"total": "20 minutes"},
	  "servings": 2}` + "\n```"

var testDetections = []domain.Detection{
	{Label: "egg", Confidence: 0.9, BBox: []float64{0, 0, 1, 1}},
	{Label: "rice", Confidence: 0.8, BBox: []float64{0, 0, 1, 1}},
}

var testRequester = domain.Requester{UserID: "user-1", Email: "user@example.com", Username: "cook"}

type engineFixture struct {
	engine   *Engine
	store    *memStore
	provider *fakeProvider
	notifier *fakeNotifier
	tokens   *security.SelectionTokenManager
}

func newFixture(responses ...string) *engineFixture {
	store := newMemStore()
	provider := &fakeProvider{responses: responses}
	notifier := &fakeNotifier{}
	tokens := security.NewSelectionTokenManager("test-secret", time.Hour)

	router := llm.NewRouter("fake")
	router.RegisterProvider(provider)

	engine := NewEngine(store, router, notifier, tokens, Options{
		PublicURL: "http://localhost:8080",
	})

	return &engineFixture{engine: engine, store: store, provider: provider, notifier: notifier, tokens: tokens}
}

func TestEngine_Start_Success(t *testing.T) {
	f := newFixture(dishesJSON)
	ctx := context.Background()

	session, err := f.engine.Start(ctx, testRequester, testDetections)
	require.NoError(t, err)

	assert.Equal(t, []string{"egg", "rice"}, session.IngredientNames)
	assert.Equal(t, domain.StageWaitingSelection, session.Stage)
	assert.True(t, session.AwaitingFeedback)
	assert.Len(t, session.SuggestedDishes, 3)
	assert.Equal(t, "Fried Rice", session.SuggestedDishes[0].Name)

	// One email with one selection link per dish.
	require.Len(t, f.notifier.selections, 1)
	email := f.notifier.selections[0]
	assert.Equal(t, "user@example.com", email.To)
	require.Len(t, email.Options, 3)
	assert.Contains(t, email.Options[0].SelectionURL, "dish_index=0")
	assert.Contains(t, email.Options[2].SelectionURL, "dish_index=2")
	assert.Contains(t, email.Options[0].SelectionURL, "token=")

	// The suspended state is durable.
	stored, err := f.store.Load(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StageWaitingSelection, stored.Stage)
	assert.True(t, stored.AwaitingFeedback)
}

func TestEngine_Start_EmptyModelResponse(t *testing.T) {
	f := newFixture("")
	ctx := context.Background()

	session, err := f.engine.Start(ctx, testRequester, testDetections)
	require.NoError(t, err)

	assert.Equal(t, domain.StageError, session.Stage)
	assert.Contains(t, session.Error, "empty")
	assert.Empty(t, session.SuggestedDishes)
	assert.False(t, session.AwaitingFeedback)
	assert.Empty(t, f.notifier.selections)
}

func TestEngine_Start_EmptyDishList(t *testing.T) {
	f := newFixture(`{"dishes": []}`)

	session, err := f.engine.Start(context.Background(), testRequester, testDetections)
	require.NoError(t, err)

	assert.Equal(t, domain.StageError, session.Stage)
	assert.Contains(t, session.Error, "no dishes")
}

func TestEngine_Start_DispatchFailure(t *testing.T) {
	f := newFixture(dishesJSON)
	f.notifier.selectionErr = errors.New("sendgrid down")

	session, err := f.engine.Start(context.Background(), testRequester, testDetections)
	require.NoError(t, err)

	// A session whose suggestion email never went out is terminally failed,
	// not silently suspended.
	assert.Equal(t, domain.StageError, session.Stage)
	assert.Contains(t, session.Error, "sendgrid down")
	assert.False(t, session.AwaitingFeedback)
}

func TestEngine_Resume_Success(t *testing.T) {
	f := newFixture(dishesJSON, recipeJSON)
	ctx := context.Background()

	started, err := f.engine.Start(ctx, testRequester, testDetections)
	require.NoError(t, err)

	session, err := f.engine.Resume(ctx, started.ID, testRequester.UserID, 0)
	require.NoError(t, err)

	assert.Equal(t, domain.StageCompleted, session.Stage)
	assert.Equal(t, "Fried Rice", session.SelectedDish)
	assert.Equal(t, []string{"soy sauce"}, session.SelectedAdditional)
	assert.False(t, session.AwaitingFeedback)
	require.NotNil(t, session.Recipe)
	assert.Equal(t, []string{"Heat the pan", "Fry the rice"}, session.Recipe.Steps)

	require.Len(t, f.notifier.recipes, 1)
	assert.Equal(t, "Fried Rice", f.notifier.recipes[0].DishName)

	stored, err := f.store.Load(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StageCompleted, stored.Stage)
}

func TestEngine_Resume_InvalidIndex(t *testing.T) {
	f := newFixture(dishesJSON)
	ctx := context.Background()

	started, err := f.engine.Start(ctx, testRequester, testDetections)
	require.NoError(t, err)
	before, err := f.store.Load(ctx, started.ID)
	require.NoError(t, err)

	_, err = f.engine.Resume(ctx, started.ID, testRequester.UserID, 5)
	assert.ErrorIs(t, err, domain.ErrInvalidSelection)

	_, err = f.engine.Resume(ctx, started.ID, testRequester.UserID, -1)
	assert.ErrorIs(t, err, domain.ErrInvalidSelection)

	// No mutation happened.
	after, err := f.store.Load(ctx, started.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StageWaitingSelection, after.Stage)
	assert.Equal(t, before.UpdatedAt, after.UpdatedAt)
	assert.Equal(t, before.Version, after.Version)
}

func TestEngine_Resume_Conflict(t *testing.T) {
	f := newFixture(dishesJSON, recipeJSON)
	ctx := context.Background()

	started, err := f.engine.Start(ctx, testRequester, testDetections)
	require.NoError(t, err)

	_, err = f.engine.Resume(ctx, started.ID, testRequester.UserID, 0)
	require.NoError(t, err)
	completed, err := f.store.Load(ctx, started.ID)
	require.NoError(t, err)

	// Resuming a completed session is a conflict and touches nothing.
	_, err = f.engine.Resume(ctx, started.ID, testRequester.UserID, 1)
	assert.ErrorIs(t, err, domain.ErrStageConflict)

	after, err := f.store.Load(ctx, started.ID)
	require.NoError(t, err)
	assert.Equal(t, completed.UpdatedAt, after.UpdatedAt)
	assert.Equal(t, "Fried Rice", after.SelectedDish)
}

func TestEngine_Resume_WrongUser(t *testing.T) {
	f := newFixture(dishesJSON)
	ctx := context.Background()

	started, err := f.engine.Start(ctx, testRequester, testDetections)
	require.NoError(t, err)

	_, err = f.engine.Resume(ctx, started.ID, "someone-else", 0)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestEngine_Resume_RecipeFailure(t *testing.T) {
	f := newFixture(dishesJSON, "not json at all")
	ctx := context.Background()

	started, err := f.engine.Start(ctx, testRequester, testDetections)
	require.NoError(t, err)

	session, err := f.engine.Resume(ctx, started.ID, testRequester.UserID, 0)
	require.NoError(t, err)

	assert.Equal(t, domain.StageError, session.Stage)
	assert.Contains(t, session.Error, "recipe generation failed")

	// The selection survived the failure: the error is diagnosable against
	// the chosen dish.
	stored, err := f.store.Load(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, "Fried Rice", stored.SelectedDish)
	assert.Equal(t, domain.StageError, stored.Stage)
}

func TestEngine_Resume_NullRecipePayload(t *testing.T) {
	// "null" survives JSON extraction and struct unmarshalling, so without
	// the object check the session would complete with an empty recipe.
	f := newFixture(dishesJSON, "null")
	ctx := context.Background()

	started, err := f.engine.Start(ctx, testRequester, testDetections)
	require.NoError(t, err)

	session, err := f.engine.Resume(ctx, started.ID, testRequester.UserID, 0)
	require.NoError(t, err)

	assert.Equal(t, domain.StageError, session.Stage)
	assert.Contains(t, session.Error, "recipe generation failed")
	assert.Nil(t, session.Recipe)
	assert.Empty(t, f.notifier.recipes)
}

func TestEngine_Resume_RecipeDispatchFailure(t *testing.T) {
	f := newFixture(dishesJSON, recipeJSON)
	f.notifier.recipeErr = errors.New("mailbox full")
	ctx := context.Background()

	started, err := f.engine.Start(ctx, testRequester, testDetections)
	require.NoError(t, err)

	session, err := f.engine.Resume(ctx, started.ID, testRequester.UserID, 0)
	require.NoError(t, err)

	// Generation succeeded; only delivery failed. The stage stays completed
	// and the failure is recorded.
	assert.Equal(t, domain.StageCompleted, session.Stage)
	assert.NotNil(t, session.Recipe)
	assert.Contains(t, session.Error, "mailbox full")
}

func TestEngine_SingleResumption(t *testing.T) {
	f := newFixture(dishesJSON, recipeJSON, recipeJSON)
	ctx := context.Background()

	started, err := f.engine.Start(ctx, testRequester, testDetections)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = f.engine.Resume(ctx, started.ID, testRequester.UserID, 0)
		}(i)
	}
	wg.Wait()

	var successes, conflicts int
	for _, err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, domain.ErrStageConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	// Exactly one resumption transitions the session out of
	// waiting_selection.
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, conflicts)

	stored, err := f.store.Load(ctx, started.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StageCompleted, stored.Stage)
}

func TestEngine_InvariantCoupling(t *testing.T) {
	f := newFixture(dishesJSON, recipeJSON)
	ctx := context.Background()

	started, err := f.engine.Start(ctx, testRequester, testDetections)
	require.NoError(t, err)

	stored, err := f.store.Load(ctx, started.ID)
	require.NoError(t, err)
	assert.Equal(t, stored.Stage == domain.StageWaitingSelection, stored.AwaitingFeedback)
	assert.Empty(t, stored.SelectedDish)

	_, err = f.engine.Resume(ctx, started.ID, testRequester.UserID, 0)
	require.NoError(t, err)

	stored, err = f.store.Load(ctx, started.ID)
	require.NoError(t, err)
	assert.Equal(t, stored.Stage == domain.StageWaitingSelection, stored.AwaitingFeedback)
	assert.NotEmpty(t, stored.SelectedDish)
}

func TestEngine_ListPendingAndDelete(t *testing.T) {
	f := newFixture(dishesJSON)
	ctx := context.Background()

	started, err := f.engine.Start(ctx, testRequester, testDetections)
	require.NoError(t, err)

	ids, err := f.engine.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Equal(t, started.ID, ids[0])

	require.NoError(t, f.engine.Delete(ctx, started.ID))

	ids, err = f.engine.ListPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	_, err = f.engine.Status(ctx, started.ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}
