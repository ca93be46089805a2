package notify

import (
	"context"

	"github.com/quochai/cookflow/internal/domain"
)

// DishOption pairs a suggested dish with the link that selects it.
type DishOption struct {
	Dish         domain.Dish
	SelectionURL string
}

// DishSelectionEmail is the payload of the suggestion notification.
type DishSelectionEmail struct {
	To          string
	Username    string
	Ingredients []string
	Options     []DishOption
}

// RecipeEmail is the payload of the recipe notification.
type RecipeEmail struct {
	To       string
	Username string
	DishName string
	Recipe   *domain.Recipe
}

// Notifier dispatches workflow notifications. The engine treats it as an
// injected capability; delivery mechanics live behind this interface.
type Notifier interface {
	SendDishSelection(ctx context.Context, email DishSelectionEmail) error
	SendRecipe(ctx context.Context, email RecipeEmail) error
}
