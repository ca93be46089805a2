package notify

import (
	"testing"

	"github.com/quochai/cookflow/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderSelection(t *testing.T) {
	email := DishSelectionEmail{
		To:          "user@example.com",
		Username:    "cook",
		Ingredients: []string{"egg", "rice"},
		Options: []DishOption{
			{
				Dish: domain.Dish{
					Name:                  "Fried Rice",
					Description:           "Classic fried rice",
					Difficulty:            "Easy",
					CookingTime:           "20 minutes",
					AdditionalIngredients: []string{"soy sauce"},
				},
				SelectionURL: "http://localhost:8080/api/v1/agent/select-dish?token=abc&dish_index=0",
			},
		},
	}

	html, err := renderSelection(email)
	require.NoError(t, err)

	assert.Contains(t, html, "cook")
	assert.Contains(t, html, "Fried Rice")
	assert.Contains(t, html, "egg, rice")
	assert.Contains(t, html, "soy sauce")
	assert.Contains(t, html, "dish_index=0")
}

func TestRenderRecipe(t *testing.T) {
	email := RecipeEmail{
		To:       "user@example.com",
		Username: "cook",
		DishName: "Fried Rice",
		Recipe: &domain.Recipe{
			DishName: "Fried Rice",
			Ingredients: domain.RecipeIngredients{
				Available: []string{"2 eggs", "1 bowl rice"},
				Needed:    []string{"2 tbsp soy sauce"},
			},
			Preparation: []string{"Beat the eggs"},
			Steps:       []string{"Heat the pan", "Fry the rice"},
			Tips:        []string{"Use day-old rice"},
			Nutrition:   map[string]string{"calories": "450 kcal"},
			Time:        map[string]string{"total": "20 minutes"},
			Servings:    2,
		},
	}

	html, err := renderRecipe(email)
	require.NoError(t, err)

	assert.Contains(t, html, "Fried Rice")
	assert.Contains(t, html, "2 eggs")
	assert.Contains(t, html, "Heat the pan")
	assert.Contains(t, html, "Use day-old rice")
	assert.Contains(t, html, "450 kcal")
}

func TestRenderRecipe_Sparse(t *testing.T) {
	// A tolerant recipe may be mostly empty; rendering must still work.
	email := RecipeEmail{
		To:       "user@example.com",
		Username: "cook",
		DishName: "Pho",
		Recipe:   &domain.Recipe{DishName: "Pho", Steps: []string{"Simmer the broth"}},
	}

	html, err := renderRecipe(email)
	require.NoError(t, err)
	assert.Contains(t, html, "Pho")
	assert.Contains(t, html, "Simmer the broth")
}

func TestRenderSelection_EscapesHTML(t *testing.T) {
	email := DishSelectionEmail{
		Username: "<script>alert(1)</script>",
		Options: []DishOption{
			{Dish: domain.Dish{Name: "Safe Dish"}, SelectionURL: "http://example.com"},
		},
	}

	html, err := renderSelection(email)
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>alert(1)</script>")
}
