package agent

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDishes(t *testing.T) {
	raw := json.RawMessage(`{"dishes": [{"name": "Pho", "difficulty": "Hard", "additional_ingredients": ["star anise"]}]}`)

	dishes, err := ParseDishes(raw)
	require.NoError(t, err)
	require.Len(t, dishes, 1)
	assert.Equal(t, "Pho", dishes[0].Name)
	assert.Equal(t, []string{"star anise"}, dishes[0].AdditionalIngredients)
}

func TestParseDishes_EmptyList(t *testing.T) {
	_, err := ParseDishes(json.RawMessage(`{"dishes": []}`))
	assert.Error(t, err)
}

func TestParseDishes_MissingField(t *testing.T) {
	_, err := ParseDishes(json.RawMessage(`{"meals": [{"name": "Pho"}]}`))
	assert.Error(t, err)
}

func TestParseDishes_NotAnObject(t *testing.T) {
	_, err := ParseDishes(json.RawMessage(`["Pho", "Banh Mi"]`))
	assert.Error(t, err)
}

func TestParseRecipe_Tolerant(t *testing.T) {
	// A sparse recipe is acceptable; absent sub-fields default to empty.
	recipe, err := ParseRecipe(json.RawMessage(`{"dish_name": "Pho", "steps": ["Simmer the broth"]}`))
	require.NoError(t, err)

	assert.Equal(t, "Pho", recipe.DishName)
	assert.Equal(t, []string{"Simmer the broth"}, recipe.Steps)
	assert.Empty(t, recipe.Tips)
	assert.Empty(t, recipe.Nutrition)
	assert.Zero(t, recipe.Servings)
}

func TestParseRecipe_NotAnObject(t *testing.T) {
	// "null" is valid JSON and unmarshals into a struct without error,
	// so the object requirement has to be checked explicitly.
	cases := map[string]string{
		"string":  `"just a string"`,
		"null":    `null`,
		"array":   `[{"dish_name": "Pho"}]`,
		"boolean": `true`,
		"number":  `42`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			recipe, err := ParseRecipe(json.RawMessage(raw))
			assert.Error(t, err)
			assert.Nil(t, recipe)
		})
	}
}
