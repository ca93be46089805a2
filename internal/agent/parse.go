package agent

import (
	"encoding/json"
	"fmt"

	"github.com/quochai/cookflow/internal/domain"
)

type dishListPayload struct {
	Dishes []domain.Dish `json:"dishes"`
}

// ParseDishes decodes a dish-suggestion payload. The payload must be an
// object with a non-empty dishes list; anything less is a hard failure
// because the whole workflow hinges on having options to offer.
func ParseDishes(raw json.RawMessage) ([]domain.Dish, error) {
	var payload dishListPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("dish payload is not an object: %w", err)
	}
	if len(payload.Dishes) == 0 {
		return nil, fmt.Errorf("dish payload contains no dishes")
	}
	return payload.Dishes, nil
}

// ParseRecipe decodes a recipe payload. The schema is tolerant: missing
// sub-fields decode to their zero values, only a non-object payload fails.
// The object check is explicit because "null" unmarshals into a struct
// without error and would otherwise yield an empty recipe.
func ParseRecipe(raw json.RawMessage) (*domain.Recipe, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("recipe payload is not an object: %w", err)
	}
	if fields == nil {
		return nil, fmt.Errorf("recipe payload is not an object")
	}
	var recipe domain.Recipe
	if err := json.Unmarshal(raw, &recipe); err != nil {
		return nil, fmt.Errorf("recipe payload is not an object: %w", err)
	}
	return &recipe, nil
}
