package llm

import (
	"fmt"
	"strings"
)

// SystemPrompt frames every completion call in the cooking assistant role.
const SystemPrompt = `You are a professional AI chef helping users cook dishes from the ingredients they have on hand.
Your tasks are to:
1. Analyze the list of detected ingredients
2. Suggest suitable dishes that can be cooked from those ingredients
3. Once the user picks a dish, provide detailed cooking instructions
4. Include a nutrition breakdown for the dish

Answer in a friendly, professional tone.`

// BuildSuggestionPrompt creates the dish-suggestion prompt from detected
// ingredient names.
func BuildSuggestionPrompt(ingredients []string) string {
	return fmt.Sprintf(`The following ingredients were detected from a photo:
%s

Suggest 3-5 suitable dishes that can be cooked from these ingredients.
For each dish provide:
1. The dish name
2. A short description
3. Difficulty (Easy/Medium/Hard)
4. Estimated cooking time
5. Additional ingredients needed (if any)

Requirements:
1. Respond with ONLY the JSON body in the format below, no extra prose or explanation.

Return format as JSON:
{
    "dishes": [
        {
            "name": "Dish name",
            "description": "Description",
            "difficulty": "Easy|Medium|Hard",
            "cooking_time": "X minutes",
            "additional_ingredients": ["ingredient 1", "ingredient 2"]
        }
    ]
}`, strings.Join(ingredients, ", "))
}

// BuildRecipePrompt creates the recipe-generation prompt for a selected dish.
func BuildRecipePrompt(dishName string, available, additional []string) string {
	extra := "none"
	if len(additional) > 0 {
		extra = strings.Join(additional, ", ")
	}

	return fmt.Sprintf(`The user selected the dish: %s

Ingredients already available:
%s

Additional ingredients needed:
%s

Create a detailed guide for cooking this dish. Respond with ONLY a JSON body in the format below, no extra prose.

{
    "dish_name": "%s",
    "ingredients": {
        "available": ["ingredient with quantity"],
        "needed": ["ingredient with quantity"]
    },
    "preparation": ["prep step"],
    "steps": ["numbered cooking step"],
    "tips": ["tip or note"],
    "nutrition": {"calories": "X kcal", "protein": "X g", "carbohydrate": "X g", "fat": "X g", "fiber": "X g"},
    "time": {"preparation": "X minutes", "cooking": "X minutes", "total": "X minutes"},
    "servings": 2
}

Be detailed and easy to follow, suitable for a beginner cook.`,
		dishName, strings.Join(available, ", "), extra, dishName)
}
