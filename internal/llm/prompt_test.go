package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildSuggestionPrompt(t *testing.T) {
	prompt := BuildSuggestionPrompt([]string{"egg", "rice", "scallion"})

	assert.Contains(t, prompt, "egg, rice, scallion")
	assert.Contains(t, prompt, `"dishes"`)
	assert.Contains(t, prompt, `"additional_ingredients"`)
}

func TestBuildRecipePrompt(t *testing.T) {
	prompt := BuildRecipePrompt("Fried Rice", []string{"egg", "rice"}, []string{"soy sauce"})

	assert.Contains(t, prompt, "Fried Rice")
	assert.Contains(t, prompt, "egg, rice")
	assert.Contains(t, prompt, "soy sauce")
	assert.Contains(t, prompt, `"nutrition"`)
}

func TestBuildRecipePrompt_NoAdditional(t *testing.T) {
	prompt := BuildRecipePrompt("Omelette", []string{"egg"}, nil)

	assert.Contains(t, prompt, "none")
}
