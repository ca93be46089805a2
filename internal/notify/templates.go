package notify

import (
	"bytes"
	"fmt"
	"html/template"
)

var templateFuncs = template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}

var selectionTemplate = template.Must(template.New("selection").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: 'Segoe UI', Arial, sans-serif; line-height: 1.6; color: #333; margin: 0; padding: 0; background-color: #f5f5f5; }
        .container { max-width: 600px; margin: 20px auto; background-color: #ffffff; border: 1px solid #e0e0e0; }
        .header { background: linear-gradient(135deg, #667eea 0%, #764ba2 100%); color: white; padding: 30px 20px; text-align: center; }
        .content { padding: 30px 20px; }
        .dish-card { background-color: #f8f9fa; margin: 20px 0; padding: 20px; border-left: 4px solid #667eea; }
        .dish-name { font-size: 18px; font-weight: bold; margin-bottom: 10px; }
        .dish-info { font-size: 14px; color: #555; margin: 8px 0; }
        .selection-section { margin-top: 30px; padding: 20px; background-color: #f0f4ff; border-radius: 8px; text-align: center; }
        .button { display: inline-block; padding: 14px 28px; background-color: #667eea; color: #ffffff; text-decoration: none; border-radius: 6px; margin: 8px 4px; font-weight: 600; }
        .footer { padding: 20px; text-align: center; color: #666; font-size: 13px; background-color: #f8f9fa; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header"><h1>Dish Suggestions For You</h1></div>
        <div class="content">
            <p>Hi <strong>{{.Username}}</strong>,</p>
            <p>Based on your ingredients: <strong>{{range $i, $ing := .Ingredients}}{{if $i}}, {{end}}{{$ing}}{{end}}</strong></p>
            <p>Here are dishes you could cook:</p>
            {{range .Options}}
            <div class="dish-card">
                <div class="dish-name">{{.Dish.Name}}</div>
                <div class="dish-info">{{.Dish.Description}}</div>
                <div class="dish-info">Time: {{.Dish.CookingTime}}</div>
                <div class="dish-info">Difficulty: {{.Dish.Difficulty}}</div>
                <div class="dish-info">Also needed: {{if .Dish.AdditionalIngredients}}{{range $i, $ing := .Dish.AdditionalIngredients}}{{if $i}}, {{end}}{{$ing}}{{end}}{{else}}nothing extra{{end}}</div>
            </div>
            {{end}}
            <div class="selection-section">
                <p><strong>Which dish would you like to cook?</strong></p>
                <p>Click a button below to get a detailed recipe by email.</p>
                {{range .Options}}<a href="{{.SelectionURL}}" class="button">{{.Dish.Name}}</a>{{end}}
            </div>
        </div>
        <div class="footer">
            <p>This is an automated email, please do not reply.</p>
        </div>
    </div>
</body>
</html>`))

var recipeTemplate = template.Must(template.New("recipe").Funcs(templateFuncs).Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 700px; margin: 0 auto; padding: 20px; }
        .header { background-color: #10B981; color: white; padding: 20px; text-align: center; border-radius: 8px 8px 0 0; }
        .content { background-color: white; padding: 30px; }
        .section { margin: 25px 0; }
        .section-title { color: #10B981; font-size: 20px; font-weight: bold; margin-bottom: 12px; border-bottom: 2px solid #10B981; padding-bottom: 5px; }
        .step { margin: 15px 0; padding: 15px; background-color: #f9fafb; border-radius: 6px; }
        .step-number { display: inline-block; width: 30px; height: 30px; background-color: #10B981; color: white; text-align: center; line-height: 30px; border-radius: 50%; margin-right: 10px; }
        .nutrition-table { width: 100%; border-collapse: collapse; margin: 15px 0; }
        .nutrition-table td { padding: 10px; border: 1px solid #e5e7eb; }
        .footer { text-align: center; padding: 20px; color: #999; font-size: 12px; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header"><h1>How To Cook: {{.DishName}}</h1></div>
        <div class="content">
            <div class="section">
                <div class="section-title">Ingredients</div>
                {{if .Recipe.Ingredients.Available}}<p><strong>Already available:</strong></p>
                <ul>{{range .Recipe.Ingredients.Available}}<li>{{.}}</li>{{end}}</ul>{{end}}
                {{if .Recipe.Ingredients.Needed}}<p><strong>Needs buying:</strong></p>
                <ul>{{range .Recipe.Ingredients.Needed}}<li>{{.}}</li>{{end}}</ul>{{end}}
            </div>
            {{if .Recipe.Preparation}}
            <div class="section">
                <div class="section-title">Preparation</div>
                {{range .Recipe.Preparation}}<p>&bull; {{.}}</p>{{end}}
            </div>
            {{end}}
            {{if .Recipe.Steps}}
            <div class="section">
                <div class="section-title">Cooking Steps</div>
                {{range $i, $step := .Recipe.Steps}}<div class="step"><span class="step-number">{{inc $i}}</span>{{$step}}</div>{{end}}
            </div>
            {{end}}
            {{if .Recipe.Tips}}
            <div class="section">
                <div class="section-title">Tips &amp; Notes</div>
                {{range .Recipe.Tips}}<p>&bull; {{.}}</p>{{end}}
            </div>
            {{end}}
            {{if .Recipe.Nutrition}}
            <div class="section">
                <div class="section-title">Nutrition (per serving)</div>
                <table class="nutrition-table">
                {{range $k, $v := .Recipe.Nutrition}}<tr><td><strong>{{$k}}</strong></td><td>{{$v}}</td></tr>{{end}}
                </table>
            </div>
            {{end}}
            {{if .Recipe.Time}}
            <div class="section">
                <div class="section-title">Timing</div>
                {{range $k, $v := .Recipe.Time}}<p><strong>{{$k}}:</strong> {{$v}}</p>{{end}}
            </div>
            {{end}}
            {{if .Recipe.Servings}}
            <div class="section">
                <div class="section-title">Servings</div>
                <p><strong>{{.Recipe.Servings}} people</strong></p>
            </div>
            {{end}}
        </div>
        <div class="footer"><p>Happy cooking! Sent automatically by the AI Chef assistant.</p></div>
    </div>
</body>
</html>`))

// renderSelection renders the dish-selection email body.
func renderSelection(email DishSelectionEmail) (string, error) {
	var buf bytes.Buffer
	if err := selectionTemplate.Execute(&buf, email); err != nil {
		return "", fmt.Errorf("failed to render selection email: %w", err)
	}
	return buf.String(), nil
}

// renderRecipe renders the recipe email body.
func renderRecipe(email RecipeEmail) (string, error) {
	var buf bytes.Buffer
	if err := recipeTemplate.Execute(&buf, email); err != nil {
		return "", fmt.Errorf("failed to render recipe email: %w", err)
	}
	return buf.String(), nil
}
